package frontend

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/pimsim/pimsim/pim"
)

// Report is the finalize-time snapshot persisted to Config.ReportPath
// (SPEC_FULL.md §4.5 detail): the policy's counter bag plus the full
// conflict ledger, including event history.
type Report struct {
	Policy             string             `json:"policy"`
	PolicyStats        pim.Stats          `json:"policy_stats"`
	Conflicts          pim.ConflictLedger `json:"conflicts"`
	ConflictPercent    float64            `json:"conflict_rate_percent"`
	MemorySystemCycles int64              `json:"memory_system_cycles"`
	Truncated          bool               `json:"kernel_buffer_truncated"`
}

// Finalize implements §4.5 step 7: emit policy and tracker statistics,
// including the derived conflict-rate percentage, as structured log lines
// keyed by counter name (§6 "Reported outputs"). The finalize phase
// always runs and always reports whatever statistics were accumulated,
// per §7's propagation policy.
func (f *Frontend) Finalize(cyclesElapsed int64) (Report, error) {
	stats := f.policy.GetStats()
	ledger := f.tracker.Snapshot()
	pct := ledger.ConflictRatePercent(stats["total_allocations"])

	logrus.Infof("pim: finalize policy=%s total_allocations=%d total_conflicts=%d conflict_rate_percent=%.2f",
		f.policy.Name(), stats["total_allocations"], ledger.Total, pct)
	logrus.Infof("pim: memory_system_cycles=%d kernel_buffer_truncated=%v", cyclesElapsed, f.truncated)

	report := Report{
		Policy:             f.policy.Name(),
		PolicyStats:        stats,
		Conflicts:          ledger,
		ConflictPercent:    pct,
		MemorySystemCycles: cyclesElapsed,
		Truncated:          f.truncated,
	}

	if f.cfg.ReportPath == "" {
		return report, nil
	}
	if err := writeCompressedReport(f.cfg.ReportPath, report); err != nil {
		return report, err
	}
	logrus.Infof("pim: wrote zstd-compressed report to %q", f.cfg.ReportPath)
	return report, nil
}

// writeCompressedReport marshals report to JSON and writes it zstd-
// compressed to path, grounded on diskstore.Store's use of
// github.com/klauspost/compress/zstd for compressing evicted-block
// snapshots.
func writeCompressedReport(path string, report Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("construct zstd encoder: %w", err)
	}
	defer enc.Close()

	compressed := enc.EncodeAll(data, nil)
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return nil
}
