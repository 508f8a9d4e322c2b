package frontend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pimsim/pimsim/pim"
	"github.com/pimsim/pimsim/pim/backend"
)

func writeGemmTrace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.txt")
	contents := "gemm\nw 0 0\nw 0 1\nw 0 2\nend\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func newTestFrontend(t *testing.T, cfg Config) (*Frontend, *backend.MemoryBackend) {
	t.Helper()
	fe := New(cfg)
	require.NoError(t, fe.Load())

	org := pim.Organization{ChannelCount: 1, BankGroupCount: 1, BankCount: 4}
	mem := backend.NewMemoryBackend(org, 1024)
	codegen := &backend.SymbolicCodegen{Org: org}
	require.NoError(t, fe.Connect(mem, codegen))
	require.NoError(t, fe.Expand())
	fe.DeriveLiveWeightMap()
	return fe, mem
}

// §8: "With num_tokens = 0, the emitted stream contains only the kernel
// portion of the original trace and no KV ops."
func TestFrontend_NumTokensZero_StreamIsKernelOnly(t *testing.T) {
	path := writeGemmTrace(t)
	fe, _ := newTestFrontend(t, Config{
		Path:              path,
		EnableKVCache:     true,
		NumTokens:         0,
		ClockRatio:        1,
		KVCachePolicyImpl: "naive",
	})
	require.NoError(t, fe.Synthesize())

	require.Equal(t, len(fe.flat), len(fe.stream))
	for _, op := range fe.stream {
		require.NotEqual(t, pim.OpRead, op.Opcode)
		require.Less(t, op.TokenID, 0, "kernel-only stream ops must not carry a KV token id")
	}
}

// §8: "With kernel_slice_ops_per_token = 0 and enable_kv_cache = true, the
// emitted stream contains exactly the KV ops produced by the generator,
// in per-token order."
func TestFrontend_KernelSliceZero_PureKVStream(t *testing.T) {
	path := writeGemmTrace(t)
	fe, _ := newTestFrontend(t, Config{
		Path:                   path,
		EnableKVCache:          true,
		NumTokens:              3,
		KernelSliceOpsPerToken: 0,
		ClockRatio:             1,
		KVCachePolicyImpl:      "naive",
	})
	require.NoError(t, fe.Synthesize())

	wantLen := 0
	gen := pim.NewKVTraceGenerator(pim.NewNaivePolicy(), fe.org, 0, pim.KVDataSizeConfig{})
	require.NoError(t, gen.Policy.Init(nil, fe.org.NumBanks(), pim.StaticWeightMap{}))
	for tok := 0; tok < 3; tok++ {
		ops, err := gen.Generate(tok, gen.KVDataSize, int64(tok))
		require.NoError(t, err)
		wantLen += len(ops)
	}
	require.Equal(t, wantLen, len(fe.stream))
}

func TestFrontend_EnableKVCacheFalse_StreamIsKernelOnly(t *testing.T) {
	path := writeGemmTrace(t)
	fe, _ := newTestFrontend(t, Config{
		Path:                   path,
		EnableKVCache:          false,
		NumTokens:              100,
		KernelSliceOpsPerToken: 5000,
		ClockRatio:             1,
		KVCachePolicyImpl:      "naive",
	})
	require.NoError(t, fe.Synthesize())
	require.Equal(t, len(fe.flat), len(fe.stream))
}

// §4.6: the live-weight-map fallback substitutes for the upstream map
// only when the file-based map came back empty. A real, non-empty
// static_weight_trace_path must never be clobbered by writes observed
// during kernel expansion.
func TestFrontend_DeriveLiveWeightMap_SkippedWhenStaticMapNonEmpty(t *testing.T) {
	dir := t.TempDir()
	staticPath := filepath.Join(dir, "static.txt")
	require.NoError(t, os.WriteFile(staticPath, []byte("W 0,0,0,0,0,0\nW 0,0,0,1,0,0\n"), 0o644))

	tracePath := writeTrace(t, "W 0,0,0,2,0,0\n")

	fe, mem := newTestFrontend(t, Config{
		Path:                   tracePath,
		StaticWeightTracePath:  staticPath,
		EnableKVCache:          true,
		NumTokens:              3,
		KernelSliceOpsPerToken: 0,
		ClockRatio:             1,
		KVCachePolicyImpl:      "naive",
		KVDataSizeConfig:       pim.KVDataSizeConfig{HeadDim: 1, HiddenDim: 1},
		RowGranuleBytes:        8192,
	})
	require.NoError(t, fe.Synthesize())

	for {
		done, err := fe.Stream()
		require.NoError(t, err)
		for {
			if _, ok := mem.DrainOne(); !ok {
				break
			}
		}
		if done {
			break
		}
	}

	stats := fe.Policy().GetStats()
	require.Equal(t, int64(2), stats["total_conflicts"],
		"banks 0 and 1 carry static weight per the file-based map; it must survive Expand untouched")
}

func TestFrontend_Run_DrainsToCompletion(t *testing.T) {
	path := writeGemmTrace(t)
	fe, mem := newTestFrontend(t, Config{
		Path:                   path,
		EnableKVCache:          true,
		NumTokens:              2,
		KernelSliceOpsPerToken: 1,
		ClockRatio:             1,
		KVCachePolicyImpl:      "naive",
	})
	require.NoError(t, fe.Synthesize())

	for {
		done, err := fe.Stream()
		require.NoError(t, err)
		for {
			if _, ok := mem.DrainOne(); !ok {
				break
			}
		}
		if done {
			break
		}
	}

	report, err := fe.Finalize(mem.CyclesElapsed())
	require.NoError(t, err)
	require.Equal(t, "naive", report.Policy)
	require.GreaterOrEqual(t, report.PolicyStats["total_allocations"], int64(2))
}

// observe() classifies by TokenID, so a bare opcode line parsed directly
// off the main trace (not emitted by the KV trace generator) must carry
// TokenID -1 and register as weight-class, not KV-class (frontend.go's
// observe, load.go's LoadTrace).
func TestFrontend_Stream_ClassifiesDirectTraceOpsAsWeight(t *testing.T) {
	path := writeTrace(t, "W 0,0,0,0,0,0\n")
	fe, mem := newTestFrontend(t, Config{
		Path:                   path,
		EnableKVCache:          true,
		NumTokens:              1,
		KernelSliceOpsPerToken: 1,
		ClockRatio:             1,
		KVCachePolicyImpl:      "naive",
		KVDataSizeConfig:       pim.KVDataSizeConfig{HeadDim: 1, HiddenDim: 1},
		RowGranuleBytes:        8192,
	})
	require.NoError(t, fe.Synthesize())

	for {
		done, err := fe.Stream()
		require.NoError(t, err)
		for {
			if _, ok := mem.DrainOne(); !ok {
				break
			}
		}
		if done {
			break
		}
	}

	ledger := fe.Tracker().Snapshot()
	require.Equal(t, int64(1), ledger.Total,
		"the directly-parsed op shares bank 0 with the token-0 KV write and must register as a weight-vs-KV conflict")
	require.Equal(t, int64(1), ledger.WeightBlockedByKV)
	require.Equal(t, int64(0), ledger.KVBlockedByWeight)
}

func TestFrontend_Finalize_WritesCompressedReport(t *testing.T) {
	path := writeGemmTrace(t)
	reportPath := filepath.Join(t.TempDir(), "report.zst")
	fe, mem := newTestFrontend(t, Config{
		Path:                   path,
		EnableKVCache:          true,
		NumTokens:              1,
		KernelSliceOpsPerToken: 0,
		ClockRatio:             1,
		KVCachePolicyImpl:      "naive",
		ReportPath:             reportPath,
	})
	require.NoError(t, fe.Synthesize())
	for {
		done, err := fe.Stream()
		require.NoError(t, err)
		for {
			if _, ok := mem.DrainOne(); !ok {
				break
			}
		}
		if done {
			break
		}
	}
	_, err := fe.Finalize(mem.CyclesElapsed())
	require.NoError(t, err)

	info, err := os.Stat(reportPath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
