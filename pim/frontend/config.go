package frontend

import (
	"fmt"

	"github.com/pimsim/pimsim/pim"
)

// DefaultNumTokens, DefaultKernelSliceOpsPerToken and defaultMaxFlatKernelOps
// are the Frontend configuration defaults of spec §6. The first two are
// exported so the CLI can bind them as cobra flag defaults.
const (
	DefaultNumTokens              = 512
	DefaultKernelSliceOpsPerToken = 5000
	defaultMaxFlatKernelOps       = 5_000_000
)

// Config groups every Frontend configuration scalar named in §6. It is the
// one struct the CLI and any YAML bundle populate before calling Connect.
type Config struct {
	Path                   string `yaml:"path"` // upstream trace path, required
	EnableKVCache          bool   `yaml:"enable_kv_cache"`
	StaticWeightTracePath  string `yaml:"static_weight_trace_path"`
	NumTokens              int    `yaml:"num_tokens"`                // not defaulted here (CLI flag default 512); 0 = kernel-only stream
	KernelSliceOpsPerToken int    `yaml:"kernel_slice_ops_per_token"` // not defaulted here (CLI flag default 5000); 0 = pure-KV mode
	ClockRatio             int    `yaml:"clock_ratio"`                // required, > 0

	KVCachePolicyImpl string               `yaml:"kv_cache_policy_impl"` // one of ValidKVPolicyNames()
	PolicyParams      pim.PolicyParams     `yaml:"policy_params"`
	KVDataSizeConfig  pim.KVDataSizeConfig `yaml:"kv_data_size"`
	RowGranuleBytes   int64                `yaml:"row_granule_bytes"`

	// LiveMapPadPerBank governs the §4.6 fallback padding: < 0 disables
	// padding, 0 applies the documented default of 100, > 0 is explicit.
	LiveMapPadPerBank int `yaml:"live_map_pad_per_bank"`

	MaxFlatKernelOps int `yaml:"max_flat_kernel_ops"` // safety ceiling for the pre-scan buffer, default 5M

	// ReportPath, when non-empty, persists a zstd-compressed JSON report
	// at Finalize (SPEC_FULL.md §4.5 detail). Empty skips this step.
	ReportPath string `yaml:"report_path"`
}

// WithDefaults returns a copy of c with zero-valued optional fields filled
// in per §6's documented defaults. NumTokens and KernelSliceOpsPerToken are
// deliberately NOT defaulted here: 0 is itself a documented sentinel for
// each ("emit only the kernel portion, no KV ops" and "pure-KV mode",
// §4.5 step 5, §8), so a caller that wants the 512 / 5000 defaults sets
// them explicitly (the CLI binds both as cobra flag defaults).
func (c Config) WithDefaults() Config {
	if c.MaxFlatKernelOps == 0 {
		c.MaxFlatKernelOps = defaultMaxFlatKernelOps
	}
	return c
}

// Validate aggregates every configuration problem into a single
// ConfigurationError, mirroring the teacher's ValidateRooflineConfig
// style (collect, then return one error naming every violation found).
func (c Config) Validate() error {
	var problems []string

	if c.Path == "" {
		problems = append(problems, "path is required")
	}
	if c.NumTokens < 0 {
		problems = append(problems, fmt.Sprintf("num_tokens must be >= 0, got %d", c.NumTokens))
	}
	if c.KernelSliceOpsPerToken < 0 {
		problems = append(problems, fmt.Sprintf("kernel_slice_ops_per_token must be >= 0, got %d", c.KernelSliceOpsPerToken))
	}
	if c.ClockRatio <= 0 {
		problems = append(problems, fmt.Sprintf("clock_ratio is required and must be > 0, got %d", c.ClockRatio))
	}
	if c.MaxFlatKernelOps < 0 {
		problems = append(problems, fmt.Sprintf("max_flat_kernel_ops must be >= 0, got %d", c.MaxFlatKernelOps))
	}
	if !pim.IsValidKVPolicy(c.KVCachePolicyImpl) {
		problems = append(problems, fmt.Sprintf(
			"unknown kv_cache_policy.impl %q; valid options: %v", c.KVCachePolicyImpl, pim.ValidKVPolicyNames()))
	}

	if len(problems) == 0 {
		return nil
	}
	return &pim.ConfigurationError{Msg: fmt.Sprintf("invalid frontend configuration: %v", problems)}
}
