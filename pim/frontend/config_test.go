package frontend

import "testing"

func TestConfig_Validate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing path", Config{ClockRatio: 1, KVCachePolicyImpl: "naive"}, true},
		{"missing clock ratio", Config{Path: "t.txt", KVCachePolicyImpl: "naive"}, true},
		{"unknown policy", Config{Path: "t.txt", ClockRatio: 1, KVCachePolicyImpl: "bogus"}, true},
		{"valid minimal", Config{Path: "t.txt", ClockRatio: 1, KVCachePolicyImpl: "naive"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_WithDefaults_PreservesZeroSentinels(t *testing.T) {
	cfg := Config{NumTokens: 0, KernelSliceOpsPerToken: 0}.WithDefaults()
	if cfg.NumTokens != 0 {
		t.Errorf("expected NumTokens sentinel 0 preserved, got %d", cfg.NumTokens)
	}
	if cfg.KernelSliceOpsPerToken != 0 {
		t.Errorf("expected KernelSliceOpsPerToken sentinel 0 preserved, got %d", cfg.KernelSliceOpsPerToken)
	}
	if cfg.MaxFlatKernelOps != defaultMaxFlatKernelOps {
		t.Errorf("expected MaxFlatKernelOps defaulted to %d, got %d", defaultMaxFlatKernelOps, cfg.MaxFlatKernelOps)
	}
}
