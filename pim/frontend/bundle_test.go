package frontend

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_ValidYAML(t *testing.T) {
	yamlDoc := `
path: traces/demo.txt
enable_kv_cache: true
num_tokens: 256
kernel_slice_ops_per_token: 1000
clock_ratio: 4
kv_cache_policy_impl: smart-locality
policy_params:
  max_kv_per_bank: 4
  locality_weight: 0.5
kv_data_size:
  head_dim: 64
  hidden_dim: 2048
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Path != "traces/demo.txt" {
		t.Errorf("expected path traces/demo.txt, got %q", cfg.Path)
	}
	if cfg.NumTokens != 256 {
		t.Errorf("expected num_tokens 256, got %d", cfg.NumTokens)
	}
	if cfg.PolicyParams.LocalityWeight == nil || *cfg.PolicyParams.LocalityWeight != 0.5 {
		t.Errorf("expected locality_weight 0.5, got %v", cfg.PolicyParams.LocalityWeight)
	}
	if cfg.KVDataSizeConfig.HeadDim != 64 {
		t.Errorf("expected head_dim 64, got %d", cfg.KVDataSizeConfig.HeadDim)
	}
}

func TestLoadConfig_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("path: t.txt\nnonexistent_field: 1\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected strict decoding to reject an unrecognized field")
	}
}
