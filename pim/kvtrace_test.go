package pim

import "testing"

func TestKVDataSizeConfig_Defaults(t *testing.T) {
	cfg := KVDataSizeConfig{}
	want := int64(defaultHeadDim) * int64(defaultHiddenDim) * 2 * 4
	if got := cfg.KVDataSize(); got != want {
		t.Errorf("KVDataSize() = %d, want %d", got, want)
	}
}

func TestRowCount_CeilDivision(t *testing.T) {
	tests := []struct {
		size, granule, want int64
	}{
		{0, 8192, 1},
		{1, 8192, 1},
		{8192, 8192, 1},
		{8193, 8192, 2},
		{16384, 8192, 2},
	}
	for _, tt := range tests {
		if got := rowCount(tt.size, tt.granule); got != tt.want {
			t.Errorf("rowCount(%d, %d) = %d, want %d", tt.size, tt.granule, got, tt.want)
		}
	}
}

func TestKVTraceGenerator_Generate(t *testing.T) {
	org := Organization{ChannelCount: 1, BankGroupCount: 1, BankCount: 4}
	policy := NewNaivePolicy()
	if err := policy.Init(nil, org.NumBanks(), StaticWeightMap{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	gen := NewKVTraceGenerator(policy, org, 8192, KVDataSizeConfig{HeadDim: 1, HiddenDim: 1})

	// Token 0 has no prior tokens: only an allocate + write.
	ops, err := gen.Generate(0, 8192, 0)
	if err != nil {
		t.Fatalf("Generate(0): %v", err)
	}
	for _, op := range ops {
		if op.Opcode == OpRead {
			t.Errorf("token 0 should have no read ops, got %+v", op)
		}
	}
	writeCount := 0
	for _, op := range ops {
		if op.Opcode == OpWrite {
			writeCount++
		}
	}
	if writeCount == 0 {
		t.Error("expected at least one write op for token 0")
	}

	// Token 1 should read token 0's bank before writing its own.
	ops, err = gen.Generate(1, 8192, 1)
	if err != nil {
		t.Fatalf("Generate(1): %v", err)
	}
	if len(ops) == 0 || ops[0].Opcode != OpRead {
		t.Errorf("expected token 1's first op to be a read of token 0, got %+v", ops)
	}
}
