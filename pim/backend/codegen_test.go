package backend

import (
	"testing"

	"github.com/pimsim/pimsim/pim"
)

func TestSymbolicCodegen_CodegenKernel_Deterministic(t *testing.T) {
	org := pim.Organization{ChannelCount: 1, BankGroupCount: 1, BankCount: 4}
	cg := &SymbolicCodegen{Org: org}
	desc := pim.KernelDescriptor{
		Opcode: "gemm",
		Body:   [][]string{{"w", "0", "0"}, {"w", "0", "1"}},
	}

	var out1, out2 []pim.Operation
	if err := cg.CodegenKernel(desc, &out1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cg.CodegenKernel(desc, &out2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out1) != 4 { // compute+write per body entry
		t.Fatalf("expected 4 ops (2 pairs), got %d", len(out1))
	}
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Errorf("expected deterministic codegen, op %d differs: %+v vs %+v", i, out1[i], out2[i])
		}
	}
}

func TestSymbolicCodegen_ZeroBanks(t *testing.T) {
	cg := &SymbolicCodegen{Org: pim.Organization{}}
	var out []pim.Operation
	err := cg.CodegenKernel(pim.KernelDescriptor{Body: [][]string{{"x"}}}, &out)
	if err == nil {
		t.Fatal("expected an error when the organization has zero banks")
	}
}
