package backend

import (
	"testing"

	"github.com/pimsim/pimsim/pim"
)

func TestMemoryBackend_BackpressureAndDrain(t *testing.T) {
	org := pim.Organization{ChannelCount: 1, BankGroupCount: 1, BankCount: 2}
	b := NewMemoryBackend(org, 1)

	if !b.Send(pim.Operation{Opcode: pim.OpWrite}) {
		t.Fatal("expected first send to be accepted")
	}
	if b.Send(pim.Operation{Opcode: pim.OpWrite}) {
		t.Fatal("expected second send to be refused while queue is full (depth 1)")
	}
	if b.Finished() {
		t.Fatal("expected Finished()==false with a pending op")
	}

	op, ok := b.DrainOne()
	if !ok || op.Opcode != pim.OpWrite {
		t.Fatalf("expected to drain one write op, got %+v, ok=%v", op, ok)
	}
	if !b.Finished() {
		t.Error("expected Finished()==true after draining the only pending op")
	}
	if b.CyclesElapsed() != 1 {
		t.Errorf("expected CyclesElapsed()==1, got %d", b.CyclesElapsed())
	}
}

func TestMemoryBackend_GetLevelSize(t *testing.T) {
	org := pim.Organization{ChannelCount: 2, BankGroupCount: 4, BankCount: 8, RankCount: 1}
	b := NewMemoryBackend(org, 4)

	cases := map[string]int{"channel": 2, "bankgroup": 4, "bank": 8, "rank": 1, "nonsense": 0}
	for name, want := range cases {
		if got := b.GetLevelSize(name); got != want {
			t.Errorf("GetLevelSize(%q) = %d, want %d", name, got, want)
		}
	}
}
