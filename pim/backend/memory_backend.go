// Package backend provides a reference DRAM back-end and kernel
// code-generator. Both are explicitly out of scope for the core per
// spec.md §1 ("the downstream cycle-accurate DRAM back-end... the
// kernel code-generator... treated here as an external collaborator");
// this package exists only so the frontend and its tests have a
// concrete, minimal collaborator to drive, the way sim/kv and
// sim/latency give the teacher's sim package concrete implementations
// of its KVStore/LatencyModel interfaces.
package backend

import (
	"github.com/pimsim/pimsim/pim"
)

// MemoryBackend is a minimal in-memory DRAMBackend. It models
// back-pressure with a bounded accept queue but performs no
// cycle-accurate timing: operations are accepted immediately if the
// queue has room and drained on the next DrainOne call.
type MemoryBackend struct {
	org     pim.Organization
	queue   chan pim.Operation
	sent    int64
	drained int64
}

// NewMemoryBackend constructs a MemoryBackend with the given DRAM
// organization and accept-queue depth (depth <= 0 defaults to 1).
func NewMemoryBackend(org pim.Organization, queueDepth int) *MemoryBackend {
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &MemoryBackend{
		org:   org,
		queue: make(chan pim.Operation, queueDepth),
	}
}

// Send implements pim.DRAMBackend. It accepts op if the queue has room.
func (b *MemoryBackend) Send(op pim.Operation) bool {
	select {
	case b.queue <- op:
		b.sent++
		return true
	default:
		return false
	}
}

// Finished implements pim.DRAMBackend: true once every accepted
// operation has been drained and none remain pending.
func (b *MemoryBackend) Finished() bool {
	return len(b.queue) == 0
}

// DrainOne removes and returns the oldest accepted operation, modeling
// one tick of back-end processing. Returns false if the queue is empty.
func (b *MemoryBackend) DrainOne() (pim.Operation, bool) {
	select {
	case op := <-b.queue:
		b.drained++
		return op, true
	default:
		return pim.Operation{}, false
	}
}

// GetLevelSize implements pim.DRAMBackend.
func (b *MemoryBackend) GetLevelSize(name string) int {
	switch name {
	case "channel":
		return b.org.ChannelCount
	case "bankgroup":
		return b.org.BankGroupCount
	case "bank":
		return b.org.BankCount
	case "rank":
		return b.org.RankCount
	default:
		return 0
	}
}

// CyclesElapsed reports the number of operations drained so far — the
// evaluation harness greps this as memory_system_cycles (§6).
func (b *MemoryBackend) CyclesElapsed() int64 { return b.drained }
