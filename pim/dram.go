package pim

// DRAMBackend is the cycle-accurate DRAM back-end consumed by the
// frontend (§6). It is an external collaborator: this module never
// implements cycle-accurate timing itself. pim/backend ships a minimal
// in-memory reference implementation for tests and the CLI demo.
type DRAMBackend interface {
	// Send offers one Operation to the back-end. It returns true if the
	// operation was accepted and dequeued; false is a BackpressureRefusal
	// (§7) and the caller retries the same operation on the next tick.
	Send(op Operation) bool
	// Finished reports whether the back-end has drained all accepted
	// operations and is idle.
	Finished() bool
	// GetLevelSize returns the DRAM organization's size at the named
	// hierarchy level: "channel", "bankgroup", "bank", and optionally
	// "rank". Unknown names return 0.
	GetLevelSize(name string) int
}

// KernelDescriptor is the parsed symbolic form of one matmul/convolution
// block (conv2d/gemm ... end), a list of token lists. It is read-only
// after parsing and consumed exactly once by KernelCodegen.
type KernelDescriptor struct {
	Opcode string // "conv2d" or "gemm"
	Body   [][]string
}

// KernelCodegen is the external kernel code-generator (§6): it turns a
// symbolic matmul/conv descriptor into a flat, ordered sequence of
// low-level bank Operations. pim/backend ships SymbolicCodegen, a
// minimal reference implementation sufficient to exercise the trace
// expander's pre-scan and live-weight-map derivation.
type KernelCodegen interface {
	CodegenKernel(desc KernelDescriptor, out *[]Operation) error
}
