// Package pim provides the core placement and accounting engine for a
// Processing-in-Memory (PIM) KV-cache simulation extension.
//
// # Reading Guide
//
// Start with these files to understand the placement kernel:
//   - bank.go: bank index space and address-vector projection/decomposition
//   - staticweights.go: parses the upstream weight-layout trace into a StaticWeightMap
//   - kvpolicy.go: the KVCachePolicy contract and its registry
//   - kvtrace.go: per-token KV read/write operation generation
//   - conflict.go: the bank-conflict tracker and ledger
//
// # Architecture
//
// pim defines the interfaces and core types; concrete collaborators live
// in sub-packages:
//   - pim/backend/: a reference in-memory DRAM back-end and kernel codegen
//   - pim/frontend/: the trace expander that drives a simulation run
//
// The upstream static-layout optimizer, the real kernel code-generator, and
// the cycle-accurate DRAM back-end are external collaborators. pim consumes
// them only through the DRAMBackend, KernelCodegen, and StaticWeightMap
// interfaces/types defined here; it never reimplements them.
package pim
