package backend

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"

	"github.com/pimsim/pimsim/pim"
)

// SymbolicCodegen is a minimal reference kernel code-generator: it
// expands a KernelDescriptor into one compute+write pair per body token
// list, with the write address derived from a stable hash of the tokens.
// It exists only to give the trace expander's pre-scan (§4.5 steps 3–4)
// something concrete to drive in tests and the CLI demo — the real
// kernel code-generator is an external collaborator (§1).
type SymbolicCodegen struct {
	Org pim.Organization
}

// CodegenKernel implements pim.KernelCodegen.
func (c *SymbolicCodegen) CodegenKernel(desc pim.KernelDescriptor, out *[]pim.Operation) error {
	n := c.Org.NumBanks()
	if n <= 0 {
		return &pim.ConfigurationError{Msg: "SymbolicCodegen: organization has zero banks"}
	}
	for i, tokens := range desc.Body {
		bank := pim.BankIndex(hashTokenList(tokens) % uint64(n))
		addr := pim.DecomposeBankIndex(bank, c.Org)
		addr.Row = i
		*out = append(*out,
			pim.Operation{Opcode: pim.OpCompute, Addr: addr, TokenID: -1},
			pim.Operation{Opcode: pim.OpWrite, Addr: addr, TokenID: -1},
		)
	}
	return nil
}

// hashTokenList returns a stable hash of a joined token list, grounded
// on the teacher's hashTokens (sim/kvcache.go): join with "|", hash with
// sha256, then fold the digest into a uint64.
func hashTokenList(tokens []string) uint64 {
	h := sha256.New()
	var joined strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			joined.WriteString("|")
		}
		joined.WriteString(tok)
	}
	h.Write([]byte(joined.String()))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
