package pim

// defaultRowGranuleBytes is the row granule assumed by the read/write row
// count formula (§4.3, §9 Open Questions): ceil(size / rowGranuleBytes).
// This is independent of any simulated technology's actual row size and
// is parameterized here rather than hardcoded.
const defaultRowGranuleBytes = 8192

// defaultHeadDim and defaultHiddenDim size the per-token KV write, per §6.
const (
	defaultHeadDim   = 128
	defaultHiddenDim = 4096
)

// KVDataSizeConfig groups the per-token KV footprint parameters that
// determine kv_data_size = head_dim * hidden_dim * 2 * sizeof(float32).
type KVDataSizeConfig struct {
	HeadDim   int `yaml:"head_dim"`
	HiddenDim int `yaml:"hidden_dim"`
}

// KVDataSize returns the per-token KV write size in bytes.
func (c KVDataSizeConfig) KVDataSize() int64 {
	headDim, hiddenDim := c.HeadDim, c.HiddenDim
	if headDim <= 0 {
		headDim = defaultHeadDim
	}
	if hiddenDim <= 0 {
		hiddenDim = defaultHiddenDim
	}
	return int64(headDim) * int64(hiddenDim) * 2 * 4
}

// KVTraceGenerator transforms a token id into the memory operations for
// one decoding step (§4.3). It owns no allocation table of its own — it
// trusts the policy for placement and lookup.
type KVTraceGenerator struct {
	Policy          KVCachePolicy
	Org             Organization
	RowGranuleBytes int64
	KVDataSize      int64 // bytes written per token, see KVDataSizeConfig
}

// NewKVTraceGenerator constructs a generator. rowGranuleBytes <= 0
// defaults to 8192; kvDataSizeCfg zero-value defaults per KVDataSizeConfig.
func NewKVTraceGenerator(policy KVCachePolicy, org Organization, rowGranuleBytes int64, kvDataSizeCfg KVDataSizeConfig) *KVTraceGenerator {
	if rowGranuleBytes <= 0 {
		rowGranuleBytes = defaultRowGranuleBytes
	}
	return &KVTraceGenerator{
		Policy:          policy,
		Org:             org,
		RowGranuleBytes: rowGranuleBytes,
		KVDataSize:      kvDataSizeCfg.KVDataSize(),
	}
}

// rowCount returns ceil(sizeBytes / rowGranuleBytes), at least 1.
func rowCount(sizeBytes, rowGranuleBytes int64) int64 {
	if sizeBytes <= 0 {
		return 1
	}
	n := (sizeBytes + rowGranuleBytes - 1) / rowGranuleBytes
	if n < 1 {
		n = 1
	}
	return n
}

// Generate emits the read/allocate/write operations for decoding step
// tokenID (§4.3): reads of every prior token's bank, a new allocation for
// tokenID, and writes to the freshly allocated bank. blockSize sizes the
// read phase's row count for each prior token.
func (g *KVTraceGenerator) Generate(tokenID int, blockSize int64, cycle int64) ([]Operation, error) {
	var ops []Operation

	// Read phase: every prior token's bank, if allocated.
	for i := 0; i < tokenID; i++ {
		bank, ok := g.Policy.GetKVCacheBank(i)
		if !ok {
			continue
		}
		n := rowCount(blockSize, g.RowGranuleBytes)
		for row := int64(0); row < n; row++ {
			addr := DecomposeBankIndex(bank, g.Org)
			addr.Row = int(row)
			addr.Column = 0
			ops = append(ops, Operation{Opcode: OpRead, Addr: addr, Cycle: cycle, TokenID: i})
		}
	}

	// Allocate phase.
	bank, err := g.Policy.AllocateKVCacheBank(int(g.KVDataSize), tokenID)
	if err != nil {
		return ops, err
	}

	// Write phase: the freshly allocated bank.
	n := rowCount(g.KVDataSize, g.RowGranuleBytes)
	for row := int64(0); row < n; row++ {
		addr := DecomposeBankIndex(bank, g.Org)
		addr.Row = int(row)
		addr.Column = 0
		ops = append(ops, Operation{Opcode: OpWrite, Addr: addr, Cycle: cycle, TokenID: tokenID})
	}

	return ops, nil
}
