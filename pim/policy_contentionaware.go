package pim

// defaultMaxKVPerBank is the per-bank allocation cap used when a policy
// configuration omits max_kv_per_bank (§6).
const defaultMaxKVPerBank = 3

// ContentionAwarePolicy prefers cold (zero static-weight) banks up to a
// per-bank cap, falling back to the least-loaded bank once the cold set
// is saturated (§4.2 Variant C). The cap is essential: without it the
// policy collapses onto a single cold bank and starves parallelism.
type ContentionAwarePolicy struct {
	sharedAllocationState
	bo bankOccupancy

	maxKVPerBank int
	lastBank     int
	ready        bool
}

// NewContentionAwarePolicy constructs an unconfigured ContentionAwarePolicy.
func NewContentionAwarePolicy(params PolicyParams) *ContentionAwarePolicy {
	maxKV := params.MaxKVPerBank
	if maxKV <= 0 {
		maxKV = defaultMaxKVPerBank
	}
	return &ContentionAwarePolicy{
		sharedAllocationState: newSharedAllocationState(),
		maxKVPerBank:          maxKV,
		lastBank:              -1,
	}
}

func (p *ContentionAwarePolicy) Name() string { return "contention-aware" }

func (p *ContentionAwarePolicy) Init(_ DRAMBackend, numBanks int, staticMap StaticWeightMap) error {
	if numBanks <= 0 {
		return &ConfigurationError{Msg: "ContentionAwarePolicy.Init: numBanks must be > 0"}
	}
	p.bo = newBankOccupancy(numBanks, staticMap)
	p.lastBank = -1
	p.ready = true
	return nil
}

func (p *ContentionAwarePolicy) SetStaticWeightMapping(m StaticWeightMap) {
	p.bo.applyStaticMap(m)
}

// hasAnyZeroWeightBank reports whether at least one bank currently carries
// no static weight. When true, candidate banks for allocation are
// restricted to the zero-weight set (§3 invariant); when false (every
// bank carries weight), all banks become candidates.
func (p *ContentionAwarePolicy) hasAnyZeroWeightBank() bool {
	for _, c := range p.bo.staticWeightCount {
		if c == 0 {
			return true
		}
	}
	return false
}

func (p *ContentionAwarePolicy) isCandidate(bank int, restrictToZeroWeight bool) bool {
	if restrictToZeroWeight {
		return p.bo.staticWeightCount[bank] == 0
	}
	return true
}

// chooseBank implements the two-step allocation rule of §4.2 Variant C.
func (p *ContentionAwarePolicy) chooseBank() BankIndex {
	n := p.bo.numBanks
	restrict := p.hasAnyZeroWeightBank()

	start := (p.lastBank + 1) % n
	if start < 0 {
		start += n
	}
	for i := 0; i < n; i++ {
		b := (start + i) % n
		if p.isCandidate(b, restrict) && p.bo.dynamicAllocCount[b] < p.maxKVPerBank {
			return BankIndex(b)
		}
	}

	// Fallback: minimum dynamic_alloc_count among candidates, ties broken
	// by lowest index.
	chosen := -1
	minCount := -1
	for b := 0; b < n; b++ {
		if !p.isCandidate(b, restrict) {
			continue
		}
		if minCount == -1 || p.bo.dynamicAllocCount[b] < minCount {
			minCount = p.bo.dynamicAllocCount[b]
			chosen = b
		}
	}
	return BankIndex(chosen)
}

func (p *ContentionAwarePolicy) AllocateKVCacheBank(_ int, tokenID int) (BankIndex, error) {
	if !p.ready {
		return 0, &ConfigurationError{Msg: "ContentionAwarePolicy: AllocateKVCacheBank called before Init"}
	}
	bank := p.chooseBank()
	p.lastBank = int(bank)

	p.bo.dynamicAllocCount[bank]++
	conflict := p.bo.staticWeightCount[bank] > 0
	p.record(tokenID, bank, conflict)
	return bank, nil
}

func (p *ContentionAwarePolicy) GetKVCacheBank(tokenID int) (BankIndex, bool) { return p.get(tokenID) }

func (p *ContentionAwarePolicy) HasBankConflict(bank BankIndex) bool { return p.bo.hasConflict(bank) }

func (p *ContentionAwarePolicy) GetStats() Stats {
	stats := p.baseStats()
	stats["max_kv_per_bank"] = int64(p.maxKVPerBank)
	return stats
}

func (p *ContentionAwarePolicy) ResetStats() { p.reset() }
