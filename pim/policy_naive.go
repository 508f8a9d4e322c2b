package pim

// NaivePolicy is the baseline KV cache placement variant: a round-robin
// counter that ignores the static weight map entirely (§4.2 Variant A).
// Expected conflicts are proportional to the fraction of banks holding
// weights.
type NaivePolicy struct {
	sharedAllocationState
	bo       bankOccupancy
	nextBank int
	ready    bool
}

// NewNaivePolicy constructs an unconfigured NaivePolicy.
func NewNaivePolicy() *NaivePolicy {
	return &NaivePolicy{sharedAllocationState: newSharedAllocationState()}
}

func (p *NaivePolicy) Name() string { return "naive" }

func (p *NaivePolicy) Init(_ DRAMBackend, numBanks int, staticMap StaticWeightMap) error {
	if numBanks <= 0 {
		return &ConfigurationError{Msg: "NaivePolicy.Init: numBanks must be > 0"}
	}
	p.bo = newBankOccupancy(numBanks, staticMap)
	p.nextBank = 0
	p.ready = true
	return nil
}

func (p *NaivePolicy) SetStaticWeightMapping(m StaticWeightMap) {
	p.bo.applyStaticMap(m)
}

func (p *NaivePolicy) AllocateKVCacheBank(_ int, tokenID int) (BankIndex, error) {
	if !p.ready {
		return 0, &ConfigurationError{Msg: "NaivePolicy: AllocateKVCacheBank called before Init"}
	}
	bank := BankIndex(p.nextBank)
	p.nextBank = (p.nextBank + 1) % p.bo.numBanks

	p.bo.dynamicAllocCount[bank]++
	conflict := p.bo.staticWeightCount[bank] > 0
	p.record(tokenID, bank, conflict)
	return bank, nil
}

func (p *NaivePolicy) GetKVCacheBank(tokenID int) (BankIndex, bool) { return p.get(tokenID) }

func (p *NaivePolicy) HasBankConflict(bank BankIndex) bool { return p.bo.hasConflict(bank) }

func (p *NaivePolicy) GetStats() Stats { return p.baseStats() }

func (p *NaivePolicy) ResetStats() { p.reset() }
