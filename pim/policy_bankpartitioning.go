package pim

// BankPartitioningPolicy reserves a contiguous bank range [start, start+count)
// for KV allocations and round-robins inside it, trusting the upstream
// layout optimizer to leave the range empty (§4.2 Variant B). It still
// reports conflicts if the static weight map places weights inside the
// reserved range — that's how downstream tests detect mis-configuration.
type BankPartitioningPolicy struct {
	sharedAllocationState
	bo bankOccupancy

	configuredStart int
	configuredCount int

	start int
	count int
	next  int
	ready bool
}

// NewBankPartitioningPolicy constructs an unconfigured BankPartitioningPolicy.
// start/count are resolved against N at Init time (defaults 0 and N/4,
// clamped to stay within [0, N) and at least 1).
func NewBankPartitioningPolicy(params PolicyParams) *BankPartitioningPolicy {
	return &BankPartitioningPolicy{
		sharedAllocationState: newSharedAllocationState(),
		configuredStart:       params.KVCacheBanksStart,
		configuredCount:       params.KVCacheBanksCount,
	}
}

func (p *BankPartitioningPolicy) Name() string { return "bank-partitioning" }

func (p *BankPartitioningPolicy) Init(_ DRAMBackend, numBanks int, staticMap StaticWeightMap) error {
	if numBanks <= 0 {
		return &ConfigurationError{Msg: "BankPartitioningPolicy.Init: numBanks must be > 0"}
	}
	p.bo = newBankOccupancy(numBanks, staticMap)

	count := p.configuredCount
	if count <= 0 {
		count = numBanks / 4
	}
	if count < 1 {
		count = 1
	}
	if count > numBanks {
		count = numBanks
	}

	start := p.configuredStart
	if start < 0 {
		start = 0
	}
	if start > numBanks-1 {
		start = numBanks - 1
	}
	if start+count > numBanks {
		start = numBanks - count
	}

	p.start = start
	p.count = count
	p.next = 0
	p.ready = true
	return nil
}

func (p *BankPartitioningPolicy) SetStaticWeightMapping(m StaticWeightMap) {
	p.bo.applyStaticMap(m)
}

func (p *BankPartitioningPolicy) AllocateKVCacheBank(_ int, tokenID int) (BankIndex, error) {
	if !p.ready {
		return 0, &ConfigurationError{Msg: "BankPartitioningPolicy: AllocateKVCacheBank called before Init"}
	}
	bank := BankIndex(p.start + p.next)
	p.next = (p.next + 1) % p.count

	p.bo.dynamicAllocCount[bank]++
	conflict := p.bo.staticWeightCount[bank] > 0
	p.record(tokenID, bank, conflict)
	return bank, nil
}

func (p *BankPartitioningPolicy) GetKVCacheBank(tokenID int) (BankIndex, bool) { return p.get(tokenID) }

func (p *BankPartitioningPolicy) HasBankConflict(bank BankIndex) bool { return p.bo.hasConflict(bank) }

func (p *BankPartitioningPolicy) GetStats() Stats {
	stats := p.baseStats()
	stats["reserved_start"] = int64(p.start)
	stats["reserved_count"] = int64(p.count)
	return stats
}

func (p *BankPartitioningPolicy) ResetStats() { p.reset() }
