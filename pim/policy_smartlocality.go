package pim

// defaultLocalityWeight and defaultActivityThresholdPercent mirror the
// option defaults of §6. activityThresholdPercent parameterizes the
// locality-bonus band as [2*at, 100-2*at]; at the default of 10 this
// reproduces the documented [20, 80] band.
const (
	defaultLocalityWeight           = 0.3
	defaultActivityThresholdPercent = 10.0
)

// SmartLocalityPolicy extends ContentionAwarePolicy with an activity
// score that rewards KV placement adjacent to moderately-hot weight
// banks (row-buffer reuse) while still avoiding the hottest and coldest
// extremes (§4.2 Variant D).
type SmartLocalityPolicy struct {
	sharedAllocationState
	bo bankOccupancy

	maxKVPerBank             int
	localityWeight           float64
	activityThresholdPercent float64
	ready                    bool
}

// NewSmartLocalityPolicy constructs an unconfigured SmartLocalityPolicy.
func NewSmartLocalityPolicy(params PolicyParams) *SmartLocalityPolicy {
	maxKV := params.MaxKVPerBank
	if maxKV <= 0 {
		maxKV = defaultMaxKVPerBank
	}
	lw := defaultLocalityWeight
	if params.LocalityWeight != nil {
		lw = *params.LocalityWeight
	}
	at := defaultActivityThresholdPercent
	if params.ActivityThresholdPercent != nil {
		at = *params.ActivityThresholdPercent
	}
	return &SmartLocalityPolicy{
		sharedAllocationState:    newSharedAllocationState(),
		maxKVPerBank:             maxKV,
		localityWeight:           lw,
		activityThresholdPercent: at,
	}
}

func (p *SmartLocalityPolicy) Name() string { return "smart-locality" }

func (p *SmartLocalityPolicy) Init(_ DRAMBackend, numBanks int, staticMap StaticWeightMap) error {
	if numBanks <= 0 {
		return &ConfigurationError{Msg: "SmartLocalityPolicy.Init: numBanks must be > 0"}
	}
	p.bo = newBankOccupancy(numBanks, staticMap)
	p.ready = true
	return nil
}

func (p *SmartLocalityPolicy) SetStaticWeightMapping(m StaticWeightMap) {
	p.bo.applyStaticMap(m)
}

// activity returns the normalized (0-100) activity score for bank.
func (p *SmartLocalityPolicy) activity(bank int, maxWeight int) float64 {
	if maxWeight == 0 {
		return 0
	}
	return float64(p.bo.staticWeightCount[bank]*100) / float64(maxWeight)
}

// score computes the SmartLocality placement score for bank; lower is
// preferred. A locality bonus is subtracted when activity falls in the
// [2*activityThresholdPercent, 100-2*activityThresholdPercent] band.
func (p *SmartLocalityPolicy) score(bank int, maxWeight int) float64 {
	s := 100*float64(p.bo.staticWeightCount[bank]) + 10*float64(p.bo.dynamicAllocCount[bank])
	a := p.activity(bank, maxWeight)
	lo := 2 * p.activityThresholdPercent
	hi := 100 - 2*p.activityThresholdPercent
	if a >= lo && a <= hi {
		s -= 50 * p.localityWeight
	}
	return s
}

func (p *SmartLocalityPolicy) hasAnyZeroWeightBank() bool {
	for _, c := range p.bo.staticWeightCount {
		if c == 0 {
			return true
		}
	}
	return false
}

// chooseBank implements §4.2 Variant D: restrict to zero-weight banks
// when any exist, prefer banks under the allocation cap, and pick the
// minimum-score candidate, ties broken by lowest index.
func (p *SmartLocalityPolicy) chooseBank() BankIndex {
	n := p.bo.numBanks
	restrict := p.hasAnyZeroWeightBank()
	maxWeight := p.bo.maxStaticWeightCount()

	isCandidate := func(b int) bool {
		if restrict {
			return p.bo.staticWeightCount[b] == 0
		}
		return true
	}

	best := -1
	bestScore := 0.0
	for b := 0; b < n; b++ {
		if !isCandidate(b) || p.bo.dynamicAllocCount[b] >= p.maxKVPerBank {
			continue
		}
		s := p.score(b, maxWeight)
		if best == -1 || s < bestScore {
			best, bestScore = b, s
		}
	}
	if best != -1 {
		return BankIndex(best)
	}

	// Fallback: every candidate is at the cap; ignore the cap and pick
	// the minimum-score candidate.
	for b := 0; b < n; b++ {
		if !isCandidate(b) {
			continue
		}
		s := p.score(b, maxWeight)
		if best == -1 || s < bestScore {
			best, bestScore = b, s
		}
	}
	return BankIndex(best)
}

func (p *SmartLocalityPolicy) AllocateKVCacheBank(_ int, tokenID int) (BankIndex, error) {
	if !p.ready {
		return 0, &ConfigurationError{Msg: "SmartLocalityPolicy: AllocateKVCacheBank called before Init"}
	}
	bank := p.chooseBank()

	p.bo.dynamicAllocCount[bank]++
	conflict := p.bo.staticWeightCount[bank] > 0
	p.record(tokenID, bank, conflict)
	return bank, nil
}

func (p *SmartLocalityPolicy) GetKVCacheBank(tokenID int) (BankIndex, bool) { return p.get(tokenID) }

func (p *SmartLocalityPolicy) HasBankConflict(bank BankIndex) bool { return p.bo.hasConflict(bank) }

func (p *SmartLocalityPolicy) GetStats() Stats {
	stats := p.baseStats()
	stats["max_kv_per_bank"] = int64(p.maxKVPerBank)
	return stats
}

func (p *SmartLocalityPolicy) ResetStats() { p.reset() }
