package pim

import (
	"fmt"
	"sort"
)

// Stats is a named counter bag, the uniform shape every KVCachePolicy
// reports via GetStats() (§4.2). Keys are policy-specific but every
// policy sets at least "total_allocations" and "total_conflicts".
type Stats map[string]int64

// PolicyParams groups the per-policy configuration scalars of §6.
// Unused fields are ignored by policies that don't recognize them.
type PolicyParams struct {
	// BankPartitioning
	KVCacheBanksStart int `yaml:"kv_cache_banks_start"` // default 0
	KVCacheBanksCount int `yaml:"kv_cache_banks_count"` // default N/4, min 1

	// ContentionAware / SmartLocality
	MaxKVPerBank int `yaml:"max_kv_per_bank"` // default 3

	// SmartLocality. Pointers distinguish "not set" (use the documented
	// default) from an explicit zero, mirrering the teacher's PolicyBundle
	// *float64 fields (sim/bundle.go) — 0 is itself a meaningful
	// locality_weight (disables the bonus, §8 scenario 6).
	LocalityWeight           *float64 `yaml:"locality_weight"`            // default 0.3, in [0, 1]
	ActivityThresholdPercent *float64 `yaml:"activity_threshold_percent"` // default 10
}

// KVCachePolicy is the abstract contract every KV-cache placement
// variant implements (§4.2). A policy starts unconfigured; Init moves it
// to the configured phase. All other methods require the configured
// phase.
type KVCachePolicy interface {
	// Init is one-time setup: captures the bank count and a copy of the
	// static weight map, and derives per-bank counts.
	Init(dram DRAMBackend, numBanks int, staticMap StaticWeightMap) error
	// SetStaticWeightMapping replaces the map without re-running
	// parameter registration — used when weights are discovered late,
	// after kernel expansion (§4.6).
	SetStaticWeightMapping(m StaticWeightMap)
	// AllocateKVCacheBank chooses a bank for tokenID, records the
	// assignment, increments its per-bank KV counter, bumps statistics,
	// and increments the conflict counter if the bank is in the static
	// weight map. Callers must not call this twice for the same tokenID.
	AllocateKVCacheBank(size int, tokenID int) (BankIndex, error)
	// GetKVCacheBank looks up a previously allocated token's bank.
	GetKVCacheBank(tokenID int) (BankIndex, bool)
	// HasBankConflict is a pure function over current state: true if
	// bank holds both static weights and at least one KV allocation.
	HasBankConflict(bank BankIndex) bool
	GetStats() Stats
	ResetStats()
	// Name identifies the policy for logging and config-driven selection.
	Name() string
}

// validKVPolicies registers the four recognized policy names (§2, §4.2).
// Unexported to prevent external mutation, mirroring the teacher's
// validAdmissionPolicies / validRoutingPolicies pattern.
var validKVPolicies = map[string]bool{
	"naive":             true,
	"bank-partitioning": true,
	"contention-aware":  true,
	"smart-locality":    true,
}

// IsValidKVPolicy returns true if name is a recognized KV cache policy.
func IsValidKVPolicy(name string) bool { return validKVPolicies[name] }

// ValidKVPolicyNames returns the sorted list of recognized policy names.
func ValidKVPolicyNames() []string {
	names := make([]string, 0, len(validKVPolicies))
	for k := range validKVPolicies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NewKVCachePolicy constructs a policy by name with the given
// configuration scalars. It returns a ConfigurationError for an
// unrecognized name.
func NewKVCachePolicy(name string, params PolicyParams) (KVCachePolicy, error) {
	switch name {
	case "naive":
		return NewNaivePolicy(), nil
	case "bank-partitioning":
		return NewBankPartitioningPolicy(params), nil
	case "contention-aware":
		return NewContentionAwarePolicy(params), nil
	case "smart-locality":
		return NewSmartLocalityPolicy(params), nil
	default:
		return nil, &ConfigurationError{Msg: fmt.Sprintf(
			"unknown KV cache policy %q; valid policies: %v", name, ValidKVPolicyNames())}
	}
}

// bankOccupancy is the shared per-bank bookkeeping used by every policy:
// static-weight counts (read-only after Init/SetStaticWeightMapping) and
// dynamic KV-allocation counts (mutated on every allocation).
type bankOccupancy struct {
	numBanks          int
	staticWeightCount []int // per-bank count of static weight signatures
	dynamicAllocCount []int // per-bank count of KV allocations
}

func newBankOccupancy(numBanks int, staticMap StaticWeightMap) bankOccupancy {
	bo := bankOccupancy{
		numBanks:          numBanks,
		staticWeightCount: make([]int, numBanks),
		dynamicAllocCount: make([]int, numBanks),
	}
	bo.applyStaticMap(staticMap)
	return bo
}

// applyStaticMap recomputes staticWeightCount from m, leaving
// dynamicAllocCount untouched (per SetStaticWeightMapping's contract:
// replace the map without resetting allocation state).
func (bo *bankOccupancy) applyStaticMap(m StaticWeightMap) {
	for i := range bo.staticWeightCount {
		bo.staticWeightCount[i] = 0
	}
	for bank, sigs := range m {
		if int(bank) >= 0 && int(bank) < bo.numBanks {
			bo.staticWeightCount[bank] = len(sigs)
		}
	}
}

// maxStaticWeightCount returns the largest per-bank static weight count,
// used by SmartLocality to normalize activity scores. Returns 0 when no
// bank carries any weight.
func (bo *bankOccupancy) maxStaticWeightCount() int {
	max := 0
	for _, c := range bo.staticWeightCount {
		if c > max {
			max = c
		}
	}
	return max
}

func (bo *bankOccupancy) hasConflict(bank BankIndex) bool {
	if int(bank) < 0 || int(bank) >= bo.numBanks {
		return false
	}
	return bo.staticWeightCount[bank] > 0 && bo.dynamicAllocCount[bank] > 0
}

// sharedAllocationState is embedded by every policy: the token_id -> bank
// table and the base counters common to GetStats/ResetStats.
type sharedAllocationState struct {
	allocations    map[int]BankIndex
	totalAllocs    int64
	totalConflicts int64
}

func newSharedAllocationState() sharedAllocationState {
	return sharedAllocationState{allocations: make(map[int]BankIndex)}
}

func (s *sharedAllocationState) record(tokenID int, bank BankIndex, conflict bool) {
	s.allocations[tokenID] = bank
	s.totalAllocs++
	if conflict {
		s.totalConflicts++
	}
}

func (s *sharedAllocationState) get(tokenID int) (BankIndex, bool) {
	b, ok := s.allocations[tokenID]
	return b, ok
}

func (s *sharedAllocationState) reset() {
	s.totalAllocs = 0
	s.totalConflicts = 0
}

func (s *sharedAllocationState) baseStats() Stats {
	return Stats{
		"total_allocations": s.totalAllocs,
		"total_conflicts":   s.totalConflicts,
	}
}
