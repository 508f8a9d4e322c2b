package pim

// ConflictEventKind names which direction a conflict was attributed in
// (§4.4): a weight operation finding an active KV address in the same
// bank, or the symmetric case.
type ConflictEventKind string

const (
	EventWeightBlockedByKV ConflictEventKind = "weight_kv"
	EventKVBlockedByWeight ConflictEventKind = "kv_weight"
)

// ConflictEvent is one recorded conflict, grounded on the flat
// append-only event record shape of sim/trace/record.go in the teacher
// repo (AdmissionRecord/RoutingRecord): a small value type, no behavior.
type ConflictEvent struct {
	Bank  BankIndex
	Cycle int64
	Kind  ConflictEventKind
}

// ConflictTracker observes every operation the frontend emits and
// maintains, per bank, the active address sets for each traffic class
// (§4.4). Conflicts are checked against these active sets. An address
// stays in its set until a completion hook removes it; once a bank's set
// for one class is empty, a later operation of the other class on that
// bank does not count as a conflict. The frontend never calls the
// completion hooks, so during a frontend run every address it registers
// stays active for the rest of the run (see DESIGN.md).
type ConflictTracker struct {
	weightActive map[BankIndex]map[string]struct{}
	kvActive     map[BankIndex]map[string]struct{}

	totalConflicts    int64
	weightBlockedByKV int64
	kvBlockedByWeight int64
	events            []ConflictEvent
}

// NewConflictTracker constructs an empty tracker.
func NewConflictTracker() *ConflictTracker {
	return &ConflictTracker{
		weightActive: make(map[BankIndex]map[string]struct{}),
		kvActive:     make(map[BankIndex]map[string]struct{}),
	}
}

// RegisterWeightOperation records a weight-class operation at bank/addr.
// If the KV active set for that bank is non-empty, it counts as a
// conflict: weight blocked by KV.
func (t *ConflictTracker) RegisterWeightOperation(bank BankIndex, addr string, cycle int64) {
	t.insert(t.weightActive, bank, addr)
	if len(t.kvActive[bank]) > 0 {
		t.totalConflicts++
		t.weightBlockedByKV++
		t.events = append(t.events, ConflictEvent{Bank: bank, Cycle: cycle, Kind: EventWeightBlockedByKV})
	}
}

// RegisterKVOperation records a KV-class operation at bank/addr. If the
// weight active set for that bank is non-empty, it counts as a conflict:
// KV blocked by weight.
func (t *ConflictTracker) RegisterKVOperation(bank BankIndex, addr string, cycle int64) {
	t.insert(t.kvActive, bank, addr)
	if len(t.weightActive[bank]) > 0 {
		t.totalConflicts++
		t.kvBlockedByWeight++
		t.events = append(t.events, ConflictEvent{Bank: bank, Cycle: cycle, Kind: EventKVBlockedByWeight})
	}
}

func (t *ConflictTracker) insert(set map[BankIndex]map[string]struct{}, bank BankIndex, addr string) {
	if set[bank] == nil {
		set[bank] = make(map[string]struct{})
	}
	set[bank][addr] = struct{}{}
}

// CompleteWeightOperation removes addr from bank's active weight set.
// Per §4.4 this does NOT clear the bank's usage history — it only
// shrinks the live address set used to detect new conflicts going
// forward.
func (t *ConflictTracker) CompleteWeightOperation(bank BankIndex, addr string) {
	delete(t.weightActive[bank], addr)
}

// CompleteKVOperation removes addr from bank's active KV set.
func (t *ConflictTracker) CompleteKVOperation(bank BankIndex, addr string) {
	delete(t.kvActive[bank], addr)
}

// Reset zeroes all counters and clears the event history. Active address
// sets are also cleared, since a reset models the start of a fresh
// accounting phase.
func (t *ConflictTracker) Reset() {
	t.weightActive = make(map[BankIndex]map[string]struct{})
	t.kvActive = make(map[BankIndex]map[string]struct{})
	t.totalConflicts = 0
	t.weightBlockedByKV = 0
	t.kvBlockedByWeight = 0
	t.events = nil
}

// ConflictLedger is an immutable snapshot of tracker counters, suitable
// for reporting (§4.5 step 7's "derived conflict-rate percentage").
type ConflictLedger struct {
	Total             int64
	WeightBlockedByKV int64
	KVBlockedByWeight int64
	Events            []ConflictEvent
}

// Snapshot returns an immutable copy of the tracker's current counters,
// mirroring sim/trace.Summarize's pure, nil-safe aggregation style.
func (t *ConflictTracker) Snapshot() ConflictLedger {
	if t == nil {
		return ConflictLedger{}
	}
	events := make([]ConflictEvent, len(t.events))
	copy(events, t.events)
	return ConflictLedger{
		Total:             t.totalConflicts,
		WeightBlockedByKV: t.weightBlockedByKV,
		KVBlockedByWeight: t.kvBlockedByWeight,
		Events:            events,
	}
}

// ConflictRatePercent returns 100 * total / max(1, totalAllocations), the
// derived conflict-rate percentage reported at finalize (§4.5 step 7).
func (l ConflictLedger) ConflictRatePercent(totalAllocations int64) float64 {
	denom := totalAllocations
	if denom <= 0 {
		denom = 1
	}
	return 100 * float64(l.Total) / float64(denom)
}
