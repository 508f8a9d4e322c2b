package pim

import (
	"fmt"
	"strconv"
	"strings"
)

// BankIndex is a flat index into the bank address space [0, N).
type BankIndex int

// AddressVector carries hierarchy coordinates for one DRAM address.
// Channel, BankGroup and Bank determine the BankIndex; Rank, Row and
// Column are carried for completeness but do not participate in the
// bank projection (N = channels × bankgroups × banks-per-bankgroup, §1).
type AddressVector struct {
	Channel   int
	Rank      int
	BankGroup int
	Bank      int
	Row       int
	Column    int
}

// Organization describes the DRAM hierarchy's mixed-radix shape.
// Counts are ordered least-significant first (Bank varies fastest),
// matching the decomposition rule in spec §4.3: "level j gets
// bank_id mod count[j], then bank_id /= count[j]".
type Organization struct {
	ChannelCount   int
	BankGroupCount int
	BankCount      int // banks per bankgroup
	RankCount      int // optional; defaults to 1 when unset
}

// NumBanks returns N, the total flat bank count.
func (o Organization) NumBanks() int {
	return o.ChannelCount * o.BankGroupCount * o.BankCount
}

// counts returns the mixed-radix count vector, least-significant first.
func (o Organization) counts() []int {
	return []int{o.BankCount, o.BankGroupCount, o.ChannelCount}
}

// Validate reports a ConfigurationError if the organization cannot form a
// valid, non-empty bank space.
func (o Organization) Validate() error {
	if o.ChannelCount <= 0 || o.BankGroupCount <= 0 || o.BankCount <= 0 {
		return &ConfigurationError{Msg: fmt.Sprintf(
			"invalid DRAM organization: channels=%d bankgroups=%d banks=%d must all be > 0",
			o.ChannelCount, o.BankGroupCount, o.BankCount)}
	}
	return nil
}

// ProjectBankIndex maps an AddressVector's hierarchy coordinates to a
// flat BankIndex.
func ProjectBankIndex(addr AddressVector, org Organization) BankIndex {
	idx := addr.Channel
	idx = idx*org.BankGroupCount + addr.BankGroup
	idx = idx*org.BankCount + addr.Bank
	return BankIndex(idx)
}

// DecomposeBankIndex reverses ProjectBankIndex, recovering Channel,
// BankGroup and Bank coordinates for a flat bank index. Row and Column
// are left zero; callers that need per-row addresses set them
// separately (see the KV trace generator).
func DecomposeBankIndex(bank BankIndex, org Organization) AddressVector {
	coords := Decompose(int(bank), org.counts())
	return AddressVector{
		Bank:      coords[0],
		BankGroup: coords[1],
		Channel:   coords[2],
	}
}

// Decompose reverses a mixed-radix encoding: coords[j] = id mod counts[j],
// then id /= counts[j], for j = 0..len(counts)-1 (least-significant first).
func Decompose(id int, counts []int) []int {
	coords := make([]int, len(counts))
	for j, c := range counts {
		if c <= 0 {
			coords[j] = 0
			continue
		}
		coords[j] = id % c
		id /= c
	}
	return coords
}

// Project is the inverse of Decompose: it re-encodes a coordinate vector
// (least-significant first) back into a flat mixed-radix index.
func Project(coords []int, counts []int) int {
	idx := 0
	for j := len(counts) - 1; j >= 0; j-- {
		idx = idx*counts[j] + coords[j]
	}
	return idx
}

// OrganizationFromBackend derives an Organization from a DRAMBackend's
// reported level sizes. Rank is optional; backends that do not model
// rank report 0 or omit it, in which case RankCount defaults to 1.
func OrganizationFromBackend(backend DRAMBackend) (Organization, error) {
	org := Organization{
		ChannelCount:   backend.GetLevelSize("channel"),
		BankGroupCount: backend.GetLevelSize("bankgroup"),
		BankCount:      backend.GetLevelSize("bank"),
		RankCount:      backend.GetLevelSize("rank"),
	}
	if org.RankCount <= 0 {
		org.RankCount = 1
	}
	if err := org.Validate(); err != nil {
		return Organization{}, err
	}
	return org, nil
}

// ParseAddressVector parses a comma-separated integer tuple in full HBM
// hierarchy order (channel, rank, bankgroup, bank, row, column), as
// carried by the upstream trace's addr-vec field (§6). Fields beyond the
// given length default to zero; more than six fields is malformed.
func ParseAddressVector(s string) (AddressVector, bool) {
	parts := strings.Split(s, ",")
	if len(parts) == 0 || len(parts) > 6 {
		return AddressVector{}, false
	}
	vals := make([]int, 6)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return AddressVector{}, false
		}
		vals[i] = v
	}
	return AddressVector{
		Channel:   vals[0],
		Rank:      vals[1],
		BankGroup: vals[2],
		Bank:      vals[3],
		Row:       vals[4],
		Column:    vals[5],
	}, true
}
