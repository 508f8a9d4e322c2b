package pim

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// StaticWeightMap maps a BankIndex to the set of address signatures
// (opaque strings) that the upstream layout optimizer placed there.
type StaticWeightMap map[BankIndex]map[string]struct{}

// StaticWeightCount returns the number of distinct signatures recorded
// for bank, 0 if the bank holds no weights.
func (m StaticWeightMap) StaticWeightCount(bank BankIndex) int {
	return len(m[bank])
}

// MaxWeightCount returns the largest per-bank signature count across the
// map. Returns 0 for an empty map. SmartLocality normalizes its activity
// scores with bankOccupancy.maxStaticWeightCount instead.
func (m StaticWeightMap) MaxWeightCount() int {
	max := 0
	for _, sigs := range m {
		if n := len(sigs); n > max {
			max = n
		}
	}
	return max
}

// insert records signature as belonging to bank, creating the bank's set
// if needed.
func (m StaticWeightMap) insert(bank BankIndex, signature string) {
	if m[bank] == nil {
		m[bank] = make(map[string]struct{})
	}
	m[bank][signature] = struct{}{}
}

// LoadStaticWeightMap parses the upstream layout trace at path into a
// StaticWeightMap sized for an N-bank space (§4.1). Lines beginning with
// "R" or "W" carry a comma-separated integer address tuple; the bank
// coordinate is read from the second field for the two-field
// "simple-trace" convention, or the fourth field for the full HBM
// hierarchy (channel, rank, bankgroup, bank, row, column). Malformed
// lines and unrecognized opcodes are skipped silently.
//
// If the file cannot be opened, LoadStaticWeightMap returns an empty map
// and a nil error: per §4.1 and §7 (EmptyMap) this is not an error, it
// means "no prior knowledge" and downstream policies fall back to the
// live-weight heuristic (§4.6).
func LoadStaticWeightMap(path string, n int) (StaticWeightMap, error) {
	m := make(StaticWeightMap)
	if path == "" {
		return m, nil
	}

	f, err := os.Open(path)
	if err != nil {
		logrus.Warnf("static weight trace %q not found, falling back to live weight map: %v", path, err)
		return m, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		opcode := fields[0]
		if opcode != "R" && opcode != "W" {
			continue
		}
		coords, ok := parseAddrTuple(fields[1])
		if !ok {
			continue
		}
		bank, row, col, ok := extractBankRowCol(coords)
		if !ok {
			continue
		}
		if bank < 0 || bank >= n {
			logrus.Debugf("pim: skipping static weight entry: %v", &BoundsError{Bank: BankIndex(bank), N: n})
			continue
		}
		m.insert(BankIndex(bank), fmt.Sprintf("%d:%d", row, col))
	}
	if err := scanner.Err(); err != nil {
		return m, fmt.Errorf("reading static weight trace %q: %w", path, err)
	}
	return m, nil
}

// parseAddrTuple parses a comma-separated integer tuple like "0,3,1,2,0,0".
func parseAddrTuple(s string) ([]int, bool) {
	parts := strings.Split(s, ",")
	coords := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		coords = append(coords, v)
	}
	if len(coords) == 0 {
		return nil, false
	}
	return coords, true
}

// defaultLiveMapPadPerBank is the fixed number of synthetic signatures
// injected per writing bank when falling back to the live weight map
// (§4.6, §9 Open Questions: "observed as 100").
const defaultLiveMapPadPerBank = 100

// DeriveLiveWeightMap scans a flat, expanded kernel-op buffer and
// synthesizes a StaticWeightMap from every write that lands on a valid
// bank (§4.5 step 4, §4.6). padPerBank < 0 disables padding; padPerBank
// == 0 applies the documented default (100); padPerBank > 0 pads each
// writing bank's signature count up to that value. Padding inflates
// per-bank weight counts but never changes which banks are considered
// to carry weight.
func DeriveLiveWeightMap(flat []Operation, org Organization, padPerBank int) StaticWeightMap {
	m := make(StaticWeightMap)
	n := org.NumBanks()
	for i, op := range flat {
		if op.Opcode != OpWrite {
			continue
		}
		bank := ProjectBankIndex(op.Addr, org)
		if int(bank) < 0 || int(bank) >= n {
			logrus.Debugf("pim: skipping live-weight write: %v", &BoundsError{Bank: bank, N: n})
			continue
		}
		m.insert(bank, fmt.Sprintf("live:%d:%d", bank, i))
	}
	if padPerBank < 0 {
		return m
	}
	if padPerBank == 0 {
		padPerBank = defaultLiveMapPadPerBank
	}
	for bank, sigs := range m {
		for j := len(sigs); j < padPerBank; j++ {
			sigs[fmt.Sprintf("pad:%d:%d", bank, j)] = struct{}{}
		}
	}
	return m
}

// extractBankRowCol implements the documented two-convention dispatch of
// §4.1: a 2-field tuple is the simple-trace convention (row is the first
// field, bank the second, column is taken as 0); a 4+ field tuple is the
// full HBM hierarchy (channel, rank, bankgroup, bank, row, column) where
// bank is the fourth field. Row and column are read only from a tuple of
// six or more fields and are 0 otherwise.
func extractBankRowCol(coords []int) (bank, row, col int, ok bool) {
	switch {
	case len(coords) == 2:
		// simple-trace convention: [row, bank]; bank is the second field.
		return coords[1], coords[0], 0, true
	case len(coords) >= 4:
		bank = coords[3]
		if len(coords) >= 6 {
			row, col = coords[4], coords[5]
		}
		return bank, row, col, true
	default:
		return 0, 0, 0, false
	}
}
