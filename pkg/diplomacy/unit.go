package diplomacy

import (
	"slices"
	"sort"
	"strings"
)

// Power names in standard order, as spelled in the corpus.
const (
	Austria = "AUSTRIA"
	England = "ENGLAND"
	France  = "FRANCE"
	Germany = "GERMANY"
	Italy   = "ITALY"
	Russia  = "RUSSIA"
	Turkey  = "TURKEY"
)

// AllPowers returns the seven great powers in standard order.
func AllPowers() []string {
	return []string{Austria, England, France, Germany, Italy, Russia, Turkey}
}

// UnitType represents the type of a military unit.
type UnitType int

const (
	Army UnitType = iota
	Fleet
)

func (u UnitType) String() string {
	if u == Army {
		return "army"
	}
	return "fleet"
}

// Letter returns the single-letter corpus abbreviation ("A" or "F").
func (u UnitType) Letter() string {
	if u == Army {
		return "A"
	}
	return "F"
}

// UnitDescriptor is a parsed unit string such as "A PAR", "F STP/SC" or
// "*F BRE" (the asterisk marks a dislodged unit).
type UnitDescriptor struct {
	Type      UnitType
	Location  string // base territory, e.g. "STP"
	Coast     string // "NC", "SC", "EC" or "" when not on a split coast
	Dislodged bool
}

// ParseUnit parses a unit descriptor. It reports false for anything that is
// not "<A|F> <LOC>[/<COAST>]" with an optional leading asterisk.
func ParseUnit(s string) (UnitDescriptor, bool) {
	var u UnitDescriptor
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "*") {
		u.Dislodged = true
		s = s[1:]
	}
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return UnitDescriptor{}, false
	}
	switch fields[0] {
	case "A":
		u.Type = Army
	case "F":
		u.Type = Fleet
	default:
		return UnitDescriptor{}, false
	}
	u.Location, u.Coast = SplitLocation(fields[1])
	if u.Location == "" {
		return UnitDescriptor{}, false
	}
	return u, true
}

// Position returns the location including its coast, e.g. "STP/SC".
func (u UnitDescriptor) Position() string {
	if u.Coast == "" {
		return u.Location
	}
	return u.Location + "/" + u.Coast
}

// String renders the descriptor in corpus form.
func (u UnitDescriptor) String() string {
	s := u.Type.Letter() + " " + u.Position()
	if u.Dislodged {
		return "*" + s
	}
	return s
}

// SplitLocation splits "STP/NC" into ("STP", "NC") or "VIE" into ("VIE", "").
func SplitLocation(s string) (string, string) {
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

// UnitOfOrder returns the unit part of an order string: its first two tokens
// ("A PAR - BUR" -> "A PAR").
func UnitOfOrder(order string) string {
	fields := strings.Fields(order)
	if len(fields) < 2 {
		return strings.Join(fields, " ")
	}
	return fields[0] + " " + fields[1]
}

// SortedPowers returns the keys of a per-power map with the seven standard
// powers first (in standard order) followed by any others sorted by name.
func SortedPowers[V any](m map[string]V) []string {
	known := AllPowers()
	out := make([]string, 0, len(m))
	for _, p := range known {
		if _, ok := m[p]; ok {
			out = append(out, p)
		}
	}
	var extra []string
	for p := range m {
		if !slices.Contains(known, p) {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
