package features

import "github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"

// NoOrder is the reserved label meaning "predict no order for this slot".
const NoOrder = "NOORDER"

// Territories lists the 75 base territories in encoding order. The ordering is
// fixed: trained models depend on bit positions, so never re-sort it.
var Territories = []string{
	"ADR", "ALB", "MAO", "RUM", "BLA", "LVN", "TYR", "SPA", "PIE", "APU", "FIN", "IRI",
	"ANK", "LVP", "NTH", "CLY", "SEV", "SMY", "SYR", "ION", "MUN", "UKR", "TUN", "SIL",
	"DEN", "EDI", "WAL", "SKA", "MOS", "ROM", "GAL", "TUS", "PIC", "VEN", "ENG", "POR",
	"PAR", "HEL", "WES", "PRU", "LON", "NWY", "TRI", "YOR", "BUD", "HOL", "CON", "BUR",
	"BER", "EAS", "SER", "ARM", "NWG", "AEG", "NAP", "TYS", "SWE", "BEL", "RUH", "KIE",
	"NAO", "BOH", "LYO", "GRE", "GAS", "STP", "NAF", "BAR", "BAL", "BRE", "VIE", "BUL",
	"MAR", "WAR", "BOT",
}

// Locations lists every position a unit can occupy, including the six
// split-coast variants (81 entries).
var Locations = []string{
	"NAP", "MAO", "SEV", "STP/NC", "POR", "WAL", "GRE", "BAR", "VEN", "NWY", "LVP", "MUN",
	"PIC", "HOL", "SPA/NC", "SWE", "ALB", "TYS", "BOT", "ROM", "WAR", "NTH", "SMY", "IRI",
	"BOH", "VIE", "BUD", "BUL", "NWG", "PAR", "APU", "ANK", "YOR", "AEG", "MAR", "CLY",
	"DEN", "NAF", "SER", "TRI", "RUM", "MOS", "PIE", "ENG", "BLA", "WES", "SPA", "HEL",
	"GAS", "BER", "SKA", "KIE", "TUN", "PRU", "SIL", "EDI", "RUH", "BEL", "ION", "LON",
	"ADR", "FIN", "UKR", "SPA/SC", "BUL/EC", "LVN", "CON", "BAL", "NAO", "LYO", "TUS",
	"ARM", "STP/SC", "GAL", "STP", "EAS", "BRE", "BUR", "BUL/SC", "SYR", "TYR",
}

// Centers lists the 34 supply centers in encoding order.
var Centers = []string{
	"MAR", "ANK", "SER", "RUM", "GRE", "PAR", "BUL", "TUN", "SWE", "POR", "EDI", "VIE",
	"MUN", "WAR", "BUD", "BRE", "KIE", "LVP", "SEV", "CON", "SMY", "BEL", "NWY", "HOL",
	"STP", "SPA", "NAP", "BER", "TRI", "MOS", "DEN", "ROM", "LON", "VEN",
}

// Homes lists the 22 home supply centers in encoding order.
var Homes = []string{
	"ANK", "PAR", "BRE", "MAR", "MUN", "VIE", "SMY", "TRI", "NAP", "BER", "EDI", "LVP",
	"KIE", "VEN", "LON", "CON", "SEV", "ROM", "BUD", "WAR", "STP", "MOS",
}

// Powers lists the great powers in encoding order.
var Powers = diplomacy.AllPowers()

// Encoding section sizes.
var (
	NumPhases     = len(diplomacy.SeasonPhases())
	NumPowers     = len(Powers)
	UnitBits      = 2 * NumPowers * len(Territories)
	CenterBits    = NumPowers * len(Centers)
	HomeBits      = NumPowers * len(Homes)
	InfluenceBits = NumPowers * len(Territories)
)

// Section offsets within a Vector.
var (
	OffsetUnits     = NumPhases
	OffsetCenters   = OffsetUnits + UnitBits
	OffsetHomes     = OffsetCenters + CenterBits
	OffsetInfluence = OffsetHomes + HomeBits
)

// VectorLen is the length of every encoded Vector.
var VectorLen = OffsetInfluence + InfluenceBits

var (
	phaseIndex     map[diplomacy.SeasonPhase]int
	powerIndex     map[string]int
	territoryIndex map[string]int
	locationIndex  map[string]int
	centerIndex    map[string]int
	homeIndex      map[string]int
)

func init() {
	phaseIndex = make(map[diplomacy.SeasonPhase]int, NumPhases)
	for i, sp := range diplomacy.SeasonPhases() {
		phaseIndex[sp] = i
	}
	powerIndex = indexOf(Powers)
	territoryIndex = indexOf(Territories)
	locationIndex = indexOf(Locations)
	centerIndex = indexOf(Centers)
	homeIndex = indexOf(Homes)
}

func indexOf(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}

// PowerIndex returns the encoding index of a power, or -1 if unknown.
func PowerIndex(power string) int {
	return lookup(powerIndex, power)
}

// TerritoryIndex returns the encoding index of a base territory, or -1.
func TerritoryIndex(id string) int {
	return lookup(territoryIndex, id)
}

// IsLocation reports whether id (optionally with a coast, e.g. "SPA/NC") is a
// position a unit can occupy.
func IsLocation(id string) bool {
	return lookup(locationIndex, id) >= 0
}

// PhaseIndex returns the one-hot bucket of a season-phase, or -1.
func PhaseIndex(sp diplomacy.SeasonPhase) int {
	idx, ok := phaseIndex[sp]
	if !ok {
		return -1
	}
	return idx
}

func lookup(m map[string]int, id string) int {
	idx, ok := m[id]
	if !ok {
		return -1
	}
	return idx
}
