package diplomacy

// Build describes a power's adjustment for a winter phase. A positive Count
// is the number of builds allowed, a negative Count the number of disbands.
type Build struct {
	Count int      `json:"count"`
	Homes []string `json:"homes"`
}

// GameState is a snapshot of the board in dipnet corpus form. Every map is
// keyed by power name (e.g. "FRANCE").
type GameState struct {
	Name      string                         `json:"name"`      // phase name, e.g. "S1901M"
	Units     map[string][]string            `json:"units"`     // unit descriptors, e.g. "A PAR", "*F BRE"
	Centers   map[string][]string            `json:"centers"`   // owned supply centers
	Homes     map[string][]string            `json:"homes"`     // home centers still available for builds
	Influence map[string][]string            `json:"influence"` // territories last occupied by the power
	Retreats  map[string]map[string][]string `json:"retreats"`  // unit -> valid retreat territories
	Builds    map[string]Build               `json:"builds"`
}

// Phase is one resolved turn of a corpus game: the state before resolution,
// the orders each power issued and the adjudicator's per-unit result tags.
// A nil order list means the power submitted nothing (JSON null).
type Phase struct {
	State   GameState           `json:"state"`
	Orders  map[string][]string `json:"orders"`
	Results map[string][]string `json:"results"`
}

// Game is one line of the JSONL corpus.
type Game struct {
	ID     string  `json:"id,omitempty"`
	Phases []Phase `json:"phases"`
}

// SeasonPhase returns the state's season-phase code.
func (gs *GameState) SeasonPhase() SeasonPhase {
	return SeasonPhaseOf(gs.Name)
}

// UnitsOf returns the unit descriptors of a power, or every unit on the board
// (in power order) when power is empty.
func (gs *GameState) UnitsOf(power string) []string {
	if power != "" {
		return gs.Units[power]
	}
	var units []string
	for _, p := range SortedPowers(gs.Units) {
		units = append(units, gs.Units[p]...)
	}
	return units
}

// RetreatsOf returns the retreating units of a power, or of every power when
// power is empty. Units are sorted within a power since the corpus stores them
// as object keys.
func (gs *GameState) RetreatsOf(power string) []string {
	var powers []string
	if power != "" {
		powers = []string{power}
	} else {
		powers = SortedPowers(gs.Retreats)
	}
	var units []string
	for _, p := range powers {
		units = append(units, sortedKeys(gs.Retreats[p])...)
	}
	return units
}
