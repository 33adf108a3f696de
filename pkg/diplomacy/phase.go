package diplomacy

// SeasonPhase is a two-character code made of the season letter and the
// phase-type letter of a phase name: "S1901M" -> "SM", "W1901A" -> "WA".
type SeasonPhase string

const (
	SpringMovement SeasonPhase = "SM"
	FallMovement   SeasonPhase = "FM"
	WinterAdjust   SeasonPhase = "WA"
	SpringRetreat  SeasonPhase = "SR"
	FallRetreat    SeasonPhase = "FR"
	// CivilDisorder is also what the terminal "COMPLETED" phase name maps to.
	CivilDisorder SeasonPhase = "CD"
)

// SeasonPhases lists the six buckets in encoding order.
func SeasonPhases() []SeasonPhase {
	return []SeasonPhase{SpringMovement, FallMovement, WinterAdjust, SpringRetreat, FallRetreat, CivilDisorder}
}

// PhaseType is the phase-type letter of a season-phase.
type PhaseType byte

const (
	PhaseMovement   PhaseType = 'M'
	PhaseRetreat    PhaseType = 'R'
	PhaseAdjustment PhaseType = 'A'
)

// SeasonPhaseOf derives the season-phase code from a phase name. Names shorter
// than two characters yield an empty code.
func SeasonPhaseOf(name string) SeasonPhase {
	if len(name) < 2 {
		return ""
	}
	return SeasonPhase([]byte{name[0], name[len(name)-1]})
}

// Type returns the phase-type letter, or 0 for an empty code.
func (sp SeasonPhase) Type() PhaseType {
	if len(sp) < 2 {
		return 0
	}
	return PhaseType(sp[len(sp)-1])
}

// IsAdjustment reports whether the code is the winter adjustment phase.
func (sp SeasonPhase) IsAdjustment() bool {
	return sp == WinterAdjust
}
