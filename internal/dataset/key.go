package dataset

import (
	"strings"
	"unicode"

	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// Key identifies the classifier that governs one slot in one season-phase.
// Keys double as file names in a model directory.
type Key string

// GenerateKey joins a slot (a unit descriptor such as "F STP/SC" or a home
// territory such as "PAR") and a season-phase with a space, then replaces every
// slash, backslash and whitespace rune with an underscore:
//
//	GenerateKey("F STP/SC", "FM") == "F_STP_SC_FM"
//
// The mapping is assumed, not proven, to be injective over the fixed
// vocabulary. It holds because unit types are a single letter, territory
// codes contain no underscores, and coasts are always introduced by a slash.
// Slots from outside the vocabulary may collide (e.g. "A B/C" and "A B C").
func GenerateKey(slot string, phase diplomacy.SeasonPhase) Key {
	return Key(strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, slot+" "+string(phase)))
}

func (k Key) String() string { return string(k) }
