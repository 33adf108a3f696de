package features

import (
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// Vector is a fixed-length boolean feature vector. Vectors returned by Encode
// are shared between all examples of a phase and must not be mutated.
type Vector []bool

// Encode encodes a GameState into a Vector of length VectorLen:
//
//	[0:6)                 season-phase one-hot (SM, FM, WA, SR, FR, CD)
//	units                 per (territory, power): army bit, fleet bit
//	centers               per (center, power)
//	homes                 per (home, power)
//	influence             per (territory, power)
//
// Powers, territories and descriptors outside the vocabulary tables are
// ignored. The result depends only on the set contents of the state, never on
// map iteration or list order.
func Encode(gs *diplomacy.GameState) Vector {
	v := make(Vector, VectorLen)
	if gs == nil {
		return v
	}

	if idx := PhaseIndex(gs.SeasonPhase()); idx >= 0 {
		v[idx] = true
	}

	for power, units := range gs.Units {
		pi := PowerIndex(power)
		if pi < 0 {
			continue
		}
		for _, s := range units {
			setUnit(v, pi, s)
		}
	}

	setMembership(v, gs.Centers, OffsetCenters, centerIndex)
	setMembership(v, gs.Homes, OffsetHomes, homeIndex)
	setMembership(v, gs.Influence, OffsetInfluence, territoryIndex)
	return v
}

// UnitBit returns the index of the army or fleet bit for a (territory, power)
// pair.
func UnitBit(territory, power int, t diplomacy.UnitType) int {
	return OffsetUnits + (territory*NumPowers+power)*2 + int(t)
}

// setUnit marks a unit descriptor. Dislodged units count like any other unit
// and a fleet on a split coast counts for its base territory.
func setUnit(v Vector, pi int, s string) {
	u, ok := diplomacy.ParseUnit(s)
	if !ok || !IsLocation(u.Position()) {
		return
	}
	ti := TerritoryIndex(u.Location)
	if ti < 0 {
		return
	}
	v[UnitBit(ti, pi, u.Type)] = true
}

// setMembership sets a per-(item, power) bit for every listed item that is in
// the given vocabulary index.
func setMembership(v Vector, field map[string][]string, offset int, index map[string]int) {
	for power, items := range field {
		pi := PowerIndex(power)
		if pi < 0 {
			continue
		}
		for _, item := range items {
			i := lookup(index, item)
			if i < 0 {
				continue
			}
			v[offset+i*NumPowers+pi] = true
		}
	}
}

// Count returns the number of set bits.
func (v Vector) Count() int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}

// Pack packs the vector into bytes, eight bits per byte, LSB first.
func (v Vector) Pack() []byte {
	out := make([]byte, (len(v)+7)/8)
	for i, b := range v {
		if b {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// Unpack reverses Pack for a vector of length n.
func Unpack(data []byte, n int) Vector {
	v := make(Vector, n)
	for i := range v {
		if i/8 < len(data) {
			v[i] = data[i/8]&(1<<(i%8)) != 0
		}
	}
	return v
}

// Float64s converts the vector to 0/1 floats for numeric models.
func (v Vector) Float64s() []float64 {
	out := make([]float64, len(v))
	for i, b := range v {
		if b {
			out[i] = 1
		}
	}
	return out
}

// Float32s converts the vector to 0/1 float32s for tensor inputs.
func (v Vector) Float32s() []float32 {
	out := make([]float32, len(v))
	for i, b := range v {
		if b {
			out[i] = 1
		}
	}
	return out
}
