package similarity

import (
	"slices"

	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// Distance is a Hamming-style distance between two states: for each of units,
// centers, homes and influence, and for each power, it counts the entries of
// one side missing from the other, in both directions. Builds, retreats and
// the phase name are ignored.
func Distance(a, b *diplomacy.GameState) int {
	return fieldDistance(a.Units, b.Units) +
		fieldDistance(a.Centers, b.Centers) +
		fieldDistance(a.Homes, b.Homes) +
		fieldDistance(a.Influence, b.Influence)
}

func fieldDistance(a, b map[string][]string) int {
	return missing(a, b) + missing(b, a)
}

// missing counts the entries of a that the same power lacks in b.
func missing(a, b map[string][]string) int {
	n := 0
	for power, items := range a {
		other := b[power]
		for _, it := range items {
			if !slices.Contains(other, it) {
				n++
			}
		}
	}
	return n
}

// OrderDistance compares two per-power order sets. dist counts orders present
// on one side and absent from the other. total is the number of powers on
// either side.
//
// correct gives 0.5 to each side, per power, whose order list is non-null,
// faces a non-null list, and is entirely contained in it. Both sides are
// credited independently, so a power scores 0, 0.5 or 1. A null list
// contributes nothing, but a non-null list facing a null or absent one adds
// its length to dist.
func OrderDistance(a, b map[string][]string) (dist int, correct float64, total int) {
	powers := make(map[string]struct{}, len(a)+len(b))
	for p := range a {
		powers[p] = struct{}{}
	}
	for p := range b {
		powers[p] = struct{}{}
	}
	total = len(powers)

	d, c := orderSide(a, b)
	dist, correct = dist+d, correct+c
	d, c = orderSide(b, a)
	return dist + d, correct + c, total
}

func orderSide(a, b map[string][]string) (int, float64) {
	dist, correct := 0, 0.0
	for power, orders := range a {
		if orders == nil {
			continue
		}
		other := b[power]
		if other == nil {
			dist += len(orders)
			continue
		}
		matched := true
		for _, o := range orders {
			if !slices.Contains(other, o) {
				dist++
				matched = false
			}
		}
		if matched {
			correct += 0.5
		}
	}
	return dist, correct
}
