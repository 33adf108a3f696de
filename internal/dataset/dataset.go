// Package dataset turns corpus phases into per-key training sets.
package dataset

import (
	"slices"
	"sort"
	"strings"

	"github.com/freeeve/polite-betrayal/baseline/internal/features"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// Result tags that exclude an order from training.
var skippedResults = []string{"void", "illegal"}

// Example is one labelled slot of a phase.
type Example struct {
	Features features.Vector
	Label    string
	Key      Key
}

// TrainingSet holds the parallel feature and label lists of one key.
type TrainingSet struct {
	Features []features.Vector
	Labels   []string
}

// Len returns the number of examples.
func (ts *TrainingSet) Len() int { return len(ts.Labels) }

// Classes returns the distinct labels in sorted order.
func (ts *TrainingSet) Classes() []string {
	out := slices.Clone(ts.Labels)
	sort.Strings(out)
	return slices.Compact(out)
}

// EntryToVectors converts one phase into labelled examples. Every example of
// the phase shares a single feature Vector.
//
// In the winter adjustment phase a power with builds yields one example per
// available home (labelled with its build order, or NoOrder) and a power with
// disbands yields one example per unit (labelled "<unit> D", or NoOrder). In
// every other phase each issued order is an example keyed by its unit, except
// orders the adjudicator marked void.
func EntryToVectors(p *diplomacy.Phase) []Example {
	if p == nil {
		return nil
	}
	sp := p.State.SeasonPhase()
	vec := features.Encode(&p.State)

	var out []Example
	if sp.IsAdjustment() {
		for _, power := range diplomacy.SortedPowers(p.State.Builds) {
			build := p.State.Builds[power]
			orders := p.Orders[power]
			switch {
			case build.Count > 0:
				for _, home := range build.Homes {
					out = append(out, Example{
						Features: vec,
						Label:    buildLabel(orders, home),
						Key:      GenerateKey(home, sp),
					})
				}
			case build.Count < 0:
				for _, unit := range p.State.UnitsOf(power) {
					label := features.NoOrder
					if slices.Contains(orders, unit+" D") {
						label = unit + " D"
					}
					out = append(out, Example{Features: vec, Label: label, Key: GenerateKey(unit, sp)})
				}
			}
		}
		return out
	}

	for _, power := range diplomacy.SortedPowers(p.Orders) {
		for _, order := range p.Orders[power] {
			unit := diplomacy.UnitOfOrder(order)
			if unit == "" || skipped(p.Results[unit]) {
				continue
			}
			out = append(out, Example{Features: vec, Label: order, Key: GenerateKey(unit, sp)})
		}
	}
	return out
}

// buildLabel finds the build order for a home among a power's orders. A fleet
// built on a split coast ("F STP/NC B") counts for its base territory.
func buildLabel(orders []string, home string) string {
	for _, order := range orders {
		fields := strings.Fields(order)
		if len(fields) != 3 || fields[2] != "B" {
			continue
		}
		u, ok := diplomacy.ParseUnit(fields[0] + " " + fields[1])
		if ok && u.Location == home {
			return order
		}
	}
	return features.NoOrder
}

func skipped(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(skippedResults, t) {
			return true
		}
	}
	return false
}

// Builder groups examples across a corpus by key.
type Builder struct {
	groups   map[Key]*TrainingSet
	phases   int
	examples int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{groups: make(map[Key]*TrainingSet)}
}

// Add appends the examples of one phase and returns how many were added.
func (b *Builder) Add(p *diplomacy.Phase) int {
	examples := EntryToVectors(p)
	for _, ex := range examples {
		ts, ok := b.groups[ex.Key]
		if !ok {
			ts = &TrainingSet{}
			b.groups[ex.Key] = ts
		}
		ts.Features = append(ts.Features, ex.Features)
		ts.Labels = append(ts.Labels, ex.Label)
	}
	b.phases++
	b.examples += len(examples)
	return len(examples)
}

// AddGame adds every phase of a game.
func (b *Builder) AddGame(g *diplomacy.Game) int {
	n := 0
	for i := range g.Phases {
		n += b.Add(&g.Phases[i])
	}
	return n
}

// Groups returns the per-key training sets. The map is owned by the Builder.
func (b *Builder) Groups() map[Key]*TrainingSet { return b.groups }

// Keys returns all keys in sorted order.
func (b *Builder) Keys() []Key { return SortedKeys(b.groups) }

// Stats returns the number of phases and examples added so far.
func (b *Builder) Stats() (phases, examples int) { return b.phases, b.examples }

// SortedKeys returns the keys of a per-key map in sorted order.
func SortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
