// Package similarity is a whole-state nearest-neighbour baseline: it predicts
// the orders of the most similar remembered state.
package similarity

import (
	"io"
	"math/rand/v2"
	"sort"

	"github.com/rs/zerolog"

	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/evaluate"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// Pair is a remembered state and the orders issued in it.
type Pair struct {
	State  diplomacy.GameState
	Orders map[string][]string
}

// Matcher stores (state, orders) pairs and answers with one of the k nearest.
// It is not safe for concurrent use: Infer draws from a shared random source.
type Matcher struct {
	k     int
	rng   *rand.Rand
	pairs []Pair
	log   zerolog.Logger
}

// NewMatcher creates an empty Matcher choosing among k neighbours with rng.
func NewMatcher(k int, rng *rand.Rand, log zerolog.Logger) *Matcher {
	if k < 1 {
		k = 1
	}
	return &Matcher{k: k, rng: rng, log: log}
}

// NewSeededMatcher is NewMatcher with a PCG source seeded from seed.
func NewSeededMatcher(k int, seed uint64, log zerolog.Logger) *Matcher {
	return NewMatcher(k, rand.New(rand.NewPCG(seed, seed)), log)
}

// Len returns the number of stored pairs.
func (m *Matcher) Len() int { return len(m.pairs) }

// Add remembers every phase of a game.
func (m *Matcher) Add(g *diplomacy.Game) {
	for _, p := range g.Phases {
		m.pairs = append(m.pairs, Pair{State: p.State, Orders: p.Orders})
	}
}

// Train streams a corpus into the matcher.
func (m *Matcher) Train(r io.Reader, opts dataset.Options) error {
	stats, err := dataset.ScanCorpus(r, opts, func(g *diplomacy.Game) error {
		m.Add(g)
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Info().Int("games", stats.Games).Int("pairs", len(m.pairs)).Int("k", m.k).Msg("Similarity matcher trained")
	return nil
}

// Nearest returns up to k stored pairs closest to state, nearest first. Equal
// distances keep insertion order.
func (m *Matcher) Nearest(state *diplomacy.GameState) []Pair {
	type scored struct {
		i    int
		dist int
	}
	all := make([]scored, len(m.pairs))
	for i := range m.pairs {
		all[i] = scored{i: i, dist: Distance(state, &m.pairs[i].State)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })

	out := make([]Pair, 0, min(m.k, len(all)))
	for _, s := range all[:min(m.k, len(all))] {
		out = append(out, m.pairs[s.i])
	}
	return out
}

// Infer picks one of the k nearest pairs uniformly at random. It reports
// false when nothing is stored.
func (m *Matcher) Infer(state *diplomacy.GameState) (Pair, bool) {
	near := m.Nearest(state)
	if len(near) == 0 {
		return Pair{}, false
	}
	return near[m.rng.IntN(len(near))], true
}

// Report aggregates an evaluation of the matcher.
type Report struct {
	Phases        int
	StateDistance int
	OrderDistance int
	Correct       float64
	Total         int
}

// Accuracy is Correct/Total, undefined when no powers were compared.
func (r Report) Accuracy() evaluate.Accuracy {
	if r.Total == 0 {
		return evaluate.Accuracy{}
	}
	return evaluate.Accuracy{Value: r.Correct / float64(r.Total), Defined: true}
}

// Evaluate infers orders for every phase of a test corpus and sums the order
// distance credit against the true orders.
func (m *Matcher) Evaluate(r io.Reader, opts dataset.Options) (Report, error) {
	var rep Report
	_, err := dataset.ScanCorpus(r, opts, func(g *diplomacy.Game) error {
		for i := range g.Phases {
			p := &g.Phases[i]
			chosen, ok := m.Infer(&p.State)
			if !ok {
				continue
			}
			dist, correct, total := OrderDistance(p.Orders, chosen.Orders)
			rep.Phases++
			rep.StateDistance += Distance(&p.State, &chosen.State)
			rep.OrderDistance += dist
			rep.Correct += correct
			rep.Total += total
		}
		return nil
	})
	if err != nil {
		return rep, err
	}
	m.log.Info().
		Int("phases", rep.Phases).
		Float64("correct", rep.Correct).
		Int("total", rep.Total).
		Str("accuracy", rep.Accuracy().String()).
		Msg("Similarity evaluation finished")
	return rep, nil
}
