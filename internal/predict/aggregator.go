package predict

import (
	"context"
	"sort"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/features"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// Aggregator picks concrete orders from slot distributions.
//
// Selection is greedy and independent per slot. Each slot contributes at
// most one candidate, and in the adjustment phase the strongest
// candidates are kept up to the power's build or disband count. No
// assignment across competing slots is attempted.
type Aggregator struct {
	p *Predictor
}

// NewAggregator creates an Aggregator over a Predictor.
func NewAggregator(p *Predictor) *Aggregator {
	return &Aggregator{p: p}
}

// Predict returns the final orders for the state, optionally for one power.
// Fewer orders than slots are returned when models are missing or yield no
// usable candidate; orders are never invented.
func (a *Aggregator) Predict(ctx context.Context, gs *diplomacy.GameState, power string) ([]string, error) {
	sp := gs.SeasonPhase()
	if !sp.IsAdjustment() {
		slots, err := a.p.PredictProbabilities(ctx, gs, power)
		if err != nil {
			return nil, err
		}
		return argmaxOrders(slots), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x := features.Encode(gs)
	var orders []string
	for _, pw := range adjustingPowers(gs, power) {
		count := gs.Builds[pw].Count
		slots := a.p.score(ctx, sp, x, adjustmentSlots(gs, pw))
		pick := bestOrder
		if count > 0 {
			pick = buildOrder
		}
		orders = append(orders, topCandidates(slots, abs(count), pick)...)
	}
	return orders, nil
}

// argmaxOrders picks each slot's most probable order. Ties go to the first
// label in model order.
func argmaxOrders(slots []Slot) []string {
	orders := make([]string, 0, len(slots))
	for _, s := range slots {
		if best, ok := classifier.Best(s.Orders); ok {
			orders = append(orders, best.Label)
		}
	}
	return orders
}

// topCandidates takes one candidate per slot, sorts them by probability
// (stable, descending) and keeps the first n.
func topCandidates(slots []Slot, n int, pick func([]classifier.Prediction) (classifier.Prediction, bool)) []string {
	var cands []classifier.Prediction
	for _, s := range slots {
		if c, ok := pick(s.Orders); ok {
			cands = append(cands, c)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Prob > cands[j].Prob })

	orders := make([]string, 0, min(n, len(cands)))
	for _, c := range cands[:min(n, len(cands))] {
		orders = append(orders, c.Label)
	}
	return orders
}

// buildOrder is the home's most probable label. A home whose top label is
// the sentinel gets no build.
func buildOrder(preds []classifier.Prediction) (classifier.Prediction, bool) {
	best, ok := classifier.Best(preds)
	if !ok || best.Label == features.NoOrder {
		return classifier.Prediction{}, false
	}
	return best, true
}

// bestOrder is Best over the real orders of a distribution, ignoring the
// sentinel and zero-probability labels.
func bestOrder(preds []classifier.Prediction) (classifier.Prediction, bool) {
	var best classifier.Prediction
	found := false
	for _, p := range preds {
		if p.Label == features.NoOrder || p.Prob <= 0 {
			continue
		}
		if !found || p.Prob > best.Prob {
			best, found = p, true
		}
	}
	return best, found
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
