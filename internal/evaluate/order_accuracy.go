package evaluate

import (
	"context"
	"slices"

	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// OrderAccuracy compares two per-power order sets in both directions: every
// predicted order found in the truth scores one, as does every true order
// found in the prediction. Total counts both lists.
func OrderAccuracy(pred, truth map[string][]string) (correct, total int) {
	powers := make(map[string]struct{}, len(pred)+len(truth))
	for p := range pred {
		powers[p] = struct{}{}
	}
	for p := range truth {
		powers[p] = struct{}{}
	}
	for _, power := range diplomacy.SortedPowers(powers) {
		got, want := pred[power], truth[power]
		for _, o := range got {
			if slices.Contains(want, o) {
				correct++
			}
			total++
		}
		for _, o := range want {
			if slices.Contains(got, o) {
				correct++
			}
			total++
		}
	}
	return correct, total
}

// Orderer predicts the final orders of a power. *predict.Aggregator
// satisfies it.
type Orderer interface {
	Predict(ctx context.Context, gs *diplomacy.GameState, power string) ([]string, error)
}

// PhaseOrderAccuracy predicts every power that issued orders in a corpus
// phase and scores the prediction with OrderAccuracy.
func PhaseOrderAccuracy(ctx context.Context, o Orderer, p *diplomacy.Phase) (correct, total int, err error) {
	pred := make(map[string][]string, len(p.Orders))
	for _, power := range diplomacy.SortedPowers(p.Orders) {
		orders, err := o.Predict(ctx, &p.State, power)
		if err != nil {
			return 0, 0, err
		}
		pred[power] = orders
	}
	correct, total = OrderAccuracy(pred, p.Orders)
	return correct, total, nil
}
