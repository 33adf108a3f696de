// Package predict turns a game state into per-slot order distributions and
// final order lists.
package predict

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/features"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// Models scores a feature vector with the model stored under a key. It
// returns nil predictions when no model exists. *registry.Registry satisfies
// it.
type Models interface {
	Predict(ctx context.Context, key dataset.Key, x features.Vector) ([]classifier.Prediction, error)
}

// Slot is the distribution predicted for one unit or home.
type Slot struct {
	ID     string
	Phase  diplomacy.SeasonPhase
	Key    dataset.Key
	Orders []classifier.Prediction
}

// Predictor produces per-slot order distributions.
type Predictor struct {
	models Models
	log    zerolog.Logger
}

// NewPredictor creates a Predictor backed by a model source.
func NewPredictor(models Models, log zerolog.Logger) *Predictor {
	return &Predictor{models: models, log: log}
}

// PredictProbabilities returns a distribution for every slot of the state that
// has a model, optionally restricted to one power. The slots depend on the
// phase type: retreating units in a retreat phase, available homes or owned
// units of powers with builds or disbands in the adjustment phase, and active
// (non-dislodged) units otherwise.
//
// Slots without a model are left out. The only error returned is a cancelled
// context.
func (p *Predictor) PredictProbabilities(ctx context.Context, gs *diplomacy.GameState, power string) ([]Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sp := gs.SeasonPhase()
	x := features.Encode(gs)

	switch {
	case sp.Type() == diplomacy.PhaseRetreat:
		return p.score(ctx, sp, x, gs.RetreatsOf(power)), nil
	case sp.IsAdjustment():
		var slots []Slot
		for _, pw := range adjustingPowers(gs, power) {
			slots = append(slots, p.score(ctx, sp, x, adjustmentSlots(gs, pw))...)
		}
		return slots, nil
	default:
		return p.score(ctx, sp, x, activeUnits(gs.UnitsOf(power))), nil
	}
}

// score queries the model of every slot, in order. Missing and unreadable
// models are logged and skipped.
func (p *Predictor) score(ctx context.Context, sp diplomacy.SeasonPhase, x features.Vector, ids []string) []Slot {
	var slots []Slot
	for _, id := range ids {
		key := dataset.GenerateKey(id, sp)
		preds, err := p.models.Predict(ctx, key, x)
		if err != nil {
			p.log.Warn().Err(err).Str("key", string(key)).Msg("Model unavailable")
			continue
		}
		if len(preds) == 0 {
			p.log.Debug().Str("key", string(key)).Msg("No model for slot")
			continue
		}
		slots = append(slots, Slot{ID: id, Phase: sp, Key: key, Orders: preds})
	}
	return slots
}

// adjustingPowers lists the powers with a non-zero build count, in power
// order, restricted to power when it is set.
func adjustingPowers(gs *diplomacy.GameState, power string) []string {
	var out []string
	for _, pw := range diplomacy.SortedPowers(gs.Builds) {
		if power != "" && pw != power {
			continue
		}
		if gs.Builds[pw].Count != 0 {
			out = append(out, pw)
		}
	}
	return out
}

// adjustmentSlots returns the homes of a building power or the units of a
// disbanding one.
func adjustmentSlots(gs *diplomacy.GameState, power string) []string {
	b := gs.Builds[power]
	switch {
	case b.Count > 0:
		return b.Homes
	case b.Count < 0:
		return gs.UnitsOf(power)
	}
	return nil
}

func activeUnits(units []string) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		if !strings.HasPrefix(u, "*") {
			out = append(out, u)
		}
	}
	return out
}

// Map converts slots to a slot id -> distribution mapping.
func Map(slots []Slot) map[string][]classifier.Prediction {
	out := make(map[string][]classifier.Prediction, len(slots))
	for _, s := range slots {
		out[s.ID] = s.Orders
	}
	return out
}
