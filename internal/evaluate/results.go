// Package evaluate scores predicted orders against ground truth.
package evaluate

import (
	"fmt"
	"strings"

	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
)

// Accuracy is correct/total, or undefined when total is zero.
type Accuracy struct {
	Value   float64
	Defined bool
}

// AccuracyOf computes correct/total without dividing by zero.
func AccuracyOf(correct, total int) Accuracy {
	if total == 0 {
		return Accuracy{}
	}
	return Accuracy{Value: float64(correct) / float64(total), Defined: true}
}

// Ptr returns the value as a pointer, nil when undefined.
func (a Accuracy) Ptr() *float64 {
	if !a.Defined {
		return nil
	}
	v := a.Value
	return &v
}

func (a Accuracy) String() string {
	if !a.Defined {
		return "undefined"
	}
	return fmt.Sprintf("%.2f%%", 100*a.Value)
}

// Tally counts correct predictions out of a total.
type Tally struct {
	Correct int
	Total   int
}

func (t Tally) Accuracy() Accuracy { return AccuracyOf(t.Correct, t.Total) }

// Results holds per-key tallies and their sum.
type Results struct {
	Keys    map[dataset.Key]Tally
	Correct int
	Total   int
}

// NewResults returns empty Results.
func NewResults() *Results {
	return &Results{Keys: make(map[dataset.Key]Tally)}
}

// Add records a tally for a key, summing with any earlier tally for it.
func (r *Results) Add(key dataset.Key, t Tally) {
	prev := r.Keys[key]
	r.Keys[key] = Tally{Correct: prev.Correct + t.Correct, Total: prev.Total + t.Total}
	r.Correct += t.Correct
	r.Total += t.Total
}

// Merge adds every tally of o into r. Merging is associative and
// commutative, so partial results may be combined in any order.
func (r *Results) Merge(o *Results) {
	for k, t := range o.Keys {
		r.Add(k, t)
	}
}

// Accuracy is the overall accuracy across keys.
func (r *Results) Accuracy() Accuracy { return AccuracyOf(r.Correct, r.Total) }

// String renders the overall figures followed by every key in sorted order.
func (r *Results) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Complete Correct: %d\nComplete Total: %d\nComplete Accuracy: %s\n", r.Correct, r.Total, r.Accuracy())
	for _, k := range dataset.SortedKeys(r.Keys) {
		t := r.Keys[k]
		fmt.Fprintf(&b, "\nKey Correct (%s): %d\nKey Total (%s): %d\nKey Accuracy (%s): %s\n", k, t.Correct, k, t.Total, k, t.Accuracy())
	}
	return b.String()
}

// Evaluate compares predicted labels with the truth, position by position.
// Each key's total is the number of truth labels. A key with no predictions
// (no model) counts all of its truth as wrong.
func Evaluate(preds, truth map[dataset.Key][]string) *Results {
	r := NewResults()
	for key, want := range truth {
		r.Add(key, score(preds[key], want))
	}
	return r
}

func score(got, want []string) Tally {
	t := Tally{Total: len(want)}
	for i, w := range want {
		if i < len(got) && got[i] == w {
			t.Correct++
		}
	}
	return t
}
