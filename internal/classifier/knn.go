package classifier

import (
	"fmt"
	"sort"

	"gorgonia.org/tensor"

	"github.com/freeeve/polite-betrayal/baseline/internal/features"
)

// KNN is a k-nearest-neighbour classifier under Hamming distance with
// uniform vote weights. The training matrix is kept as an (n, d) 0/1
// tensor so that all distances to a query come from one matrix-vector
// product: |row - x| = |row| + |x| - 2 row.x for binary vectors.
type KNN struct {
	maxNeighbors int
	k            int
	labels       []string
	rows         []int // class index of each training row

	train   *tensor.Dense // (n, d) float32
	backing []float32     // train's data
	ones    []float32     // set bits per training row
}

// NewKNN creates an untrained KNN that votes among at most maxNeighbors rows.
func NewKNN(maxNeighbors int) *KNN {
	if maxNeighbors < 1 {
		maxNeighbors = 1
	}
	return &KNN{maxNeighbors: maxNeighbors}
}

func (m *KNN) Kind() Kind { return KindKNN }

func (m *KNN) Labels() []string { return m.labels }

// K returns the neighbour count in effect. It is the configured maximum
// shrunk to the number of training rows.
func (m *KNN) K() int { return m.k }

// Fit memorises the training rows. A single distinct label is allowed.
func (m *KNN) Fit(xs []features.Vector, labels []string) error {
	if err := checkInput(xs, labels); err != nil {
		return err
	}
	if err := m.memorise(xs); err != nil {
		return err
	}
	m.labels, m.rows = Classes(labels)
	return nil
}

// memorise loads the training matrix and precomputes the row weights.
func (m *KNN) memorise(xs []features.Vector) error {
	n, d := len(xs), len(xs[0])
	m.backing = make([]float32, n*d)
	for i, x := range xs {
		copy(m.backing[i*d:], x.Float32s())
	}
	m.train = tensor.New(tensor.WithShape(n, d), tensor.WithBacking(m.backing))

	all := make([]float32, d)
	for j := range all {
		all[j] = 1
	}
	m.ones = make([]float32, n)
	if err := m.project(all, m.ones); err != nil {
		return fmt.Errorf("knn row weights: %w", err)
	}
	m.k = min(m.maxNeighbors, n)
	return nil
}

// project writes train.v into out.
func (m *KNN) project(v []float32, out []float32) error {
	vt := tensor.New(tensor.WithShape(len(v)), tensor.WithBacking(v))
	reuse := tensor.New(tensor.WithShape(len(out)), tensor.WithBacking(out))
	_, err := m.train.MatVecMul(vt, tensor.WithReuse(reuse))
	return err
}

// vectors returns the training rows as feature vectors.
func (m *KNN) vectors() []features.Vector {
	shape := m.train.Shape()
	n, d := shape[0], shape[1]
	out := make([]features.Vector, n)
	for i := range out {
		v := make(features.Vector, d)
		for j, f := range m.backing[i*d : (i+1)*d] {
			v[j] = f != 0
		}
		out[i] = v
	}
	return out
}

func (m *KNN) PredictProba(x features.Vector) []Prediction {
	if m.train == nil {
		return nil
	}
	n, d := m.train.Shape()[0], m.train.Shape()[1]
	if len(x) != d {
		return nil
	}
	q := x.Float32s()
	dots := make([]float32, n)
	if err := m.project(q, dots); err != nil {
		return nil
	}
	var set float32
	for _, f := range q {
		set += f
	}
	dist := make([]int, n)
	for i, dot := range dots {
		dist[i] = int(m.ones[i] + set - 2*dot)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })

	votes := make([]int, len(m.labels))
	for _, i := range order[:m.k] {
		votes[m.rows[i]]++
	}
	probs := make([]float64, len(votes))
	for c, v := range votes {
		probs[c] = float64(v) / float64(m.k)
	}
	return zip(m.labels, probs)
}
