package annindex

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/viant/vec/search"
)

// NoLabel fills result slots for which no neighbour exists.
const NoLabel int64 = -1

// Metric selects how vectors are compared.
type Metric int32

const (
	// MetricInnerProduct ranks by descending dot product.
	MetricInnerProduct Metric = 0
	// MetricL2 ranks by ascending squared Euclidean distance.
	MetricL2 Metric = 1
)

func (m Metric) String() string {
	switch m {
	case MetricInnerProduct:
		return "inner_product"
	case MetricL2:
		return "l2"
	default:
		return fmt.Sprintf("metric(%d)", int32(m))
	}
}

func (m Metric) valid() bool { return m == MetricInnerProduct || m == MetricL2 }

// worse reports whether distance a ranks after distance b.
func (m Metric) worse(a, b float32) bool {
	if m == MetricInnerProduct {
		return a < b
	}
	return a > b
}

// empty is the distance reported for an unfilled slot.
func (m Metric) empty() float32 {
	if m == MetricInnerProduct {
		return float32(math.Inf(-1))
	}
	return float32(math.Inf(1))
}

// ErrDimensionMismatch is returned when a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("annindex: dimension mismatch")

// Index is an exact (flat) vector index. Labels are the insertion position
// unless the index carries an explicit id map.
type Index struct {
	dim     int
	metric  Metric
	vectors [][]float32
	ids     []int64
}

// New creates an empty index for vectors of the given dimension.
func New(metric Metric, dim int) (*Index, error) {
	if !metric.valid() {
		return nil, fmt.Errorf("annindex: unsupported metric %s", metric)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("annindex: invalid dimension %d", dim)
	}
	return &Index{dim: dim, metric: metric}, nil
}

// Dim returns the vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// Len returns the number of stored vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// Metric returns the comparison metric.
func (ix *Index) Metric() Metric { return ix.metric }

// Add appends vectors labelled by their insertion position.
func (ix *Index) Add(vectors ...[]float32) error {
	if ix.ids != nil {
		return errors.New("annindex: index has an id map, use AddWithIDs")
	}
	if err := ix.checkDims(vectors); err != nil {
		return err
	}
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// AddWithIDs appends vectors labelled by the given ids.
func (ix *Index) AddWithIDs(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("annindex: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if ix.ids == nil && len(ix.vectors) > 0 {
		return errors.New("annindex: index has positional labels, use Add")
	}
	if err := ix.checkDims(vectors); err != nil {
		return err
	}
	if ix.ids == nil {
		ix.ids = make([]int64, 0, len(ids))
	}
	ix.ids = append(ix.ids, ids...)
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

func (ix *Index) checkDims(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("%w: vector %d has %d values, index dim %d", ErrDimensionMismatch, i, len(v), ix.dim)
		}
	}
	return nil
}

func (ix *Index) label(pos int) int64 {
	if ix.ids != nil {
		return ix.ids[pos]
	}
	return int64(pos)
}

func (ix *Index) distance(query, v []float32) float32 {
	if ix.metric == MetricInnerProduct {
		var dot float32
		for i := range query {
			dot += query[i] * v[i]
		}
		return dot
	}
	d := search.Float32s(query).EuclideanDistance(v)
	return d * d
}

// Search returns the k nearest labels and their distances, nearest first.
// Both slices have length min(k, Len()); slots left unfilled because a
// distance was NaN hold NoLabel.
func (ix *Index) Search(query []float32, k int) ([]int64, []float32, error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("annindex: invalid k %d", k)
	}
	if len(query) != ix.dim {
		return nil, nil, fmt.Errorf("%w: query has %d values, index dim %d", ErrDimensionMismatch, len(query), ix.dim)
	}

	h := &neighbors{metric: ix.metric}
	for pos, v := range ix.vectors {
		d := ix.distance(query, v)
		if math.IsNaN(float64(d)) {
			continue
		}
		n := neighbor{label: ix.label(pos), distance: d}
		if h.Len() < k {
			heap.Push(h, n)
		} else if h.worse(h.items[0], n) {
			h.items[0] = n
			heap.Fix(h, 0)
		}
	}

	slots := min(k, len(ix.vectors))
	labels := make([]int64, slots)
	distances := make([]float32, slots)
	for i := range labels {
		labels[i] = NoLabel
		distances[i] = ix.metric.empty()
	}
	for i := h.Len() - 1; i >= 0; i-- {
		n := heap.Pop(h).(neighbor)
		labels[i] = n.label
		distances[i] = n.distance
	}
	return labels, distances, nil
}
