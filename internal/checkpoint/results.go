package checkpoint

import (
	"container/heap"
	"slices"
	"sort"
)

// ResultSet keeps the best evaluated rows of a grid stage.
// With a positive capacity the lowest row is evicted on overflow.
type ResultSet struct {
	capacity int
	rows     rowHeap
	best     Row
	hasBest  bool
}

// NewResultSet creates a result set; capacity 0 keeps every row
func NewResultSet(capacity int) *ResultSet {
	return &ResultSet{capacity: capacity}
}

// Add inserts r, evicting the current minimum when the set is full
func (s *ResultSet) Add(r Row) {
	if !s.hasBest || r.LogLik > s.best.LogLik {
		s.best = r
		s.hasBest = true
	}
	heap.Push(&s.rows, r)
	if s.capacity > 0 && s.rows.Len() > s.capacity {
		heap.Pop(&s.rows)
	}
}

// Len returns the number of retained rows
func (s *ResultSet) Len() int {
	return s.rows.Len()
}

// Best returns the first row with the highest log-likelihood
func (s *ResultSet) Best() (Row, bool) {
	return s.best, s.hasBest
}

// Rows returns the retained rows by decreasing log-likelihood, ties by parameters
func (s *ResultSet) Rows() []Row {
	out := slices.Clone([]Row(s.rows))
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LogLik != out[j].LogLik {
			return out[i].LogLik > out[j].LogLik
		}
		return slices.Compare(out[i].Params, out[j].Params) < 0
	})
	return out
}

// rowHeap is a min-heap on log-likelihood
type rowHeap []Row

func (h rowHeap) Len() int           { return len(h) }
func (h rowHeap) Less(i, j int) bool { return h[i].LogLik < h[j].LogLik }
func (h rowHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rowHeap) Push(x any) {
	*h = append(*h, x.(Row))
}

func (h *rowHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	*h = old[:n-1]
	return r
}

// History maps every visited parameter vector to its log-likelihood.
// It is unbounded and owned by a single search run.
type History struct {
	rows map[string]Row
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{rows: make(map[string]Row)}
}

// Has reports whether params was visited
func (h *History) Has(params []float64) bool {
	_, ok := h.rows[Key(params)]
	return ok
}

// Put records r, replacing any previous row with the same parameters
func (h *History) Put(r Row) {
	h.rows[Key(r.Params)] = Row{LogLik: r.LogLik, Params: slices.Clone(r.Params)}
}

// Len returns the number of visited points
func (h *History) Len() int {
	return len(h.rows)
}

// Rows returns every visited row ordered lexicographically by parameters
func (h *History) Rows() []Row {
	out := make([]Row, 0, len(h.rows))
	for _, r := range h.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return slices.Compare(out[i].Params, out[j].Params) < 0
	})
	return out
}

// Best returns the visited row with the highest log-likelihood.
// Ties resolve to the lexicographically smallest parameters.
func (h *History) Best() (Row, bool) {
	rows := h.Rows()
	if len(rows) == 0 {
		return Row{}, false
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.LogLik > best.LogLik {
			best = r
		}
	}
	return best, true
}
