package cost

import "math"

// Weights scale the cost components when collapsing an Estimate into one
// comparable magnitude. All-equal weights treat a byte moved over the
// network the same as a byte processed or held in memory.
type Weights struct {
	CPU     float64
	Memory  float64
	Network float64
}

// DefaultWeights weighs every component equally.
func DefaultWeights() Weights {
	return Weights{CPU: 1, Memory: 1, Network: 1}
}

// Comparator imposes a total order on cost estimates. Unknown costs sort
// after every known cost so they are never preferred; two unknowns are
// considered equal.
type Comparator struct {
	weights Weights
}

func NewComparator(weights Weights) *Comparator {
	return &Comparator{weights: weights}
}

func DefaultComparator() *Comparator {
	return NewComparator(DefaultWeights())
}

// Total collapses an estimate into a single weighted magnitude. Unknown
// estimates collapse to NaN, infinite ones to +Inf.
func (c *Comparator) Total(e Estimate) float64 {
	return c.weights.CPU*e.CPU + c.weights.Memory*e.Memory + c.weights.Network*e.Network
}

// Compare returns -1, 0 or 1 as a costs less than, equal to or greater
// than b.
func (c *Comparator) Compare(a, b Estimate) int {
	ta, tb := c.Total(a), c.Total(b)
	switch {
	case math.IsNaN(ta) && math.IsNaN(tb):
		return 0
	case math.IsNaN(ta):
		return 1
	case math.IsNaN(tb):
		return -1
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	default:
		return 0
	}
}

// Less reports whether a is strictly cheaper than b.
func (c *Comparator) Less(a, b Estimate) bool {
	return c.Compare(a, b) < 0
}
