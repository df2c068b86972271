package cost

import (
	"fmt"
	"math"
)

// Estimate breaks the price of a plan into cpu, memory and network
// components, each in abstract byte-derived units. Components are summed
// cumulatively over a plan tree and collapsed to a single magnitude by a
// Comparator.
type Estimate struct {
	CPU     float64
	Memory  float64
	Network float64
}

// Zero is the cost of doing nothing.
func Zero() Estimate {
	return Estimate{}
}

// Unknown marks a cost that cannot be computed, usually because statistics
// are missing. Unknown poisons any sum it participates in.
func Unknown() Estimate {
	nan := math.NaN()
	return Estimate{CPU: nan, Memory: nan, Network: nan}
}

// Infinite marks a candidate that must never be chosen, such as a cross
// join split during enumeration.
func Infinite() Estimate {
	inf := math.Inf(1)
	return Estimate{CPU: inf, Memory: inf, Network: inf}
}

// IsUnknown reports whether any component is unknown.
func (e Estimate) IsUnknown() bool {
	return math.IsNaN(e.CPU) || math.IsNaN(e.Memory) || math.IsNaN(e.Network)
}

// IsInfinite reports whether any component is infinite.
func (e Estimate) IsInfinite() bool {
	return math.IsInf(e.CPU, 1) || math.IsInf(e.Memory, 1) || math.IsInf(e.Network, 1)
}

// Add returns the component-wise sum.
func (e Estimate) Add(other Estimate) Estimate {
	return Estimate{
		CPU:     e.CPU + other.CPU,
		Memory:  e.Memory + other.Memory,
		Network: e.Network + other.Network,
	}
}

func (e Estimate) String() string {
	if e.IsUnknown() {
		return "{unknown}"
	}
	if e.IsInfinite() {
		return "{infinite}"
	}
	return fmt.Sprintf("{cpu: %.2f, memory: %.2f, network: %.2f}", e.CPU, e.Memory, e.Network)
}
