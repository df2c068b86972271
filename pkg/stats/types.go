package stats

import (
	"math"

	"github.com/tesseradb/tessera/pkg/plan"
)

// SymbolEstimate holds the per-symbol statistics the planner reasons with.
// NaN marks an unknown component.
type SymbolEstimate struct {
	LowValue     float64
	HighValue    float64
	NDV          float64
	NullFraction float64
	AvgSizeBytes float64
}

// UnknownSymbolEstimate returns an estimate with every component unknown.
func UnknownSymbolEstimate() SymbolEstimate {
	nan := math.NaN()
	return SymbolEstimate{
		LowValue:     nan,
		HighValue:    nan,
		NDV:          nan,
		NullFraction: nan,
		AvgSizeBytes: nan,
	}
}

// PlanEstimate is the estimated output of one plan node. A NaN RowCount means
// the whole estimate is unknown.
type PlanEstimate struct {
	RowCount float64
	Symbols  map[plan.Symbol]SymbolEstimate
}

// UnknownEstimate returns the estimate used when statistics are unavailable.
func UnknownEstimate() *PlanEstimate {
	return &PlanEstimate{
		RowCount: math.NaN(),
		Symbols:  make(map[plan.Symbol]SymbolEstimate),
	}
}

// IsUnknown reports whether the estimate carries no usable row count.
func (e *PlanEstimate) IsUnknown() bool {
	return e == nil || math.IsNaN(e.RowCount)
}

// Symbol returns the estimate for one output symbol, unknown when absent.
func (e *PlanEstimate) Symbol(sym plan.Symbol) SymbolEstimate {
	if e != nil {
		if se, ok := e.Symbols[sym]; ok {
			return se
		}
	}
	return UnknownSymbolEstimate()
}

// OutputSizeBytes is the estimated wire size of the node's output restricted
// to the given symbols: rowCount times the summed average symbol width. NaN
// when the row count or any width is unknown.
func (e *PlanEstimate) OutputSizeBytes(symbols []plan.Symbol) float64 {
	if e.IsUnknown() {
		return math.NaN()
	}
	width := 0.0
	for _, sym := range symbols {
		width += e.Symbol(sym).AvgSizeBytes
	}
	return e.RowCount * width
}
