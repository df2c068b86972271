package stats

import (
	"context"
	"math"
	"strconv"

	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
)

func (p *Provider) deriveScan(ctx context.Context, n *plan.TableScanNode) (*PlanEstimate, error) {
	tableStats, err := p.catalog.GetTableStats(ctx, n.Table)
	if err != nil {
		return nil, err
	}
	if tableStats == nil {
		debugf("  [STATS] no statistics for table %s\n", n.Table)
		return UnknownEstimate(), nil
	}

	est := &PlanEstimate{
		RowCount: tableStats.RowCount,
		Symbols:  make(map[plan.Symbol]SymbolEstimate, len(n.Symbols)),
	}
	for _, sym := range n.Symbols {
		col := tableStats.Column(n.Columns[sym])
		if col == nil {
			est.Symbols[sym] = UnknownSymbolEstimate()
			continue
		}
		est.Symbols[sym] = SymbolEstimate{
			LowValue:     floatOrNaN(col.LowValue),
			HighValue:    floatOrNaN(col.HighValue),
			NDV:          col.DistinctCount,
			NullFraction: col.NullFraction,
			AvgSizeBytes: col.AvgSizeBytes,
		}
	}
	return est, nil
}

func deriveValues(n *plan.ValuesNode) *PlanEstimate {
	rows := float64(len(n.Rows))
	est := &PlanEstimate{
		RowCount: rows,
		Symbols:  make(map[plan.Symbol]SymbolEstimate, len(n.Symbols)),
	}
	for i, sym := range n.Symbols {
		est.Symbols[sym] = valuesColumnEstimate(n.Rows, i)
	}
	return est
}

// valuesColumnEstimate computes exact statistics for one column of an
// inline row list.
func valuesColumnEstimate(rows [][]interface{}, col int) SymbolEstimate {
	distinct := make(map[interface{}]bool)
	nulls := 0
	sizeSum := 0.0
	low, high := math.NaN(), math.NaN()
	for _, row := range rows {
		if col >= len(row) || row[col] == nil {
			nulls++
			continue
		}
		v := row[col]
		distinct[v] = true
		sizeSum += valueSizeBytes(v)
		if f, ok := toFloat64(v); ok {
			if math.IsNaN(low) || f < low {
				low = f
			}
			if math.IsNaN(high) || f > high {
				high = f
			}
		}
	}

	est := SymbolEstimate{
		LowValue:  low,
		HighValue: high,
		NDV:       float64(len(distinct)),
	}
	if len(rows) > 0 {
		est.NullFraction = float64(nulls) / float64(len(rows))
	}
	if nonNull := len(rows) - nulls; nonNull > 0 {
		est.AvgSizeBytes = sizeSum / float64(nonNull)
	}
	return est
}

func (p *Provider) deriveFilter(ctx context.Context, n *plan.FilterNode) (*PlanEstimate, error) {
	source, err := p.Estimate(ctx, n.Source)
	if err != nil {
		return nil, err
	}
	if source.IsUnknown() {
		return UnknownEstimate(), nil
	}

	sel := filterSelectivity(n.Predicate, source)
	rows := source.RowCount * sel
	if rows < 1 && source.RowCount > 0 {
		rows = 1
	}

	est := &PlanEstimate{
		RowCount: rows,
		Symbols:  make(map[plan.Symbol]SymbolEstimate, len(source.Symbols)),
	}
	for sym, se := range source.Symbols {
		se.NDV = math.Min(se.NDV, rows)
		est.Symbols[sym] = se
	}
	return est, nil
}

func (p *Provider) deriveProject(ctx context.Context, n *plan.ProjectNode) (*PlanEstimate, error) {
	source, err := p.Estimate(ctx, n.Source)
	if err != nil {
		return nil, err
	}
	if source.IsUnknown() {
		return UnknownEstimate(), nil
	}

	est := &PlanEstimate{
		RowCount: source.RowCount,
		Symbols:  make(map[plan.Symbol]SymbolEstimate, len(n.Assignments)),
	}
	for _, asg := range n.Assignments {
		est.Symbols[asg.Output] = projectSymbolEstimate(asg.Expr, source)
	}
	return est, nil
}

// projectSymbolEstimate derives the estimate of one projected expression.
// Plain column references copy the source estimate; literals are constant;
// computed expressions over a single column keep that column's NDV and
// width but lose the value range.
func projectSymbolEstimate(expr *parser.Expression, source *PlanEstimate) SymbolEstimate {
	if expr == nil {
		return UnknownSymbolEstimate()
	}
	switch expr.Type {
	case parser.ExprTypeColumn:
		return source.Symbol(plan.Symbol(expr.Column))
	case parser.ExprTypeValue:
		if expr.Value == nil {
			return SymbolEstimate{
				LowValue: math.NaN(), HighValue: math.NaN(),
				NDV: 0, NullFraction: 1, AvgSizeBytes: 0,
			}
		}
		f := floatOrNaN(expr.Value)
		return SymbolEstimate{
			LowValue: f, HighValue: f,
			NDV: 1, NullFraction: 0,
			AvgSizeBytes: valueSizeBytes(expr.Value),
		}
	default:
		refs := parser.ReferencedColumns(expr)
		if len(refs) != 1 {
			return UnknownSymbolEstimate()
		}
		base := source.Symbol(plan.Symbol(refs[0]))
		return SymbolEstimate{
			LowValue: math.NaN(), HighValue: math.NaN(),
			NDV:          base.NDV,
			NullFraction: base.NullFraction,
			AvgSizeBytes: base.AvgSizeBytes,
		}
	}
}

func (p *Provider) deriveJoin(ctx context.Context, n *plan.JoinNode) (*PlanEstimate, error) {
	left, err := p.Estimate(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := p.Estimate(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	if left.IsUnknown() || right.IsUnknown() {
		return UnknownEstimate(), nil
	}

	merged := make(map[plan.Symbol]SymbolEstimate, len(left.Symbols)+len(right.Symbols))
	for sym, se := range left.Symbols {
		merged[sym] = se
	}
	for sym, se := range right.Symbols {
		merged[sym] = se
	}

	// Each equi clause keeps one match per distinct key on the larger
	// side: divide the cross product by max(ndvLeft, ndvRight).
	inner := left.RowCount * right.RowCount
	for _, clause := range n.Criteria {
		ndv := math.Max(left.Symbol(clause.Left).NDV, right.Symbol(clause.Right).NDV)
		switch {
		case math.IsNaN(ndv):
			inner = math.NaN()
		case ndv <= 0:
			inner = 0
		default:
			inner /= ndv
		}
	}
	if math.IsNaN(inner) {
		return UnknownEstimate(), nil
	}
	if n.Filter != nil {
		inner *= filterSelectivity(n.Filter, &PlanEstimate{RowCount: inner, Symbols: merged})
	}

	rows := inner
	switch n.Type {
	case plan.JoinLeft:
		rows = math.Max(inner, left.RowCount)
	case plan.JoinRight:
		rows = math.Max(inner, right.RowCount)
	case plan.JoinFull:
		rows = math.Max(inner, left.RowCount+right.RowCount)
	}
	if rows < 1 && left.RowCount > 0 && right.RowCount > 0 {
		rows = 1
	}

	est := &PlanEstimate{
		RowCount: rows,
		Symbols:  make(map[plan.Symbol]SymbolEstimate, len(merged)),
	}
	for sym, se := range merged {
		se.NDV = math.Min(se.NDV, rows)
		est.Symbols[sym] = se
	}
	return est, nil
}

// filterSelectivity estimates the fraction of source rows a predicate
// keeps. Unknown shapes fall back to fixed defaults rather than aborting
// the estimate.
func filterSelectivity(expr *parser.Expression, source *PlanEstimate) float64 {
	if expr == nil {
		return 1.0
	}
	switch expr.Type {
	case parser.ExprTypeOperator:
		return operatorSelectivity(expr, source)
	case parser.ExprTypeValue:
		if b, ok := expr.Value.(bool); ok {
			if b {
				return 1.0
			}
			return 0.0
		}
		return 0.5
	default:
		return 0.5
	}
}

func operatorSelectivity(expr *parser.Expression, source *PlanEstimate) float64 {
	switch expr.Operator {
	case parser.OpAnd:
		return filterSelectivity(expr.Left, source) * filterSelectivity(expr.Right, source)
	case parser.OpOr:
		left := filterSelectivity(expr.Left, source)
		right := filterSelectivity(expr.Right, source)
		return 1.0 - (1.0-left)*(1.0-right)
	case parser.OpEQ, parser.OpNE, parser.OpLT, parser.OpLE, parser.OpGT, parser.OpGE:
		return comparisonSelectivity(expr.Operator, expr.Left, expr.Right, source)
	case "IN", "NOT IN":
		return inSelectivity(expr, source)
	case "IS NULL", "IS NOT NULL":
		return nullSelectivity(expr, source)
	default:
		return 0.5
	}
}

func comparisonSelectivity(op string, left, right *parser.Expression, source *PlanEstimate) float64 {
	if left == nil || right == nil {
		return 0.5
	}

	// value op column: mirror into column op value.
	if left.Type == parser.ExprTypeValue && right.Type == parser.ExprTypeColumn {
		return comparisonSelectivity(mirrorOperator(op), right, left, source)
	}

	if left.Type == parser.ExprTypeColumn && right.Type == parser.ExprTypeColumn {
		if op != parser.OpEQ {
			return 0.5
		}
		ndv := math.Max(
			source.Symbol(plan.Symbol(left.Column)).NDV,
			source.Symbol(plan.Symbol(right.Column)).NDV,
		)
		if math.IsNaN(ndv) || ndv <= 0 {
			return 0.1
		}
		return 1.0 / ndv
	}

	if left.Type != parser.ExprTypeColumn || right.Type != parser.ExprTypeValue {
		return 0.5
	}
	est := source.Symbol(plan.Symbol(left.Column))

	switch op {
	case parser.OpEQ:
		if math.IsNaN(est.NDV) || est.NDV <= 0 {
			return 0.1
		}
		return 1.0 / est.NDV
	case parser.OpNE:
		if math.IsNaN(est.NDV) || est.NDV <= 0 {
			return 0.9
		}
		return (est.NDV - 1.0) / est.NDV
	case parser.OpLT, parser.OpLE, parser.OpGT, parser.OpGE:
		return rangeSelectivity(op, right.Value, est)
	default:
		return 0.5
	}
}

// rangeSelectivity interpolates a comparison against the column's value
// range, assuming a uniform distribution.
func rangeSelectivity(op string, value interface{}, est SymbolEstimate) float64 {
	if math.IsNaN(est.LowValue) || math.IsNaN(est.HighValue) {
		return 0.1
	}
	val, ok := toFloat64(value)
	if !ok {
		return 0.1
	}
	low, high := est.LowValue, est.HighValue
	if low == high {
		return 1.0
	}
	span := high - low

	switch op {
	case parser.OpGT:
		if val >= high {
			return 0.0
		}
		if val < low {
			return 1.0
		}
		return (high - val) / span
	case parser.OpGE:
		if val > high {
			return 0.0
		}
		if val <= low {
			return 1.0
		}
		return (high - val + 0.0001) / span
	case parser.OpLT:
		if val <= low {
			return 0.0
		}
		if val > high {
			return 1.0
		}
		return (val - low) / span
	case parser.OpLE:
		if val < low {
			return 0.0
		}
		if val >= high {
			return 1.0
		}
		return (val - low + 0.0001) / span
	default:
		return 0.5
	}
}

func inSelectivity(expr *parser.Expression, source *PlanEstimate) float64 {
	sel := 0.2
	if expr.Left != nil && expr.Left.Type == parser.ExprTypeColumn &&
		expr.Right != nil && expr.Right.Type == parser.ExprTypeValue {
		if list, ok := expr.Right.Value.([]interface{}); ok {
			ndv := source.Symbol(plan.Symbol(expr.Left.Column)).NDV
			if !math.IsNaN(ndv) && ndv > 0 {
				sel = math.Min(1.0, float64(len(list))/ndv)
			}
		}
	}
	if expr.Operator == "NOT IN" {
		return 1.0 - sel
	}
	return sel
}

func nullSelectivity(expr *parser.Expression, source *PlanEstimate) float64 {
	frac := 0.1
	if expr.Left != nil && expr.Left.Type == parser.ExprTypeColumn {
		if nf := source.Symbol(plan.Symbol(expr.Left.Column)).NullFraction; !math.IsNaN(nf) {
			frac = nf
		}
	}
	if expr.Operator == "IS NOT NULL" {
		return 1.0 - frac
	}
	return frac
}

// mirrorOperator rewrites `value op column` as `column op' value`.
func mirrorOperator(op string) string {
	switch op {
	case parser.OpLT:
		return parser.OpGT
	case parser.OpLE:
		return parser.OpGE
	case parser.OpGT:
		return parser.OpLT
	case parser.OpGE:
		return parser.OpLE
	default:
		return op
	}
}

func floatOrNaN(v interface{}) float64 {
	if f, ok := toFloat64(v); ok {
		return f
	}
	return math.NaN()
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func valueSizeBytes(v interface{}) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return float64(len(val))
	default:
		return 8
	}
}
