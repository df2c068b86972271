package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseradb/tessera/pkg/parser"
)

func TestIDAllocator(t *testing.T) {
	alloc := NewIDAllocator()
	assert.Equal(t, NodeID("0"), alloc.Next())
	assert.Equal(t, NodeID("1"), alloc.Next())
	assert.Equal(t, NodeID("2"), alloc.Next())
}

func TestNewTableScan(t *testing.T) {
	scan := NewTableScan("1", "orders", "o", []string{"id", "cust_id"})

	assert.Equal(t, NodeID("1"), scan.ID())
	assert.Equal(t, []Symbol{"o.id", "o.cust_id"}, scan.OutputSymbols())
	assert.Empty(t, scan.Children())

	col, ok := scan.ColumnName("o.cust_id")
	assert.True(t, ok)
	assert.Equal(t, "cust_id", col)

	_, ok = scan.ColumnName("o.missing")
	assert.False(t, ok)
}

func TestNewTableScan_NoAlias(t *testing.T) {
	scan := NewTableScan("1", "orders", "", []string{"id"})
	assert.Equal(t, []Symbol{"orders.id"}, scan.OutputSymbols())
	assert.Equal(t, "orders", scan.Alias)
}

func TestAssignments(t *testing.T) {
	identity := IdentityAssignments("a.x", "a.y")
	assert.True(t, identity.IsIdentity())
	assert.Equal(t, []Symbol{"a.x", "a.y"}, identity.Outputs())

	expr := identity.Get("a.y")
	require.NotNil(t, expr)
	assert.Equal(t, "a.y", expr.Column)
	assert.Nil(t, identity.Get("a.z"))

	computed := Assignments{
		{Output: "neg", Expr: parser.Negate(parser.NewColumnExpr("a.x"))},
	}
	assert.False(t, computed.IsIdentity())
}

func TestJoinNode_OutputSymbols(t *testing.T) {
	left := NewTableScan("1", "a", "a", []string{"x"})
	right := NewTableScan("2", "b", "b", []string{"y", "z"})
	join := NewJoin("3", JoinInner, left, right,
		[]EquiClause{{Left: "a.x", Right: "b.y"}}, nil)

	assert.Equal(t, []Symbol{"a.x", "b.y", "b.z"}, join.OutputSymbols())
}

func TestJoinNode_FlipChildren(t *testing.T) {
	left := NewTableScan("1", "a", "a", []string{"x"})
	right := NewTableScan("2", "b", "b", []string{"y"})
	join := NewJoin("3", JoinInner, left, right,
		[]EquiClause{{Left: "a.x", Right: "b.y"}}, nil)

	flipped := join.FlipChildren()
	assert.Equal(t, join.ID(), flipped.ID())
	assert.Same(t, right, flipped.Left.(*TableScanNode))
	assert.Same(t, left, flipped.Right.(*TableScanNode))
	require.Len(t, flipped.Criteria, 1)
	assert.Equal(t, EquiClause{Left: "b.y", Right: "a.x"}, flipped.Criteria[0])

	// Original untouched.
	assert.Equal(t, EquiClause{Left: "a.x", Right: "b.y"}, join.Criteria[0])
}

func TestJoinNode_WithDistribution(t *testing.T) {
	left := NewTableScan("1", "a", "a", []string{"x"})
	right := NewTableScan("2", "b", "b", []string{"y"})
	join := NewJoin("3", JoinInner, left, right, nil, nil)

	annotated := join.WithDistribution(DistributionReplicated)
	assert.Equal(t, DistributionReplicated, annotated.Distribution)
	assert.Equal(t, DistributionUnset, join.Distribution)
}

func TestReplaceChildren_KeepsID(t *testing.T) {
	scan := NewTableScan("1", "a", "a", []string{"x"})
	filter := NewFilter("2", scan, parser.NewBinaryExpr(parser.OpGT,
		parser.NewColumnExpr("a.x"), parser.NewValueExpr(int64(0))))

	newScan := NewTableScan("9", "a", "a", []string{"x"})
	replaced := filter.ReplaceChildren([]Node{newScan})

	assert.Equal(t, NodeID("2"), replaced.ID())
	assert.Same(t, newScan, replaced.Children()[0].(*TableScanNode))
	// Original keeps its child.
	assert.Same(t, scan, filter.Source.(*TableScanNode))
}

func TestReplaceChildren_WrongArity(t *testing.T) {
	scan := NewTableScan("1", "a", "a", []string{"x"})
	filter := NewFilter("2", scan, nil)

	assert.Panics(t, func() {
		filter.ReplaceChildren([]Node{scan, scan})
	})
}

func TestIsAtMostScalar(t *testing.T) {
	oneRow := NewValues("1", []Symbol{"v.x"}, [][]interface{}{{int64(1)}})
	twoRows := NewValues("2", []Symbol{"v.x"}, [][]interface{}{{int64(1)}, {int64(2)}})
	empty := NewValues("3", []Symbol{"v.x"}, nil)
	scan := NewTableScan("4", "t", "t", []string{"x"})

	assert.True(t, IsAtMostScalar(oneRow))
	assert.True(t, IsAtMostScalar(empty))
	assert.False(t, IsAtMostScalar(twoRows))
	assert.False(t, IsAtMostScalar(scan))

	// Filters and projections preserve the proof.
	assert.True(t, IsAtMostScalar(NewFilter("5", oneRow, nil)))
	assert.True(t, IsAtMostScalar(NewProject("6", oneRow, IdentityAssignments("v.x"))))
	assert.False(t, IsAtMostScalar(NewFilter("7", scan, nil)))

	// Inner join of two scalars is scalar; full join is not.
	inner := NewJoin("8", JoinInner, oneRow, empty, nil, nil)
	assert.True(t, IsAtMostScalar(inner))
	full := NewJoin("9", JoinFull, oneRow, empty, nil, nil)
	assert.False(t, IsAtMostScalar(full))
}

func TestSymbolHelpers(t *testing.T) {
	assert.True(t, SymbolsEqual([]Symbol{"a", "b"}, []Symbol{"a", "b"}))
	assert.False(t, SymbolsEqual([]Symbol{"a", "b"}, []Symbol{"b", "a"}))
	assert.False(t, SymbolsEqual([]Symbol{"a"}, []Symbol{"a", "b"}))

	assert.True(t, ContainsAllSymbols([]Symbol{"a", "b", "c"}, []Symbol{"c", "a"}))
	assert.False(t, ContainsAllSymbols([]Symbol{"a", "b"}, []Symbol{"d"}))
	assert.True(t, ContainsAllSymbols([]Symbol{"a"}, nil))
}

func TestEquiClause(t *testing.T) {
	clause := EquiClause{Left: "a.x", Right: "b.y"}
	assert.Equal(t, "a.x = b.y", clause.String())
	assert.Equal(t, EquiClause{Left: "b.y", Right: "a.x"}, clause.Flip())

	expr := clause.ToExpression()
	assert.True(t, parser.IsColumnEquality(expr))
	assert.Equal(t, "a.x", expr.Left.Column)
	assert.Equal(t, "b.y", expr.Right.Column)
}
