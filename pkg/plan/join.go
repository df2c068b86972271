package plan

import (
	"fmt"

	"github.com/tesseradb/tessera/pkg/parser"
)

// JoinType is the logical join kind. Cross joins are inner joins with no
// criteria.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// DistributionType annotates how a join's inputs move between workers.
// REPLICATED broadcasts the whole build side to every worker; PARTITIONED
// hash-repartitions both sides on the join keys. Unset means the decision
// has not been made yet.
type DistributionType string

const (
	DistributionUnset       DistributionType = ""
	DistributionPartitioned DistributionType = "PARTITIONED"
	DistributionReplicated  DistributionType = "REPLICATED"
)

// EquiClause is one `left = right` conjunct of a join condition, with Left
// resolved against the join's left (probe) side and Right against its
// right (build) side.
type EquiClause struct {
	Left  Symbol
	Right Symbol
}

// Flip swaps the clause ends, for use when the join children swap.
func (c EquiClause) Flip() EquiClause {
	return EquiClause{Left: c.Right, Right: c.Left}
}

// ToExpression renders the clause back into an equality expression.
func (c EquiClause) ToExpression() *parser.Expression {
	return parser.NewComparison(parser.OpEQ, string(c.Left), string(c.Right))
}

func (c EquiClause) String() string {
	return fmt.Sprintf("%s = %s", c.Left, c.Right)
}

// JoinNode joins Left against Right. By hash-join convention Left is the
// probe side and Right is the build side. Criteria holds the equi clauses;
// Filter holds any residual non-equi condition evaluated on joined rows.
type JoinNode struct {
	id           NodeID
	Type         JoinType
	Left         Node
	Right        Node
	Criteria     []EquiClause
	Filter       *parser.Expression
	Distribution DistributionType
}

func NewJoin(id NodeID, joinType JoinType, left, right Node, criteria []EquiClause, filter *parser.Expression) *JoinNode {
	return &JoinNode{id: id, Type: joinType, Left: left, Right: right, Criteria: criteria, Filter: filter}
}

func (n *JoinNode) ID() NodeID       { return n.id }
func (n *JoinNode) Children() []Node { return []Node{n.Left, n.Right} }

// OutputSymbols is the concatenation of both inputs' outputs; consumers
// prune with a projection above.
func (n *JoinNode) OutputSymbols() []Symbol {
	left := n.Left.OutputSymbols()
	right := n.Right.OutputSymbols()
	out := make([]Symbol, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

func (n *JoinNode) ReplaceChildren(children []Node) Node {
	checkArity(n, children, 2)
	return &JoinNode{
		id: n.id, Type: n.Type,
		Left: children[0], Right: children[1],
		Criteria: n.Criteria, Filter: n.Filter,
		Distribution: n.Distribution,
	}
}

// WithDistribution returns a copy annotated with the given distribution.
func (n *JoinNode) WithDistribution(dist DistributionType) *JoinNode {
	copied := *n
	copied.Distribution = dist
	return &copied
}

// FlipChildren returns a copy with probe and build sides exchanged and the
// criteria flipped to match. Only valid for inner joins, where the swap
// preserves semantics.
func (n *JoinNode) FlipChildren() *JoinNode {
	flipped := make([]EquiClause, 0, len(n.Criteria))
	for _, c := range n.Criteria {
		flipped = append(flipped, c.Flip())
	}
	return &JoinNode{
		id: n.id, Type: n.Type,
		Left: n.Right, Right: n.Left,
		Criteria: flipped, Filter: n.Filter,
		Distribution: n.Distribution,
	}
}

// CriteriaExpression renders all equi clauses as one conjunction, nil when
// there are none.
func (n *JoinNode) CriteriaExpression() *parser.Expression {
	exprs := make([]*parser.Expression, 0, len(n.Criteria))
	for _, c := range n.Criteria {
		exprs = append(exprs, c.ToExpression())
	}
	return parser.And(exprs...)
}
