package join

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tesseradb/tessera/pkg/optimizer"
	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
)

// maxPushableWeight bounds how much computation a projection assignment
// may carry before flattening refuses to push it through a join.
// Operators weigh 1; function calls always exceed the bound.
const maxPushableWeight = 3

// Flatten collapses the contiguous inner-join region rooted at root into
// a MultiJoinNode with at most joinLimit sources. Children that are not
// eligible inner joins, or whose inlining would push the source count
// past the limit, stay opaque. With pushProjections set, a cheap
// projection sitting on an inner join is split per side so the joins
// beneath it keep participating in reordering.
func Flatten(root *plan.JoinNode, joinLimit int, pushProjections bool, allocator *plan.IDAllocator) (*MultiJoinNode, error) {
	if root.Type != plan.JoinInner {
		return nil, optimizer.InternalErrorf("cannot flatten %s join %s", root.Type, root.ID())
	}
	if joinLimit < 2 {
		return nil, optimizer.InternalErrorf("join limit must be at least 2, got %d", joinLimit)
	}
	f := &flattener{
		pushProjections: pushProjections,
		allocator:       allocator,
		seen:            mapset.NewSet[plan.NodeID](),
	}
	outputs := root.OutputSymbols()
	f.flattenNode(root, joinLimit)
	return &MultiJoinNode{
		Sources:                     f.sources,
		Filters:                     f.filters,
		OutputSymbols:               outputs,
		PushedProjectionThroughJoin: f.pushedProjection,
	}, nil
}

type flattener struct {
	pushProjections  bool
	allocator        *plan.IDAllocator
	sources          []plan.Node
	seen             mapset.Set[plan.NodeID]
	filters          []*parser.Expression
	pushedProjection bool
}

// flattenNode inlines node when it is an eligible inner join and the
// source limit still has room for both of its sides, otherwise records
// it as one opaque source. The left side flattens against limit-1 so the
// pending right side always fits.
func (f *flattener) flattenNode(node plan.Node, limit int) {
	join, ok := node.(*plan.JoinNode)
	if !ok || len(f.sources) > limit-2 {
		f.addSource(node, limit)
		return
	}
	if join.Type != plan.JoinInner || !parser.IsDeterministic(join.Filter) || join.Distribution != plan.DistributionUnset {
		f.addSource(node, limit)
		return
	}
	f.flattenNode(join.Left, limit-1)
	f.flattenNode(join.Right, limit)
	for _, clause := range join.Criteria {
		f.filters = append(f.filters, clause.ToExpression())
	}
	if join.Filter != nil {
		f.filters = append(f.filters, parser.Conjuncts(join.Filter)...)
	}
}

// addSource records an opaque source, deduplicated by node identity.
// A projection over an inner join is first split across the join's
// sides, when legal, so the region beneath it stays flattenable.
func (f *flattener) addSource(node plan.Node, limit int) {
	if f.pushProjections {
		if project, ok := node.(*plan.ProjectNode); ok {
			if rewritten, ok := pushProjectionThroughJoin(project, f.allocator); ok {
				debugf("  [FLATTEN] pushed projection %s through join\n", project.ID())
				f.pushedProjection = true
				f.flattenNode(rewritten, limit)
				return
			}
		}
	}
	if !f.seen.Add(node.ID()) {
		return
	}
	f.sources = append(f.sources, node)
}

// pushProjectionThroughJoin rewrites project(join(L, R)) into
// join(project(L), project(R)). The push succeeds only when every
// assignment is deterministic, cheap, and computable from one side
// alone; identity assignments keep the symbols the join condition
// itself needs available after the split.
func pushProjectionThroughJoin(project *plan.ProjectNode, allocator *plan.IDAllocator) (*plan.JoinNode, bool) {
	source, ok := project.Source.(*plan.JoinNode)
	if !ok || source.Type != plan.JoinInner {
		return nil, false
	}
	leftSymbols := mapset.NewSet(source.Left.OutputSymbols()...)
	rightSymbols := mapset.NewSet(source.Right.OutputSymbols()...)

	var left, right plan.Assignments
	for _, asg := range project.Assignments {
		if !parser.IsDeterministic(asg.Expr) || !isInexpensive(asg.Expr) {
			return nil, false
		}
		refs := referencedSymbols(asg.Expr)
		switch {
		case leftSymbols.Contains(refs...):
			left = append(left, asg)
		case rightSymbols.Contains(refs...):
			right = append(right, asg)
		default:
			// spans both sides
			return nil, false
		}
	}

	for _, sym := range joinRequiredSymbols(source) {
		if leftSymbols.Contains(sym) {
			left = appendIdentity(left, sym)
		} else {
			right = appendIdentity(right, sym)
		}
	}

	rewritten := plan.NewJoin(source.ID(), plan.JoinInner,
		plan.NewProject(allocator.Next(), source.Left, left),
		plan.NewProject(allocator.Next(), source.Right, right),
		source.Criteria, source.Filter)
	return rewritten, true
}

// joinRequiredSymbols lists the symbols the join condition consumes, in
// first-seen order.
func joinRequiredSymbols(join *plan.JoinNode) []plan.Symbol {
	seen := mapset.NewSet[plan.Symbol]()
	var out []plan.Symbol
	add := func(sym plan.Symbol) {
		if seen.Add(sym) {
			out = append(out, sym)
		}
	}
	for _, clause := range join.Criteria {
		add(clause.Left)
		add(clause.Right)
	}
	for _, col := range parser.ReferencedColumns(join.Filter) {
		add(plan.Symbol(col))
	}
	return out
}

func appendIdentity(assignments plan.Assignments, sym plan.Symbol) plan.Assignments {
	if assignments.Get(sym) != nil {
		return assignments
	}
	return append(assignments, plan.Assignment{Output: sym, Expr: parser.NewColumnExpr(string(sym))})
}

// isInexpensive reports whether an expression is cheap enough to compute
// twice, once per join side. Plain column references and literals are
// free; function calls never qualify.
func isInexpensive(expr *parser.Expression) bool {
	return expressionWeight(expr) <= maxPushableWeight
}

func expressionWeight(expr *parser.Expression) int {
	if expr == nil {
		return 0
	}
	switch expr.Type {
	case parser.ExprTypeOperator:
		return 1 + expressionWeight(expr.Left) + expressionWeight(expr.Right)
	case parser.ExprTypeFunction:
		weight := maxPushableWeight + 1
		for i := range expr.Args {
			weight += expressionWeight(&expr.Args[i])
		}
		return weight
	default:
		return 0
	}
}

func referencedSymbols(expr *parser.Expression) []plan.Symbol {
	cols := parser.ReferencedColumns(expr)
	out := make([]plan.Symbol, 0, len(cols))
	for _, col := range cols {
		out = append(out, plan.Symbol(col))
	}
	return out
}
