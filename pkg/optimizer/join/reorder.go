package join

import (
	"context"

	"github.com/tesseradb/tessera/pkg/optimizer"
	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/session"
)

// ReorderJoins rewrites a region of nested inner joins into the cheapest
// join order the cost model can find, annotating every join with its
// distribution and probe/build orientation. The rule fires once per
// region: rewritten joins carry a distribution annotation and are left
// alone on later passes.
type ReorderJoins struct{}

func NewReorderJoins() *ReorderJoins {
	return &ReorderJoins{}
}

func (r *ReorderJoins) Name() string {
	return "ReorderJoins"
}

func (r *ReorderJoins) Match(node plan.Node) bool {
	_, ok := node.(*plan.JoinNode)
	return ok
}

// Apply reorders the join region rooted at node. The rule declines, by
// returning the node unchanged, whenever the region is not safely
// reorderable: the plan keeps its syntactic shape in that case.
func (r *ReorderJoins) Apply(ctx context.Context, node plan.Node, octx *optimizer.Context) (plan.Node, error) {
	root := node.(*plan.JoinNode)
	if !eligible(root) {
		return node, nil
	}
	limit := octx.Session.JoinReorderingLimit()
	if limit < 2 {
		return node, nil
	}

	multiJoin, err := Flatten(root, limit, true, octx.IDAllocator)
	if err != nil {
		return nil, err
	}
	if len(multiJoin.Sources) < 2 {
		return node, nil
	}

	known, err := statsKnown(ctx, octx, multiJoin)
	if err != nil {
		return nil, err
	}
	if !known {
		octx.Logger.Debug("declining join %s: missing statistics", root.ID())
		return node, nil
	}

	var result plan.Node
	var ok bool
	if octx.Session.JoinReorderingStrategy() == session.ReorderNone {
		result, ok, err = ChooseSyntacticOrder(ctx, octx, multiJoin)
	} else {
		result, ok, err = ChooseOrder(ctx, octx, multiJoin)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		octx.Logger.Debug("declining join %s: no feasible order", root.ID())
		return node, nil
	}

	// Restore the region's original output symbols and order above the
	// reordered tree.
	return plan.NewProject(octx.IDAllocator.Next(), result,
		plan.IdentityAssignments(multiJoin.OutputSymbols...)), nil
}

// eligible gates the rule: only an inner join that still lacks a
// distribution decision, joins on at least one equi clause or carries a
// deterministic residual filter, and is free of non-deterministic
// functions may be reordered. Bare cross joins never fire.
func eligible(join *plan.JoinNode) bool {
	if join.Type != plan.JoinInner {
		return false
	}
	if join.Distribution != plan.DistributionUnset {
		return false
	}
	if len(join.Criteria) == 0 && join.Filter == nil {
		return false
	}
	if !parser.IsDeterministic(join.Filter) {
		return false
	}
	return true
}

// statsKnown reports whether every flattened source has usable
// statistics. Reordering on unknown cardinalities would be guessing.
func statsKnown(ctx context.Context, octx *optimizer.Context, multiJoin *MultiJoinNode) (bool, error) {
	for _, source := range multiJoin.Sources {
		estimate, err := octx.Estimator.Estimate(ctx, source)
		if err != nil {
			return false, err
		}
		if estimate.IsUnknown() {
			return false, nil
		}
	}
	return true, nil
}
