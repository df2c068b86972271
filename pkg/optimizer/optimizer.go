package optimizer

import (
	"context"
	"fmt"

	"github.com/tesseradb/tessera/pkg/plan"
)

// DefaultMaxIterations bounds the fixed-point loop so a misbehaving rule
// cannot spin the planner forever.
const DefaultMaxIterations = 10

// Optimizer applies a rule list to a plan until no rule fires.
type Optimizer struct {
	rules         []Rule
	maxIterations int
}

// New creates an optimizer over the given rules, applied in order.
func New(rules ...Rule) *Optimizer {
	return &Optimizer{rules: rules, maxIterations: DefaultMaxIterations}
}

// WithMaxIterations overrides the fixed-point bound.
func (o *Optimizer) WithMaxIterations(n int) *Optimizer {
	if n > 0 {
		o.maxIterations = n
	}
	return o
}

// Optimize rewrites the plan to fixed point. Every iteration makes one
// top-down pass over the whole tree; the loop stops when a pass changes
// nothing or the iteration bound is hit.
func (o *Optimizer) Optimize(ctx context.Context, root plan.Node, optCtx *Context) (plan.Node, error) {
	current := root
	for i := 0; i < o.maxIterations; i++ {
		optCtx.Logger.Debug("optimizer pass %d", i+1)
		next, err := o.applyPass(ctx, current, optCtx)
		if err != nil {
			return nil, err
		}
		if next == current {
			return current, nil
		}
		current = next
	}
	return current, nil
}

// applyPass applies every matching rule at this node, then recurses into
// the children, rebuilding the node when any child was rewritten.
func (o *Optimizer) applyPass(ctx context.Context, node plan.Node, optCtx *Context) (plan.Node, error) {
	current := node
	for _, rule := range o.rules {
		if !rule.Match(current) {
			continue
		}
		next, err := rule.Apply(ctx, current, optCtx)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		if next != nil && next != current {
			optCtx.Logger.Debug("rule %s rewrote node %s", rule.Name(), current.ID())
			current = next
		}
	}

	children := current.Children()
	if len(children) == 0 {
		return current, nil
	}
	rewritten := make([]plan.Node, len(children))
	changed := false
	for i, child := range children {
		next, err := o.applyPass(ctx, child, optCtx)
		if err != nil {
			return nil, err
		}
		rewritten[i] = next
		if next != child {
			changed = true
		}
	}
	if changed {
		current = current.ReplaceChildren(rewritten)
	}
	return current, nil
}
