package optimizer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/session"
	"github.com/tesseradb/tessera/pkg/stats"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	return NewContext(session.New(), plan.NewIDAllocator(), stats.NewProvider(nil))
}

// removeFilterRule replaces a filter with its source.
type removeFilterRule struct {
	applied int
}

func (r *removeFilterRule) Name() string { return "RemoveFilter" }

func (r *removeFilterRule) Match(node plan.Node) bool {
	_, ok := node.(*plan.FilterNode)
	return ok
}

func (r *removeFilterRule) Apply(ctx context.Context, node plan.Node, optCtx *Context) (plan.Node, error) {
	r.applied++
	return node.(*plan.FilterNode).Source, nil
}

// churnRule reallocates every filter node it sees, so it reports a change
// on every pass.
type churnRule struct {
	applied int
}

func (r *churnRule) Name() string { return "Churn" }

func (r *churnRule) Match(node plan.Node) bool {
	_, ok := node.(*plan.FilterNode)
	return ok
}

func (r *churnRule) Apply(ctx context.Context, node plan.Node, optCtx *Context) (plan.Node, error) {
	r.applied++
	f := node.(*plan.FilterNode)
	return plan.NewFilter(optCtx.IDAllocator.Next(), f.Source, f.Predicate), nil
}

type failingRule struct{}

func (r *failingRule) Name() string { return "Failing" }

func (r *failingRule) Match(node plan.Node) bool { return true }

func (r *failingRule) Apply(ctx context.Context, node plan.Node, optCtx *Context) (plan.Node, error) {
	return nil, InternalErrorf("boom")
}

func valuesLeaf(id plan.NodeID) *plan.ValuesNode {
	return plan.NewValues(id, []plan.Symbol{"v.x"}, [][]interface{}{{int64(1)}})
}

func TestOptimizer_RewritesToFixedPoint(t *testing.T) {
	leaf := valuesLeaf("0")
	inner := plan.NewFilter("1", leaf, parser.NewValueExpr(true))
	root := plan.NewFilter("2", inner, parser.NewValueExpr(true))

	rule := &removeFilterRule{}
	got, err := New(rule).Optimize(context.Background(), root, testContext(t))
	require.NoError(t, err)

	assert.Same(t, leaf, got)
	assert.Equal(t, 2, rule.applied)
}

func TestOptimizer_NoMatchingRuleReturnsInput(t *testing.T) {
	root := valuesLeaf("0")

	rule := &removeFilterRule{}
	got, err := New(rule).Optimize(context.Background(), root, testContext(t))
	require.NoError(t, err)

	assert.Same(t, root, got)
	assert.Zero(t, rule.applied)
}

func TestOptimizer_RecursesIntoChildren(t *testing.T) {
	leaf := valuesLeaf("0")
	filter := plan.NewFilter("1", leaf, parser.NewValueExpr(true))
	root := plan.NewOutput("2", filter, []string{"x"}, []plan.Symbol{"v.x"})

	got, err := New(&removeFilterRule{}).Optimize(context.Background(), root, testContext(t))
	require.NoError(t, err)

	// The output wrapper is rebuilt around the surviving leaf, keeping
	// its identity.
	out, ok := got.(*plan.OutputNode)
	require.True(t, ok)
	assert.Equal(t, plan.NodeID("2"), out.ID())
	assert.Same(t, leaf, out.Source)
}

func TestOptimizer_BoundsIterations(t *testing.T) {
	root := plan.NewFilter("1", valuesLeaf("0"), parser.NewValueExpr(true))

	rule := &churnRule{}
	_, err := New(rule).WithMaxIterations(3).Optimize(context.Background(), root, testContext(t))
	require.NoError(t, err)

	assert.Equal(t, 3, rule.applied)
}

func TestOptimizer_RuleErrorCarriesRuleName(t *testing.T) {
	root := valuesLeaf("0")

	_, err := New(&failingRule{}).Optimize(context.Background(), root, testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule Failing")
	assert.True(t, IsInternalError(err))
}

func TestInternalError(t *testing.T) {
	err := InternalErrorf("join %s has no sources", "7")
	assert.EqualError(t, err, "internal planner error: join 7 has no sources")
	assert.True(t, IsInternalError(err))
	assert.True(t, IsInternalError(fmt.Errorf("outer: %w", err)))
	assert.False(t, IsInternalError(errors.New("ordinary failure")))
	assert.False(t, IsInternalError(nil))
}

func TestContext_Defaults(t *testing.T) {
	sess := session.New()
	require.NoError(t, sess.Set(session.PropTaskCount, "7"))

	octx := NewContext(sess, plan.NewIDAllocator(), stats.NewProvider(nil))
	assert.Equal(t, 7, octx.CostModel.TaskCount())
	assert.NotNil(t, octx.Comparator)
	assert.NotNil(t, octx.Logger)
}
