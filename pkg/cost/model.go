package cost

import (
	"context"
	"math"

	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/stats"
)

// DefaultTaskCount is the assumed number of parallel tasks a distributed
// plan fragment runs on when the session does not say otherwise.
const DefaultTaskCount = 4

// Model prices plan operators, including the data movement a distributed
// execution of each join distribution implies. Replicating a build side
// ships and materializes it once per task; partitioning ships each side
// once but repartitions both.
type Model struct {
	taskCount int
}

// NewModel creates a model for a cluster running taskCount parallel tasks
// per fragment. Non-positive counts fall back to DefaultTaskCount.
func NewModel(taskCount int) *Model {
	if taskCount <= 0 {
		taskCount = DefaultTaskCount
	}
	return &Model{taskCount: taskCount}
}

func (m *Model) TaskCount() int {
	return m.taskCount
}

// PlanCost computes the cumulative cost of the subtree rooted at node.
// Every operator contributes cpu proportional to the bytes it outputs;
// joins add the exchange cost of their distribution on top. Unknown
// statistics anywhere below yield an unknown cost.
func (m *Model) PlanCost(ctx context.Context, estimator stats.Estimator, node plan.Node) (Estimate, error) {
	switch n := node.(type) {
	case *plan.JoinNode:
		left, err := m.PlanCost(ctx, estimator, n.Left)
		if err != nil {
			return Unknown(), err
		}
		right, err := m.PlanCost(ctx, estimator, n.Right)
		if err != nil {
			return Unknown(), err
		}
		local, err := m.localJoinCost(ctx, estimator, n)
		if err != nil {
			return Unknown(), err
		}
		return left.Add(right).Add(local), nil
	default:
		total := Zero()
		for _, child := range node.Children() {
			childCost, err := m.PlanCost(ctx, estimator, child)
			if err != nil {
				return Unknown(), err
			}
			total = total.Add(childCost)
		}
		est, err := estimator.Estimate(ctx, node)
		if err != nil {
			return Unknown(), err
		}
		return total.Add(outputCost(est, node.OutputSymbols())), nil
	}
}

func (m *Model) localJoinCost(ctx context.Context, estimator stats.Estimator, join *plan.JoinNode) (Estimate, error) {
	probe, err := estimator.Estimate(ctx, join.Left)
	if err != nil {
		return Unknown(), err
	}
	build, err := estimator.Estimate(ctx, join.Right)
	if err != nil {
		return Unknown(), err
	}
	probeBytes := probe.OutputSizeBytes(join.Left.OutputSymbols())
	buildBytes := build.OutputSizeBytes(join.Right.OutputSymbols())
	return m.JoinCost(join.Distribution, probeBytes, buildBytes), nil
}

// JoinCost prices one hash join step given the byte sizes of its probe and
// build inputs. An unset distribution is priced as partitioned, the
// conservative default.
func (m *Model) JoinCost(dist plan.DistributionType, probeBytes, buildBytes float64) Estimate {
	if math.IsNaN(probeBytes) || math.IsNaN(buildBytes) {
		return Unknown()
	}
	tasks := float64(m.taskCount)

	if dist == plan.DistributionReplicated {
		// The build side is shipped to and materialized on every task;
		// the probe side never moves.
		return Estimate{
			CPU:     probeBytes + buildBytes*tasks + buildBytes,
			Memory:  buildBytes * tasks,
			Network: buildBytes * tasks,
		}
	}

	// Both sides are hash-repartitioned: each is sent and received once,
	// and the build side is additionally materialized into hash tables.
	return Estimate{
		CPU:     2*probeBytes + 3*buildBytes,
		Memory:  buildBytes,
		Network: probeBytes + buildBytes,
	}
}

func outputCost(est *stats.PlanEstimate, symbols []plan.Symbol) Estimate {
	size := est.OutputSizeBytes(symbols)
	if math.IsNaN(size) {
		return Unknown()
	}
	return Estimate{CPU: size}
}
