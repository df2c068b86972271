package join

import (
	"context"
	"math"
	"math/bits"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tesseradb/tessera/pkg/cost"
	"github.com/tesseradb/tessera/pkg/optimizer"
	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/session"
)

// enumerationResult pairs a candidate plan with its cost. The two
// sentinel results mark subsets whose cost cannot be known (missing
// statistics) or that only decompose into cross joins.
type enumerationResult struct {
	node plan.Node
	cost cost.Estimate
}

var (
	unknownResult  = &enumerationResult{cost: cost.Unknown()}
	infiniteResult = &enumerationResult{cost: cost.Infinite()}
)

// enumerator runs the subset dynamic program over the flattened sources.
// The memo is indexed by source bitmask, so the whole search touches at
// most 2^n entries for n sources.
type enumerator struct {
	ctx  context.Context
	octx *optimizer.Context

	sources    []plan.Node
	sourceSyms []mapset.Set[plan.Symbol]
	sourceIDs  mapset.Set[plan.NodeID]
	conjuncts  []*parser.Expression
	memo       []*enumerationResult

	distMode       session.DistributionMode
	broadcastLimit float64
}

func newEnumerator(ctx context.Context, octx *optimizer.Context, multiJoin *MultiJoinNode) *enumerator {
	n := len(multiJoin.Sources)
	sourceSyms := make([]mapset.Set[plan.Symbol], n)
	sourceIDs := mapset.NewSet[plan.NodeID]()
	for i, source := range multiJoin.Sources {
		sourceSyms[i] = mapset.NewSet(source.OutputSymbols()...)
		sourceIDs.Add(source.ID())
	}
	return &enumerator{
		ctx:            ctx,
		octx:           octx,
		sources:        multiJoin.Sources,
		sourceSyms:     sourceSyms,
		sourceIDs:      sourceIDs,
		conjuncts:      multiJoin.Filters,
		memo:           make([]*enumerationResult, 1<<n),
		distMode:       octx.Session.JoinDistributionType(),
		broadcastLimit: float64(octx.Session.JoinMaxBroadcastTableSize()),
	}
}

// ChooseOrder searches every connected join order over the multi-join's
// sources and returns the cheapest annotated join tree. ok is false when
// statistics are missing somewhere or no connected decomposition exists;
// the caller keeps the original plan in that case.
func ChooseOrder(ctx context.Context, octx *optimizer.Context, multiJoin *MultiJoinNode) (plan.Node, bool, error) {
	e := newEnumerator(ctx, octx, multiJoin)
	root, err := e.chooseJoinOrder((uint64(1) << len(e.sources)) - 1)
	if err != nil {
		return nil, false, err
	}
	if root.node == nil {
		return nil, false, nil
	}
	octx.Logger.Debug("best join order costs %s", root.cost)
	return root.node, true, nil
}

// ChooseSyntacticOrder keeps the flattened source order and only decides
// each step's distribution and probe/build orientation, folding the
// sources left to right. Steps without a connecting clause become
// replicated cross joins instead of being skipped.
func ChooseSyntacticOrder(ctx context.Context, octx *optimizer.Context, multiJoin *MultiJoinNode) (plan.Node, bool, error) {
	e := newEnumerator(ctx, octx, multiJoin)
	current, err := e.getJoinSource(1)
	if err != nil {
		return nil, false, err
	}
	if current.node == nil {
		return nil, false, nil
	}
	currentMask := uint64(1)
	for i := 1; i < len(e.sources); i++ {
		nextMask := uint64(1) << i
		next, err := e.getJoinSource(nextMask)
		if err != nil {
			return nil, false, err
		}
		if next.node == nil {
			return nil, false, nil
		}
		criteria, residual := e.connections(currentMask, nextMask)
		step := plan.NewJoin(e.octx.IDAllocator.Next(), plan.JoinInner,
			current.node, next.node, criteria, parser.And(residual...))
		current, err = e.setJoinDistribution(step)
		if err != nil {
			return nil, false, err
		}
		if current.node == nil {
			return nil, false, nil
		}
		currentMask |= nextMask
	}
	return current.node, true, nil
}

// chooseJoinOrder returns the cheapest join over the masked sources,
// memoized per subset. Every split keeping the subset's lowest source on
// the left is tried once, covering each unordered partition exactly
// once; probe/build orientation is explored further down.
func (e *enumerator) chooseJoinOrder(mask uint64) (*enumerationResult, error) {
	if cached := e.memo[mask]; cached != nil {
		return cached, nil
	}
	if bits.OnesCount64(mask) < 2 {
		return nil, optimizer.InternalErrorf("enumerating subset %b with fewer than two sources", mask)
	}

	best := infiniteResult
	lowBit := mask & -mask
	for sub := (mask - 1) & mask; sub > 0; sub = (sub - 1) & mask {
		if sub&lowBit == 0 {
			continue
		}
		candidate, err := e.createJoin(sub, mask&^sub)
		if err != nil {
			return nil, err
		}
		if candidate == unknownResult {
			e.memo[mask] = unknownResult
			return unknownResult, nil
		}
		if candidate == infiniteResult {
			continue
		}
		preferred, err := e.better(candidate, best)
		if err != nil {
			return nil, err
		}
		if preferred {
			best = candidate
		}
	}
	e.memo[mask] = best
	return best, nil
}

// createJoin builds and prices the candidate joining the two source
// subsets. A split with no connecting equi clause is a cross join and
// gets infinite cost.
func (e *enumerator) createJoin(leftMask, rightMask uint64) (*enumerationResult, error) {
	criteria, residual := e.connections(leftMask, rightMask)
	if len(criteria) == 0 {
		return infiniteResult, nil
	}

	left, err := e.getJoinSource(leftMask)
	if err != nil {
		return nil, err
	}
	if left.node == nil {
		return left, nil
	}
	right, err := e.getJoinSource(rightMask)
	if err != nil {
		return nil, err
	}
	if right.node == nil {
		return right, nil
	}

	join := plan.NewJoin(e.octx.IDAllocator.Next(), plan.JoinInner,
		left.node, right.node, criteria, parser.And(residual...))
	return e.setJoinDistribution(join)
}

// connections derives the join condition between two source subsets from
// the conjunct pool: equi clauses with one end per side become criteria,
// oriented left end first, and any other conjunct touching both sides
// with every referenced symbol available becomes residual filter.
func (e *enumerator) connections(leftMask, rightMask uint64) ([]plan.EquiClause, []*parser.Expression) {
	leftSymbols := e.subsetSymbols(leftMask)
	rightSymbols := e.subsetSymbols(rightMask)

	var criteria []plan.EquiClause
	var residual []*parser.Expression
	for _, conjunct := range e.conjuncts {
		if parser.IsColumnEquality(conjunct) {
			l := plan.Symbol(conjunct.Left.Column)
			r := plan.Symbol(conjunct.Right.Column)
			if leftSymbols.Contains(l) && rightSymbols.Contains(r) {
				criteria = append(criteria, plan.EquiClause{Left: l, Right: r})
				continue
			}
			if leftSymbols.Contains(r) && rightSymbols.Contains(l) {
				criteria = append(criteria, plan.EquiClause{Left: r, Right: l})
				continue
			}
		}
		refs := referencedSymbols(conjunct)
		if len(refs) == 0 {
			continue
		}
		touchesLeft, touchesRight, missing := false, false, false
		for _, sym := range refs {
			switch {
			case leftSymbols.Contains(sym):
				touchesLeft = true
			case rightSymbols.Contains(sym):
				touchesRight = true
			default:
				missing = true
			}
		}
		if touchesLeft && touchesRight && !missing {
			residual = append(residual, conjunct)
		}
	}
	return criteria, residual
}

// getJoinSource resolves one side of a candidate split: a single source
// comes back as the source itself, filtered by every conjunct it can
// absorb alone; larger subsets recurse into the dynamic program.
func (e *enumerator) getJoinSource(mask uint64) (*enumerationResult, error) {
	if bits.OnesCount64(mask) > 1 {
		return e.chooseJoinOrder(mask)
	}
	if cached := e.memo[mask]; cached != nil {
		return cached, nil
	}

	idx := bits.TrailingZeros64(mask)
	node := e.sources[idx]
	var predicates []*parser.Expression
	for _, conjunct := range e.conjuncts {
		if e.sourceSyms[idx].Contains(referencedSymbols(conjunct)...) {
			predicates = append(predicates, conjunct)
		}
	}
	if len(predicates) > 0 {
		node = plan.NewFilter(e.octx.IDAllocator.Next(), node, parser.And(predicates...))
	}
	result, err := e.result(node)
	if err != nil {
		return nil, err
	}
	e.memo[mask] = result
	return result, nil
}

// setJoinDistribution picks the distribution and orientation for one
// candidate join. A scalar side always becomes the replicated build
// side, before any session or cost consideration; otherwise the session
// mode determines the candidate distributions and the comparator picks
// among both orientations of each.
func (e *enumerator) setJoinDistribution(join *plan.JoinNode) (*enumerationResult, error) {
	if plan.IsAtMostScalar(join.Right) {
		return e.result(join.WithDistribution(plan.DistributionReplicated))
	}
	if plan.IsAtMostScalar(join.Left) {
		return e.result(join.FlipChildren().WithDistribution(plan.DistributionReplicated))
	}

	candidates, err := e.distributionCandidates(join)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, optimizer.InternalErrorf("no distribution candidates for join %s", join.ID())
	}
	var best *enumerationResult
	for _, candidate := range candidates {
		if candidate == unknownResult {
			return unknownResult, nil
		}
		if candidate == infiniteResult {
			continue
		}
		if best == nil {
			best = candidate
			continue
		}
		preferred, err := e.better(candidate, best)
		if err != nil {
			return nil, err
		}
		if preferred {
			best = candidate
		}
	}
	if best == nil {
		return infiniteResult, nil
	}
	return best, nil
}

// distributionCandidates prices the legal distribution choices for a
// join. Cross joins have no keys to hash on and must replicate; forced
// session modes narrow the choice to one distribution; AUTOMATIC prices
// partitioned always and replicated when the build side fits under the
// broadcast limit.
func (e *enumerator) distributionCandidates(join *plan.JoinNode) ([]*enumerationResult, error) {
	if len(join.Criteria) == 0 {
		return e.orientations(join, plan.DistributionReplicated, false)
	}
	switch e.distMode {
	case session.DistributionPartitioned:
		return e.orientations(join, plan.DistributionPartitioned, false)
	case session.DistributionBroadcast:
		// forced broadcast is unrestricted: the size limit does not apply
		return e.orientations(join, plan.DistributionReplicated, false)
	default:
		candidates, err := e.orientations(join, plan.DistributionPartitioned, false)
		if err != nil {
			return nil, err
		}
		replicated, err := e.orientations(join, plan.DistributionReplicated, true)
		if err != nil {
			return nil, err
		}
		return append(candidates, replicated...), nil
	}
}

// orientations prices one distribution in both probe/build orientations.
// With checkLimit set, an orientation whose build side exceeds the
// broadcast size limit is dropped.
func (e *enumerator) orientations(join *plan.JoinNode, dist plan.DistributionType, checkLimit bool) ([]*enumerationResult, error) {
	var out []*enumerationResult
	for _, candidate := range []*plan.JoinNode{join, join.FlipChildren()} {
		candidate = candidate.WithDistribution(dist)
		if checkLimit {
			ok, err := e.withinBroadcastLimit(candidate)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		result, err := e.result(candidate)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

func (e *enumerator) withinBroadcastLimit(join *plan.JoinNode) (bool, error) {
	estimate, err := e.octx.Estimator.Estimate(e.ctx, join.Right)
	if err != nil {
		return false, err
	}
	size := estimate.OutputSizeBytes(join.Right.OutputSymbols())
	if math.IsNaN(size) {
		return false, nil
	}
	return size <= e.broadcastLimit, nil
}

// result prices a candidate, folding unknown and infinite costs into the
// shared sentinels.
func (e *enumerator) result(node plan.Node) (*enumerationResult, error) {
	planCost, err := e.octx.CostModel.PlanCost(e.ctx, e.octx.Estimator, node)
	if err != nil {
		return nil, err
	}
	if planCost.IsUnknown() {
		return unknownResult, nil
	}
	if planCost.IsInfinite() {
		return infiniteResult, nil
	}
	return &enumerationResult{node: node, cost: planCost}, nil
}

// better orders candidates by cost, then fewer estimated rows, then
// partitioned before replicated, then the source identity sequence, so
// the search result is deterministic under cost ties.
func (e *enumerator) better(a, b *enumerationResult) (bool, error) {
	if cmp := e.octx.Comparator.Compare(a.cost, b.cost); cmp != 0 {
		return cmp < 0, nil
	}
	aRows, err := e.rowCount(a.node)
	if err != nil {
		return false, err
	}
	bRows, err := e.rowCount(b.node)
	if err != nil {
		return false, err
	}
	if aRows != bRows {
		return aRows < bRows, nil
	}
	if aRank, bRank := distributionRank(a.node), distributionRank(b.node); aRank != bRank {
		return aRank < bRank, nil
	}
	return e.relationOrder(a.node) < e.relationOrder(b.node), nil
}

func (e *enumerator) rowCount(node plan.Node) (float64, error) {
	estimate, err := e.octx.Estimator.Estimate(e.ctx, node)
	if err != nil {
		return math.NaN(), err
	}
	return estimate.RowCount, nil
}

func distributionRank(node plan.Node) int {
	join, ok := node.(*plan.JoinNode)
	if !ok {
		return 2
	}
	switch join.Distribution {
	case plan.DistributionPartitioned:
		return 0
	case plan.DistributionReplicated:
		return 1
	}
	return 2
}

// relationOrder renders the left-to-right source identity sequence of a
// candidate tree, the final tie-break.
func (e *enumerator) relationOrder(node plan.Node) string {
	var ids []string
	e.collectSourceIDs(node, &ids)
	return strings.Join(ids, ",")
}

func (e *enumerator) collectSourceIDs(node plan.Node, ids *[]string) {
	if e.sourceIDs.Contains(node.ID()) {
		*ids = append(*ids, string(node.ID()))
		return
	}
	for _, child := range node.Children() {
		e.collectSourceIDs(child, ids)
	}
}

func (e *enumerator) subsetSymbols(mask uint64) mapset.Set[plan.Symbol] {
	symbols := mapset.NewSet[plan.Symbol]()
	for m := mask; m != 0; m &= m - 1 {
		symbols = symbols.Union(e.sourceSyms[bits.TrailingZeros64(m)])
	}
	return symbols
}
