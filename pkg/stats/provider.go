package stats

import (
	"context"

	"github.com/tesseradb/tessera/pkg/catalog"
	"github.com/tesseradb/tessera/pkg/plan"
)

// Estimator supplies plan-node estimates to the optimizer. Unavailable
// statistics are an unknown estimate (NaN row count), not an error; errors
// are reserved for catalog failures.
type Estimator interface {
	Estimate(ctx context.Context, node plan.Node) (*PlanEstimate, error)
}

// Provider derives estimates from catalog statistics, memoized per plan
// fingerprint.
type Provider struct {
	catalog catalog.Catalog
	cache   *Cache
}

// NewProvider creates a provider reading table statistics from cat.
func NewProvider(cat catalog.Catalog) *Provider {
	return &Provider{catalog: cat, cache: NewCache()}
}

// Cache exposes the underlying memo, mainly for diagnostics and tests.
func (p *Provider) Cache() *Cache {
	return p.cache
}

// Estimate returns the estimated output of node, deriving and caching it on
// first sight.
func (p *Provider) Estimate(ctx context.Context, node plan.Node) (*PlanEstimate, error) {
	fp := FingerprintOf(node)
	if est, ok := p.cache.Get(fp); ok {
		return est, nil
	}

	est, err := p.derive(ctx, node)
	if err != nil {
		return nil, err
	}
	debugf("  [STATS] node %s: rows=%.0f\n", node.ID(), est.RowCount)
	p.cache.Set(fp, est)
	return est, nil
}

func (p *Provider) derive(ctx context.Context, node plan.Node) (*PlanEstimate, error) {
	switch n := node.(type) {
	case *plan.TableScanNode:
		return p.deriveScan(ctx, n)
	case *plan.ValuesNode:
		return deriveValues(n), nil
	case *plan.FilterNode:
		return p.deriveFilter(ctx, n)
	case *plan.ProjectNode:
		return p.deriveProject(ctx, n)
	case *plan.JoinNode:
		return p.deriveJoin(ctx, n)
	case *plan.OutputNode:
		return p.Estimate(ctx, n.Source)
	default:
		return UnknownEstimate(), nil
	}
}
