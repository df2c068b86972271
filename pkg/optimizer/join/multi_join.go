package join

import (
	"strings"

	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
)

// MultiJoinNode is the flattened form of a contiguous inner-join region:
// the joined sources, every join condition collected into one conjunct
// pool, and the symbols the region exposes to its consumer in their
// original order. It is a planning artifact of the reorder rule, never
// part of a plan tree.
type MultiJoinNode struct {
	Sources       []plan.Node
	Filters       []*parser.Expression
	OutputSymbols []plan.Symbol

	// PushedProjectionThroughJoin records that flattening split at least
	// one projection across a child join, so the sources no longer
	// mirror the original tree shape.
	PushedProjectionThroughJoin bool
}

// FilterExpression renders the conjunct pool as a single conjunction,
// nil when the pool is empty.
func (m *MultiJoinNode) FilterExpression() *parser.Expression {
	return parser.And(m.Filters...)
}

func (m *MultiJoinNode) String() string {
	ids := make([]string, 0, len(m.Sources))
	for _, source := range m.Sources {
		ids = append(ids, string(source.ID()))
	}
	return "MultiJoin[" + strings.Join(ids, ", ") + "] filter=" + m.FilterExpression().String()
}
