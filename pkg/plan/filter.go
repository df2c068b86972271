package plan

import "github.com/tesseradb/tessera/pkg/parser"

// FilterNode keeps the source rows satisfying Predicate. Output symbols
// pass through unchanged.
type FilterNode struct {
	id        NodeID
	Source    Node
	Predicate *parser.Expression
}

func NewFilter(id NodeID, source Node, predicate *parser.Expression) *FilterNode {
	return &FilterNode{id: id, Source: source, Predicate: predicate}
}

func (n *FilterNode) ID() NodeID              { return n.id }
func (n *FilterNode) Children() []Node        { return []Node{n.Source} }
func (n *FilterNode) OutputSymbols() []Symbol { return n.Source.OutputSymbols() }

func (n *FilterNode) ReplaceChildren(children []Node) Node {
	checkArity(n, children, 1)
	return &FilterNode{id: n.id, Source: children[0], Predicate: n.Predicate}
}
