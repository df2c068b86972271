package plan

// OutputNode is the root of a query plan: it fixes the user-visible column
// names and their order over the symbols that carry them.
type OutputNode struct {
	id      NodeID
	Source  Node
	Names   []string
	Symbols []Symbol
}

func NewOutput(id NodeID, source Node, names []string, symbols []Symbol) *OutputNode {
	return &OutputNode{id: id, Source: source, Names: names, Symbols: symbols}
}

func (n *OutputNode) ID() NodeID              { return n.id }
func (n *OutputNode) Children() []Node        { return []Node{n.Source} }
func (n *OutputNode) OutputSymbols() []Symbol { return n.Symbols }

func (n *OutputNode) ReplaceChildren(children []Node) Node {
	checkArity(n, children, 1)
	return &OutputNode{id: n.id, Source: children[0], Names: n.Names, Symbols: n.Symbols}
}
