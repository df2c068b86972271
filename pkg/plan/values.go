package plan

// ValuesNode produces a fixed list of rows. Constant SELECTs and scalar
// subqueries plan into one of these; an empty Rows slice is a legal empty
// relation.
type ValuesNode struct {
	id      NodeID
	Symbols []Symbol
	Rows    [][]interface{}
}

func NewValues(id NodeID, symbols []Symbol, rows [][]interface{}) *ValuesNode {
	return &ValuesNode{id: id, Symbols: symbols, Rows: rows}
}

func (n *ValuesNode) ID() NodeID              { return n.id }
func (n *ValuesNode) Children() []Node        { return nil }
func (n *ValuesNode) OutputSymbols() []Symbol { return n.Symbols }

func (n *ValuesNode) ReplaceChildren(children []Node) Node {
	checkArity(n, children, 0)
	return n
}
