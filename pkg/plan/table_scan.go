package plan

// TableScanNode reads a base table. Symbols are the scan outputs in table
// column order, qualified by the alias; Columns maps each symbol back to
// the source column name for catalog and statistics lookups.
type TableScanNode struct {
	id      NodeID
	Table   string
	Alias   string
	Symbols []Symbol
	Columns map[Symbol]string
}

// NewTableScan creates a scan of table exposing the given columns. The
// alias qualifies the output symbols; an empty alias falls back to the
// table name.
func NewTableScan(id NodeID, table, alias string, columns []string) *TableScanNode {
	qualifier := alias
	if qualifier == "" {
		qualifier = table
	}
	symbols := make([]Symbol, 0, len(columns))
	mapping := make(map[Symbol]string, len(columns))
	for _, col := range columns {
		sym := Symbol(qualifier + "." + col)
		symbols = append(symbols, sym)
		mapping[sym] = col
	}
	return &TableScanNode{id: id, Table: table, Alias: qualifier, Symbols: symbols, Columns: mapping}
}

func (n *TableScanNode) ID() NodeID              { return n.id }
func (n *TableScanNode) Children() []Node        { return nil }
func (n *TableScanNode) OutputSymbols() []Symbol { return n.Symbols }

func (n *TableScanNode) ReplaceChildren(children []Node) Node {
	checkArity(n, children, 0)
	return n
}

// ColumnName returns the source column behind an output symbol.
func (n *TableScanNode) ColumnName(sym Symbol) (string, bool) {
	col, ok := n.Columns[sym]
	return col, ok
}
