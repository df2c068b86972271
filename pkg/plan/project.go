package plan

import "github.com/tesseradb/tessera/pkg/parser"

// Assignment binds one output symbol to the expression computing it.
type Assignment struct {
	Output Symbol
	Expr   *parser.Expression
}

// Assignments is the ordered projection list of a ProjectNode. Order is
// the output order.
type Assignments []Assignment

// IdentityAssignments projects each symbol to itself.
func IdentityAssignments(symbols ...Symbol) Assignments {
	out := make(Assignments, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, Assignment{Output: s, Expr: parser.NewColumnExpr(string(s))})
	}
	return out
}

// Outputs returns the assigned symbols in order.
func (a Assignments) Outputs() []Symbol {
	out := make([]Symbol, 0, len(a))
	for _, asg := range a {
		out = append(out, asg.Output)
	}
	return out
}

// Get returns the expression assigned to sym, or nil.
func (a Assignments) Get(sym Symbol) *parser.Expression {
	for _, asg := range a {
		if asg.Output == sym {
			return asg.Expr
		}
	}
	return nil
}

// IsIdentity reports whether an assignment merely renames its own symbol,
// i.e. projects `s` as `s`.
func (asg Assignment) IsIdentity() bool {
	return asg.Expr != nil &&
		asg.Expr.Type == parser.ExprTypeColumn &&
		asg.Expr.Column == string(asg.Output)
}

// IsIdentity reports whether every assignment is an identity.
func (a Assignments) IsIdentity() bool {
	for _, asg := range a {
		if !asg.IsIdentity() {
			return false
		}
	}
	return true
}

// ProjectNode computes Assignments over the source rows.
type ProjectNode struct {
	id          NodeID
	Source      Node
	Assignments Assignments
}

func NewProject(id NodeID, source Node, assignments Assignments) *ProjectNode {
	return &ProjectNode{id: id, Source: source, Assignments: assignments}
}

func (n *ProjectNode) ID() NodeID              { return n.id }
func (n *ProjectNode) Children() []Node        { return []Node{n.Source} }
func (n *ProjectNode) OutputSymbols() []Symbol { return n.Assignments.Outputs() }

func (n *ProjectNode) ReplaceChildren(children []Node) Node {
	checkArity(n, children, 1)
	return &ProjectNode{id: n.id, Source: children[0], Assignments: n.Assignments}
}
