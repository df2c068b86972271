package parser

import (
	"fmt"
	"strings"
)

// Canonical operator spellings produced by the converter and matched by the
// planner. Comparisons and logic connectives use SQL forms; arithmetic uses
// the usual symbols. A unary minus is an OPERATOR "-" with Left == nil.
const (
	OpEQ  = "="
	OpNE  = "!="
	OpLT  = "<"
	OpLE  = "<="
	OpGT  = ">"
	OpGE  = ">="
	OpAnd = "AND"
	OpOr  = "OR"
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
)

// nondeterministicFuncs are functions whose result differs between
// evaluations of the same row. Filters containing them must never be
// reordered or pushed around.
var nondeterministicFuncs = map[string]bool{
	"rand":              true,
	"random":            true,
	"uuid":              true,
	"uuid_short":        true,
	"now":               true,
	"sysdate":           true,
	"curdate":           true,
	"curtime":           true,
	"current_date":      true,
	"current_time":      true,
	"current_timestamp": true,
	"unix_timestamp":    true,
	"sleep":             true,
	"connection_id":     true,
	"last_insert_id":    true,
}

// NewColumnExpr creates a column reference.
func NewColumnExpr(name string) *Expression {
	return &Expression{Type: ExprTypeColumn, Column: name}
}

// NewValueExpr creates a literal.
func NewValueExpr(v interface{}) *Expression {
	return &Expression{Type: ExprTypeValue, Value: v}
}

// NewBinaryExpr creates an infix operator node.
func NewBinaryExpr(op string, left, right *Expression) *Expression {
	return &Expression{Type: ExprTypeOperator, Operator: op, Left: left, Right: right}
}

// NewComparison creates a comparison between two columns.
func NewComparison(op, leftColumn, rightColumn string) *Expression {
	return NewBinaryExpr(op, NewColumnExpr(leftColumn), NewColumnExpr(rightColumn))
}

// NewFunctionExpr creates a function call.
func NewFunctionExpr(name string, args ...*Expression) *Expression {
	fnArgs := make([]Expression, 0, len(args))
	for _, a := range args {
		fnArgs = append(fnArgs, *a)
	}
	return &Expression{Type: ExprTypeFunction, Function: strings.ToLower(name), Args: fnArgs}
}

// Negate creates a unary minus over expr.
func Negate(expr *Expression) *Expression {
	return &Expression{Type: ExprTypeOperator, Operator: OpSub, Right: expr}
}

// And combines the given conjuncts; nil inputs are skipped. Returns nil when
// nothing remains, the single conjunct when only one remains.
func And(exprs ...*Expression) *Expression {
	var filtered []*Expression
	for _, e := range exprs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	result := filtered[0]
	for _, e := range filtered[1:] {
		result = NewBinaryExpr(OpAnd, result, e)
	}
	return result
}

// Conjuncts splits an AND tree into its leaves, left to right. A nil
// expression yields no conjuncts.
func Conjuncts(expr *Expression) []*Expression {
	if expr == nil {
		return nil
	}
	if expr.Type == ExprTypeOperator && expr.Operator == OpAnd {
		return append(Conjuncts(expr.Left), Conjuncts(expr.Right)...)
	}
	return []*Expression{expr}
}

// IsColumnEquality reports whether expr is `column = column` over two
// distinct columns, the shape eligible to become a join equi-clause.
func IsColumnEquality(expr *Expression) bool {
	return expr != nil &&
		expr.Type == ExprTypeOperator &&
		expr.Operator == OpEQ &&
		expr.Left != nil && expr.Left.Type == ExprTypeColumn &&
		expr.Right != nil && expr.Right.Type == ExprTypeColumn &&
		expr.Left.Column != expr.Right.Column
}

// ReferencedColumns returns the distinct column names referenced by expr,
// in first-seen order.
func ReferencedColumns(expr *Expression) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(e *Expression)
	walk = func(e *Expression) {
		if e == nil {
			return
		}
		if e.Type == ExprTypeColumn {
			if !seen[e.Column] {
				seen[e.Column] = true
				out = append(out, e.Column)
			}
			return
		}
		walk(e.Left)
		walk(e.Right)
		for i := range e.Args {
			walk(&e.Args[i])
		}
	}
	walk(expr)
	return out
}

// IsDeterministic reports whether expr is free of non-deterministic
// function calls. A nil expression is deterministic.
func IsDeterministic(expr *Expression) bool {
	if expr == nil {
		return true
	}
	if expr.Type == ExprTypeFunction && nondeterministicFuncs[strings.ToLower(expr.Function)] {
		return false
	}
	if !IsDeterministic(expr.Left) || !IsDeterministic(expr.Right) {
		return false
	}
	for i := range expr.Args {
		if !IsDeterministic(&expr.Args[i]) {
			return false
		}
	}
	return true
}

// Equal reports structural equality of two expressions.
func Equal(a, b *Expression) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Column != b.Column || a.Operator != b.Operator ||
		a.Function != b.Function || len(a.Args) != len(b.Args) {
		return false
	}
	if fmt.Sprintf("%v", a.Value) != fmt.Sprintf("%v", b.Value) {
		return false
	}
	if !Equal(a.Left, b.Left) || !Equal(a.Right, b.Right) {
		return false
	}
	for i := range a.Args {
		if !Equal(&a.Args[i], &b.Args[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies an expression tree.
func Clone(expr *Expression) *Expression {
	if expr == nil {
		return nil
	}
	out := &Expression{
		Type:     expr.Type,
		Column:   expr.Column,
		Value:    expr.Value,
		Operator: expr.Operator,
		Function: expr.Function,
		Left:     Clone(expr.Left),
		Right:    Clone(expr.Right),
	}
	if len(expr.Args) > 0 {
		out.Args = make([]Expression, len(expr.Args))
		for i := range expr.Args {
			out.Args[i] = *Clone(&expr.Args[i])
		}
	}
	return out
}

// String renders the expression in SQL-ish infix form, for plans and logs.
func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	switch e.Type {
	case ExprTypeColumn:
		return e.Column
	case ExprTypeValue:
		if s, ok := e.Value.(string); ok {
			return fmt.Sprintf("'%s'", s)
		}
		return fmt.Sprintf("%v", e.Value)
	case ExprTypeFunction:
		parts := make([]string, len(e.Args))
		for i := range e.Args {
			parts[i] = e.Args[i].String()
		}
		return fmt.Sprintf("%s(%s)", e.Function, strings.Join(parts, ", "))
	case ExprTypeOperator:
		if e.Left == nil {
			return fmt.Sprintf("(%s%s)", e.Operator, e.Right.String())
		}
		return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Operator, e.Right.String())
	default:
		return fmt.Sprintf("%v", e.Value)
	}
}
