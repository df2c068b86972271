package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// SQLAdapter turns SQL text into SQLStatement values. It wraps the TiDB
// parser and converts the subset of its AST the planner understands:
// SELECT (joins, WHERE, projection), EXPLAIN, SHOW, SET, USE.
type SQLAdapter struct {
	parser *parser.Parser
}

// NewSQLAdapter creates an adapter with a fresh TiDB parser.
func NewSQLAdapter() *SQLAdapter {
	return &SQLAdapter{parser: parser.New()}
}

// Parse parses a single statement.
func (a *SQLAdapter) Parse(sql string) (*ParseResult, error) {
	stmtNodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil {
		return &ParseResult{Success: false, Error: err.Error()},
			fmt.Errorf("parse SQL failed: %w", err)
	}
	if len(stmtNodes) == 0 {
		return &ParseResult{Success: false, Error: "no statements found"},
			fmt.Errorf("no statements found")
	}

	statement, err := a.convertToStatement(stmtNodes[0])
	if err != nil {
		return &ParseResult{Success: false, Error: err.Error()}, err
	}
	return &ParseResult{Statement: statement, Success: true}, nil
}

// convertToStatement maps one AST node to the engine statement model.
func (a *SQLAdapter) convertToStatement(node ast.StmtNode) (*SQLStatement, error) {
	stmt := &SQLStatement{RawSQL: node.Text()}

	switch stmtNode := node.(type) {
	case *ast.SelectStmt:
		stmt.Type = SQLTypeSelect
		selectStmt, err := a.convertSelectStmt(stmtNode)
		if err != nil {
			return nil, err
		}
		stmt.Select = selectStmt

	case *ast.ExplainStmt:
		// DESCRIBE <table> arrives as ExplainStmt wrapping SHOW COLUMNS.
		if showStmt, ok := stmtNode.Stmt.(*ast.ShowStmt); ok && showStmt.Tp == ast.ShowColumns {
			stmt.Type = SQLTypeShow
			stmt.Show = &ShowStatement{Type: "COLUMNS"}
			if showStmt.Table != nil {
				stmt.Show.Table = showStmt.Table.Name.String()
			}
			break
		}
		stmt.Type = SQLTypeExplain
		explainStmt := &ExplainStatement{
			TargetSQL: stmt.RawSQL,
			Format:    stmtNode.Format,
		}
		if sel, ok := stmtNode.Stmt.(*ast.SelectStmt); ok {
			query, err := a.convertSelectStmt(sel)
			if err != nil {
				return nil, err
			}
			explainStmt.Query = query
		}
		stmt.Explain = explainStmt

	case *ast.ShowStmt:
		stmt.Type = SQLTypeShow
		showStmt, err := a.convertShowStmt(stmtNode)
		if err != nil {
			return nil, err
		}
		stmt.Show = showStmt

	case *ast.SetStmt:
		stmt.Type = SQLTypeSet
		stmt.Set = a.convertSetStmt(stmtNode)

	case *ast.UseStmt:
		stmt.Type = SQLTypeUse
		stmt.Use = &UseStatement{Database: string(stmtNode.DBName)}

	default:
		stmt.Type = SQLTypeUnknown
	}

	return stmt, nil
}

func (a *SQLAdapter) convertSelectStmt(stmt *ast.SelectStmt) (*SelectStatement, error) {
	selectStmt := &SelectStatement{Distinct: stmt.Distinct}

	if stmt.Fields != nil {
		selectStmt.Columns = make([]SelectColumn, 0, len(stmt.Fields.Fields))
		for _, field := range stmt.Fields.Fields {
			col, err := a.convertSelectField(field)
			if err != nil {
				return nil, err
			}
			selectStmt.Columns = append(selectStmt.Columns, *col)
		}
	}

	if stmt.From != nil && stmt.From.TableRefs != nil {
		from, err := a.convertTableRefs(stmt.From.TableRefs)
		if err != nil {
			return nil, err
		}
		selectStmt.From = from
	}

	if stmt.Where != nil {
		expr, err := a.convertExpression(stmt.Where)
		if err != nil {
			return nil, err
		}
		selectStmt.Where = expr
	}

	if stmt.GroupBy != nil {
		for _, item := range stmt.GroupBy.Items {
			if col, ok := item.Expr.(*ast.ColumnNameExpr); ok {
				selectStmt.GroupBy = append(selectStmt.GroupBy, col.Name.Name.String())
			}
		}
	}

	if stmt.Limit != nil && stmt.Limit.Count != nil {
		if v, ok := extractInt64(stmt.Limit.Count); ok {
			selectStmt.Limit = &v
		}
	}

	return selectStmt, nil
}

// convertTableRefs converts a FROM clause preserving the join nesting. The
// TiDB AST models a lone table as a Join with a nil Right child.
func (a *SQLAdapter) convertTableRefs(node ast.ResultSetNode) (*TableRef, error) {
	switch n := node.(type) {
	case *ast.Join:
		left, err := a.convertTableRefs(n.Left)
		if err != nil {
			return nil, err
		}
		if n.Right == nil {
			return left, nil
		}
		right, err := a.convertTableRefs(n.Right)
		if err != nil {
			return nil, err
		}

		joinType := JoinTypeInner
		switch n.Tp {
		case ast.LeftJoin:
			joinType = JoinTypeLeft
		case ast.RightJoin:
			joinType = JoinTypeRight
		case ast.CrossJoin:
			joinType = JoinTypeCross
		}
		clause := &JoinClause{Type: joinType, Left: left, Right: right}
		if n.On != nil && n.On.Expr != nil {
			on, err := a.convertExpression(n.On.Expr)
			if err != nil {
				return nil, err
			}
			clause.On = on
			// CROSS JOIN ... ON is inner join syntax in MySQL.
			if joinType == JoinTypeCross {
				clause.Type = JoinTypeInner
			}
		}
		return &TableRef{Kind: TableRefJoin, Join: clause}, nil

	case *ast.TableSource:
		switch src := n.Source.(type) {
		case *ast.TableName:
			name := src.Name.String()
			if src.Schema.String() != "" {
				name = src.Schema.String() + "." + name
			}
			ref := &TableRef{Kind: TableRefTable, Table: name}
			if n.AsName.L != "" {
				ref.Alias = n.AsName.String()
			}
			return ref, nil
		case *ast.Join:
			// Parenthesized join: FROM (a JOIN b ON ...) JOIN c.
			return a.convertTableRefs(src)
		default:
			return nil, fmt.Errorf("unsupported table source: %T", n.Source)
		}

	default:
		return nil, fmt.Errorf("unsupported FROM clause node: %T", node)
	}
}

func (a *SQLAdapter) convertSelectField(field *ast.SelectField) (*SelectColumn, error) {
	col := &SelectColumn{}

	if field.WildCard != nil {
		col.IsWildcard = true
		col.Name = "*"
		if field.WildCard.Table.L != "" {
			col.Table = field.WildCard.Table.String()
		}
		return col, nil
	}

	if expr, ok := field.Expr.(*ast.ColumnNameExpr); ok {
		col.Name = expr.Name.Name.String()
		col.Table = expr.Name.Table.String()
	}

	if field.Expr != nil {
		expr, err := a.convertExpression(field.Expr)
		if err != nil {
			return nil, err
		}
		col.Expr = expr
		if col.Name == "" && expr.Type == ExprTypeFunction {
			col.Name = expr.Function
		}
	}

	if field.AsName.L != "" {
		col.Alias = field.AsName.String()
	}
	return col, nil
}

// convertExpression maps an AST expression to the engine expression model,
// normalizing TiDB opcode names ("eq", "gt", "and") to canonical spellings.
func (a *SQLAdapter) convertExpression(node ast.ExprNode) (*Expression, error) {
	switch n := node.(type) {
	case *ast.BinaryOperationExpr:
		left, err := a.convertExpression(n.L)
		if err != nil {
			return nil, err
		}
		right, err := a.convertExpression(n.R)
		if err != nil {
			return nil, err
		}
		return NewBinaryExpr(mapOperator(n.Op.String()), left, right), nil

	case *ast.UnaryOperationExpr:
		operand, err := a.convertExpression(n.V)
		if err != nil {
			return nil, err
		}
		return &Expression{Type: ExprTypeOperator, Operator: mapOperator(n.Op.String()), Right: operand}, nil

	case *ast.ColumnNameExpr:
		name := n.Name.Name.String()
		if n.Name.Table.L != "" {
			name = n.Name.Table.String() + "." + name
		}
		return NewColumnExpr(name), nil

	case ast.ValueExpr:
		return NewValueExpr(normalizeValue(n.GetValue())), nil

	case *ast.FuncCallExpr:
		expr := &Expression{Type: ExprTypeFunction, Function: strings.ToLower(n.FnName.String())}
		for _, arg := range n.Args {
			converted, err := a.convertExpression(arg)
			if err != nil {
				return nil, err
			}
			expr.Args = append(expr.Args, *converted)
		}
		return expr, nil

	case *ast.AggregateFuncExpr:
		expr := &Expression{Type: ExprTypeFunction, Function: strings.ToLower(n.F)}
		for _, arg := range n.Args {
			converted, err := a.convertExpression(arg)
			if err != nil {
				return nil, err
			}
			expr.Args = append(expr.Args, *converted)
		}
		return expr, nil

	case *ast.ParenthesesExpr:
		return a.convertExpression(n.Expr)

	case *ast.PatternInExpr:
		left, err := a.convertExpression(n.Expr)
		if err != nil {
			return nil, err
		}
		op := "IN"
		if n.Not {
			op = "NOT IN"
		}
		values := make([]interface{}, 0, len(n.List))
		for _, item := range n.List {
			if valExpr, ok := item.(ast.ValueExpr); ok {
				values = append(values, normalizeValue(valExpr.GetValue()))
			}
		}
		return &Expression{
			Type: ExprTypeOperator, Operator: op,
			Left:  left,
			Right: NewValueExpr(values),
		}, nil

	case *ast.IsNullExpr:
		left, err := a.convertExpression(n.Expr)
		if err != nil {
			return nil, err
		}
		op := "IS NULL"
		if n.Not {
			op = "IS NOT NULL"
		}
		return &Expression{Type: ExprTypeOperator, Operator: op, Left: left}, nil

	default:
		return nil, fmt.Errorf("unsupported expression: %T", node)
	}
}

func (a *SQLAdapter) convertShowStmt(stmt *ast.ShowStmt) (*ShowStatement, error) {
	showStmt := &ShowStatement{}

	switch stmt.Tp {
	case ast.ShowTables:
		showStmt.Type = "TABLES"
	case ast.ShowColumns:
		showStmt.Type = "COLUMNS"
		if stmt.Table != nil {
			showStmt.Table = stmt.Table.Name.String()
		}
	case ast.ShowTableStatus:
		showStmt.Type = "STATS"
	case ast.ShowVariables:
		showStmt.Type = "SESSION"
	default:
		return nil, fmt.Errorf("unsupported SHOW statement")
	}

	if stmt.Pattern != nil && stmt.Pattern.Pattern != nil {
		if getter, ok := stmt.Pattern.Pattern.(interface{ GetDatumString() string }); ok {
			showStmt.Like = getter.GetDatumString()
		}
	}
	return showStmt, nil
}

func (a *SQLAdapter) convertSetStmt(stmt *ast.SetStmt) *SetStatement {
	setStmt := &SetStatement{Variables: make(map[string]string)}
	for _, varAssign := range stmt.Variables {
		name := strings.ToLower(varAssign.Name)
		if varAssign.Value == nil {
			continue
		}
		if val, ok := extractScalar(varAssign.Value); ok {
			setStmt.Variables[name] = fmt.Sprintf("%v", val)
		}
	}
	return setStmt
}

// mapOperator maps TiDB opcode names to canonical spellings. Unknown names
// pass through unchanged.
func mapOperator(op string) string {
	switch strings.ToLower(op) {
	case "eq", "==":
		return OpEQ
	case "ne", "!=", "<>":
		return OpNE
	case "lt":
		return OpLT
	case "le", "lte":
		return OpLE
	case "gt":
		return OpGT
	case "ge", "gte":
		return OpGE
	case "and", "&&":
		return OpAnd
	case "or", "||":
		return OpOr
	case "plus":
		return OpAdd
	case "minus":
		return OpSub
	case "mul":
		return OpMul
	case "div":
		return OpDiv
	default:
		return op
	}
}

// extractScalar pulls a Go value out of a literal expression.
func extractScalar(node ast.ExprNode) (interface{}, bool) {
	if valExpr, ok := node.(ast.ValueExpr); ok {
		return normalizeValue(valExpr.GetValue()), true
	}
	// SET foo = bar parses the bare word as a column reference.
	if colExpr, ok := node.(*ast.ColumnNameExpr); ok {
		return colExpr.Name.Name.String(), true
	}
	return nil, false
}

func extractInt64(node ast.ExprNode) (int64, bool) {
	val, ok := extractScalar(node)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// normalizeValue converts TiDB literal values (including its decimal type)
// to plain Go values.
func normalizeValue(val interface{}) interface{} {
	switch v := val.(type) {
	case nil, bool, string, int64, float64:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v <= uint64(math.MaxInt64) {
			return int64(v)
		}
		return v
	case float32:
		return float64(v)
	default:
		if stringer, ok := val.(fmt.Stringer); ok {
			s := stringer.String()
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
			return s
		}
		return val
	}
}
