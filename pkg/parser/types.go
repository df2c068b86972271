package parser

import (
	"fmt"
)

// SQLType classifies a parsed statement.
type SQLType string

const (
	SQLTypeSelect  SQLType = "SELECT"
	SQLTypeExplain SQLType = "EXPLAIN"
	SQLTypeShow    SQLType = "SHOW"
	SQLTypeSet     SQLType = "SET"
	SQLTypeUse     SQLType = "USE"
	SQLTypeUnknown SQLType = "UNKNOWN"
)

// SQLStatement is the parsed form of one statement.
type SQLStatement struct {
	Type    SQLType           `json:"type"`
	RawSQL  string            `json:"raw_sql"`
	Select  *SelectStatement  `json:"select,omitempty"`
	Explain *ExplainStatement `json:"explain,omitempty"`
	Show    *ShowStatement    `json:"show,omitempty"`
	Set     *SetStatement     `json:"set,omitempty"`
	Use     *UseStatement     `json:"use,omitempty"`
}

// SelectStatement is a read query. From is nil for constant SELECTs
// (SELECT 1), otherwise it holds the FROM tree with join nesting intact:
// the planner needs the original bushy shape, not a flattened join list.
type SelectStatement struct {
	Distinct bool           `json:"distinct"`
	Columns  []SelectColumn `json:"columns"`
	From     *TableRef      `json:"from,omitempty"`
	Where    *Expression    `json:"where,omitempty"`
	GroupBy  []string       `json:"group_by,omitempty"`
	Limit    *int64         `json:"limit,omitempty"`
}

// SelectColumn is one projection item.
type SelectColumn struct {
	Name       string      `json:"name"`
	Alias      string      `json:"alias,omitempty"`
	Table      string      `json:"table,omitempty"`
	Expr       *Expression `json:"expr,omitempty"`
	IsWildcard bool        `json:"is_wildcard"`
}

// TableRefKind discriminates TableRef.
type TableRefKind string

const (
	TableRefTable TableRefKind = "TABLE"
	TableRefJoin  TableRefKind = "JOIN"
)

// TableRef is a node in the FROM tree: either a named table (with optional
// alias) or a join of two sub-trees.
type TableRef struct {
	Kind  TableRefKind `json:"kind"`
	Table string       `json:"table,omitempty"`
	Alias string       `json:"alias,omitempty"`
	Join  *JoinClause  `json:"join,omitempty"`
}

// JoinClause is one join in the FROM tree.
type JoinClause struct {
	Type  JoinType    `json:"type"`
	Left  *TableRef   `json:"left"`
	Right *TableRef   `json:"right"`
	On    *Expression `json:"on,omitempty"`
}

// JoinType is the syntactic join type.
type JoinType string

const (
	JoinTypeInner JoinType = "INNER"
	JoinTypeLeft  JoinType = "LEFT"
	JoinTypeRight JoinType = "RIGHT"
	JoinTypeFull  JoinType = "FULL"
	JoinTypeCross JoinType = "CROSS"
)

// ExplainStatement asks for the plan of the wrapped query.
type ExplainStatement struct {
	Query     *SelectStatement `json:"query,omitempty"`
	TargetSQL string           `json:"target_sql,omitempty"`
	Format    string           `json:"format,omitempty"`
}

// ShowStatement covers SHOW TABLES, SHOW COLUMNS FROM <table>,
// SHOW TABLE STATUS (statistics) and SHOW VARIABLES (session properties).
type ShowStatement struct {
	Type  string `json:"type"` // TABLES, COLUMNS, STATS, SESSION
	Table string `json:"table,omitempty"`
	Like  string `json:"like,omitempty"`
}

// SetStatement covers SET [SESSION] name = value.
type SetStatement struct {
	Variables map[string]string `json:"variables"`
}

// UseStatement switches the default catalog.
type UseStatement struct {
	Database string `json:"database"`
}

// Expression is the engine-side expression tree: a small tagged union the
// planner can inspect without reaching back into the SQL AST.
type Expression struct {
	Type     ExprType     `json:"type"`
	Column   string       `json:"column,omitempty"`
	Value    interface{}  `json:"value,omitempty"`
	Operator string       `json:"operator,omitempty"`
	Left     *Expression  `json:"left,omitempty"`
	Right    *Expression  `json:"right,omitempty"`
	Args     []Expression `json:"args,omitempty"`
	Function string       `json:"function,omitempty"`
}

// ExprType discriminates Expression.
type ExprType string

const (
	ExprTypeColumn   ExprType = "COLUMN"
	ExprTypeValue    ExprType = "VALUE"
	ExprTypeOperator ExprType = "OPERATOR"
	ExprTypeFunction ExprType = "FUNCTION"
)

// ParseResult is returned by SQLAdapter.Parse.
type ParseResult struct {
	Statement *SQLStatement `json:"statement"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// ParserError reports a syntax failure with a position.
type ParserError struct {
	SQL     string `json:"sql"`
	Message string `json:"message"`
	Pos     int    `json:"pos"`
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("SQL parse error at position %d: %s", e.Pos, e.Message)
}
