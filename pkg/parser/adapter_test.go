package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLAdapter_ParseSelect(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SELECT id, name FROM users WHERE age > 18")
	require.NoError(t, err)
	assert.True(t, result.Success)

	stmt := result.Statement
	assert.Equal(t, SQLTypeSelect, stmt.Type)
	require.NotNil(t, stmt.Select)

	sel := stmt.Select
	require.Len(t, sel.Columns, 2)
	assert.Equal(t, "id", sel.Columns[0].Name)
	assert.Equal(t, "name", sel.Columns[1].Name)

	require.NotNil(t, sel.From)
	assert.Equal(t, TableRefTable, sel.From.Kind)
	assert.Equal(t, "users", sel.From.Table)

	require.NotNil(t, sel.Where)
	assert.Equal(t, ExprTypeOperator, sel.Where.Type)
	assert.Equal(t, OpGT, sel.Where.Operator)
	assert.Equal(t, "age", sel.Where.Left.Column)
	assert.Equal(t, int64(18), sel.Where.Right.Value)
}

func TestSQLAdapter_ParseJoinTreeShape(t *testing.T) {
	adapter := NewSQLAdapter()

	// Left-deep: ((a JOIN b) JOIN c).
	result, err := adapter.Parse(
		"SELECT a.id FROM a JOIN b ON a.id = b.a_id JOIN c ON b.id = c.b_id")
	require.NoError(t, err)

	from := result.Statement.Select.From
	require.Equal(t, TableRefJoin, from.Kind)
	outer := from.Join
	assert.Equal(t, JoinTypeInner, outer.Type)
	assert.Equal(t, "c", outer.Right.Table)

	require.Equal(t, TableRefJoin, outer.Left.Kind)
	inner := outer.Left.Join
	assert.Equal(t, JoinTypeInner, inner.Type)
	assert.Equal(t, "a", inner.Left.Table)
	assert.Equal(t, "b", inner.Right.Table)
	require.NotNil(t, inner.On)
	assert.Equal(t, OpEQ, inner.On.Operator)
}

func TestSQLAdapter_ParseParenthesizedJoin(t *testing.T) {
	adapter := NewSQLAdapter()

	// Right side is a parenthesized join, the nesting must survive.
	result, err := adapter.Parse(
		"SELECT * FROM a JOIN (b JOIN c ON b.id = c.b_id) ON a.id = b.a_id")
	require.NoError(t, err)

	from := result.Statement.Select.From
	require.Equal(t, TableRefJoin, from.Kind)
	assert.Equal(t, "a", from.Join.Left.Table)

	right := from.Join.Right
	require.Equal(t, TableRefJoin, right.Kind)
	assert.Equal(t, "b", right.Join.Left.Table)
	assert.Equal(t, "c", right.Join.Right.Table)
}

func TestSQLAdapter_ParseJoinTypes(t *testing.T) {
	adapter := NewSQLAdapter()

	tests := []struct {
		name     string
		sql      string
		joinType JoinType
		hasOn    bool
	}{
		{"inner", "SELECT * FROM a INNER JOIN b ON a.x = b.x", JoinTypeInner, true},
		{"bare join with on", "SELECT * FROM a JOIN b ON a.x = b.x", JoinTypeInner, true},
		{"left", "SELECT * FROM a LEFT JOIN b ON a.x = b.x", JoinTypeLeft, true},
		{"right", "SELECT * FROM a RIGHT JOIN b ON a.x = b.x", JoinTypeRight, true},
		{"cross", "SELECT * FROM a CROSS JOIN b", JoinTypeCross, false},
		{"comma", "SELECT * FROM a, b", JoinTypeCross, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := adapter.Parse(tt.sql)
			require.NoError(t, err)

			from := result.Statement.Select.From
			require.Equal(t, TableRefJoin, from.Kind)
			assert.Equal(t, tt.joinType, from.Join.Type)
			if tt.hasOn {
				assert.NotNil(t, from.Join.On)
			} else {
				assert.Nil(t, from.Join.On)
			}
		})
	}
}

func TestSQLAdapter_ParseTableAlias(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SELECT o.id FROM orders o JOIN customers c ON o.cust_id = c.id")
	require.NoError(t, err)

	from := result.Statement.Select.From
	assert.Equal(t, "orders", from.Join.Left.Table)
	assert.Equal(t, "o", from.Join.Left.Alias)
	assert.Equal(t, "customers", from.Join.Right.Table)
	assert.Equal(t, "c", from.Join.Right.Alias)

	on := from.Join.On
	assert.Equal(t, "o.cust_id", on.Left.Column)
	assert.Equal(t, "c.id", on.Right.Column)
}

func TestSQLAdapter_OperatorNormalization(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse(
		"SELECT * FROM t WHERE a = 1 AND b != 2 OR c >= 3")
	require.NoError(t, err)

	where := result.Statement.Select.Where
	// ((a = 1 AND b != 2) OR c >= 3)
	assert.Equal(t, OpOr, where.Operator)
	assert.Equal(t, OpAnd, where.Left.Operator)
	assert.Equal(t, OpEQ, where.Left.Left.Operator)
	assert.Equal(t, OpNE, where.Left.Right.Operator)
	assert.Equal(t, OpGE, where.Right.Operator)
}

func TestSQLAdapter_ParseFunctionCall(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SELECT * FROM t WHERE RAND() < 0.5")
	require.NoError(t, err)

	where := result.Statement.Select.Where
	assert.Equal(t, OpLT, where.Operator)
	assert.Equal(t, ExprTypeFunction, where.Left.Type)
	assert.Equal(t, "rand", where.Left.Function)
	assert.False(t, IsDeterministic(where))
}

func TestSQLAdapter_ParseWildcard(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SELECT t.*, u.name FROM t JOIN u ON t.id = u.t_id")
	require.NoError(t, err)

	cols := result.Statement.Select.Columns
	require.Len(t, cols, 2)
	assert.True(t, cols[0].IsWildcard)
	assert.Equal(t, "t", cols[0].Table)
	assert.False(t, cols[1].IsWildcard)
	assert.Equal(t, "u", cols[1].Table)
	assert.Equal(t, "name", cols[1].Name)
}

func TestSQLAdapter_ParseLimit(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SELECT * FROM t LIMIT 10")
	require.NoError(t, err)
	require.NotNil(t, result.Statement.Select.Limit)
	assert.Equal(t, int64(10), *result.Statement.Select.Limit)
}

func TestSQLAdapter_ParseExplain(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("EXPLAIN SELECT * FROM a JOIN b ON a.id = b.a_id")
	require.NoError(t, err)

	stmt := result.Statement
	assert.Equal(t, SQLTypeExplain, stmt.Type)
	require.NotNil(t, stmt.Explain)
	require.NotNil(t, stmt.Explain.Query)
	assert.Equal(t, TableRefJoin, stmt.Explain.Query.From.Kind)
}

func TestSQLAdapter_ParseShow(t *testing.T) {
	adapter := NewSQLAdapter()

	tests := []struct {
		sql      string
		showType string
		table    string
	}{
		{"SHOW TABLES", "TABLES", ""},
		{"SHOW COLUMNS FROM users", "COLUMNS", "users"},
		{"DESCRIBE users", "COLUMNS", "users"},
		{"SHOW TABLE STATUS", "STATS", ""},
		{"SHOW VARIABLES", "SESSION", ""},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			result, err := adapter.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, SQLTypeShow, result.Statement.Type)
			require.NotNil(t, result.Statement.Show)
			assert.Equal(t, tt.showType, result.Statement.Show.Type)
			assert.Equal(t, tt.table, result.Statement.Show.Table)
		})
	}
}

func TestSQLAdapter_ParseShowLike(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SHOW TABLE STATUS LIKE 'orders'")
	require.NoError(t, err)
	assert.Equal(t, "STATS", result.Statement.Show.Type)
	assert.Equal(t, "orders", result.Statement.Show.Like)
}

func TestSQLAdapter_ParseSet(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SET SESSION join_distribution_type = 'BROADCAST'")
	require.NoError(t, err)

	stmt := result.Statement
	assert.Equal(t, SQLTypeSet, stmt.Type)
	require.NotNil(t, stmt.Set)
	assert.Equal(t, "BROADCAST", stmt.Set.Variables["join_distribution_type"])
}

func TestSQLAdapter_ParseSetMultiple(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse(
		"SET join_reordering_strategy = 'NONE', join_max_broadcast_table_size = '100MB'")
	require.NoError(t, err)

	vars := result.Statement.Set.Variables
	assert.Equal(t, "NONE", vars["join_reordering_strategy"])
	assert.Equal(t, "100MB", vars["join_max_broadcast_table_size"])
}

func TestSQLAdapter_ParseUse(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("USE tpch")
	require.NoError(t, err)
	assert.Equal(t, SQLTypeUse, result.Statement.Type)
	assert.Equal(t, "tpch", result.Statement.Use.Database)
}

func TestSQLAdapter_ParseSyntaxError(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SELEC * FROM t")
	assert.Error(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestSQLAdapter_ParseConstantSelect(t *testing.T) {
	adapter := NewSQLAdapter()

	result, err := adapter.Parse("SELECT 1")
	require.NoError(t, err)

	sel := result.Statement.Select
	assert.Nil(t, sel.From)
	require.Len(t, sel.Columns, 1)
	require.NotNil(t, sel.Columns[0].Expr)
	assert.Equal(t, int64(1), sel.Columns[0].Expr.Value)
}
