package gorm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/tesseradb/tessera/pkg/api"
	"github.com/tesseradb/tessera/pkg/catalog"
)

func testSession(t *testing.T) *api.Session {
	t.Helper()
	db, err := api.NewDB(&api.DBConfig{Logger: api.NewNoOpLogger()})
	require.NoError(t, err)

	cat := catalog.NewMemoryCatalog("main")
	addTable(cat, "t_a", "a1", 100, 6400)
	addTable(cat, "t_b", "b1", 10000, 640000)
	require.NoError(t, db.RegisterCatalog(cat))
	return db.Session()
}

func addTable(cat *catalog.MemoryCatalog, table, column string, rows, width float64) {
	cat.AddTable(
		&catalog.TableMeta{Name: table, Columns: []catalog.ColumnMeta{{Name: column, Type: "bigint"}}},
		&catalog.TableStats{
			RowCount: rows,
			Columns: map[string]*catalog.ColumnStats{
				column: {DistinctCount: rows, AvgSizeBytes: width},
			},
		})
}

func openGorm(t *testing.T) (*gorm.DB, *api.Session) {
	t.Helper()
	sess := testSession(t)
	gormDB, err := gorm.Open(New(sess), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, sess
}

func TestDialector_ExplainThroughRaw(t *testing.T) {
	gormDB, _ := openGorm(t)

	var lines []string
	err := gormDB.Raw("EXPLAIN SELECT * FROM t_a a JOIN t_b b ON a.a1 = b.b1").Scan(&lines).Error
	require.NoError(t, err)

	text := strings.Join(lines, "\n")
	assert.Contains(t, text, "InnerJoin[REPLICATED][b.b1 = a.a1]")
	assert.Contains(t, text, "TableScan[t_b AS b]")
}

func TestDialector_ShowTablesThroughRaw(t *testing.T) {
	gormDB, _ := openGorm(t)

	var tables []string
	err := gormDB.Raw("SHOW TABLES").Scan(&tables).Error
	require.NoError(t, err)
	assert.Equal(t, []string{"t_a", "t_b"}, tables)
}

func TestDialector_ExecRoutesSet(t *testing.T) {
	gormDB, sess := openGorm(t)

	err := gormDB.Exec("SET SESSION join_distribution_type = 'broadcast'").Error
	require.NoError(t, err)
	assert.Equal(t, "BROADCAST", sess.Properties()["join_distribution_type"])
}

func TestConnector_PlainDatabaseSQL(t *testing.T) {
	sess := testSession(t)
	sqlDB := OpenDB(sess)
	defer sqlDB.Close()

	rows, err := sqlDB.QueryContext(context.Background(), "SHOW TABLES")
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"t_a", "t_b"}, tables)
}

func TestConnector_ExecOnRowStatementCountsRows(t *testing.T) {
	sess := testSession(t)
	sqlDB := OpenDB(sess)
	defer sqlDB.Close()

	res, err := sqlDB.ExecContext(context.Background(), "SHOW TABLES")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestMigrator_SchemaQuestions(t *testing.T) {
	gormDB, _ := openGorm(t)
	m := gormDB.Migrator()

	tables, err := m.GetTables()
	require.NoError(t, err)
	assert.Equal(t, []string{"t_a", "t_b"}, tables)

	assert.True(t, m.HasTable("t_a"))
	assert.False(t, m.HasTable("missing"))
	assert.Equal(t, "main", m.CurrentDatabase())
}

func TestDialector_DataTypeOf(t *testing.T) {
	d := Dialector{}
	tests := []struct {
		dataType schema.DataType
		want     string
	}{
		{schema.Bool, "boolean"},
		{schema.Int, "bigint"},
		{schema.Uint, "bigint"},
		{schema.Float, "double"},
		{schema.String, "varchar"},
		{schema.Time, "timestamp"},
		{schema.Bytes, "blob"},
	}
	for _, tt := range tests {
		got := d.DataTypeOf(&schema.Field{DataType: tt.dataType})
		assert.Equal(t, tt.want, got, "data type %s", tt.dataType)
	}
}

func TestToDriverValue(t *testing.T) {
	assert.Nil(t, toDriverValue(nil))
	assert.Equal(t, "x", toDriverValue("x"))
	assert.Equal(t, int64(7), toDriverValue(7))
	assert.Equal(t, float64(1.5), toDriverValue(float32(1.5)))
	assert.Equal(t, true, toDriverValue(true))
}
