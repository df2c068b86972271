// Package gorm adapts a planner session to GORM. The Dialector's
// connection pool routes diagnostic SQL (EXPLAIN, SHOW, SET SESSION)
// through api.Session instead of a network database, so GORM tooling can
// inspect plans and catalogs the same way it talks to a real server.
package gorm

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/migrator"
	"gorm.io/gorm/schema"

	"github.com/tesseradb/tessera/pkg/api"
)

// Dialector plugs an api.Session into gorm.Open.
type Dialector struct {
	Session *api.Session
}

// New wraps a session for gorm.Open.
func New(session *api.Session) gorm.Dialector {
	return Dialector{Session: session}
}

func (d Dialector) Name() string {
	return "tessera"
}

func (d Dialector) Initialize(db *gorm.DB) error {
	db.ConnPool = sql.OpenDB(NewConnector(d.Session))
	callbacks.RegisterDefaultCallbacks(db, &callbacks.Config{})
	return nil
}

func (d Dialector) Migrator(db *gorm.DB) gorm.Migrator {
	return Migrator{
		Migrator: migrator.Migrator{Config: migrator.Config{DB: db, Dialector: d}},
		session:  d.Session,
	}
}

// DataTypeOf maps schema fields onto catalog column types.
func (d Dialector) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "boolean"
	case schema.Int, schema.Uint:
		return "bigint"
	case schema.Float:
		return "double"
	case schema.Time:
		return "timestamp"
	case schema.Bytes:
		return "blob"
	default:
		return "varchar"
	}
}

func (d Dialector) DefaultValueOf(field *schema.Field) clause.Expression {
	return clause.Expr{SQL: "DEFAULT"}
}

func (d Dialector) BindVarTo(writer clause.Writer, stmt *gorm.Statement, v interface{}) {
	writer.WriteByte('?')
}

func (d Dialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('`')
	writer.WriteString(str)
	writer.WriteByte('`')
}

func (d Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `'`, vars...)
}

// Migrator answers schema questions through the session's SHOW support.
// Mutating migrations fail: the planner never executes DDL.
type Migrator struct {
	migrator.Migrator
	session *api.Session
}

// CurrentDatabase returns the session's catalog name.
func (m Migrator) CurrentDatabase() string {
	cat, err := m.session.Catalog()
	if err != nil {
		return ""
	}
	return cat.Name()
}

// GetTables lists the catalog's tables.
func (m Migrator) GetTables() ([]string, error) {
	rs, err := m.session.Query(context.Background(), "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, rs.Len())
	for _, row := range rs.Rows {
		if name, ok := row[0].(string); ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// HasTable reports whether the value's table exists in the catalog.
func (m Migrator) HasTable(value interface{}) bool {
	var found bool
	m.RunWithValue(value, func(stmt *gorm.Statement) error {
		tables, err := m.GetTables()
		if err != nil {
			return err
		}
		for _, table := range tables {
			if table == stmt.Table {
				found = true
			}
		}
		return nil
	})
	return found
}
