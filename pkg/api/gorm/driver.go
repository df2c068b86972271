package gorm

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tesseradb/tessera/pkg/api"
)

// database/sql driver behind the dialector. GORM and plain database/sql
// users reach the session without a network round-trip:
//
//	connector → wraps *api.Session
//	conn      → QueryerContext / ExecerContext dispatching to Session
//	rows      → wraps api.ResultSet, converts to driver.Value
//
// Use sql.OpenDB(NewConnector(session)).

type tesseraDriver struct{}

func (d *tesseraDriver) Open(string) (driver.Conn, error) {
	return nil, fmt.Errorf("tessera: use sql.OpenDB(NewConnector(session)) instead of sql.Open")
}

// NewConnector routes all SQL on the returned connector through session.
func NewConnector(session *api.Session) driver.Connector {
	return &connector{session: session}
}

// OpenDB is a convenience wrapper: a *sql.DB routed through the session.
func OpenDB(session *api.Session) *sql.DB {
	return sql.OpenDB(NewConnector(session))
}

type connector struct {
	session *api.Session
}

func (c *connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{session: c.session}, nil
}

func (c *connector) Driver() driver.Driver {
	return &tesseraDriver{}
}

// conn implements driver.QueryerContext and driver.ExecerContext, so
// database/sql skips the Prepare path.
type conn struct {
	session *api.Session
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{session: c.session, query: query}, nil
}

func (c *conn) Close() error { return nil }

// Begin hands out a no-op transaction. Diagnostic statements are
// independent; there is nothing to commit or roll back.
func (c *conn) Begin() (driver.Tx, error) {
	return noopTx{}, nil
}

// QueryContext routes EXPLAIN / SHOW through Session.Query.
func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("tessera: placeholder arguments are not supported")
	}
	rs, err := c.session.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return &resultRows{columns: rs.Columns, rows: rs.Rows}, nil
}

// ExecContext routes SET / USE through Session.Execute. Row statements
// (e.g. from gormDB.Exec("SHOW ...")) transparently fall back to Query.
func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("tessera: placeholder arguments are not supported")
	}
	if isRowStatement(query) {
		rs, err := c.session.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		return execResult{affected: int64(rs.Len())}, nil
	}
	res, err := c.session.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return execResult{affected: res.RowsAffected}, nil
}

// stmt is the fallback prepared-statement path.
type stmt struct {
	session *api.Session
	query   string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return 0 }

func (s *stmt) Exec([]driver.Value) (driver.Result, error) {
	res, err := s.session.Execute(context.Background(), s.query)
	if err != nil {
		return nil, err
	}
	return execResult{affected: res.RowsAffected}, nil
}

func (s *stmt) Query([]driver.Value) (driver.Rows, error) {
	rs, err := s.session.Query(context.Background(), s.query)
	if err != nil {
		return nil, err
	}
	return &resultRows{columns: rs.Columns, rows: rs.Rows}, nil
}

// resultRows adapts a materialized ResultSet to driver.Rows.
type resultRows struct {
	columns []string
	rows    [][]interface{}
	index   int
}

func (r *resultRows) Columns() []string { return r.columns }
func (r *resultRows) Close() error      { return nil }

func (r *resultRows) Next(dest []driver.Value) error {
	if r.index >= len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.index]
	for i := range dest {
		if i < len(row) {
			dest[i] = toDriverValue(row[i])
		}
	}
	r.index++
	return nil
}

type execResult struct {
	affected int64
}

func (r execResult) LastInsertId() (int64, error) { return 0, nil }
func (r execResult) RowsAffected() (int64, error) { return r.affected, nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// isRowStatement reports SQL that must go through Session.Query.
func isRowStatement(query string) bool {
	q := strings.TrimSpace(query)
	if len(q) < 4 {
		return false
	}
	switch strings.ToUpper(q[:4]) {
	case "SELE", "SHOW", "EXPL", "DESC":
		return true
	}
	return false
}

// toDriverValue narrows a result value to the driver.Value set: nil,
// int64, float64, bool, []byte, string, time.Time.
func toDriverValue(v interface{}) driver.Value {
	switch val := v.(type) {
	case nil, int64, float64, bool, []byte, string, time.Time:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
