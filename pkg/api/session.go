package api

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/tesseradb/tessera/pkg/catalog"
	"github.com/tesseradb/tessera/pkg/explain"
	"github.com/tesseradb/tessera/pkg/optimizer"
	"github.com/tesseradb/tessera/pkg/optimizer/join"
	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/planbuilder"
	"github.com/tesseradb/tessera/pkg/session"
	"github.com/tesseradb/tessera/pkg/stats"
)

// Session runs diagnostic statements against a DB: EXPLAIN plans queries,
// SHOW inspects catalogs and properties, SET adjusts the session. It is
// safe for concurrent use.
type Session struct {
	db     *DB
	sess   *session.Session
	logger Logger

	parserMu sync.Mutex
	adapter  *parser.SQLAdapter
}

func newSession(db *DB, sess *session.Session, logger Logger) *Session {
	return &Session{
		db:      db,
		sess:    sess,
		logger:  logger,
		adapter: parser.NewSQLAdapter(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.sess.ID()
}

// Properties returns a snapshot of the session properties.
func (s *Session) Properties() map[string]string {
	return s.sess.All()
}

// Set assigns one session property.
func (s *Session) Set(name, value string) error {
	if err := s.sess.Set(name, value); err != nil {
		return WrapError(err, ErrCodeInvalidParam, "set session property")
	}
	return nil
}

// Catalog resolves the session's current catalog: the one selected with
// USE, or the DB default.
func (s *Session) Catalog() (catalog.Catalog, error) {
	if name := s.sess.Catalog(); name != "" {
		return s.db.Catalog(name)
	}
	return s.db.DefaultCatalog()
}

// Explain plans sql (a SELECT, or an EXPLAIN wrapping one) and returns the
// optimized plan rendered as text.
func (s *Session) Explain(ctx context.Context, sql string) (string, error) {
	stmt, err := s.parse(sql)
	if err != nil {
		return "", err
	}

	var target *parser.SelectStatement
	switch stmt.Type {
	case parser.SQLTypeSelect:
		target = stmt.Select
	case parser.SQLTypeExplain:
		target = stmt.Explain.Query
	}
	if target == nil {
		return "", Errorf(ErrCodeNotSupported, "EXPLAIN supports SELECT statements")
	}

	cat, err := s.Catalog()
	if err != nil {
		return "", err
	}

	cacheKey := planCacheKey(sql, cat.Name(), s.sess.All())
	if text, ok := s.db.planCache.Get(cacheKey); ok {
		return text, nil
	}

	optimized, estimator, err := s.plan(ctx, cat, target)
	if err != nil {
		return "", err
	}
	text := explain.NewRenderer(estimator).Render(ctx, optimized)
	s.db.planCache.Set(cacheKey, text)
	return text, nil
}

// plan builds and optimizes one SELECT against the given catalog,
// returning the optimized root and the estimator that priced it.
func (s *Session) plan(ctx context.Context, cat catalog.Catalog, target *parser.SelectStatement) (plan.Node, *stats.Provider, error) {
	if s.sess.Debug() {
		join.SetDebug(true)
		stats.SetDebug(true)
	}
	alloc := plan.NewIDAllocator()
	root, err := planbuilder.New(cat, alloc).Build(ctx, target)
	if err != nil {
		return nil, nil, planError(err)
	}

	estimator := stats.NewProvider(cat)
	octx := optimizer.NewContext(s.sess, alloc, estimator).WithLogger(s.logger)
	optimized, err := optimizer.New(join.NewReorderJoins()).Optimize(ctx, root, octx)
	if err != nil {
		if optimizer.IsInternalError(err) {
			return nil, nil, WrapError(err, ErrCodeInternal, "optimize")
		}
		return nil, nil, WrapError(err, ErrCodePlanning, "optimize")
	}
	return optimized, estimator, nil
}

// Query runs a statement that returns rows: EXPLAIN, SHOW TABLES, SHOW
// COLUMNS, SHOW TABLE STATUS, SHOW VARIABLES.
func (s *Session) Query(ctx context.Context, sql string) (*ResultSet, error) {
	stmt, err := s.parse(sql)
	if err != nil {
		return nil, err
	}

	switch stmt.Type {
	case parser.SQLTypeExplain:
		text, err := s.Explain(ctx, sql)
		if err != nil {
			return nil, err
		}
		return explainResultSet(text), nil

	case parser.SQLTypeShow:
		return s.show(ctx, stmt.Show)

	case parser.SQLTypeSelect:
		return nil, Errorf(ErrCodeNotSupported,
			"query execution is not supported; use EXPLAIN to inspect the plan")

	case parser.SQLTypeSet, parser.SQLTypeUse:
		return nil, Errorf(ErrCodeNotSupported, "statement returns no rows; use Execute")

	default:
		return nil, Errorf(ErrCodeNotSupported, "unsupported statement")
	}
}

// Execute runs a statement that returns no rows: SET and USE.
func (s *Session) Execute(ctx context.Context, sql string) (*Result, error) {
	stmt, err := s.parse(sql)
	if err != nil {
		return nil, err
	}

	switch stmt.Type {
	case parser.SQLTypeSet:
		for name, value := range stmt.Set.Variables {
			if err := s.Set(name, value); err != nil {
				return nil, err
			}
		}
		return &Result{}, nil

	case parser.SQLTypeUse:
		if _, err := s.db.Catalog(stmt.Use.Database); err != nil {
			return nil, err
		}
		s.sess.SetCatalog(stmt.Use.Database)
		return &Result{}, nil

	default:
		return nil, Errorf(ErrCodeNotSupported, "statement returns rows; use Query")
	}
}

func (s *Session) show(ctx context.Context, stmt *parser.ShowStatement) (*ResultSet, error) {
	cat, err := s.Catalog()
	if err != nil {
		return nil, err
	}

	switch stmt.Type {
	case "TABLES":
		tables, err := cat.ListTables(ctx)
		if err != nil {
			return nil, WrapError(err, ErrCodePlanning, "list tables")
		}
		rs := &ResultSet{Columns: []string{"table"}}
		for _, table := range tables {
			if !likeMatch(stmt.Like, table) {
				continue
			}
			rs.Rows = append(rs.Rows, []interface{}{table})
		}
		return rs, nil

	case "COLUMNS":
		meta, err := cat.GetTable(ctx, stmt.Table)
		if err != nil {
			return nil, catalogError(err, "show columns")
		}
		rs := &ResultSet{Columns: []string{"column", "type", "nullable"}}
		for _, col := range meta.Columns {
			rs.Rows = append(rs.Rows, []interface{}{col.Name, col.Type, col.Nullable})
		}
		return rs, nil

	case "STATS":
		tables, err := cat.ListTables(ctx)
		if err != nil {
			return nil, WrapError(err, ErrCodePlanning, "list tables")
		}
		rs := &ResultSet{Columns: []string{"table", "row_count", "analyzed"}}
		for _, table := range tables {
			if !likeMatch(stmt.Like, table) {
				continue
			}
			tableStats, err := cat.GetTableStats(ctx, table)
			if err != nil {
				return nil, catalogError(err, "show stats")
			}
			if tableStats == nil {
				rs.Rows = append(rs.Rows, []interface{}{table, nil, false})
				continue
			}
			rs.Rows = append(rs.Rows, []interface{}{table, tableStats.RowCount, true})
		}
		return rs, nil

	case "SESSION":
		props := s.sess.All()
		names := make([]string, 0, len(props))
		for name := range props {
			if likeMatch(stmt.Like, name) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		rs := &ResultSet{Columns: []string{"name", "value"}}
		for _, name := range names {
			rs.Rows = append(rs.Rows, []interface{}{name, props[name]})
		}
		return rs, nil

	default:
		return nil, Errorf(ErrCodeNotSupported, "unsupported SHOW statement %q", stmt.Type)
	}
}

func (s *Session) parse(sql string) (*parser.SQLStatement, error) {
	s.parserMu.Lock()
	result, err := s.adapter.Parse(sql)
	s.parserMu.Unlock()
	if err != nil {
		return nil, WrapError(err, ErrCodeSyntax, "parse")
	}
	return result.Statement, nil
}

// planError classifies a plan-building failure: unsupported constructs
// map to NOT_SUPPORTED, missing tables to TABLE_NOT_FOUND, the rest is
// a planning failure.
func planError(err error) error {
	if errors.Is(err, planbuilder.ErrUnsupported) {
		return WrapError(err, ErrCodeNotSupported, "plan")
	}
	return catalogError(err, "plan")
}

// catalogError maps catalog lookup failures onto API codes.
func catalogError(err error, op string) error {
	if errors.Is(err, catalog.ErrTableNotFound) {
		return WrapError(err, ErrCodeTableNotFound, op)
	}
	return WrapError(err, ErrCodePlanning, op)
}

func explainResultSet(text string) *ResultSet {
	rs := &ResultSet{Columns: []string{"plan"}}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		rs.Rows = append(rs.Rows, []interface{}{line})
	}
	return rs
}

// likeMatch applies a SQL LIKE pattern; an empty pattern matches all.
func likeMatch(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, "%", ".*")
	quoted = strings.ReplaceAll(quoted, "_", ".")
	re, err := regexp.Compile("(?i)^" + quoted + "$")
	if err != nil {
		return false
	}
	return re.MatchString(value)
}
