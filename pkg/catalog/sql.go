package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLCatalog introspects a live database over database/sql. Supported
// drivers: mysql, postgres, sqlite. Statistics come from AnalyzeTable,
// which aggregates over the table and caches the result (and persists it
// when a StatsStore is attached).
type SQLCatalog struct {
	name   string
	driver string
	dsn    string

	mu        sync.RWMutex
	db        *sql.DB
	connected bool
	stats     map[string]*TableStats
	store     StatsStore
}

// NewSQLCatalog creates a catalog for the given driver and DSN. The
// connection opens on Connect.
func NewSQLCatalog(name, driver, dsn string) (*SQLCatalog, error) {
	switch driver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported catalog driver: %s", driver)
	}
	return &SQLCatalog{
		name:   name,
		driver: driver,
		dsn:    dsn,
		stats:  make(map[string]*TableStats),
	}, nil
}

func (c *SQLCatalog) Name() string {
	return c.name
}

// SetStatsStore attaches a persistent store. Already-analyzed tables stay
// in memory; future AnalyzeTable results are written through.
func (c *SQLCatalog) SetStatsStore(store StatsStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = store
}

// Connect opens and pings the database.
func (c *SQLCatalog) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s catalog: %w", c.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping %s catalog: %w", c.driver, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c.db = db
	c.connected = true
	return nil
}

// Close closes the connection.
func (c *SQLCatalog) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *SQLCatalog) conn() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil, fmt.Errorf("catalog %s: %w", c.name, ErrClosed)
	}
	return c.db, nil
}

func (c *SQLCatalog) ListTables(ctx context.Context) ([]string, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}

	var query string
	switch c.driver {
	case "mysql":
		query = "SHOW TABLES"
	case "postgres":
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`
	case "sqlite":
		query = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables failed: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(tables)
	return tables, nil
}

func (c *SQLCatalog) GetTable(ctx context.Context, table string) (*TableMeta, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}

	var columns []ColumnMeta
	switch c.driver {
	case "mysql":
		columns, err = c.describeMySQL(ctx, db, table)
	case "postgres":
		columns, err = c.describePostgres(ctx, db, table)
	case "sqlite":
		columns, err = c.describeSQLite(ctx, db, table)
	}
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, tableNotFound(table)
	}
	return &TableMeta{Name: table, Columns: columns}, nil
}

func (c *SQLCatalog) describeMySQL(ctx context.Context, db *sql.DB, table string) ([]ColumnMeta, error) {
	rows, err := db.QueryContext(ctx, "DESCRIBE "+c.quoteIdent(table))
	if err != nil {
		// MySQL reports a missing table as a query error.
		return nil, tableNotFound(table)
	}
	defer rows.Close()

	var columns []ColumnMeta
	for rows.Next() {
		var (
			name       string
			fieldType  string
			null       string
			key        string
			defaultVal sql.NullString
			extra      string
		)
		if err := rows.Scan(&name, &fieldType, &null, &key, &defaultVal, &extra); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnMeta{
			Name:     name,
			Type:     fieldType,
			Nullable: strings.EqualFold(null, "YES"),
		})
	}
	return columns, rows.Err()
}

func (c *SQLCatalog) describePostgres(ctx context.Context, db *sql.DB, table string) ([]ColumnMeta, error) {
	rows, err := db.QueryContext(ctx, `SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnMeta
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnMeta{
			Name:     name,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	return columns, rows.Err()
}

func (c *SQLCatalog) describeSQLite(ctx context.Context, db *sql.DB, table string) ([]ColumnMeta, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", c.quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnMeta
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnMeta{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
		})
	}
	return columns, rows.Err()
}

// GetTableStats returns previously analyzed (or stored) statistics;
// (nil, nil) when the table was never analyzed.
func (c *SQLCatalog) GetTableStats(ctx context.Context, table string) (*TableStats, error) {
	c.mu.RLock()
	stats, ok := c.stats[table]
	store := c.store
	c.mu.RUnlock()
	if ok {
		return stats, nil
	}

	if store != nil {
		stats, err := store.Get(ctx, c.name, table)
		if err != nil {
			return nil, err
		}
		if stats != nil {
			c.mu.Lock()
			c.stats[table] = stats
			c.mu.Unlock()
			return stats, nil
		}
	}
	return nil, nil
}

// AnalyzeTable collects row count and per-column statistics by querying
// the table, caches them, and persists them when a store is attached.
func (c *SQLCatalog) AnalyzeTable(ctx context.Context, table string) (*TableStats, error) {
	meta, err := c.GetTable(ctx, table)
	if err != nil {
		return nil, err
	}
	db, err := c.conn()
	if err != nil {
		return nil, err
	}

	qt := c.quoteIdent(table)

	var rowCount int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+qt).Scan(&rowCount); err != nil {
		return nil, fmt.Errorf("analyze %s failed: %w", table, err)
	}

	stats := &TableStats{
		RowCount: float64(rowCount),
		Columns:  make(map[string]*ColumnStats, len(meta.Columns)),
	}

	for _, col := range meta.Columns {
		qc := c.quoteIdent(col.Name)
		query := fmt.Sprintf(
			"SELECT COUNT(%s), COUNT(DISTINCT %s), MIN(%s), MAX(%s) FROM %s",
			qc, qc, qc, qc, qt)

		var (
			nonNull  int64
			distinct int64
			low, high interface{}
		)
		if err := db.QueryRowContext(ctx, query).Scan(&nonNull, &distinct, &low, &high); err != nil {
			return nil, fmt.Errorf("analyze %s.%s failed: %w", table, col.Name, err)
		}

		colStats := &ColumnStats{
			LowValue:      normalizeDBValue(low),
			HighValue:     normalizeDBValue(high),
			DistinctCount: float64(distinct),
			AvgSizeBytes:  c.averageSize(ctx, db, qt, qc, col.Type),
		}
		if rowCount > 0 {
			colStats.NullFraction = 1 - float64(nonNull)/float64(rowCount)
		}
		stats.Columns[col.Name] = colStats
	}

	c.mu.Lock()
	c.stats[table] = stats
	store := c.store
	c.mu.Unlock()

	if store != nil {
		if err := store.Put(ctx, c.name, table, stats); err != nil {
			return nil, fmt.Errorf("persist stats for %s failed: %w", table, err)
		}
	}
	return stats, nil
}

// averageSize estimates the per-value byte width of a column: a fixed
// width for numeric types, measured average length for textual ones.
func (c *SQLCatalog) averageSize(ctx context.Context, db *sql.DB, qt, qc, colType string) float64 {
	lower := strings.ToLower(colType)
	switch {
	case strings.Contains(lower, "bigint"):
		return 8
	case strings.Contains(lower, "int"):
		return 4
	case strings.Contains(lower, "float"), strings.Contains(lower, "double"),
		strings.Contains(lower, "real"), strings.Contains(lower, "decimal"),
		strings.Contains(lower, "numeric"):
		return 8
	case strings.Contains(lower, "bool"):
		return 1
	case strings.Contains(lower, "date"), strings.Contains(lower, "time"):
		return 8
	}

	query := fmt.Sprintf("SELECT AVG(LENGTH(%s)) FROM %s WHERE %s IS NOT NULL", qc, qt, qc)
	var avg sql.NullFloat64
	if err := db.QueryRowContext(ctx, query).Scan(&avg); err != nil || !avg.Valid {
		return 16
	}
	return avg.Float64
}

func (c *SQLCatalog) quoteIdent(name string) string {
	if c.driver == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, "") + `"`
}

// normalizeDBValue converts driver-specific scan results to plain values.
func normalizeDBValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
