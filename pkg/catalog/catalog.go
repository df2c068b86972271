package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrTableNotFound is wrapped by every catalog when a lookup names a
// table it does not hold. Match with errors.Is.
var ErrTableNotFound = errors.New("table not found")

// ErrClosed is wrapped when a catalog is used after Close.
var ErrClosed = errors.New("catalog is closed")

func tableNotFound(table string) error {
	return fmt.Errorf("%w: %s", ErrTableNotFound, table)
}

// ColumnMeta describes one table column.
type ColumnMeta struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableMeta describes one table.
type TableMeta struct {
	Name    string       `json:"name"`
	Columns []ColumnMeta `json:"columns"`
}

// ColumnNames returns the column names in declaration order.
func (t *TableMeta) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Column returns the named column, or nil.
func (t *TableMeta) Column(name string) *ColumnMeta {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnStats holds the collected statistics of one column.
type ColumnStats struct {
	LowValue      interface{} `json:"low_value,omitempty"`
	HighValue     interface{} `json:"high_value,omitempty"`
	DistinctCount float64     `json:"distinct_count"`
	NullFraction  float64     `json:"null_fraction"`
	AvgSizeBytes  float64     `json:"avg_size_bytes"`
}

// TableStats holds the collected statistics of one table. A nil *TableStats
// anywhere in the API means statistics are unknown.
type TableStats struct {
	RowCount float64                 `json:"row_count"`
	Columns  map[string]*ColumnStats `json:"columns"`
}

// Column returns the stats of one column, or nil when uncollected.
func (t *TableStats) Column(name string) *ColumnStats {
	if t == nil {
		return nil
	}
	return t.Columns[name]
}

// Catalog supplies table metadata and statistics to the planner.
type Catalog interface {
	// Name is the catalog name queries refer to.
	Name() string
	// ListTables returns all table names, sorted.
	ListTables(ctx context.Context) ([]string, error)
	// GetTable returns a table's metadata; ErrTableNotFound when absent.
	GetTable(ctx context.Context, table string) (*TableMeta, error)
	// GetTableStats returns a table's statistics; (nil, nil) when the
	// table exists but has no collected statistics.
	GetTableStats(ctx context.Context, table string) (*TableStats, error)
}
