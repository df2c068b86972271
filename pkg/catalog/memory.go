package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryCatalog keeps metadata and statistics in maps. It backs tests and
// embedding users, and is the load target for the file-based catalogs.
type MemoryCatalog struct {
	name string

	mu     sync.RWMutex
	tables map[string]*TableMeta
	stats  map[string]*TableStats
}

func NewMemoryCatalog(name string) *MemoryCatalog {
	return &MemoryCatalog{
		name:   name,
		tables: make(map[string]*TableMeta),
		stats:  make(map[string]*TableStats),
	}
}

func (c *MemoryCatalog) Name() string {
	return c.name
}

// AddTable registers a table, replacing any previous definition. A nil
// stats argument registers the table without statistics.
func (c *MemoryCatalog) AddTable(meta *TableMeta, stats *TableStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[meta.Name] = meta
	if stats != nil {
		c.stats[meta.Name] = stats
	} else {
		delete(c.stats, meta.Name)
	}
}

// SetTableStats attaches statistics to an existing table.
func (c *MemoryCatalog) SetTableStats(table string, stats *TableStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[table]; !ok {
		return tableNotFound(table)
	}
	c.stats[table] = stats
	return nil
}

// DropTable removes a table and its statistics.
func (c *MemoryCatalog) DropTable(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, table)
	delete(c.stats, table)
}

func (c *MemoryCatalog) ListTables(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *MemoryCatalog) GetTable(ctx context.Context, table string) (*TableMeta, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.tables[table]
	if !ok {
		return nil, tableNotFound(table)
	}
	return meta, nil
}

func (c *MemoryCatalog) GetTableStats(ctx context.Context, table string) (*TableStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.tables[table]; !ok {
		return nil, tableNotFound(table)
	}
	return c.stats[table], nil
}
