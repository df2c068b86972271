package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// jsonCatalogFile is the on-disk layout of a JSON catalog: table metadata
// with optional inline statistics.
type jsonCatalogFile struct {
	Name   string      `json:"name"`
	Tables []jsonTable `json:"tables"`
}

type jsonTable struct {
	Name    string       `json:"name"`
	Columns []ColumnMeta `json:"columns"`
	Stats   *TableStats  `json:"stats,omitempty"`
}

// LoadJSON reads a JSON catalog file into a MemoryCatalog.
func LoadJSON(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file failed: %w", err)
	}
	return LoadJSONBytes(data)
}

// LoadJSONBytes parses a JSON catalog document.
func LoadJSONBytes(data []byte) (*MemoryCatalog, error) {
	var file jsonCatalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file failed: %w", err)
	}
	if file.Name == "" {
		file.Name = "default"
	}

	c := NewMemoryCatalog(file.Name)
	for _, table := range file.Tables {
		if table.Name == "" {
			return nil, fmt.Errorf("catalog file contains a table without a name")
		}
		if len(table.Columns) == 0 {
			return nil, fmt.Errorf("table %s has no columns", table.Name)
		}
		meta := &TableMeta{Name: table.Name, Columns: table.Columns}
		c.AddTable(meta, table.Stats)
	}
	return c, nil
}
