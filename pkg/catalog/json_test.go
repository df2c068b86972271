package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalogJSON = `{
  "name": "sales",
  "tables": [
    {
      "name": "orders",
      "columns": [
        {"name": "id", "type": "bigint"},
        {"name": "cust_id", "type": "bigint"}
      ],
      "stats": {
        "row_count": 5000,
        "columns": {
          "id": {"distinct_count": 5000, "avg_size_bytes": 8},
          "cust_id": {"distinct_count": 200, "avg_size_bytes": 8, "null_fraction": 0.1}
        }
      }
    },
    {
      "name": "customers",
      "columns": [
        {"name": "id", "type": "bigint"},
        {"name": "name", "type": "varchar"}
      ]
    }
  ]
}`

func TestLoadJSONBytes(t *testing.T) {
	ctx := context.Background()
	c, err := LoadJSONBytes([]byte(sampleCatalogJSON))
	require.NoError(t, err)
	assert.Equal(t, "sales", c.Name())

	tables, err := c.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)

	meta, err := c.GetTable(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "cust_id"}, meta.ColumnNames())

	stats, err := c.GetTableStats(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, float64(5000), stats.RowCount)
	assert.Equal(t, 0.1, stats.Column("cust_id").NullFraction)

	// customers carries no stats block, so stats stay unknown.
	stats, err = c.GetTableStats(ctx, "customers")
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestLoadJSON_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalogJSON), 0644))

	c, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "sales", c.Name())
}

func TestLoadJSON_MissingFile(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadJSONBytes_Invalid(t *testing.T) {
	_, err := LoadJSONBytes([]byte("{not json"))
	assert.Error(t, err)

	_, err = LoadJSONBytes([]byte(`{"tables": [{"name": "", "columns": [{"name": "id", "type": "bigint"}]}]}`))
	assert.Error(t, err)

	_, err = LoadJSONBytes([]byte(`{"tables": [{"name": "t", "columns": []}]}`))
	assert.Error(t, err)
}

func TestLoadJSONBytes_DefaultName(t *testing.T) {
	c, err := LoadJSONBytes([]byte(`{"tables": [{"name": "t", "columns": [{"name": "id", "type": "bigint"}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "default", c.Name())
}
