package catalog

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// LoadExcel reads a workbook into a MemoryCatalog: each sheet becomes a
// table, the first row supplies column names, the remaining rows are
// scanned once to infer column types and collect statistics.
func LoadExcel(name, path string) (*MemoryCatalog, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel file failed: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in %s", path)
	}

	c := NewMemoryCatalog(name)
	for _, sheet := range sheets {
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s failed: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		headers := rows[0]
		dataRows := rows[1:]
		if len(headers) == 0 {
			continue
		}

		types := inferColumnTypes(headers, dataRows)
		columns := make([]ColumnMeta, len(headers))
		for i, header := range headers {
			columns[i] = ColumnMeta{Name: header, Type: types[i], Nullable: true}
		}

		meta := &TableMeta{Name: sheet, Columns: columns}
		c.AddTable(meta, collectSheetStats(columns, dataRows))
	}
	return c, nil
}

// inferColumnTypes samples up to 100 rows and picks the most common
// detected type per column.
func inferColumnTypes(headers []string, rows [][]string) []string {
	types := make([]string, len(headers))
	for i := range types {
		types[i] = "string"
	}
	if len(rows) == 0 {
		return types
	}

	sampleSize := 100
	if len(rows) < sampleSize {
		sampleSize = len(rows)
	}

	typeCounts := make([]map[string]int, len(headers))
	for i := range typeCounts {
		typeCounts[i] = make(map[string]int)
	}
	for i := 0; i < sampleSize; i++ {
		for j, value := range rows[i] {
			if j >= len(headers) || value == "" {
				continue
			}
			typeCounts[j][detectCellType(value)]++
		}
	}

	for j := range headers {
		maxCount := 0
		for t, count := range typeCounts[j] {
			if count > maxCount {
				maxCount = count
				types[j] = t
			}
		}
	}
	return types
}

func detectCellType(value string) string {
	if value == "true" || value == "false" {
		return "bool"
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return "bigint"
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return "double"
	}
	return "string"
}

// collectSheetStats computes table statistics in one pass over the rows:
// row count, per-column null fraction, distinct count, numeric range and
// average value width.
func collectSheetStats(columns []ColumnMeta, rows [][]string) *TableStats {
	stats := &TableStats{
		RowCount: float64(len(rows)),
		Columns:  make(map[string]*ColumnStats, len(columns)),
	}

	for j, col := range columns {
		var (
			nulls     int
			distinct  = make(map[string]bool)
			sizeSum   float64
			haveRange bool
			low, high float64
		)

		for _, row := range rows {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			if value == "" {
				nulls++
				continue
			}
			distinct[value] = true
			sizeSum += cellSize(col.Type, value)

			if col.Type == "bigint" || col.Type == "double" {
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					if !haveRange || f < low {
						low = f
					}
					if !haveRange || f > high {
						high = f
					}
					haveRange = true
				}
			}
		}

		colStats := &ColumnStats{DistinctCount: float64(len(distinct))}
		nonNull := len(rows) - nulls
		if len(rows) > 0 {
			colStats.NullFraction = float64(nulls) / float64(len(rows))
		}
		if nonNull > 0 {
			colStats.AvgSizeBytes = sizeSum / float64(nonNull)
		}
		if haveRange {
			colStats.LowValue = low
			colStats.HighValue = high
		}
		stats.Columns[col.Name] = colStats
	}
	return stats
}

func cellSize(colType, value string) float64 {
	switch colType {
	case "bigint", "double":
		return 8
	case "bool":
		return 1
	default:
		return float64(len(value))
	}
}
