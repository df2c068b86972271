package api

// ResultSet holds the rows of a diagnostic statement.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	return len(r.Rows)
}

// Result reports the outcome of a statement that returns no rows.
type Result struct {
	RowsAffected int64
}
