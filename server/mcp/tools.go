package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tesseradb/tessera/pkg/api"
	"github.com/tesseradb/tessera/pkg/session"
)

// toolDeps holds the shared dependencies of the tool handlers. Calls
// without a session_id share one session; calls with one get a
// registry-backed session whose properties persist across calls.
type toolDeps struct {
	db       *api.DB
	registry *session.Registry

	mu     sync.Mutex
	shared *api.Session
}

func newToolDeps(db *api.DB, registry *session.Registry) *toolDeps {
	return &toolDeps{db: db, registry: registry}
}

// HandleExplainQuery plans a SELECT and returns the rendered plan.
func (d *toolDeps) HandleExplainQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql := request.GetString("sql", "")
	if sql == "" {
		return mcp.NewToolResultError("sql parameter is required"), nil
	}

	sess, err := d.session(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := sess.Explain(ctx, sql)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("explain failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleListTables lists the tables of the selected catalog.
func (d *toolDeps) HandleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := d.session(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cat, err := sess.Catalog()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
	}
	rs, err := sess.Query(ctx, "SHOW TABLES")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tables in %s:\n", cat.Name()))
	for _, row := range rs.Rows {
		sb.WriteString(fmt.Sprintf("- %v\n", row[0]))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleShowStats reports table statistics.
func (d *toolDeps) HandleShowStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := d.session(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sql := "SHOW TABLE STATUS"
	if table := request.GetString("table", ""); table != "" {
		sql += fmt.Sprintf(" LIKE '%s'", table)
	}
	rs, err := sess.Query(ctx, sql)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to show stats: %v", err)), nil
	}
	return mcp.NewToolResultText(renderResultSet(rs)), nil
}

// HandleSetSession sets one session property and echoes the normalized
// value back.
func (d *toolDeps) HandleSetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	value := request.GetString("value", "")
	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	if value == "" {
		return mcp.NewToolResultError("value parameter is required"), nil
	}

	sess, err := d.session(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sess.Set(name, value); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("set failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s = %s", name, sess.Properties()[name])), nil
}

// session resolves the request's session and applies an optional catalog
// switch. The catalog choice is sticky, like USE.
func (d *toolDeps) session(ctx context.Context, request mcp.CallToolRequest) (*api.Session, error) {
	var sess *api.Session
	if id := request.GetString("session_id", ""); id != "" {
		sess = d.db.SessionFor(d.registry.GetOrCreate(id))
	} else {
		sess = d.sharedSession()
	}
	if cat := request.GetString("catalog", ""); cat != "" {
		if _, err := sess.Execute(ctx, fmt.Sprintf("USE `%s`", cat)); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (d *toolDeps) sharedSession() *api.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shared == nil {
		d.shared = d.db.Session()
	}
	return d.shared
}

// renderResultSet formats rows as a tab-separated text block.
func renderResultSet(rs *api.ResultSet) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(rs.Columns, "\t"))
	sb.WriteString("\n")
	for _, row := range rs.Rows {
		vals := make([]string, len(row))
		for i, v := range row {
			vals[i] = formatValue(v)
		}
		sb.WriteString(strings.Join(vals, "\t"))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n(%d rows)", rs.Len()))
	return sb.String()
}

func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
