// Package mcp exposes the planner over the Model Context Protocol:
// explain_query, list_tables, show_stats and set_session tools served
// over streamable HTTP.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tesseradb/tessera/pkg/api"
	"github.com/tesseradb/tessera/pkg/config"
	"github.com/tesseradb/tessera/pkg/session"
)

const serverVersion = "1.0.0"

// Server serves planner diagnostics over MCP.
type Server struct {
	db  *api.DB
	cfg config.ServerConfig
}

// NewServer creates an MCP server over the given DB.
func NewServer(db *api.DB, cfg config.ServerConfig) *Server {
	return &Server{db: db, cfg: cfg}
}

// Start serves MCP over streamable HTTP at cfg.Host:cfg.Port (blocking).
// Client sessions expire through the registry when idle; the registry
// stops when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	registry := session.NewRegistry(ctx)
	defer registry.Close()

	deps := newToolDeps(s.db, registry)
	httpServer := mcpserver.NewStreamableHTTPServer(
		buildMCPServer(deps),
		mcpserver.WithEndpointPath("/mcp"),
	)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return httpServer.Start(addr)
}

// buildMCPServer registers the tool surface.
func buildMCPServer(deps *toolDeps) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		"tessera",
		serverVersion,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	explainTool := mcp.NewTool("explain_query",
		mcp.WithDescription("Plan a SELECT statement and return the optimized plan as an indented tree with estimated rows, bytes and join distribution."),
		mcp.WithString("sql", mcp.Description("The SELECT statement to plan"), mcp.Required()),
		mcp.WithString("catalog", mcp.Description("The catalog to plan against (optional, uses the session default)")),
		mcp.WithString("session_id", mcp.Description("Optional client session ID; calls with the same ID share session properties")),
	)

	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List the tables of a catalog."),
		mcp.WithString("catalog", mcp.Description("The catalog name (optional, uses the session default)")),
		mcp.WithString("session_id", mcp.Description("Optional client session ID")),
	)

	showStatsTool := mcp.NewTool("show_stats",
		mcp.WithDescription("Show collected table statistics: row counts and whether a table has been analyzed."),
		mcp.WithString("table", mcp.Description("Restrict to one table (optional, supports SQL LIKE patterns)")),
		mcp.WithString("session_id", mcp.Description("Optional client session ID")),
	)

	setSessionTool := mcp.NewTool("set_session",
		mcp.WithDescription("Set a session property, e.g. join_distribution_type or join_max_broadcast_table_size. Affects later explain_query calls with the same session_id."),
		mcp.WithString("name", mcp.Description("The property name"), mcp.Required()),
		mcp.WithString("value", mcp.Description("The property value"), mcp.Required()),
		mcp.WithString("session_id", mcp.Description("Optional client session ID")),
	)

	mcpSrv.AddTool(explainTool, deps.HandleExplainQuery)
	mcpSrv.AddTool(listTablesTool, deps.HandleListTables)
	mcpSrv.AddTool(showStatsTool, deps.HandleShowStats)
	mcpSrv.AddTool(setSessionTool, deps.HandleSetSession)
	return mcpSrv
}
