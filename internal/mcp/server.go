package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("NextRep", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("NextRep workout tracker. Read training plans, today's workout, the workout streak, progress comparisons against a week and a month ago, and the weekly volume chart."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListPlans, Handler: h.listPlans},
		server.ServerTool{Tool: toolGetStreak, Handler: h.getStreak},
		server.ServerTool{Tool: toolGetProgressCards, Handler: h.getProgressCards},
		server.ServerTool{Tool: toolGetWeeklyChart, Handler: h.getWeeklyChart},
		server.ServerTool{Tool: toolGetPlanForToday, Handler: h.getPlanForToday},
		server.ServerTool{Tool: toolGetSessionSummary, Handler: h.getSessionSummary},
		server.ServerTool{Tool: toolGetBestVolume, Handler: h.getBestVolume},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resProgress, Handler: h.progress},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resProgress = mcp.NewResource(
	"nextrep://progress",
	"Progress",
	mcp.WithResourceDescription("Current workout streak, per-plan progress cards and the weekly volume chart"),
	mcp.WithMIMEType("application/json"),
)
