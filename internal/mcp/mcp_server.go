// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the ratingfit MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Ratingfit Ensemble Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: run_ensemble ---
	s.AddTool(mcp.NewTool("run_ensemble",
		mcp.WithDescription("Join player stats with game ratings, fit one model per group and return out-of-group approximate ratings."),
		mcp.WithString("stats_csv", mcp.Description("Path to the season stats CSV. Uses the source store when omitted.")),
		mcp.WithString("ratings_csv", mcp.Description("Path to the game ratings CSV. Required together with stats_csv.")),
		mcp.WithNumber("groups", mcp.Description("Number of groups (at least 2).")),
		mcp.WithString("seed", mcp.Description("Shuffle seed as a decimal string; 0 draws a fresh one. Numbers up to 2^53 are also accepted.")),
		mcp.WithNumber("season", mcp.Description("Season year to keep; 0 keeps every season.")),
		mcp.WithString("model", mcp.Description("Estimator fitted per group. Defaults to 'logistic'."), mcp.Enum("logistic", "linear")),
		mcp.WithBoolean("include_rows", mcp.Description("Include the final table rows in the response.")),
	), h.handleRunEnsemble)

	// --- 2. Tool: get_analysis_status ---
	s.AddTool(mcp.NewTool("get_analysis_status",
		mcp.WithDescription("Summarize the recorded ensemble runs of the analysis store."),
	), h.handleGetAnalysisStatus)

	// --- 3. Tool: check_sources ---
	s.AddTool(mcp.NewTool("check_sources",
		mcp.WithDescription("Verify that the stats and ratings tables of the source store exist and hold rows."),
	), h.handleCheckSources)

	return s
}

// StartMCPServer starts the ratingfit MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
