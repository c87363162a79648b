package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/ratingfit/core"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// runConfig applies the tool arguments of run_ensemble on a copy of the base config.
func (h *toolHandler) runConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()

	cfg.StatsCSV = request.GetString("stats_csv", cfg.StatsCSV)
	cfg.RatingsCSV = request.GetString("ratings_csv", cfg.RatingsCSV)
	if (cfg.StatsCSV == "") != (cfg.RatingsCSV == "") {
		return nil, fmt.Errorf("stats_csv and ratings_csv must be provided together")
	}

	cfg.Groups = request.GetInt("groups", cfg.Groups)
	if cfg.Groups < 2 {
		return nil, fmt.Errorf("groups must be at least 2 (received %d)", cfg.Groups)
	}

	seed, err := seedArgument(request, cfg.Seed)
	if err != nil {
		return nil, err
	}
	cfg.Seed = seed

	cfg.Season = request.GetInt("season", cfg.Season)
	if cfg.Season < 0 {
		return nil, fmt.Errorf("season must be 0 (all seasons) or a year (received %d)", cfg.Season)
	}

	if m := request.GetString("model", ""); m != "" {
		cfg.Model = schema.ModelKind(m)
	}
	if _, ok := schema.ValidModelKinds[cfg.Model]; !ok {
		return nil, fmt.Errorf("invalid model '%s'. must be logistic, linear", cfg.Model)
	}
	return cfg, nil
}

// maxExactSeed is the largest integer a JSON number carries without rounding.
const maxExactSeed = 1 << 53

// seedArgument reads the seed as a decimal string or as an integral JSON number.
// Seeds above 2^53 only survive as strings.
func seedArgument(request mcp.CallToolRequest, fallback uint64) (uint64, error) {
	raw, ok := request.GetArguments()["seed"]
	if !ok || raw == nil {
		return fallback, nil
	}

	switch v := raw.(type) {
	case string:
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("seed must be an integer between 0 and %d (received %q)", int64(math.MaxInt64), v)
		}
		if seed < 0 {
			return 0, fmt.Errorf("seed must not be negative (received %d)", seed)
		}
		return uint64(seed), nil
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("seed must not be negative (received %v)", v)
		}
		if v != math.Trunc(v) || v > maxExactSeed {
			return 0, fmt.Errorf("seed %v is not an exact integer. Pass seeds above 2^53 as a string", v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("seed must be a string or a number (received %T)", raw)
	}
}

func (h *toolHandler) handleRunEnsemble(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.runConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run parameters: %v", err)), nil
	}

	report, err := core.RunPipeline(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	if !request.GetBool("include_rows", false) {
		report.Table.Rows = nil
	}

	jsonData, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetAnalysisStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := h.mgr.GetAnalysisStore()
	if store == nil {
		return mcp.NewToolResultError("analysis tracking is not enabled. Set --analysis-backend"), nil
	}

	status, err := store.GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read analysis status: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleCheckSources(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := core.ExecuteCheck(ctx, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source check failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
