// Package mcpapi exposes the board over a stateless MCP streamable-HTTP
// transport so agents can read pipelines and move opportunities.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nexocrm/funil/internal/app"
	"github.com/nexocrm/funil/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// BoardService names the application operations the MCP tools call into.
type BoardService interface {
	ListPipelines(ctx context.Context) ([]domain.Pipeline, error)
	LoadBoard(ctx context.Context, pipelineID, search string) (*app.Board, error)
	QuickMove(ctx context.Context, pipelineID, oppID, stageID string) (domain.Opportunity, error)
	LoadDiscardReasons(ctx context.Context) ([]domain.DiscardReason, error)
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds the MCP adapter backed by one board service.
func NewHandler(cfg Config, svc BoardService) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerPipelineTools(mcpSrv, svc)
	registerBoardTools(mcpSrv, svc)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "funil"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerPipelineTools registers the `funil.list_pipelines` tool.
func registerPipelineTools(srv *mcpserver.MCPServer, svc BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"funil.list_pipelines",
			mcp.WithDescription("List every sales pipeline with its stages."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			pipelines, err := svc.ListPipelines(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			rows := make([]map[string]any, 0, len(pipelines))
			for _, p := range pipelines {
				stages := make([]map[string]any, 0, len(p.Stages))
				for _, s := range p.Stages {
					stages = append(stages, map[string]any{
						"id":            s.ID,
						"name":          s.Name,
						"position":      s.Position,
						"is_win_stage":  s.IsWinStage,
						"is_loss_stage": s.IsLossStage,
					})
				}
				rows = append(rows, map[string]any{
					"id":     p.ID,
					"name":   p.Name,
					"stages": stages,
				})
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"pipelines": rows})
			if err != nil {
				return nil, fmt.Errorf("encode list_pipelines result: %w", err)
			}
			return result, nil
		},
	)
}

// registerBoardTools registers board snapshot, move, and loss-reason tools.
func registerBoardTools(srv *mcpserver.MCPServer, svc BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"funil.board_snapshot",
			mcp.WithDescription("Load one pipeline board and return its versioned snapshot."),
			mcp.WithString("pipeline_id", mcp.Required(), mcp.Description("Pipeline identifier")),
			mcp.WithString("search", mcp.Description("Optional contact/title search filter")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			pipelineID, err := req.RequireString("pipeline_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			board, err := svc.LoadBoard(ctx, pipelineID, req.GetString("search", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			snap := app.BuildSnapshot(board, time.Now())
			result, err := mcp.NewToolResultJSON(snap)
			if err != nil {
				return nil, fmt.Errorf("encode board_snapshot result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"funil.move_opportunity",
			mcp.WithDescription("Move one opportunity to a non-terminal stage. Win and loss stages need the interactive confirmation flow and are refused here."),
			mcp.WithString("pipeline_id", mcp.Required(), mcp.Description("Pipeline identifier")),
			mcp.WithString("opportunity_id", mcp.Required(), mcp.Description("Opportunity identifier")),
			mcp.WithString("stage_id", mcp.Required(), mcp.Description("Target stage identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			pipelineID, err := req.RequireString("pipeline_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			oppID, err := req.RequireString("opportunity_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			stageID, err := req.RequireString("stage_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opp, err := svc.QuickMove(ctx, pipelineID, oppID, stageID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"id":       opp.ID,
				"stage_id": opp.StageID,
				"title":    opp.Title,
				"value":    opp.Value,
			})
			if err != nil {
				return nil, fmt.Errorf("encode move_opportunity result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"funil.list_discard_reasons",
			mcp.WithDescription("List the configured loss reasons, seeding defaults when the server has none."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			reasons, err := svc.LoadDiscardReasons(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			rows := make([]map[string]any, 0, len(reasons))
			for _, reason := range reasons {
				rows = append(rows, map[string]any{
					"id":   reason.ID,
					"name": reason.Name,
				})
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"reasons": rows})
			if err != nil {
				return nil, fmt.Errorf("encode list_discard_reasons result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrConfirmationRequired):
		return mcp.NewToolResultError("confirmation_required: " + err.Error())
	case errors.Is(err, app.ErrUnknownStage):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, app.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
