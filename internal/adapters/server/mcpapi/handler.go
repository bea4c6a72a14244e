// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/beacon/internal/adapters/server/common"
	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the initiative tools.
func NewHandler(cfg Config, svc common.InitiativeService) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("initiative service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerQueryTools(mcpSrv, svc)
	registerMutationTools(mcpSrv, svc)

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
		cfg.ServerName = "beacon"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerQueryTools registers the read-only tools.
func registerQueryTools(srv *mcpserver.MCPServer, svc common.InitiativeService) {
	srv.AddTool(
		mcp.NewTool(
			"beacon.list_initiatives",
			mcp.WithDescription("List initiatives with optional view, filters, search and sort."),
			mcp.WithString("view", mcp.Description("Dashboard view"), mcp.Enum(string(app.ViewAll), string(app.ViewOnTrack), string(app.ViewInProgress))),
			mcp.WithString("department", mcp.Description("Exact department match")),
			mcp.WithString("status", mcp.Description("on-track|at-risk|delayed|completed|canceled")),
			mcp.WithString("priority", mcp.Description("low|medium|high")),
			mcp.WithString("query", mcp.Description("Case-insensitive search over title, department and owner")),
			mcp.WithString("sort", mcp.Description("title|progress|status|dueDate|department")),
			mcp.WithString("order", mcp.Description("asc or desc"), mcp.Enum("asc", "desc")),
			mcp.WithBoolean("include_archived", mcp.Description("Include archived initiatives")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			filter, err := common.ListRequest{
				View:            req.GetString("view", ""),
				Department:      req.GetString("department", ""),
				Status:          req.GetString("status", ""),
				Priority:        req.GetString("priority", ""),
				Query:           req.GetString("query", ""),
				Sort:            req.GetString("sort", ""),
				Order:           req.GetString("order", ""),
				IncludeArchived: req.GetBool("include_archived", false),
			}.Filter()
			if err != nil {
				return toolResultFromError(err), nil
			}
			rows, err := svc.ListInitiatives(ctx, filter)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_initiatives", map[string]any{"initiatives": rows, "count": len(rows)})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"beacon.get_initiative",
			mcp.WithDescription("Return one initiative by id."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Initiative id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := requireID(req)
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			initiative, err := svc.GetInitiative(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_initiative", initiative)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"beacon.list_updates",
			mcp.WithDescription("List activity feed entries newest first."),
			mcp.WithString("initiative", mcp.Description("Initiative title filter")),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows := svc.ListUpdates(ctx, app.UpdateFilter{
				Initiative: req.GetString("initiative", ""),
				Limit:      req.GetInt("limit", 25),
			})
			return jsonResult("list_updates", map[string]any{"updates": rows, "count": len(rows)})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"beacon.audit_log",
			mcp.WithDescription("Return the most recent audit entries in append order."),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows := svc.AuditLog(ctx, req.GetInt("limit", 50))
			return jsonResult("audit_log", map[string]any{"entries": rows, "count": len(rows)})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"beacon.dashboard",
			mcp.WithDescription("Return dashboard metrics, department overview and progress distribution."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return jsonResult("dashboard", common.BuildDashboard(ctx, svc))
		},
	)
}

// registerMutationTools registers tools that dispatch store actions.
func registerMutationTools(srv *mcpserver.MCPServer, svc common.InitiativeService) {
	srv.AddTool(
		mcp.NewTool(
			"beacon.create_initiative",
			mcp.WithDescription("Create one initiative with form defaults for omitted fields."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Initiative title")),
			mcp.WithString("owner", mcp.Description("Owner name")),
			mcp.WithString("department", mcp.Description("Department")),
			mcp.WithString("description", mcp.Description("Description")),
			mcp.WithString("category", mcp.Description("Category")),
			mcp.WithString("due_date", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("priority", mcp.Description("low|medium|high")),
			mcp.WithString("status", mcp.Description("Initial status")),
			mcp.WithNumber("progress", mcp.Description("Initial progress 0-100")),
			mcp.WithArray("objectives", mcp.Description("Objectives"), mcp.WithStringItems()),
			actorTypeArg(),
			actorNameArg(),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Title       string   `json:"title"`
				Owner       string   `json:"owner"`
				Department  string   `json:"department"`
				Description string   `json:"description"`
				Category    string   `json:"category"`
				DueDate     string   `json:"due_date"`
				Priority    string   `json:"priority"`
				Status      string   `json:"status"`
				Progress    int      `json:"progress"`
				Objectives  []string `json:"objectives"`
				ActorType   string   `json:"actor_type"`
				ActorName   string   `json:"actor_name"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Title) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "title" not found`), nil
			}
			created, err := svc.CreateInitiative(withActor(ctx, args.ActorName, args.ActorType), app.CreateInitiativeInput{
				Title:       args.Title,
				Owner:       args.Owner,
				Department:  args.Department,
				Description: args.Description,
				Category:    args.Category,
				DueDate:     args.DueDate,
				Priority:    domain.Priority(strings.ToLower(strings.TrimSpace(args.Priority))),
				Status:      domain.Status(strings.ToLower(strings.TrimSpace(args.Status))),
				Progress:    args.Progress,
				Objectives:  args.Objectives,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_initiative", created)
		},
	)

	for _, tool := range []struct {
		name string
		desc string
		fn   func(context.Context, int64) (domain.Initiative, error)
	}{
		{name: "archive_initiative", desc: "Archive one initiative so default views hide it.", fn: svc.ArchiveInitiative},
		{name: "restore_initiative", desc: "Restore one archived initiative.", fn: svc.RestoreInitiative},
	} {
		srv.AddTool(
			mcp.NewTool(
				"beacon."+tool.name,
				mcp.WithDescription(tool.desc),
				mcp.WithNumber("id", mcp.Required(), mcp.Description("Initiative id")),
				actorTypeArg(),
				actorNameArg(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req)
				if err != nil {
					return invalidRequestToolResult(err), nil
				}
				out, err := tool.fn(actorContext(ctx, req), id)
				if err != nil {
					return toolResultFromError(err), nil
				}
				return mutationResult(ctx, svc, tool.name, out)
			},
		)
	}

	srv.AddTool(
		mcp.NewTool(
			"beacon.update_progress",
			mcp.WithDescription("Set the progress of one initiative. Values outside 0-100 raise the store banner."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Initiative id")),
			mcp.WithNumber("progress", mcp.Required(), mcp.Description("Progress percentage")),
			actorTypeArg(),
			actorNameArg(),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := requireID(req)
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			progress, err := req.RequireInt("progress")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			out, err := svc.UpdateProgress(actorContext(ctx, req), id, progress)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return mutationResult(ctx, svc, "update_progress", out)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"beacon.add_update",
			mcp.WithDescription("Post one activity feed entry for an initiative."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Initiative id")),
			mcp.WithString("message", mcp.Required(), mcp.Description("Update text")),
			mcp.WithString("type", mcp.Description("Update type"), mcp.Enum(string(domain.UpdateStatus), string(domain.UpdateComment), string(domain.UpdateMilestone))),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := requireID(req)
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			message, err := req.RequireString("message")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			kind, err := domain.ParseUpdateType(req.GetString("type", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			up, err := svc.AddUpdate(ctx, id, message, kind)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("add_update", up)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"beacon.clear_error",
			mcp.WithDescription("Dismiss the store error banner."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if err := svc.ClearError(ctx); err != nil {
				return toolResultFromError(err), nil
			}
			return mcp.NewToolResultText("ok"), nil
		},
	)
}

// actorTypeArg declares the optional actor_type argument.
func actorTypeArg() mcp.ToolOption {
	return mcp.WithString("actor_type", mcp.Description("user|agent|system"), mcp.Enum("user", "agent", "system"))
}

// actorNameArg declares the optional actor_name argument.
func actorNameArg() mcp.ToolOption {
	return mcp.WithString("actor_name", mcp.Description("Name recorded on audit entries"))
}

// actorContext attaches the request actor arguments to ctx.
func actorContext(ctx context.Context, req mcp.CallToolRequest) context.Context {
	return withActor(ctx, req.GetString("actor_name", ""), req.GetString("actor_type", ""))
}

// withActor attaches an actor when a name is supplied. MCP callers default to agent.
func withActor(ctx context.Context, name, kind string) context.Context {
	name = strings.TrimSpace(name)
	if name == "" {
		return ctx
	}
	if strings.TrimSpace(kind) == "" {
		kind = string(app.ActorTypeAgent)
	}
	return app.WithActor(ctx, app.Actor{Name: name, Type: app.ActorType(kind)})
}

// requireID reads the positive numeric id argument.
func requireID(req mcp.CallToolRequest) (int64, error) {
	raw, err := req.RequireInt("id")
	if err != nil {
		return 0, err
	}
	if raw <= 0 {
		return 0, fmt.Errorf("id must be positive, got %d", raw)
	}
	return int64(raw), nil
}

// mutationResult encodes a mutated record together with the current store banner.
func mutationResult(ctx context.Context, svc common.InitiativeService, name string, initiative domain.Initiative) (*mcp.CallToolResult, error) {
	payload := map[string]any{"initiative": initiative}
	if banner := svc.State(ctx).Error; banner != "" {
		payload["store_error"] = banner
	}
	return jsonResult(name, payload)
}

// jsonResult encodes one structured tool result.
func jsonResult(name string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", name, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into coded tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("unknown error")
	}
	return mcp.NewToolResultError(common.ErrorCode(err) + ": " + err.Error())
}

// invalidRequestToolResult reports malformed tool arguments.
func invalidRequestToolResult(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("invalid_request: malformed arguments")
	}
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}
