package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/beacon/internal/adapters/server"
	servercommon "github.com/evanschultz/beacon/internal/adapters/server/common"
	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/seed"
	"github.com/evanschultz/beacon/internal/tui"
)

// errCatalogSeeded reports a seed run against a catalog that already holds data.
var errCatalogSeeded = errors.New("sqlite catalog already seeded")

func newTUICommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the initiative dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.runTUI(cmd.Context())
		},
	}
}

// runTUI runs the dashboard. A dataset load failure still opens it with the error banner.
func (e *cliEnv) runTUI(ctx context.Context) error {
	return e.commandFlow("tui", func() error {
		svc, err := e.openService(ctx)
		if err != nil {
			e.logger.Warn("opening dashboard without dataset", "err", err)
		}
		dash := e.cfg.Dashboard
		m := tui.NewModel(svc,
			tui.WithDashboardConfig(tui.DashboardConfig{
				DefaultView:   app.View(dash.DefaultView),
				DefaultSort:   app.SortField(dash.DefaultSort),
				Descending:    dash.Descending,
				ShowArchived:  dash.ShowArchived,
				ProgressStep:  dash.ProgressStep,
				RecentUpdates: dash.RecentUpdates,
				MarkdownWrap:  dash.MarkdownWrapCol,
			}),
			tui.WithActor(e.actor()),
		)
		e.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			e.logger.Error("tui program terminated with error", "err", err)
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

func newServeCommand(env *cliEnv) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint, metricsEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, MCP tools and Prometheus metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.commandFlow("serve", func() error {
				svc, err := env.openService(cmd.Context())
				if err != nil {
					return err
				}
				ctx := env.sessionContext(cmd.Context())
				server := env.cfg.Server
				cfg := serveradapter.Config{
					HTTPBind:        firstNonEmpty(httpBind, server.Bind),
					APIEndpoint:     firstNonEmpty(apiEndpoint, server.APIEndpoint),
					MCPEndpoint:     firstNonEmpty(mcpEndpoint, server.MCPEndpoint),
					MetricsEndpoint: firstNonEmpty(metricsEndpoint, server.MetricsEndpoint),
					ServerName:      env.flags.appName,
					ServerVersion:   version,
				}
				env.logger.Info("serving", "bind", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint, "metrics", cfg.MetricsEndpoint)
				return serveCommandRunner(ctx, cfg, serveradapter.Dependencies{
					Service: svc,
					Metrics: env.recorder.Registry(),
					Ready:   storeReady(ctx),
				})
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&httpBind, "http", "", "HTTP listen address (default server.bind)")
	flags.StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path (default server.api_endpoint)")
	flags.StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP path (default server.mcp_endpoint)")
	flags.StringVar(&metricsEndpoint, "metrics-endpoint", "", "Prometheus metrics path (default server.metrics_endpoint)")
	return cmd
}

func newListCommand(env *cliEnv) *cobra.Command {
	var (
		req    servercommon.ListRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List initiatives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.commandFlow("list", func() error {
				ctx := cmd.Context()
				filter, err := req.Filter()
				if err != nil {
					return err
				}
				svc, err := env.openService(ctx)
				if err != nil {
					return err
				}
				items, err := svc.ListInitiatives(ctx, filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(env.stdout, items)
				}
				_, err = fmt.Fprintln(env.stdout, initiativeTable(items))
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.View, "view", "", "all | on-track | in-progress")
	flags.StringVar(&req.Department, "dept", "", "department name")
	flags.StringVar(&req.Status, "status", "", "on-track | at-risk | delayed | completed | canceled")
	flags.StringVar(&req.Priority, "priority", "", "low | medium | high")
	flags.StringVar(&req.Query, "query", "", "case-insensitive text search")
	flags.StringVar(&req.Sort, "sort", "", "title | progress | status | dueDate | department")
	flags.StringVar(&req.Order, "order", "", "asc | desc")
	flags.BoolVar(&req.IncludeArchived, "archived", false, "include archived initiatives")
	flags.BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newShowCommand(env *cliEnv) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one initiative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.commandFlow("show", func() error {
				ctx := cmd.Context()
				id, err := servercommon.ParseID(args[0])
				if err != nil {
					return err
				}
				svc, err := env.openService(ctx)
				if err != nil {
					return err
				}
				initiative, err := svc.GetInitiative(ctx, id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(env.stdout, initiative)
				}
				updates := svc.ListUpdates(ctx, app.UpdateFilter{Initiative: initiative.Title, Limit: env.cfg.Dashboard.RecentUpdates})
				_, err = fmt.Fprintln(env.stdout, initiativeSummary(initiative, updates))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// newArchiveCommand builds archive, or restore when archive is false.
func newArchiveCommand(env *cliEnv, archive bool) *cobra.Command {
	use, short, verb := "restore", "Restore an archived initiative", "restored"
	if archive {
		use, short, verb = "archive", "Archive an initiative", "archived"
	}
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.commandFlow(use, func() error {
				id, err := servercommon.ParseID(args[0])
				if err != nil {
					return err
				}
				return env.mutate(cmd.Context(), func(ctx context.Context, svc *app.Service) (domain.Initiative, error) {
					if archive {
						return svc.ArchiveInitiative(ctx, id)
					}
					return svc.RestoreInitiative(ctx, id)
				}, verb)
			})
		},
	}
	addSnapshotOutFlag(cmd, env)
	return cmd
}

func newProgressCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress <id> <percent>",
		Short: "Set initiative progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.commandFlow("progress", func() error {
				id, err := servercommon.ParseID(args[0])
				if err != nil {
					return err
				}
				progress, err := strconv.Atoi(strings.TrimSpace(args[1]))
				if err != nil {
					return fmt.Errorf("progress %q: %w", args[1], servercommon.ErrInvalidRequest)
				}
				return env.mutate(cmd.Context(), func(ctx context.Context, svc *app.Service) (domain.Initiative, error) {
					return svc.UpdateProgress(ctx, id, progress)
				}, "updated")
			})
		},
	}
	addSnapshotOutFlag(cmd, env)
	return cmd
}

func addSnapshotOutFlag(cmd *cobra.Command, env *cliEnv) {
	cmd.Flags().StringVar(&env.snapshotOut, "snapshot-out", "", "write the resulting snapshot, audit log included, to this JSON file")
}

// mutate runs fn as the configured actor and reports the result. Changes last for this
// invocation only; --snapshot-out captures them.
func (e *cliEnv) mutate(ctx context.Context, fn func(context.Context, *app.Service) (domain.Initiative, error), verb string) error {
	svc, err := e.openService(ctx)
	if err != nil {
		return err
	}
	initiative, err := fn(e.actionContext(ctx), svc)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "%s %d (%s) progress=%d%% archived=%t\n", verb, initiative.ID, initiative.ProjectID, initiative.Progress, initiative.Archived)
	if warning := e.storeWarning(ctx); warning != "" {
		e.logger.Warn("store reported error", "error", warning)
		_, _ = fmt.Fprintf(e.stderr, "warning: %s\n", warning)
	}
	if strings.TrimSpace(e.snapshotOut) == "" {
		return nil
	}
	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	return writeSnapshot(e.snapshotOut, snap)
}

func newAuditCommand(env *cliEnv) *cobra.Command {
	var (
		limit        int
		snapshotPath string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the audit log of this session or of an exported snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.commandFlow("audit", func() error {
				var entries []domain.AuditEntry
				if strings.TrimSpace(snapshotPath) != "" {
					snap, err := readSnapshot(snapshotPath)
					if err != nil {
						return err
					}
					entries = snap.AuditLog
					if limit > 0 && len(entries) > limit {
						entries = entries[len(entries)-limit:]
					}
				} else {
					svc, err := env.openService(cmd.Context())
					if err != nil {
						return err
					}
					entries = svc.AuditLog(cmd.Context(), limit)
				}
				if asJSON {
					return writeJSON(env.stdout, entries)
				}
				_, err := fmt.Fprintln(env.stdout, auditTable(entries))
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&limit, "limit", 0, "show only the most recent n entries")
	flags.StringVar(&snapshotPath, "snapshot", "", "read entries from an exported JSON snapshot")
	flags.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newExportCommand(env *cliEnv) *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a JSON snapshot or a YAML/JSON seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.commandFlow("export", func() error {
				ctx := cmd.Context()
				svc, err := env.openService(ctx)
				if err != nil {
					return err
				}
				var encoded []byte
				switch strings.ToLower(strings.TrimSpace(format)) {
				case "", "snapshot":
					snap, err := svc.ExportSnapshot(ctx)
					if err != nil {
						return fmt.Errorf("export snapshot: %w", err)
					}
					if encoded, err = json.MarshalIndent(snap, "", "  "); err != nil {
						return fmt.Errorf("encode snapshot: %w", err)
					}
					encoded = append(encoded, '\n')
				case "yaml", "json":
					data := app.Seed{
						Initiatives: svc.State(ctx).Initiatives,
						Updates:     svc.ListUpdates(ctx, app.UpdateFilter{}),
					}
					if encoded, err = seed.Encode(data, strings.ToLower(format)); err != nil {
						return fmt.Errorf("encode seed: %w", err)
					}
				default:
					return fmt.Errorf("format %q: %w", format, seed.ErrUnsupportedFormat)
				}
				return writeOutput(env.stdout, outPath, encoded)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	flags.StringVar(&format, "format", "snapshot", "snapshot | yaml | json")
	return cmd
}

func newImportCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Load an exported snapshot into the sqlite catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.commandFlow("import", func() error {
				ctx := cmd.Context()
				snap, err := readSnapshot(args[0])
				if err != nil {
					return err
				}
				svc, err := env.openService(ctx)
				if err != nil {
					return err
				}
				if err := svc.ImportSnapshot(ctx, snap); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				repo, err := env.openRepository()
				if err != nil {
					return err
				}
				data := app.Seed{Initiatives: svc.State(ctx).Initiatives, Updates: svc.ListUpdates(ctx, app.UpdateFilter{})}
				if err := repo.ReplaceSeed(ctx, data, clock()); err != nil {
					return fmt.Errorf("save sqlite catalog: %w", err)
				}
				_, err = fmt.Fprintf(env.stdout, "imported %d initiatives into %s\n", len(data.Initiatives), env.cfg.Database.Path)
				return err
			})
		},
	}
}

func newSeedCommand(env *cliEnv) *cobra.Command {
	var (
		fromPath string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the builtin dataset or a seed file into the sqlite catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.commandFlow("seed", func() error {
				ctx := cmd.Context()
				now := clock()
				data := seed.Builtin(now)
				if strings.TrimSpace(fromPath) != "" {
					loaded, err := seed.LoadFile(fromPath, now)
					if err != nil {
						return err
					}
					data = loaded
				}
				repo, err := env.openRepository()
				if err != nil {
					return err
				}
				if at, seeded, err := repo.SeededAt(ctx); err != nil {
					return fmt.Errorf("read sqlite seed state: %w", err)
				} else if seeded && !force {
					return fmt.Errorf("%w at %s (use --force to overwrite)", errCatalogSeeded, at.Format("2006-01-02 15:04"))
				}
				if err := repo.ReplaceSeed(ctx, data, now); err != nil {
					return fmt.Errorf("seed sqlite catalog: %w", err)
				}
				_, err = fmt.Fprintf(env.stdout, "seeded %d initiatives and %d updates into %s\n", len(data.Initiatives), len(data.Updates), env.cfg.Database.Path)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&fromPath, "from", "", "YAML or JSON seed file (default builtin dataset)")
	flags.BoolVar(&force, "force", false, "overwrite a seeded catalog")
	return cmd
}

func newPathsCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := env.resolvePaths(); err != nil {
				return err
			}
			out := env.stdout
			_, _ = fmt.Fprintf(out, "app: %s\n", env.flags.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", env.flags.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", env.configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", env.paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", env.cfg.Database.Path)
			_, _ = fmt.Fprintf(out, "seed: %s\n", env.paths.SeedPath)
			return nil
		},
	}
}

// actor returns the audit identity for this invocation.
func (e *cliEnv) actor() app.Actor {
	name := strings.TrimSpace(e.flags.user)
	if name == "" {
		name = e.cfg.Identity.DefaultUser
	}
	return app.Actor{Name: name, Type: app.ActorTypeUser}
}

func writeSnapshot(path string, snap app.Snapshot) error {
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return writeOutput(io.Discard, path, append(encoded, '\n'))
}

func readSnapshot(path string) (app.Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("read snapshot %q: %w", path, err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return app.Snapshot{}, fmt.Errorf("decode snapshot %q: %w", path, err)
	}
	return snap, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOutput writes content to stdout for "-" or to path, creating parent dirs.
func writeOutput(stdout io.Writer, path string, content []byte) error {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		_, err := stdout.Write(content)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
