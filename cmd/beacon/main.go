package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/beacon/internal/adapters/server"
	"github.com/evanschultz/beacon/internal/adapters/storage/sqlite"
	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/config"
	"github.com/evanschultz/beacon/internal/platform"
	"github.com/evanschultz/beacon/internal/seed"
	"github.com/evanschultz/beacon/internal/store"
	"github.com/evanschultz/beacon/internal/telemetry"
)

var version = "dev"

type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// executeCommand runs the command tree. fang renders help, version and errors.
var executeCommand = func(ctx context.Context, root *cobra.Command) error {
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// clock is the time source for seeds, the store and log file names.
var clock = time.Now

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run builds the command tree for args and executes it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	env := &cliEnv{stdout: stdout, stderr: stderr}
	defer env.close()

	root := newRootCommand(env)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return executeCommand(ctx, root)
}

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	appName    string
	user       string
	devMode    bool
}

// cliEnv carries the runtime resolved for one invocation. Fields fill in lazily so
// commands like paths never open storage.
type cliEnv struct {
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags

	paths        platform.Paths
	configPath   string
	dbOverridden bool
	cfg          config.Config
	logger       *runtimeLogger

	store    *store.Store
	svc      *app.Service
	recorder *telemetry.Recorder
	repo     *sqlite.Repository

	// snapshotOut receives the post-mutation snapshot when set.
	snapshotOut string
}

func newRootCommand(env *cliEnv) *cobra.Command {
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("BEACON_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("BEACON_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "beacon",
		Short:         "Track HR initiatives from the terminal, the CLI or over HTTP and MCP",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.runTUI(cmd.Context())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&env.flags.configPath, "config", "", "path to config TOML (env BEACON_CONFIG)")
	flags.StringVar(&env.flags.dbPath, "db", "", "path to sqlite database (env BEACON_DB_PATH)")
	flags.StringVar(&env.flags.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.StringVar(&env.flags.user, "user", "", "audit identity for mutations (defaults to identity.default_user)")
	flags.BoolVar(&env.flags.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev) and the dev log file")

	root.AddCommand(
		newTUICommand(env),
		newServeCommand(env),
		newListCommand(env),
		newShowCommand(env),
		newArchiveCommand(env, true),
		newArchiveCommand(env, false),
		newProgressCommand(env),
		newAuditCommand(env),
		newExportCommand(env),
		newImportCommand(env),
		newSeedCommand(env),
		newPathsCommand(env),
	)
	return root
}

// resolvePaths resolves platform paths and the effective config and db locations.
func (e *cliEnv) resolvePaths() error {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: e.flags.appName,
		DevMode: e.flags.devMode,
	})
	if err != nil {
		return err
	}
	e.paths = paths

	e.configPath = strings.TrimSpace(e.flags.configPath)
	if e.configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("BEACON_CONFIG")); envPath != "" {
			e.configPath = envPath
		} else {
			e.configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(e.flags.dbPath)
	e.dbOverridden = dbPath != ""
	if !e.dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("BEACON_DB_PATH")); envPath != "" {
			dbPath = envPath
			e.dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}
	e.cfg = config.Default(dbPath)
	return nil
}

// setup loads config and starts logging for command.
func (e *cliEnv) setup(command string) error {
	if err := e.resolvePaths(); err != nil {
		return err
	}
	defaults := e.cfg
	cfg, err := config.Load(e.configPath, defaults)
	if err != nil {
		return fmt.Errorf("load config %q: %w", e.configPath, err)
	}
	if e.dbOverridden {
		cfg.Database.Path = defaults.Database.Path
	}
	e.cfg = cfg

	logger, err := newRuntimeLogger(e.stderr, e.flags.appName, e.flags.devMode, cfg.Logging, clock)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}
	e.logger = logger

	logger.Info("startup configuration resolved", "app", e.flags.appName, "dev_mode", e.flags.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", e.configPath, "data_dir", e.paths.DataDir, "db_path", cfg.Database.Path)
	logger.Info("configuration loaded", "config_path", e.configPath, "seed_source", cfg.Seed.Source, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return nil
}

// openRepository opens the sqlite catalog once per invocation.
func (e *cliEnv) openRepository() (*sqlite.Repository, error) {
	if e.repo != nil {
		return e.repo, nil
	}
	path := e.cfg.Database.Path
	if path == e.paths.DBPath {
		if err := e.paths.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	e.logger.Info("opening sqlite repository", "db_path", path)
	repo, err := sqlite.Open(path)
	if err != nil {
		e.logger.Error("sqlite open failed", "db_path", path, "err", err)
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	e.repo = repo
	return repo, nil
}

// seedSource returns the configured dataset source. An empty sqlite catalog is
// filled from the builtin dataset first.
func (e *cliEnv) seedSource(ctx context.Context) (app.SeedSource, error) {
	switch e.cfg.Seed.Source {
	case config.SeedFile:
		return seed.FileSource{Path: e.cfg.Seed.Path, Clock: clock}, nil
	case config.SeedSQLite:
		repo, err := e.openRepository()
		if err != nil {
			return nil, err
		}
		_, seeded, err := repo.SeededAt(ctx)
		if err != nil {
			return nil, fmt.Errorf("read sqlite seed state: %w", err)
		}
		if !seeded {
			now := clock()
			e.logger.Info("seeding empty sqlite catalog from builtin dataset", "db_path", e.cfg.Database.Path)
			if err := repo.ReplaceSeed(ctx, seed.Builtin(now), now); err != nil {
				return nil, fmt.Errorf("seed sqlite catalog: %w", err)
			}
		}
		return repo, nil
	default:
		return seed.BuiltinSource{Clock: clock}, nil
	}
}

// openService builds the store and service and loads the dataset. A load failure
// still returns the service; its state carries the failure for the dashboard banner.
func (e *cliEnv) openService(ctx context.Context) (*app.Service, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	opts := []store.Option{store.WithClock(clock)}
	if e.cfg.Store.MissingPolicy == "report" {
		opts = append(opts, store.WithMissingPolicy(store.MissingReport))
	}
	if e.cfg.Store.ValidationMode == "reject" {
		opts = append(opts, store.WithValidationMode(store.ValidateReject))
	}
	st := store.New(opts...)
	recorder := telemetry.NewRecorder(st.Snapshot)
	svc := app.NewService(st, uuid.NewString, clock, app.ServiceConfig{
		DefaultUser:   e.cfg.Identity.DefaultUser,
		ClampProgress: e.cfg.Store.ClampProgress,
		Observer:      recorder,
	})
	e.store, e.recorder, e.svc = st, recorder, svc
	e.logger.Debug("application service initialized", "missing_policy", e.cfg.Store.MissingPolicy, "validation_mode", e.cfg.Store.ValidationMode)

	src, err := e.seedSource(ctx)
	if err != nil {
		_ = svc.Bootstrap(ctx, nil)
		return svc, err
	}
	if err := svc.Bootstrap(ctx, src); err != nil {
		e.logger.Error("dataset load failed", "seed_source", e.cfg.Seed.Source, "err", err)
		return svc, err
	}
	e.logger.Info("dataset loaded", "seed_source", e.cfg.Seed.Source, "initiatives", len(st.Snapshot().Initiatives))
	return svc, nil
}

// actionContext attributes mutations to --user or the configured identity.
func (e *cliEnv) actionContext(ctx context.Context) context.Context {
	return app.WithActor(ctx, e.actor())
}

// commandFlow wraps fn with the start/complete/failed log lines every command emits.
func (e *cliEnv) commandFlow(command string, fn func() error) error {
	if err := e.setup(command); err != nil {
		return err
	}
	e.logger.Info("command flow start", "command", command)
	if err := fn(); err != nil {
		e.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	e.logger.Info("command flow complete", "command", command)
	return nil
}

func (e *cliEnv) close() {
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
		}
		e.repo = nil
	}
	if err := e.logger.Close(); err != nil && e.logger.ConsoleEnabled() {
		_, _ = fmt.Fprintf(e.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// parseBoolEnv reports the boolean value of env var name and whether it was set to a valid bool.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// sessionContext attaches the session store to ctx for the long-running surfaces.
func (e *cliEnv) sessionContext(ctx context.Context) context.Context {
	return store.WithStore(ctx, e.store)
}

// storeReady reports whether the store attached to ctx finished loading.
func storeReady(ctx context.Context) func() bool {
	st := store.MustFromContext(ctx)
	return func() bool { return !st.Snapshot().Loading }
}

// storeWarning returns the store's error banner after a mutation, if any.
func (e *cliEnv) storeWarning(ctx context.Context) string {
	if e.svc == nil {
		return ""
	}
	return e.svc.State(ctx).Error
}
