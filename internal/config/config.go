package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// SeedSource names where the initial dataset comes from.
type SeedSource string

const (
	SeedBuiltin SeedSource = "builtin"
	SeedFile    SeedSource = "file"
	SeedSQLite  SeedSource = "sqlite"
)

type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Seed      SeedConfig      `toml:"seed"`
	Store     StoreConfig     `toml:"store"`
	Identity  IdentityConfig  `toml:"identity"`
	Logging   LoggingConfig   `toml:"logging"`
	Server    ServerConfig    `toml:"server"`
	Dashboard DashboardConfig `toml:"dashboard"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type SeedConfig struct {
	Source SeedSource `toml:"source"`
	Path   string     `toml:"path"` // required when source = "file"
}

type StoreConfig struct {
	MissingPolicy  string `toml:"missing_policy"`  // ignore | report
	ValidationMode string `toml:"validation_mode"` // advisory | reject
	ClampProgress  bool   `toml:"clamp_progress"`
}

type IdentityConfig struct {
	DefaultUser string `toml:"default_user"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	Bind            string `toml:"bind"`
	APIEndpoint     string `toml:"api_endpoint"`
	MCPEndpoint     string `toml:"mcp_endpoint"`
	MetricsEndpoint string `toml:"metrics_endpoint"`
}

type DashboardConfig struct {
	DefaultView     string `toml:"default_view"`
	DefaultSort     string `toml:"default_sort"`
	Descending      bool   `toml:"descending"`
	ShowArchived    bool   `toml:"show_archived"`
	ProgressStep    int    `toml:"progress_step"`
	RecentUpdates   int    `toml:"recent_updates"`
	MarkdownWrapCol int    `toml:"markdown_wrap"`
}

var (
	logLevels       = []string{"debug", "info", "warn", "error", "fatal"}
	missingPolicies = []string{"ignore", "report"}
	validationModes = []string{"advisory", "reject"}
	dashboardViews  = []string{"all", "on-track", "in-progress"}
	dashboardSorts  = []string{"title", "progress", "status", "duedate", "department"}
)

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Seed: SeedConfig{
			Source: SeedBuiltin,
		},
		Store: StoreConfig{
			MissingPolicy:  "ignore",
			ValidationMode: "advisory",
		},
		Identity: IdentityConfig{
			DefaultUser: "beacon-user",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".beacon/log",
			},
		},
		Server: ServerConfig{
			Bind:            "127.0.0.1:8080",
			APIEndpoint:     "/api/v1",
			MCPEndpoint:     "/mcp",
			MetricsEndpoint: "/metrics",
		},
		Dashboard: DashboardConfig{
			DefaultView:     "all",
			DefaultSort:     "title",
			ProgressStep:    5,
			RecentUpdates:   5,
			MarkdownWrapCol: 72,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// normalize lowercases enum-like fields.
func (c *Config) normalize() {
	c.Seed.Source = SeedSource(strings.ToLower(strings.TrimSpace(string(c.Seed.Source))))
	c.Seed.Path = strings.TrimSpace(c.Seed.Path)
	c.Store.MissingPolicy = strings.ToLower(strings.TrimSpace(c.Store.MissingPolicy))
	c.Store.ValidationMode = strings.ToLower(strings.TrimSpace(c.Store.ValidationMode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Dashboard.DefaultView = strings.ToLower(strings.TrimSpace(c.Dashboard.DefaultView))
	c.Dashboard.DefaultSort = strings.TrimSpace(c.Dashboard.DefaultSort)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	switch c.Seed.Source {
	case SeedBuiltin, SeedSQLite:
	case SeedFile:
		if strings.TrimSpace(c.Seed.Path) == "" {
			return errors.New("seed.path is required when seed.source = \"file\"")
		}
	default:
		return fmt.Errorf("invalid seed.source: %q", c.Seed.Source)
	}

	if !slices.Contains(missingPolicies, c.Store.MissingPolicy) {
		return fmt.Errorf("invalid store.missing_policy: %q", c.Store.MissingPolicy)
	}
	if !slices.Contains(validationModes, c.Store.ValidationMode) {
		return fmt.Errorf("invalid store.validation_mode: %q", c.Store.ValidationMode)
	}
	if strings.TrimSpace(c.Identity.DefaultUser) == "" {
		return errors.New("identity.default_user is required")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	endpoints := map[string]string{}
	for name, path := range map[string]string{
		"api_endpoint":     c.Server.APIEndpoint,
		"mcp_endpoint":     c.Server.MCPEndpoint,
		"metrics_endpoint": c.Server.MetricsEndpoint,
	} {
		key := "/" + strings.Trim(strings.TrimSpace(path), "/")
		if key == "/" {
			continue
		}
		if other, ok := endpoints[key]; ok {
			return fmt.Errorf("server.%s collides with server.%s: %q", name, other, key)
		}
		endpoints[key] = name
	}

	if !slices.Contains(dashboardViews, strings.ToLower(c.Dashboard.DefaultView)) {
		return fmt.Errorf("invalid dashboard.default_view: %q", c.Dashboard.DefaultView)
	}
	if !slices.Contains(dashboardSorts, strings.ToLower(c.Dashboard.DefaultSort)) {
		return fmt.Errorf("invalid dashboard.default_sort: %q", c.Dashboard.DefaultSort)
	}
	if c.Dashboard.ProgressStep < 1 || c.Dashboard.ProgressStep > 100 {
		return fmt.Errorf("dashboard.progress_step must be within 1-100, got %d", c.Dashboard.ProgressStep)
	}
	if c.Dashboard.RecentUpdates < 0 {
		return fmt.Errorf("dashboard.recent_updates must be >= 0, got %d", c.Dashboard.RecentUpdates)
	}
	if c.Dashboard.MarkdownWrapCol < 0 {
		return fmt.Errorf("dashboard.markdown_wrap must be >= 0, got %d", c.Dashboard.MarkdownWrapCol)
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
