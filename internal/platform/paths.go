package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "beacon"

const (
	configFileName = "config.toml"
	seedFileName   = "seed.yaml"
	devSuffix      = "-dev"
)

var (
	ErrEmptyBaseDir = errors.New("empty base dir")
	ErrEmptyAppName = errors.New("empty app name")
	ErrEmptyDataDir = errors.New("empty data dir")
)

// Paths holds the per-user locations of the config file, seed file and catalog.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	SeedPath   string
}

// Options selects the app name and whether dev-mode locations are used.
type Options struct {
	AppName string
	DevMode bool
}

// baseOverride names the env vars that replace the config and data bases on one OS.
type baseOverride struct {
	config string
	data   string
}

// baseOverrides lists the platforms whose env vars win over the Go defaults.
// darwin and anything unlisted keep the bases passed to PathsFor.
var baseOverrides = map[string]baseOverride{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths returns the paths for DefaultAppName.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths for the running host.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += devSuffix
	}

	configBase, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve user config dir: %w", err)
	}
	dataBase, err := hostDataBase(runtime.GOOS, configBase)
	if err != nil {
		return Paths{}, err
	}
	return PathsFor(runtime.GOOS, hostEnv(runtime.GOOS), configBase, dataBase, appName)
}

// hostDataBase picks the data base before env overrides apply.
func hostDataBase(goos, configBase string) (string, error) {
	if goos != "linux" {
		return configBase, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share"), nil
}

// hostEnv reads only the override vars that matter for goos.
func hostEnv(goos string) map[string]string {
	override, ok := baseOverrides[goos]
	if !ok {
		return nil
	}
	return map[string]string{
		override.config: os.Getenv(override.config),
		override.data:   os.Getenv(override.data),
	}
}

// PathsFor resolves paths for goos from explicit env and base dirs.
func PathsFor(goos string, env map[string]string, configBase, dataBase, appName string) (Paths, error) {
	if strings.TrimSpace(configBase) == "" || strings.TrimSpace(dataBase) == "" {
		return Paths{}, ErrEmptyBaseDir
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, ErrEmptyAppName
	}

	if override, ok := baseOverrides[goos]; ok {
		configBase = firstSet(env[override.config], configBase)
		dataBase = firstSet(env[override.data], dataBase)
	}

	configDir := filepath.Join(configBase, appName)
	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configDir, configFileName),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		SeedPath:   filepath.Join(configDir, seedFileName),
	}, nil
}

func firstSet(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// EnsureDataDir creates the catalog directory when missing.
func (p Paths) EnsureDataDir() error {
	if strings.TrimSpace(p.DataDir) == "" {
		return ErrEmptyDataDir
	}
	if err := os.MkdirAll(p.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", p.DataDir, err)
	}
	return nil
}
