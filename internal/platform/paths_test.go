package platform

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestPathsFor verifies config, data and seed locations per platform.
func TestPathsFor(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		configBase string
		dataBase   string
		wantConfig string
		wantDB     string
		wantSeed   string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			configBase: "/fallback/config",
			dataBase:   "/fallback/data",
			wantConfig: filepath.Join("/xdg/config", "beacon", "config.toml"),
			wantDB:     filepath.Join("/xdg/data", "beacon", "beacon.db"),
			wantSeed:   filepath.Join("/xdg/config", "beacon", "seed.yaml"),
		},
		{
			name:       "linux fallback",
			goos:       "linux",
			env:        map[string]string{},
			configBase: "/home/me/.config",
			dataBase:   "/home/me/.local/share",
			wantConfig: filepath.Join("/home/me/.config", "beacon", "config.toml"),
			wantDB:     filepath.Join("/home/me/.local/share", "beacon", "beacon.db"),
			wantSeed:   filepath.Join("/home/me/.config", "beacon", "seed.yaml"),
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Users\me\AppData\Roaming`, "LOCALAPPDATA": `C:\Users\me\AppData\Local`},
			configBase: `C:\fallback\config`,
			dataBase:   `C:\fallback\data`,
			wantConfig: filepath.Join(`C:\Users\me\AppData\Roaming`, "beacon", "config.toml"),
			wantDB:     filepath.Join(`C:\Users\me\AppData\Local`, "beacon", "beacon.db"),
			wantSeed:   filepath.Join(`C:\Users\me\AppData\Roaming`, "beacon", "seed.yaml"),
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			configBase: "/Users/me/Library/Application Support",
			dataBase:   "/Users/me/Library/Application Support",
			wantConfig: filepath.Join("/Users/me/Library/Application Support", "beacon", "config.toml"),
			wantDB:     filepath.Join("/Users/me/Library/Application Support", "beacon", "beacon.db"),
			wantSeed:   filepath.Join("/Users/me/Library/Application Support", "beacon", "seed.yaml"),
		},
		{
			name:       "unknown os",
			goos:       "freebsd",
			env:        nil,
			configBase: "/cfg",
			dataBase:   "/data",
			wantConfig: filepath.Join("/cfg", "beacon", "config.toml"),
			wantDB:     filepath.Join("/data", "beacon", "beacon.db"),
			wantSeed:   filepath.Join("/cfg", "beacon", "seed.yaml"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PathsFor(tc.goos, tc.env, tc.configBase, tc.dataBase, "beacon")
			if err != nil {
				t.Fatalf("PathsFor() error = %v", err)
			}
			if p.ConfigPath != tc.wantConfig {
				t.Fatalf("config path = %q, want %q", p.ConfigPath, tc.wantConfig)
			}
			if p.DBPath != tc.wantDB {
				t.Fatalf("db path = %q, want %q", p.DBPath, tc.wantDB)
			}
			if p.SeedPath != tc.wantSeed {
				t.Fatalf("seed path = %q, want %q", p.SeedPath, tc.wantSeed)
			}
			if p.DataDir != filepath.Dir(tc.wantDB) {
				t.Fatalf("data dir = %q, want %q", p.DataDir, filepath.Dir(tc.wantDB))
			}
		})
	}
}

// TestPathsForRejectsEmptyInputs verifies base dirs and app name are required.
func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("darwin", nil, "", "/tmp/data", "beacon"); !errors.Is(err, ErrEmptyBaseDir) {
		t.Fatalf("PathsFor() error = %v, want ErrEmptyBaseDir", err)
	}
	if _, err := PathsFor("linux", nil, "/cfg", "/data", "  "); !errors.Is(err, ErrEmptyAppName) {
		t.Fatalf("PathsFor() error = %v, want ErrEmptyAppName", err)
	}
}

// TestDefaultPathsSmoke verifies the host resolves non-empty paths.
func TestDefaultPathsSmoke(t *testing.T) {
	p, err := DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths() error = %v", err)
	}
	if p.ConfigPath == "" || p.DBPath == "" || p.DataDir == "" || p.SeedPath == "" {
		t.Fatalf("expected non-empty paths, got %#v", p)
	}
	if filepath.Base(p.DBPath) != DefaultAppName+".db" {
		t.Fatalf("unexpected db name %q", p.DBPath)
	}
}

// TestDefaultPathsWithOptionsDevMode verifies the dev suffix on dirs and db name.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "beacon-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "beacon-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}

// TestEnsureDataDir verifies the data dir is created on demand.
func TestEnsureDataDir(t *testing.T) {
	p := Paths{DataDir: filepath.Join(t.TempDir(), "nested", "beacon")}
	if err := p.EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	if err := (Paths{}).EnsureDataDir(); !errors.Is(err, ErrEmptyDataDir) {
		t.Fatalf("EnsureDataDir() error = %v, want ErrEmptyDataDir", err)
	}
}
