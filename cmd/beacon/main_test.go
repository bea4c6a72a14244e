package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/beacon/internal/adapters/server"
	"github.com/evanschultz/beacon/internal/adapters/storage/sqlite"
	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/config"
	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/seed"
	"github.com/evanschultz/beacon/internal/store"
	"github.com/evanschultz/beacon/internal/tui"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// TestMain pins dev mode off, runs cobra without fang styling and freezes the clock.
func TestMain(m *testing.M) {
	_ = os.Setenv("BEACON_DEV_MODE", "false")
	executeCommand = func(ctx context.Context, root *cobra.Command) error {
		return root.ExecuteContext(ctx)
	}
	clock = func() time.Time { return testNow }
	os.Exit(m.Run())
}

type fakeProgram struct {
	runErr error
}

func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// testEnv holds an isolated config and database location.
type testEnv struct {
	dir    string
	config string
	db     string
}

func newTestEnv(t *testing.T, configContent string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		db:     filepath.Join(dir, "beacon.db"),
	}
	if configContent != "" {
		if err := os.WriteFile(env.config, []byte(configContent), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	return env
}

// args prefixes the isolated config and db flags.
func (e testEnv) args(extra ...string) []string {
	return append([]string{"--config", e.config, "--db", e.db}, extra...)
}

func (e testEnv) run(t *testing.T, extra ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), e.args(extra...), &stdout, &stderr); err != nil {
		t.Fatalf("run(%v) error = %v\nstderr: %s", extra, err, stderr.String())
	}
	return stdout.String(), stderr.String()
}

const sqliteSeedConfig = "[seed]\nsource = \"sqlite\"\n"

func decodeInitiatives(t *testing.T, raw string) []domain.Initiative {
	t.Helper()
	var out []domain.Initiative
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("json.Unmarshal() error = %v\n%s", err, raw)
	}
	return out
}

func initiativeIDs(items []domain.Initiative) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

// TestRunVersion verifies the root version flag.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), "beacon") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunStartsProgram verifies the default command hands a dashboard model to the program.
func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	var got tea.Model
	programFactory = func(m tea.Model) program {
		got = m
		return fakeProgram{}
	}
	env := newTestEnv(t, "")
	if err := run(context.Background(), env.args(), io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, ok := got.(tui.Model); !ok {
		t.Fatalf("expected tui.Model, got %T", got)
	}
}

// TestRunProgramErrorIsReturned verifies program failures surface from run.
func TestRunProgramErrorIsReturned(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(tea.Model) program { return fakeProgram{runErr: errors.New("boom")} }

	env := newTestEnv(t, "")
	err := run(context.Background(), env.args("tui"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected program error, got %v", err)
	}
}

// TestRunTUIModeWritesRuntimeLogsToFileOnly verifies TUI logs stay off stderr and land in the dev log file.
func TestRunTUIModeWritesRuntimeLogsToFileOnly(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(tea.Model) program { return fakeProgram{} }

	workspace := t.TempDir()
	t.Chdir(workspace)
	env := newTestEnv(t, "")

	var stderr bytes.Buffer
	if err := run(context.Background(), env.args("--dev"), io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(stderr.String()); got != "" {
		t.Fatalf("expected no stderr output in TUI mode, got %q", got)
	}

	logPath := filepath.Join(workspace, ".beacon", "log", "beacon-20260302.log")
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "starting tui program loop") {
		t.Fatalf("expected TUI lifecycle entries in log file, got %q", string(content))
	}
}

// TestRunListPrintsTable verifies the default table listing.
func TestRunListPrintsTable(t *testing.T) {
	env := newTestEnv(t, "")
	out, _ := env.run(t, "list")
	for _, want := range []string{"HR-2024-005", "Remote Work Policy Enhancement", "Benefits Administration", "30%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in list output, got\n%s", want, out)
		}
	}
}

// TestRunListJSONFilters verifies list flags reach the service filter.
func TestRunListJSONFilters(t *testing.T) {
	env := newTestEnv(t, "")
	cases := []struct {
		name string
		args []string
		want []int64
	}{
		{name: "collection order", args: []string{"list", "--json"}, want: []int64{1, 2, 4, 5}},
		{name: "on track view", args: []string{"list", "--json", "--view", "on-track"}, want: []int64{1, 5}},
		{name: "department", args: []string{"list", "--json", "--dept", "talent management"}, want: []int64{2}},
		{name: "progress descending", args: []string{"list", "--json", "--sort", "progress", "--order", "desc"}, want: []int64{1, 5, 2, 4}},
		{name: "status", args: []string{"list", "--json", "--status", "delayed"}, want: []int64{4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := env.run(t, tc.args...)
			got := initiativeIDs(decodeInitiatives(t, out))
			if len(got) != len(tc.want) {
				t.Fatalf("ids = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("ids = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

// TestRunListRejectsInvalidView verifies filter validation errors propagate.
func TestRunListRejectsInvalidView(t *testing.T) {
	env := newTestEnv(t, "")
	err := run(context.Background(), env.args("list", "--view", "sideways"), io.Discard, io.Discard)
	if !errors.Is(err, app.ErrInvalidView) {
		t.Fatalf("expected ErrInvalidView, got %v", err)
	}
}

// TestRunShow verifies the summary and the missing-id error.
func TestRunShow(t *testing.T) {
	env := newTestEnv(t, "")
	out, _ := env.run(t, "show", "4")
	for _, want := range []string{"HR-2024-004  Benefits Optimization Initiative", "progress: 30%", "status: delayed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in show output, got\n%s", want, out)
		}
	}

	err := run(context.Background(), env.args("show", "99"), io.Discard, io.Discard)
	if !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err = run(context.Background(), env.args("show", "abc"), io.Discard, io.Discard)
	if !errors.Is(err, app.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

// TestRunProgressIsSessionScoped verifies mutations never reach the sqlite catalog
// and --snapshot-out captures them with their audit entry.
func TestRunProgressIsSessionScoped(t *testing.T) {
	env := newTestEnv(t, sqliteSeedConfig)
	snapPath := filepath.Join(env.dir, "after.json")
	out, _ := env.run(t, "progress", "4", "55", "--snapshot-out", snapPath)
	if !strings.Contains(out, "updated 4 (HR-2024-004) progress=55%") {
		t.Fatalf("unexpected progress output %q", out)
	}

	snap, err := readSnapshot(snapPath)
	if err != nil {
		t.Fatalf("readSnapshot() error = %v", err)
	}
	if len(snap.AuditLog) != 1 {
		t.Fatalf("expected one audit entry, got %+v", snap.AuditLog)
	}
	entry := snap.AuditLog[0]
	if entry.InitiativeID != 4 || entry.User != "beacon-user" || entry.Changes["to"] != "55" || entry.Changes["from"] != "30" {
		t.Fatalf("unexpected audit entry %+v", entry)
	}

	out, _ = env.run(t, "show", "4", "--json")
	var got domain.Initiative
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got.Progress != 30 {
		t.Fatalf("expected catalog progress to stay 30, got %d", got.Progress)
	}
}

// TestRunProgressOutOfRangeWarns verifies advisory validation keeps the value and prints the banner.
func TestRunProgressOutOfRangeWarns(t *testing.T) {
	env := newTestEnv(t, "")
	out, stderr := env.run(t, "progress", "4", "150")
	if !strings.Contains(out, "progress=150%") {
		t.Fatalf("expected advisory mode to keep 150, got %q", out)
	}
	if !strings.Contains(stderr, "warning: Invalid progress value for initiative 4") {
		t.Fatalf("expected validation warning, got %q", stderr)
	}
}

// TestRunProgressClampsWhenConfigured verifies store.clamp_progress.
func TestRunProgressClampsWhenConfigured(t *testing.T) {
	env := newTestEnv(t, "[store]\nclamp_progress = true\n")
	out, stderr := env.run(t, "progress", "4", "150")
	if !strings.Contains(out, "progress=100%") {
		t.Fatalf("expected clamped progress, got %q", out)
	}
	if strings.Contains(stderr, "warning:") {
		t.Fatalf("expected no warning after clamping, got %q", stderr)
	}
}

// TestRunProgressRejectMode verifies reject mode returns the validation error.
func TestRunProgressRejectMode(t *testing.T) {
	env := newTestEnv(t, "[store]\nvalidation_mode = \"reject\"\n")
	err := run(context.Background(), env.args("progress", "4", "150"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "Invalid progress value for initiative 4") {
		t.Fatalf("expected rejection, got %v", err)
	}
	err = run(context.Background(), env.args("progress", "4", "half"), io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected non-numeric progress error")
	}
}

// TestRunArchiveAndRestore verifies archive attribution and the restore report.
func TestRunArchiveAndRestore(t *testing.T) {
	env := newTestEnv(t, "")
	snapPath := filepath.Join(env.dir, "archived.json")
	out, _ := env.run(t, "--user", "auditor", "archive", "1", "--snapshot-out", snapPath)
	if !strings.Contains(out, "archived 1 (HR-2024-001)") || !strings.Contains(out, "archived=true") {
		t.Fatalf("unexpected archive output %q", out)
	}
	snap, err := readSnapshot(snapPath)
	if err != nil {
		t.Fatalf("readSnapshot() error = %v", err)
	}
	if !snap.Initiatives[0].Archived || len(snap.AuditLog) != 1 || snap.AuditLog[0].User != "auditor" {
		t.Fatalf("expected archived record attributed to auditor, got %+v / %+v", snap.Initiatives[0], snap.AuditLog)
	}

	out, _ = env.run(t, "restore", "1")
	if !strings.Contains(out, "restored 1 (HR-2024-001)") || !strings.Contains(out, "archived=false") {
		t.Fatalf("unexpected restore output %q", out)
	}
	err = run(context.Background(), env.args("archive", "99"), io.Discard, io.Discard)
	if !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

// TestRunAudit verifies the live and snapshot audit listings.
func TestRunAudit(t *testing.T) {
	env := newTestEnv(t, "")
	out, _ := env.run(t, "audit")
	if !strings.Contains(out, "audit log is empty") {
		t.Fatalf("expected empty session audit, got %q", out)
	}

	snapPath := filepath.Join(env.dir, "snap.json")
	snap := app.Snapshot{
		Version: app.SnapshotVersion,
		AuditLog: []domain.AuditEntry{
			{ID: 1, Timestamp: testNow, Action: domain.AuditUpdate, InitiativeID: 4, User: "auditor", Changes: map[string]string{"archived": "true", "request_id": "r-1"}},
			{ID: 2, Timestamp: testNow, Action: domain.AuditDelete, InitiativeID: 5, User: "auditor", Changes: map[string]string{}},
		},
	}
	content, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if err := os.WriteFile(snapPath, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, _ = env.run(t, "audit", "--snapshot", snapPath, "--limit", "1", "--json")
	var entries []domain.AuditEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != 2 {
		t.Fatalf("expected most recent entry only, got %+v", entries)
	}

	out, _ = env.run(t, "audit", "--snapshot", snapPath)
	if !strings.Contains(out, "archived=true") || strings.Contains(out, "r-1") {
		t.Fatalf("unexpected audit table %q", out)
	}
}

// TestRunExportSeedRoundTrip verifies a YAML export loads back as a seed file.
func TestRunExportSeedRoundTrip(t *testing.T) {
	env := newTestEnv(t, "")
	outPath := filepath.Join(env.dir, "export", "seed.yaml")
	env.run(t, "export", "--format", "yaml", "--out", outPath)

	loaded, err := seed.LoadFile(outPath, testNow)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	builtin := seed.Builtin(testNow)
	if len(loaded.Initiatives) != len(builtin.Initiatives) || len(loaded.Updates) != len(builtin.Updates) {
		t.Fatalf("expected %d/%d records, got %d/%d", len(builtin.Initiatives), len(builtin.Updates), len(loaded.Initiatives), len(loaded.Updates))
	}

	fileEnv := newTestEnv(t, "[seed]\nsource = \"file\"\npath = \""+filepath.ToSlash(outPath)+"\"\n")
	out, _ := fileEnv.run(t, "list", "--json")
	if ids := initiativeIDs(decodeInitiatives(t, out)); len(ids) != 4 {
		t.Fatalf("expected file seed to load 4 initiatives, got %v", ids)
	}

	err = run(context.Background(), env.args("export", "--format", "xml"), io.Discard, io.Discard)
	if !errors.Is(err, seed.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// TestRunExportAndImportSnapshot verifies a snapshot export can seed the sqlite catalog.
func TestRunExportAndImportSnapshot(t *testing.T) {
	env := newTestEnv(t, "")
	out, _ := env.run(t, "export")
	var snap app.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if snap.Version != app.SnapshotVersion || len(snap.Initiatives) != 4 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap.Initiatives = snap.Initiatives[:2]
	content, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	snapPath := filepath.Join(env.dir, "snap.json")
	if err := os.WriteFile(snapPath, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out, _ = env.run(t, "import", snapPath)
	if !strings.Contains(out, "imported 2 initiatives") {
		t.Fatalf("unexpected import output %q", out)
	}

	repo, err := sqlite.Open(env.db)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer func() { _ = repo.Close() }()
	loaded, err := repo.LoadSeed(context.Background())
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(loaded.Initiatives) != 2 {
		t.Fatalf("expected 2 imported initiatives, got %d", len(loaded.Initiatives))
	}
}

// TestRunSeedRefusesSeededCatalog verifies seed needs --force to overwrite.
func TestRunSeedRefusesSeededCatalog(t *testing.T) {
	env := newTestEnv(t, "")
	out, _ := env.run(t, "seed")
	if !strings.Contains(out, "seeded 4 initiatives") {
		t.Fatalf("unexpected seed output %q", out)
	}
	err := run(context.Background(), env.args("seed"), io.Discard, io.Discard)
	if !errors.Is(err, errCatalogSeeded) {
		t.Fatalf("expected errCatalogSeeded, got %v", err)
	}
	env.run(t, "seed", "--force")
}

// TestRunServeUsesConfig verifies serve wiring and flag overrides.
func TestRunServeUsesConfig(t *testing.T) {
	origRunner := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = origRunner })

	var (
		gotCtx  context.Context
		gotCfg  serveradapter.Config
		gotDeps serveradapter.Dependencies
	)
	serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
		gotCtx, gotCfg, gotDeps = ctx, cfg, deps
		return nil
	}

	env := newTestEnv(t, "[server]\nbind = \"127.0.0.1:9090\"\napi_endpoint = \"/api/v2\"\n")
	env.run(t, "serve", "--mcp-endpoint", "/tools")
	if gotCfg.HTTPBind != "127.0.0.1:9090" || gotCfg.APIEndpoint != "/api/v2" {
		t.Fatalf("expected config server values, got %+v", gotCfg)
	}
	if gotCfg.MCPEndpoint != "/tools" || gotCfg.MetricsEndpoint != "/metrics" {
		t.Fatalf("expected flag override and default metrics path, got %+v", gotCfg)
	}
	if gotCfg.ServerName != "beacon" || gotCfg.ServerVersion != version {
		t.Fatalf("unexpected server identity %+v", gotCfg)
	}
	if gotDeps.Service == nil || gotDeps.Metrics == nil || gotDeps.Ready == nil || !gotDeps.Ready() {
		t.Fatalf("expected ready service, metrics and readiness deps, got %+v", gotDeps)
	}
	st, ok := store.FromContext(gotCtx)
	if !ok {
		t.Fatal("expected serve context to carry the session store")
	}
	if len(st.Snapshot().Initiatives) != 4 {
		t.Fatalf("expected the loaded session store, got %d initiatives", len(st.Snapshot().Initiatives))
	}
}

// TestStoreReadyFollowsLoading verifies readiness tracks the attached store and
// panics when no store was attached.
func TestStoreReadyFollowsLoading(t *testing.T) {
	st := store.New()
	ready := storeReady(store.WithStore(context.Background(), st))
	if ready() {
		t.Fatal("expected a fresh store to report loading")
	}
	if _, err := st.Dispatch(store.Initialize{}); err != nil {
		t.Fatalf("Dispatch(Initialize) error = %v", err)
	}
	if !ready() {
		t.Fatal("expected ready after Initialize")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected storeReady to panic without an attached store")
		}
	}()
	storeReady(context.Background())
}

// TestRunConfigAndDBEnvOverrides verifies BEACON_CONFIG and BEACON_DB_PATH.
func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "nested", "env.db")
	cfgPath := filepath.Join(tmp, "env.toml")
	cfgContent := sqliteSeedConfig + "[database]\npath = \"/tmp/ignore-me.db\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("BEACON_CONFIG", cfgPath)
	t.Setenv("BEACON_DB_PATH", dbPath)

	if err := run(context.Background(), []string{"list"}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(list with env paths) error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db created at env path, stat error %v", err)
	}
}

// TestRunPathsCommand verifies the resolved path report.
func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--app", "beaconx", "--dev", "paths"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	output := out.String()
	for _, want := range []string{"app: beaconx", "dev_mode: true", "beaconx-dev", "seed: "} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in paths output, got %q", want, output)
		}
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies config validation surfaces before any command runs.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	env := newTestEnv(t, "[logging]\nlevel = \"verbose\"\n")
	err := run(context.Background(), env.args("list"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "invalid logging.level") {
		t.Fatalf("expected logging level validation error, got %v", err)
	}
}

// TestRunUnknownCommand verifies cobra rejects stray arguments.
func TestRunUnknownCommand(t *testing.T) {
	env := newTestEnv(t, "")
	if err := run(context.Background(), env.args("bogus"), io.Discard, io.Discard); err == nil {
		t.Fatal("expected unknown command error")
	}
}

// TestParseBoolEnv verifies env bool parsing.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("BEACON_BOOL_TEST", "true")
	got, ok := parseBoolEnv("BEACON_BOOL_TEST")
	if !ok || !got {
		t.Fatalf("expected true bool env parse, got value=%t ok=%t", got, ok)
	}

	t.Setenv("BEACON_BOOL_TEST", "not-bool")
	if _, ok := parseBoolEnv("BEACON_BOOL_TEST"); ok {
		t.Fatal("expected invalid bool env to return ok=false")
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies workspace-root resolution.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "cmd", "beacon")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); filepath.Clean(got) != filepath.Clean(root) {
		t.Fatalf("expected workspace root %q, got %q", root, got)
	}
}

// TestDevLogFilePathResolvesAgainstWorkspaceRoot verifies relative log dirs anchor at the workspace root.
func TestDevLogFilePathResolvesAgainstWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "internal", "tui")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	t.Chdir(nested)

	got, err := devLogFilePath(".beacon/log", "beacon", testNow)
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	normalize := func(p string) string {
		return strings.TrimPrefix(filepath.Clean(p), "/private")
	}
	want := filepath.Join(root, ".beacon", "log", "beacon-20260302.log")
	if normalize(got) != normalize(want) {
		t.Fatalf("devLogFilePath() = %q, want %q", got, want)
	}
}

// TestSanitizeLogFileStem verifies unsafe app names become file-safe stems.
func TestSanitizeLogFileStem(t *testing.T) {
	cases := map[string]string{
		"beacon":      "beacon",
		"hr/beacon":   "hr-beacon",
		" my app ":    "my-app",
		"":            "beacon",
		"///":         "beacon",
		`C:\apps\hr`: "C--apps-hr",
	}
	for in, want := range cases {
		if got := sanitizeLogFileStem(in); got != want {
			t.Fatalf("sanitizeLogFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies muting the console sink.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	cfg := config.Default("/tmp/beacon.db").Logging
	logger, err := newRuntimeLogger(&console, "beacon", false, cfg, func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	logger.SetConsoleEnabled(true)
	logger.Info("after")
	logger.Debug("hidden below info")

	out := console.String()
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Fatalf("expected unmuted entries, got %q", out)
	}
	if strings.Contains(out, "during") || strings.Contains(out, "hidden below info") {
		t.Fatalf("expected muted and below-level entries omitted, got %q", out)
	}
}

// TestFormatChanges verifies audit change rendering.
func TestFormatChanges(t *testing.T) {
	got := formatChanges(map[string]string{"to": "40", "from": "30", "request_id": "abc", "fields": "progress"})
	if got != "fields=progress from=30 to=40" {
		t.Fatalf("formatChanges() = %q", got)
	}
	if got := formatChanges(nil); got != "" {
		t.Fatalf("formatChanges(nil) = %q", got)
	}
}
