package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// seededAtKey is the seed_meta key recording the last ReplaceSeed time.
const seededAtKey = "seeded_at"

// memorySeq keeps in-memory databases opened by one process distinct.
var memorySeq atomic.Int64

// Repository is the seed catalog: a dataset the store is initialized from.
// Store mutations are never written back.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory catalog.
func OpenInMemory() (*Repository, error) {
	dsn := fmt.Sprintf("file:beacon-mem-%d?mode=memory&cache=shared", memorySeq.Add(1))
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS initiatives (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			project_id TEXT NOT NULL,
			title TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			progress INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			due_date TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			initiative_type TEXT NOT NULL DEFAULT '',
			stage TEXT NOT NULL DEFAULT '',
			archived INTEGER NOT NULL DEFAULT 0,
			objectives_json TEXT NOT NULL DEFAULT '[]',
			stakeholders_json TEXT NOT NULL DEFAULT '[]',
			kpis_json TEXT NOT NULL DEFAULT '[]',
			resources_json TEXT NOT NULL DEFAULT '[]',
			time_tracking_json TEXT NOT NULL DEFAULT '[]',
			documentation_json TEXT NOT NULL DEFAULT '[]',
			integrations_json TEXT NOT NULL DEFAULT '[]',
			budget_json TEXT NOT NULL DEFAULT '{}',
			timeline_json TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE TABLE IF NOT EXISTS updates (
			id INTEGER PRIMARY KEY,
			initiative TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TEXT NOT NULL,
			user_name TEXT NOT NULL DEFAULT '',
			update_type TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS seed_meta (
			meta_key TEXT PRIMARY KEY,
			meta_value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_initiatives_position ON initiatives(position);`,
		`CREATE INDEX IF NOT EXISTS idx_updates_created_at ON updates(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// ReplaceSeed overwrites the catalog with in inside one transaction.
func (r *Repository) ReplaceSeed(ctx context.Context, in app.Seed, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for _, stmt := range []string{`DELETE FROM initiatives`, `DELETE FROM updates`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear seed: %w", err)
		}
	}
	for idx, initiative := range in.Initiatives {
		if err := insertInitiative(ctx, tx, idx, initiative); err != nil {
			return fmt.Errorf("insert initiative %d: %w", initiative.ID, err)
		}
	}
	for _, up := range in.Updates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO updates(id, initiative, message, created_at, user_name, update_type)
			VALUES (?, ?, ?, ?, ?, ?)
		`, up.ID, up.Initiative, up.Message, ts(up.Timestamp), up.User, string(up.Type)); err != nil {
			return fmt.Errorf("insert update %d: %w", up.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO seed_meta(meta_key, meta_value) VALUES (?, ?)
		ON CONFLICT(meta_key) DO UPDATE SET meta_value = excluded.meta_value
	`, seededAtKey, ts(now)); err != nil {
		return fmt.Errorf("record seed time: %w", err)
	}
	return tx.Commit()
}

// SeededAt reports when ReplaceSeed last ran.
func (r *Repository) SeededAt(ctx context.Context) (time.Time, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT meta_value FROM seed_meta WHERE meta_key = ?`, seededAtKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return parseTS(raw), true, nil
}

// LoadSeed implements app.SeedSource. An unseeded catalog reports app.ErrSeedUnavailable.
func (r *Repository) LoadSeed(ctx context.Context) (app.Seed, error) {
	if _, ok, err := r.SeededAt(ctx); err != nil {
		return app.Seed{}, err
	} else if !ok {
		return app.Seed{}, fmt.Errorf("sqlite catalog is empty: %w", app.ErrSeedUnavailable)
	}
	initiatives, err := r.listInitiatives(ctx)
	if err != nil {
		return app.Seed{}, err
	}
	updates, err := r.listUpdates(ctx)
	if err != nil {
		return app.Seed{}, err
	}
	return app.Seed{Initiatives: initiatives, Updates: updates}, nil
}

// GetInitiative returns one catalog record.
func (r *Repository) GetInitiative(ctx context.Context, id int64) (domain.Initiative, error) {
	row := r.db.QueryRowContext(ctx, selectInitiatives+` WHERE id = ?`, id)
	return scanInitiative(row)
}

const selectInitiatives = `
	SELECT id, project_id, title, owner, progress, status, due_date, department, description,
		category, priority, initiative_type, stage, archived, objectives_json, stakeholders_json, kpis_json,
		resources_json, time_tracking_json, documentation_json, integrations_json, budget_json, timeline_json
	FROM initiatives`

func (r *Repository) listInitiatives(ctx context.Context) ([]domain.Initiative, error) {
	rows, err := r.db.QueryContext(ctx, selectInitiatives+` ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Initiative{}
	for rows.Next() {
		initiative, err := scanInitiative(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, initiative)
	}
	return out, rows.Err()
}

func (r *Repository) listUpdates(ctx context.Context) ([]domain.Update, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, initiative, message, created_at, user_name, update_type
		FROM updates
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Update{}
	for rows.Next() {
		var (
			up         domain.Update
			createdRaw string
			kind       string
		)
		if err := rows.Scan(&up.ID, &up.Initiative, &up.Message, &createdRaw, &up.User, &kind); err != nil {
			return nil, err
		}
		up.Timestamp = parseTS(createdRaw)
		up.Type = domain.UpdateType(kind)
		out = append(out, up)
	}
	return out, rows.Err()
}

// execerContext is satisfied by *sql.DB and *sql.Tx.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

func insertInitiative(ctx context.Context, execer execerContext, position int, in domain.Initiative) error {
	cols, err := encodeNested(in)
	if err != nil {
		return err
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO initiatives(
			id, position, project_id, title, owner, progress, status, due_date, department, description,
			category, priority, initiative_type, stage, archived, objectives_json, stakeholders_json, kpis_json,
			resources_json, time_tracking_json, documentation_json, integrations_json, budget_json, timeline_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		in.ID, position, in.ProjectID, in.Title, in.Owner, in.Progress, string(in.Status), in.DueDate,
		in.Department, in.Description, in.Category, string(in.Priority), string(in.Type), string(in.Stage),
		boolToInt(in.Archived), cols[0], cols[1], cols[2], cols[3], cols[4], cols[5], cols[6], cols[7], cols[8],
	)
	return err
}

// encodeNested marshals the JSON columns in table order.
func encodeNested(in domain.Initiative) ([]string, error) {
	values := []any{
		nonNil(in.Objectives), nonNil(in.Stakeholders), nonNil(in.KPIs), nonNil(in.ResourceRequirements),
		nonNil(in.TimeTracking), nonNil(in.Documentation), nonNil(in.Integrations), in.Budget, in.Timeline,
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode nested column: %w", err)
		}
		out = append(out, string(raw))
	}
	return out, nil
}

// nonNil stores empty collections as [] rather than null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanInitiative decodes one initiatives row.
func scanInitiative(s scanner) (domain.Initiative, error) {
	var (
		in                                        domain.Initiative
		status, priority, kind, stage             string
		archived                                  int
		objectives, stakeholders, kpis, resources string
		timeTracking, documentation, integrations string
		budget, timeline                          string
	)
	if err := s.Scan(
		&in.ID, &in.ProjectID, &in.Title, &in.Owner, &in.Progress, &status, &in.DueDate, &in.Department,
		&in.Description, &in.Category, &priority, &kind, &stage, &archived, &objectives, &stakeholders,
		&kpis, &resources, &timeTracking, &documentation, &integrations, &budget, &timeline,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Initiative{}, app.ErrNotFound
		}
		return domain.Initiative{}, err
	}
	in.Status = domain.Status(status)
	in.Priority = domain.Priority(priority)
	in.Type = domain.InitiativeType(kind)
	in.Stage = domain.Stage(stage)
	in.Archived = archived != 0

	decoders := []struct {
		name string
		raw  string
		dst  any
	}{
		{"objectives_json", objectives, &in.Objectives},
		{"stakeholders_json", stakeholders, &in.Stakeholders},
		{"kpis_json", kpis, &in.KPIs},
		{"resources_json", resources, &in.ResourceRequirements},
		{"time_tracking_json", timeTracking, &in.TimeTracking},
		{"documentation_json", documentation, &in.Documentation},
		{"integrations_json", integrations, &in.Integrations},
		{"budget_json", budget, &in.Budget},
		{"timeline_json", timeline, &in.Timeline},
	}
	for _, d := range decoders {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		if err := json.Unmarshal([]byte(d.raw), d.dst); err != nil {
			return domain.Initiative{}, fmt.Errorf("decode initiative %s: %w", d.name, err)
		}
	}
	return in, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
