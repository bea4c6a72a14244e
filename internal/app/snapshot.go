package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "beacon.snapshot.v1"

// Snapshot is the portable export of the tracker.
type Snapshot struct {
	Version     string              `json:"version"`
	ExportedAt  time.Time           `json:"exported_at"`
	Initiatives []domain.Initiative `json:"initiatives"`
	Updates     []domain.Update     `json:"updates"`
	AuditLog    []domain.AuditEntry `json:"audit_log,omitempty"`
}

// ExportSnapshot captures the collection, the feed and the audit log.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	state := s.store.Snapshot()
	return Snapshot{
		Version:     SnapshotVersion,
		ExportedAt:  s.clock().UTC(),
		Initiatives: state.Initiatives,
		Updates:     s.feed.all(),
		AuditLog:    state.AuditLog,
	}, nil
}

// ImportSnapshot validates snap and re-initializes the collection and feed from it.
// The audit log is append-only, so imported audit entries are not replayed.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	res, err := s.dispatch(store.Initialize{Initiatives: snap.Initiatives})
	if err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	if !res.Committed {
		return fmt.Errorf("import snapshot: %w", ErrInvalidSnapshot)
	}
	s.feed.reset(snap.Updates)
	return nil
}

// Validate validates the requested operation.
func (snap *Snapshot) Validate() error {
	if snap.Version != "" && snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q: %w", snap.Version, ErrInvalidSnapshot)
	}
	ids := map[int64]struct{}{}
	for i, initiative := range snap.Initiatives {
		if initiative.ID <= 0 {
			return fmt.Errorf("initiatives[%d].id must be positive: %w", i, ErrInvalidSnapshot)
		}
		if strings.TrimSpace(initiative.Title) == "" {
			return fmt.Errorf("initiatives[%d].title is required: %w", i, ErrInvalidSnapshot)
		}
		if _, exists := ids[initiative.ID]; exists {
			return fmt.Errorf("duplicate initiative id %d: %w", initiative.ID, ErrInvalidSnapshot)
		}
		ids[initiative.ID] = struct{}{}
	}
	updateIDs := map[int64]struct{}{}
	for i, up := range snap.Updates {
		if up.ID <= 0 {
			return fmt.Errorf("updates[%d].id must be positive: %w", i, ErrInvalidSnapshot)
		}
		if !domain.IsValidUpdateType(up.Type) {
			return fmt.Errorf("updates[%d].type %q: %w", i, up.Type, ErrInvalidSnapshot)
		}
		if _, exists := updateIDs[up.ID]; exists {
			return fmt.Errorf("duplicate update id %d: %w", up.ID, ErrInvalidSnapshot)
		}
		updateIDs[up.ID] = struct{}{}
	}
	return nil
}
