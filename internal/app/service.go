package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
)

// DefaultUser is the audit identity used when neither context nor config names one.
const DefaultUser = "beacon-user"

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultUser   string
	ClampProgress bool
	Observer      ActionObserver
}

// IDGenerator returns unique identifiers used to correlate audit entries.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// CreateInitiativeInput holds input values for create initiative operations.
type CreateInitiativeInput = domain.InitiativeInput

// Service routes every mutation through the store and keeps the activity feed.
type Service struct {
	store       *store.Store
	feed        *feed
	idGen       IDGenerator
	clock       Clock
	defaultUser string
	clamp       bool
	observer    ActionObserver
}

// NewService constructs a new value for this package.
func NewService(st *store.Store, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	user := strings.TrimSpace(cfg.DefaultUser)
	if user == "" {
		user = DefaultUser
	}
	return &Service{
		store:       st,
		feed:        &feed{},
		idGen:       idGen,
		clock:       clock,
		defaultUser: user,
		clamp:       cfg.ClampProgress,
		observer:    cfg.Observer,
	}
}

// Bootstrap loads the seed dataset and initializes the store. On failure the
// store carries the load error in State.Error.
func (s *Service) Bootstrap(ctx context.Context, src SeedSource) error {
	if src == nil {
		_, _ = s.dispatch(store.SetError{Message: ErrSeedUnavailable.Error()})
		return ErrSeedUnavailable
	}
	seed, err := src.LoadSeed(ctx)
	if err != nil {
		_, _ = s.dispatch(store.SetError{Message: "failed to load initiatives: " + err.Error()})
		return fmt.Errorf("load seed: %w", err)
	}
	s.feed.reset(seed.Updates)
	if _, err := s.dispatch(store.Initialize{Initiatives: seed.Initiatives}); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	return nil
}

// State returns a snapshot of the store.
func (s *Service) State(context.Context) store.State {
	return s.store.Snapshot()
}

// GetInitiative returns one initiative.
func (s *Service) GetInitiative(_ context.Context, id int64) (domain.Initiative, error) {
	initiative, ok := s.store.Snapshot().Find(id)
	if !ok {
		return domain.Initiative{}, fmt.Errorf("initiative %d: %w", id, ErrNotFound)
	}
	return initiative, nil
}

// CreateInitiative validates input, adds it and records the creation.
func (s *Service) CreateInitiative(ctx context.Context, in CreateInitiativeInput) (domain.Initiative, error) {
	if err := ctx.Err(); err != nil {
		return domain.Initiative{}, err
	}
	initiative, err := domain.NewInitiative(in, s.clock())
	if err != nil {
		return domain.Initiative{}, err
	}
	res, err := s.dispatch(store.Add{Initiative: initiative})
	if err != nil {
		return domain.Initiative{}, err
	}
	created, _ := s.store.Snapshot().Find(res.ID)
	s.audit(ctx, domain.AuditCreate, created.ID, map[string]string{
		"title":      created.Title,
		"project_id": created.ProjectID,
	})
	if _, err := s.feed.add(domain.UpdateInput{
		Initiative: created.Title,
		Message:    "New initiative created",
		User:       created.Owner,
		Type:       domain.UpdateStatus,
	}, s.clock()); err != nil {
		return domain.Initiative{}, err
	}
	return created, nil
}

// UpdateInitiative replaces a full record and audits the changed fields.
func (s *Service) UpdateInitiative(ctx context.Context, in domain.Initiative) (domain.Initiative, error) {
	if err := ctx.Err(); err != nil {
		return domain.Initiative{}, err
	}
	before, err := s.GetInitiative(ctx, in.ID)
	if err != nil {
		return domain.Initiative{}, err
	}
	in = in.Clone()
	if strings.TrimSpace(in.ProjectID) == "" {
		in.ProjectID = before.ProjectID
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return domain.Initiative{}, err
	}
	res, err := s.dispatch(store.Update{Initiative: in})
	if err != nil {
		return domain.Initiative{}, err
	}
	if !res.Found {
		return domain.Initiative{}, fmt.Errorf("initiative %d: %w", in.ID, ErrNotFound)
	}
	s.feed.retitle(before.Title, in.Title)
	if fields := domain.ChangedFields(before, in); len(fields) > 0 {
		s.audit(ctx, domain.AuditUpdate, in.ID, map[string]string{"fields": strings.Join(fields, ",")})
	}
	return s.GetInitiative(ctx, in.ID)
}

// DeleteInitiative removes a record permanently.
func (s *Service) DeleteInitiative(ctx context.Context, id int64) error {
	before, err := s.GetInitiative(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.mutate(ctx, store.Delete{ID: id}); err != nil {
		return err
	}
	s.audit(ctx, domain.AuditDelete, id, map[string]string{"title": before.Title})
	return nil
}

// ArchiveInitiative soft-deletes a record.
func (s *Service) ArchiveInitiative(ctx context.Context, id int64) (domain.Initiative, error) {
	return s.mutateAndAudit(ctx, store.Archive{ID: id}, map[string]string{"archived": "true"})
}

// RestoreInitiative clears the archived flag.
func (s *Service) RestoreInitiative(ctx context.Context, id int64) (domain.Initiative, error) {
	return s.mutateAndAudit(ctx, store.Restore{ID: id}, map[string]string{"archived": "false"})
}

// UpdateProgress sets the progress value, clamping when configured.
func (s *Service) UpdateProgress(ctx context.Context, id int64, progress int) (domain.Initiative, error) {
	before, err := s.GetInitiative(ctx, id)
	if err != nil {
		return domain.Initiative{}, err
	}
	if s.clamp {
		progress = domain.ClampProgress(progress)
	}
	return s.mutateAndAudit(ctx, store.UpdateProgress{ID: id, Progress: progress}, map[string]string{
		"fields": "progress",
		"from":   strconv.Itoa(before.Progress),
		"to":     strconv.Itoa(progress),
	})
}

// UpdateKPIs replaces the KPI list of a record.
func (s *Service) UpdateKPIs(ctx context.Context, id int64, kpis []domain.KPI) (domain.Initiative, error) {
	if err := domain.ValidateKPIs(kpis); err != nil {
		return domain.Initiative{}, err
	}
	return s.mutateAndAudit(ctx, store.UpdateKPIs{ID: id, KPIs: kpis}, map[string]string{
		"fields": "kpis",
		"count":  strconv.Itoa(len(kpis)),
	})
}

// AddUpdate prepends a feed entry for an initiative, attributed to its owner.
func (s *Service) AddUpdate(ctx context.Context, id int64, message string, kind domain.UpdateType) (domain.Update, error) {
	initiative, err := s.GetInitiative(ctx, id)
	if err != nil {
		return domain.Update{}, err
	}
	return s.feed.add(domain.UpdateInput{
		Initiative: initiative.Title,
		Message:    message,
		User:       initiative.Owner,
		Type:       kind,
	}, s.clock())
}

// ListUpdates returns feed entries newest first.
func (s *Service) ListUpdates(_ context.Context, filter UpdateFilter) []domain.Update {
	return s.feed.list(filter)
}

// AuditLog returns the most recent limit entries in append order; limit <= 0 returns all.
func (s *Service) AuditLog(_ context.Context, limit int) []domain.AuditEntry {
	log := s.store.Snapshot().AuditLog
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return log
}

// ClearError dismisses the status banner.
func (s *Service) ClearError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.dispatch(store.SetError{Message: ""})
	return err
}

// mutateAndAudit dispatches a targeted action and audits it as an update.
func (s *Service) mutateAndAudit(ctx context.Context, action store.Action, changes map[string]string) (domain.Initiative, error) {
	res, err := s.mutate(ctx, action)
	if err != nil {
		return domain.Initiative{}, err
	}
	s.audit(ctx, domain.AuditUpdate, res.ID, changes)
	return s.GetInitiative(ctx, res.ID)
}

// mutate dispatches a targeted action and maps an unknown id to ErrNotFound.
func (s *Service) mutate(ctx context.Context, action store.Action) (store.Result, error) {
	if err := ctx.Err(); err != nil {
		return store.Result{}, err
	}
	res, err := s.dispatch(action)
	if err != nil {
		return res, err
	}
	if !res.Found {
		return res, fmt.Errorf("initiative %d: %w", res.ID, ErrNotFound)
	}
	return res, nil
}

// dispatch forwards to the store and reports the outcome to the observer.
func (s *Service) dispatch(action store.Action) (store.Result, error) {
	res, err := s.store.Dispatch(action)
	if s.observer != nil {
		s.observer.ObserveDispatch(action.Kind(), res, err)
	}
	if errors.Is(err, store.ErrInitiativeNotFound) {
		return res, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return res, err
}

// audit appends an entry attributed to the context actor.
func (s *Service) audit(ctx context.Context, action domain.AuditAction, initiativeID int64, changes map[string]string) {
	actor := s.actor(ctx)
	out := make(map[string]string, len(changes)+2)
	for key, value := range changes {
		out[key] = value
	}
	out["request_id"] = s.requestID(ctx)
	out["actor_type"] = string(actor.Type)
	_, _ = s.dispatch(store.AppendAudit{Entry: domain.AuditEntry{
		Action:       action,
		InitiativeID: initiativeID,
		User:         actor.Name,
		Changes:      out,
	}})
}

// actor resolves the audit identity for ctx.
func (s *Service) actor(ctx context.Context) Actor {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor
	}
	return Actor{Name: s.defaultUser, Type: ActorTypeUser}
}

// requestID returns the caller-supplied correlation id or a generated one.
func (s *Service) requestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return s.idGen()
}
