package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
)

// fakeSeed implements SeedSource with a fixed dataset or error.
type fakeSeed struct {
	seed  Seed
	err   error
	calls int
}

func (f *fakeSeed) LoadSeed(context.Context) (Seed, error) {
	f.calls++
	if f.err != nil {
		return Seed{}, f.err
	}
	return f.seed, nil
}

// recordingObserver captures dispatched kinds.
type recordingObserver struct {
	mu    sync.Mutex
	kinds []store.Kind
	errs  int
}

func (r *recordingObserver) ObserveDispatch(kind store.Kind, _ store.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	if err != nil {
		r.errs++
	}
}

var testNow = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

func testSeed() Seed {
	return Seed{
		Initiatives: []domain.Initiative{
			{ID: 1, ProjectID: "HR-2024-001", Title: "Leadership Development", Owner: "Sarah Chen", Department: "Learning & Development", Progress: 75, Status: domain.StatusOnTrack, DueDate: "2024-06-30", Priority: domain.PriorityHigh},
			{ID: 2, ProjectID: "HR-2024-002", Title: "Employee Wellness", Owner: "Michael Rodriguez", Department: "Benefits", Progress: 45, Status: domain.StatusAtRisk, DueDate: "2024-08-15", Priority: domain.PriorityMedium, Budget: domain.Budget{Allocated: 100, Spent: 150, Currency: "USD"}},
			{ID: 4, ProjectID: "HR-2024-004", Title: "DEI Training", Owner: "Aisha Patel", Department: "Learning & Development", Progress: 0, Status: domain.StatusDelayed, DueDate: "2024-05-01", Priority: domain.PriorityLow},
		},
		Updates: []domain.Update{
			{ID: 1, Initiative: "Leadership Development", Message: "Kickoff done", Timestamp: testNow.Add(-2 * time.Hour), User: "Sarah Chen", Type: domain.UpdateMilestone},
			{ID: 2, Initiative: "Employee Wellness", Message: "Vendor review", Timestamp: testNow.Add(-time.Hour), User: "Michael Rodriguez", Type: domain.UpdateComment},
		},
	}
}

// newTestService returns a bootstrapped service and its store.
func newTestService(t *testing.T, cfg ServiceConfig, opts ...store.Option) (*Service, *store.Store) {
	t.Helper()
	st := store.New(append([]store.Option{store.WithClock(func() time.Time { return testNow })}, opts...)...)
	n := 0
	idGen := func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
	svc := NewService(st, idGen, func() time.Time { return testNow }, cfg)
	if err := svc.Bootstrap(context.Background(), &fakeSeed{seed: testSeed()}); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return svc, st
}

// TestBootstrapInitializesStore verifies seed loading clears the loading flag.
func TestBootstrapInitializesStore(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	state := svc.State(context.Background())
	if state.Loading || state.HasError() || len(state.Initiatives) != 3 {
		t.Fatalf("unexpected state after bootstrap %#v", state)
	}
	ups := svc.ListUpdates(context.Background(), UpdateFilter{})
	if len(ups) != 2 || ups[0].ID != 2 {
		t.Fatalf("expected feed newest first, got %#v", ups)
	}
}

// TestBootstrapSeedFailureSetsError verifies load failures surface in state.
func TestBootstrapSeedFailureSetsError(t *testing.T) {
	st := store.New()
	svc := NewService(st, nil, nil, ServiceConfig{})
	err := svc.Bootstrap(context.Background(), &fakeSeed{err: errors.New("disk gone")})
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("expected wrapped seed error, got %v", err)
	}
	state := st.Snapshot()
	if state.Loading || !strings.Contains(state.Error, "disk gone") {
		t.Fatalf("expected error state, got %#v", state)
	}
	if err := svc.Bootstrap(context.Background(), nil); !errors.Is(err, ErrSeedUnavailable) {
		t.Fatalf("expected ErrSeedUnavailable, got %v", err)
	}
}

// TestCreateInitiativeAssignsIDAuditsAndAnnounces verifies the create flow.
func TestCreateInitiativeAssignsIDAuditsAndAnnounces(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{DefaultUser: "hr-admin"})
	ctx := WithActor(context.Background(), Actor{Name: " Dana ", Type: "AGENT"})
	created, err := svc.CreateInitiative(ctx, CreateInitiativeInput{Title: "Onboarding Revamp", Owner: "Lee Park", Department: "People Ops"})
	if err != nil {
		t.Fatalf("CreateInitiative() error = %v", err)
	}
	if created.ID != 5 {
		t.Fatalf("expected id 5 after max seed id 4, got %d", created.ID)
	}
	if created.ProjectID != "HR-2026-005" || created.Status != domain.StatusOnTrack {
		t.Fatalf("unexpected created record %#v", created)
	}

	log := svc.AuditLog(context.Background(), 0)
	if len(log) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(log))
	}
	entry := log[0]
	if entry.Action != domain.AuditCreate || entry.InitiativeID != 5 || entry.User != "Dana" {
		t.Fatalf("unexpected audit entry %#v", entry)
	}
	if entry.Changes["request_id"] != "req-1" || entry.Changes["actor_type"] != "agent" {
		t.Fatalf("unexpected audit changes %#v", entry.Changes)
	}

	ups := svc.ListUpdates(context.Background(), UpdateFilter{Limit: 1})
	if len(ups) != 1 || ups[0].Message != "New initiative created" || ups[0].User != "Lee Park" || ups[0].Type != domain.UpdateStatus || ups[0].ID != 3 {
		t.Fatalf("unexpected feed head %#v", ups)
	}

	if _, err := svc.CreateInitiative(ctx, CreateInitiativeInput{Title: " "}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

// TestArchiveRestoreAndNotFound verifies targeted mutations and error mapping.
func TestArchiveRestoreAndNotFound(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	archived, err := svc.ArchiveInitiative(ctx, 1)
	if err != nil {
		t.Fatalf("ArchiveInitiative() error = %v", err)
	}
	if !archived.Archived {
		t.Fatal("expected archived record")
	}
	list, err := svc.ListInitiatives(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListInitiatives() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected archived record hidden, got %d", len(list))
	}
	restored, err := svc.RestoreInitiative(ctx, 1)
	if err != nil || restored.Archived {
		t.Fatalf("RestoreInitiative() = %#v, %v", restored, err)
	}
	if _, err := svc.ArchiveInitiative(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := len(svc.AuditLog(ctx, 0)); got != 2 {
		t.Fatalf("expected 2 audit entries, got %d", got)
	}
}

// TestNotFoundUnderReportPolicy verifies the store's not-found error maps to ErrNotFound.
func TestNotFoundUnderReportPolicy(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{}, store.WithMissingPolicy(store.MissingReport))
	_, err := svc.UpdateKPIs(context.Background(), 77, nil)
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, store.ErrInitiativeNotFound) {
		t.Fatalf("expected ErrNotFound wrapping store error, got %v", err)
	}
}

// TestUpdateProgressClampAndAdvisory verifies clamping and the advisory banner.
func TestUpdateProgressClampAndAdvisory(t *testing.T) {
	ctx := context.Background()

	raw, _ := newTestService(t, ServiceConfig{})
	got, err := raw.UpdateProgress(ctx, 1, 150)
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if got.Progress != 150 {
		t.Fatalf("expected unclamped progress, got %d", got.Progress)
	}
	if raw.State(ctx).Error != "Invalid progress value for initiative 1" {
		t.Fatalf("unexpected banner %q", raw.State(ctx).Error)
	}
	entry := raw.AuditLog(ctx, 1)[0]
	if entry.Changes["from"] != "75" || entry.Changes["to"] != "150" {
		t.Fatalf("unexpected progress audit %#v", entry.Changes)
	}

	clamped, _ := newTestService(t, ServiceConfig{ClampProgress: true})
	got, err = clamped.UpdateProgress(ctx, 1, 150)
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if got.Progress != 100 || clamped.State(ctx).HasError() {
		t.Fatalf("expected clamped progress without error, got %d / %q", got.Progress, clamped.State(ctx).Error)
	}

	if err := raw.ClearError(ctx); err != nil {
		t.Fatalf("ClearError() error = %v", err)
	}
	if raw.State(ctx).HasError() {
		t.Fatal("expected banner cleared")
	}
}

// TestUpdateProgressRejected verifies reject mode surfaces a validation error.
func TestUpdateProgressRejected(t *testing.T) {
	obs := &recordingObserver{}
	svc, _ := newTestService(t, ServiceConfig{Observer: obs}, store.WithValidationMode(store.ValidateReject))
	_, err := svc.UpdateProgress(context.Background(), 2, -10)
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *store.ValidationError, got %v", err)
	}
	got, _ := svc.GetInitiative(context.Background(), 2)
	if got.Progress != 45 {
		t.Fatalf("expected progress unchanged, got %d", got.Progress)
	}
	if len(svc.AuditLog(context.Background(), 0)) != 0 {
		t.Fatal("expected no audit entry for rejected mutation")
	}
	if obs.errs != 1 {
		t.Fatalf("expected observer to see one failed dispatch, got %d", obs.errs)
	}
}

// TestUpdateInitiativeAuditsChangedFields verifies full replacement flow.
func TestUpdateInitiativeAuditsChangedFields(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := WithRequestID(context.Background(), "call-42")
	current, err := svc.GetInitiative(ctx, 2)
	if err != nil {
		t.Fatalf("GetInitiative() error = %v", err)
	}
	current.Title = "Employee Wellbeing"
	current.Status = domain.StatusOnTrack
	current.ProjectID = ""
	updated, err := svc.UpdateInitiative(ctx, current)
	if err != nil {
		t.Fatalf("UpdateInitiative() error = %v", err)
	}
	if updated.ProjectID != "HR-2024-002" {
		t.Fatalf("expected project id preserved, got %q", updated.ProjectID)
	}
	entry := svc.AuditLog(ctx, 1)[0]
	if entry.Changes["fields"] != "title,status" || entry.Changes["request_id"] != "call-42" {
		t.Fatalf("unexpected audit changes %#v", entry.Changes)
	}
	ups := svc.ListUpdates(ctx, UpdateFilter{Initiative: "employee wellbeing"})
	if len(ups) != 1 {
		t.Fatalf("expected feed retitled to new name, got %#v", ups)
	}

	current.Status = "paused"
	if _, err := svc.UpdateInitiative(ctx, current); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	current.ID = 999
	current.Status = domain.StatusOnTrack
	if _, err := svc.UpdateInitiative(ctx, current); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestDeleteInitiative verifies hard delete and its audit entry.
func TestDeleteInitiative(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	if err := svc.DeleteInitiative(ctx, 4); err != nil {
		t.Fatalf("DeleteInitiative() error = %v", err)
	}
	if _, err := svc.GetInitiative(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted record missing, got %v", err)
	}
	entry := svc.AuditLog(ctx, 1)[0]
	if entry.Action != domain.AuditDelete || entry.Changes["title"] != "DEI Training" || entry.User != DefaultUser {
		t.Fatalf("unexpected delete audit %#v", entry)
	}
	if err := svc.DeleteInitiative(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// TestUpdateKPIsValidates verifies KPI validation and replacement.
func TestUpdateKPIsValidates(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	kpis := []domain.KPI{{Metric: "Participation", Target: "80%", Current: "60%", Status: domain.KPIAtRisk}}
	got, err := svc.UpdateKPIs(ctx, 1, kpis)
	if err != nil {
		t.Fatalf("UpdateKPIs() error = %v", err)
	}
	if len(got.KPIs) != 1 || got.KPIs[0].Metric != "Participation" {
		t.Fatalf("unexpected kpis %#v", got.KPIs)
	}
	if _, err := svc.UpdateKPIs(ctx, 1, []domain.KPI{{Metric: "x", Status: "great"}}); !errors.Is(err, domain.ErrInvalidKPI) {
		t.Fatalf("expected ErrInvalidKPI, got %v", err)
	}
}

// TestAddUpdateUsesInitiativeTitleAndOwner verifies feed attribution.
func TestAddUpdateUsesInitiativeTitleAndOwner(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	up, err := svc.AddUpdate(ctx, 4, " Trainer booked ", domain.UpdateMilestone)
	if err != nil {
		t.Fatalf("AddUpdate() error = %v", err)
	}
	if up.Initiative != "DEI Training" || up.User != "Aisha Patel" || up.Message != "Trainer booked" || up.ID != 3 {
		t.Fatalf("unexpected update %#v", up)
	}
	if head := svc.ListUpdates(ctx, UpdateFilter{})[0]; head.ID != up.ID {
		t.Fatalf("expected new update at head, got %#v", head)
	}
	if _, err := svc.AddUpdate(ctx, 50, "x", domain.UpdateComment); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.AddUpdate(ctx, 4, "", domain.UpdateComment); !errors.Is(err, domain.ErrInvalidUpdateText) {
		t.Fatalf("expected ErrInvalidUpdateText, got %v", err)
	}
}

// TestObserverSeesEveryDispatch verifies the observer hook.
func TestObserverSeesEveryDispatch(t *testing.T) {
	obs := &recordingObserver{}
	svc, _ := newTestService(t, ServiceConfig{Observer: obs})
	if _, err := svc.ArchiveInitiative(context.Background(), 1); err != nil {
		t.Fatalf("ArchiveInitiative() error = %v", err)
	}
	want := []store.Kind{store.KindInitialize, store.KindArchive, store.KindAppendAudit}
	if fmt.Sprint(obs.kinds) != fmt.Sprint(want) {
		t.Fatalf("unexpected observed kinds %v", obs.kinds)
	}
}

// TestCanceledContext verifies mutations honor cancellation.
func TestCanceledContext(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ArchiveInitiative(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
