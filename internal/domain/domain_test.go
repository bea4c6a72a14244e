package domain

import (
	"errors"
	"slices"
	"testing"
	"time"
)

// TestNewInitiativeDefaults verifies the form defaults applied to a minimal input.
func TestNewInitiativeDefaults(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	in, err := NewInitiative(InitiativeInput{
		Title:        "  Leadership Development  ",
		Owner:        " Sarah Chen ",
		Objectives:   []string{" grow leaders ", "", "  "},
		Stakeholders: []string{"HR"},
	}, now)
	if err != nil {
		t.Fatalf("NewInitiative() error = %v", err)
	}
	if in.Title != "Leadership Development" || in.Owner != "Sarah Chen" {
		t.Fatalf("expected trimmed title/owner, got %q / %q", in.Title, in.Owner)
	}
	if in.Status != StatusOnTrack || in.Priority != PriorityMedium || in.Type != TypeStrategic || in.Stage != StageKickoff {
		t.Fatalf("unexpected defaults %+v", in)
	}
	if in.Budget.Currency != "USD" {
		t.Fatalf("expected USD currency, got %q", in.Budget.Currency)
	}
	if in.Timeline.Start != "2026-02-21" {
		t.Fatalf("expected start date today, got %q", in.Timeline.Start)
	}
	if len(in.Timeline.Phases) != 1 || in.Timeline.Phases[0] != (Phase{Name: "Planning", Duration: 4, Status: PhasePending}) {
		t.Fatalf("unexpected default phases %#v", in.Timeline.Phases)
	}
	if !slices.Equal(in.Objectives, []string{"grow leaders"}) {
		t.Fatalf("expected compacted objectives, got %#v", in.Objectives)
	}
	if in.Archived || in.ID != 0 {
		t.Fatalf("expected unarchived record without id, got %+v", in)
	}
}

// TestNewInitiativeValidation verifies invalid inputs map to sentinel errors.
func TestNewInitiativeValidation(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   InitiativeInput
		want error
	}{
		{name: "blank title", in: InitiativeInput{Title: "  "}, want: ErrInvalidTitle},
		{name: "progress high", in: InitiativeInput{Title: "x", Progress: 101}, want: ErrInvalidProgress},
		{name: "progress low", in: InitiativeInput{Title: "x", Progress: -1}, want: ErrInvalidProgress},
		{name: "status", in: InitiativeInput{Title: "x", Status: "paused"}, want: ErrInvalidStatus},
		{name: "priority", in: InitiativeInput{Title: "x", Priority: "urgent"}, want: ErrInvalidPriority},
		{name: "type", in: InitiativeInput{Title: "x", Type: "visionary"}, want: ErrInvalidType},
		{name: "stage", in: InitiativeInput{Title: "x", Stage: "done"}, want: ErrInvalidStage},
		{name: "due date", in: InitiativeInput{Title: "x", DueDate: "03/15/2026"}, want: ErrInvalidDate},
		{name: "project id", in: InitiativeInput{Title: "x", ProjectID: "PRJ-1"}, want: ErrInvalidProjectID},
		{name: "kpi", in: InitiativeInput{Title: "x", KPIs: []KPI{{Metric: "", Status: KPIOnTrack}}}, want: ErrInvalidKPI},
		{name: "phase", in: InitiativeInput{Title: "x", Timeline: Timeline{Phases: []Phase{{Name: "a", Duration: 0, Status: PhasePending}}}}, want: ErrInvalidPhase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewInitiative(tc.in, now); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// TestInitiativeCloneIsDeep verifies cloned records share no nested storage.
func TestInitiativeCloneIsDeep(t *testing.T) {
	orig := Initiative{
		ID:           1,
		Objectives:   []string{"a"},
		KPIs:         []KPI{{Metric: "m", Status: KPIOnTrack}},
		Integrations: []Integration{{Platform: "Workday", Requirements: []string{"sso"}}},
		Timeline:     Timeline{Phases: []Phase{{Name: "p", Duration: 1, Status: PhasePending}}},
	}
	cp := orig.Clone()
	cp.Objectives[0] = "b"
	cp.KPIs[0].Metric = "changed"
	cp.Integrations[0].Requirements[0] = "scim"
	cp.Timeline.Phases[0].Name = "q"
	if orig.Objectives[0] != "a" || orig.KPIs[0].Metric != "m" || orig.Integrations[0].Requirements[0] != "sso" || orig.Timeline.Phases[0].Name != "p" {
		t.Fatalf("clone aliased original: %+v", orig)
	}
}

// TestClampProgress verifies bounds handling.
func TestClampProgress(t *testing.T) {
	for in, want := range map[int]int{-20: 0, 0: 0, 55: 55, 100: 100, 150: 100} {
		if got := ClampProgress(in); got != want {
			t.Fatalf("ClampProgress(%d) = %d, want %d", in, got, want)
		}
	}
}

// TestProjectIDRoundTrip verifies formatting and parsing of project identifiers.
func TestProjectIDRoundTrip(t *testing.T) {
	id := FormatProjectID(2024, 5)
	if id != "HR-2024-005" {
		t.Fatalf("unexpected project id %q", id)
	}
	year, seq, err := ParseProjectID(id)
	if err != nil {
		t.Fatalf("ParseProjectID() error = %v", err)
	}
	if year != 2024 || seq != 5 {
		t.Fatalf("unexpected parse result %d/%d", year, seq)
	}
	for _, bad := range []string{"", "HR-24-001", "XX-2024-001", "HR-2024-0", "HR-2024-abc"} {
		if _, _, err := ParseProjectID(bad); !errors.Is(err, ErrInvalidProjectID) {
			t.Fatalf("ParseProjectID(%q) expected ErrInvalidProjectID, got %v", bad, err)
		}
	}
}

// TestBudgetAndTimelineHelpers verifies derived budget and schedule values.
func TestBudgetAndTimelineHelpers(t *testing.T) {
	b := Budget{Allocated: 100, Spent: 130, Currency: "USD"}
	if b.Remaining() != -30 || !b.Overspent() {
		t.Fatalf("unexpected budget helpers remaining=%v overspent=%v", b.Remaining(), b.Overspent())
	}
	tl := Timeline{Phases: []Phase{
		{Name: "Planning", Duration: 4, Status: PhaseCompleted},
		{Name: "Pilot", Duration: 6, Status: PhasePending},
		{Name: "Rollout", Duration: 8, Status: PhaseInProgress},
	}}
	if tl.TotalWeeks() != 18 {
		t.Fatalf("expected 18 weeks, got %d", tl.TotalWeeks())
	}
	current, ok := tl.CurrentPhase()
	if !ok || current.Name != "Rollout" {
		t.Fatalf("expected in-progress phase first, got %+v ok=%v", current, ok)
	}
}

// TestParseStatus verifies user input normalization.
func TestParseStatus(t *testing.T) {
	got, err := ParseStatus(" At Risk ")
	if err != nil || got != StatusAtRisk {
		t.Fatalf("ParseStatus() = %q, %v", got, err)
	}
	if _, err := ParseStatus("paused"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

// TestNewUpdate verifies feed entry normalization and validation.
func TestNewUpdate(t *testing.T) {
	now := time.Date(2026, 2, 23, 9, 0, 0, 0, time.FixedZone("x", 3600))
	up, err := NewUpdate(UpdateInput{ID: 3, Initiative: " DEI ", Message: " done ", User: "Ana"}, now)
	if err != nil {
		t.Fatalf("NewUpdate() error = %v", err)
	}
	if up.Type != UpdateComment || up.Message != "done" || up.Initiative != "DEI" {
		t.Fatalf("unexpected update %+v", up)
	}
	if up.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %s", up.Timestamp)
	}
	if _, err := NewUpdate(UpdateInput{ID: 0, Message: "x"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewUpdate(UpdateInput{ID: 1, Message: " "}, now); err != ErrInvalidUpdateText {
		t.Fatalf("expected ErrInvalidUpdateText, got %v", err)
	}
	if _, err := NewUpdate(UpdateInput{ID: 1, Message: "x", Type: "rumor"}, now); err != ErrInvalidUpdateType {
		t.Fatalf("expected ErrInvalidUpdateType, got %v", err)
	}
}

// TestChangedFields verifies only differing fields are reported.
func TestChangedFields(t *testing.T) {
	before := Initiative{ID: 1, Title: "a", Progress: 10, KPIs: []KPI{{Metric: "m"}}}
	after := before.Clone()
	after.Progress = 20
	after.KPIs[0].Current = "5"
	got := ChangedFields(before, after)
	if !slices.Equal(got, []string{"progress", "kpis"}) {
		t.Fatalf("unexpected changed fields %#v", got)
	}
	if len(ChangedFields(before, before.Clone())) != 0 {
		t.Fatal("expected no changes for identical records")
	}
}

// TestAuditEntryClone verifies the changes map is not shared.
func TestAuditEntryClone(t *testing.T) {
	e := AuditEntry{ID: 1, Action: AuditUpdate, Changes: map[string]string{"fields": "progress"}}
	cp := e.Clone()
	cp.Changes["fields"] = "title"
	if e.Changes["fields"] != "progress" {
		t.Fatal("clone aliased changes map")
	}
	if !IsValidAuditAction(AuditDelete) || IsValidAuditAction("purge") {
		t.Fatal("unexpected audit action validation")
	}
}
