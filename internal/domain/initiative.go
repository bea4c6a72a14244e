package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Priority ranks how urgently an initiative should be staffed.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// InitiativeType classifies the planning horizon of an initiative.
type InitiativeType string

const (
	TypeStrategic   InitiativeType = "strategic"
	TypeOperational InitiativeType = "operational"
	TypeTactical    InitiativeType = "tactical"
)

var validTypes = []InitiativeType{TypeStrategic, TypeOperational, TypeTactical}

// Stage is the delivery stage an initiative is in.
type Stage string

const (
	StageKickoff    Stage = "kickoff"
	StagePlanning   Stage = "planning"
	StageExecution  Stage = "execution"
	StageMonitoring Stage = "monitoring"
	StageClosing    Stage = "closing"
)

var validStages = []Stage{StageKickoff, StagePlanning, StageExecution, StageMonitoring, StageClosing}

// Status is the health signal reported for an initiative.
type Status string

const (
	StatusOnTrack   Status = "on-track"
	StatusAtRisk    Status = "at-risk"
	StatusDelayed   Status = "delayed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

var validStatuses = []Status{StatusOnTrack, StatusAtRisk, StatusDelayed, StatusCompleted, StatusCanceled}

// KPIStatus reports how a single KPI compares to its target.
type KPIStatus string

const (
	KPIOnTrack KPIStatus = "on-track"
	KPIAtRisk  KPIStatus = "at-risk"
	KPIBehind  KPIStatus = "behind"
)

var validKPIStatuses = []KPIStatus{KPIOnTrack, KPIAtRisk, KPIBehind}

// ResourceType identifies the kind of resource requirement.
type ResourceType string

const (
	ResourceHuman     ResourceType = "human"
	ResourceFinancial ResourceType = "financial"
	ResourceTime      ResourceType = "time"
)

// ResourceStatus tracks whether a resource has been secured.
type ResourceStatus string

const (
	ResourceAllocated ResourceStatus = "allocated"
	ResourcePending   ResourceStatus = "pending"
	ResourceAtRisk    ResourceStatus = "at-risk"
)

// DocumentType classifies linked documentation.
type DocumentType string

const (
	DocumentGuide    DocumentType = "guide"
	DocumentTemplate DocumentType = "template"
	DocumentPolicy   DocumentType = "policy"
)

// IntegrationStatus tracks the state of an external platform hookup.
type IntegrationStatus string

const (
	IntegrationConnected IntegrationStatus = "connected"
	IntegrationPending   IntegrationStatus = "pending"
	IntegrationFailed    IntegrationStatus = "failed"
)

// PhaseStatus tracks one timeline phase.
type PhaseStatus string

const (
	PhaseCompleted  PhaseStatus = "completed"
	PhaseInProgress PhaseStatus = "in-progress"
	PhasePending    PhaseStatus = "pending"
)

var validPhaseStatuses = []PhaseStatus{PhaseCompleted, PhaseInProgress, PhasePending}

// dateLayout is the calendar-date format used for due dates and timelines.
const dateLayout = "2006-01-02"

// ProjectIDPrefix prefixes every generated project identifier.
const ProjectIDPrefix = "HR"

// KPI is one measurable objective attached to an initiative.
type KPI struct {
	Metric  string    `json:"metric" yaml:"metric"`
	Target  string    `json:"target" yaml:"target"`
	Current string    `json:"current" yaml:"current"`
	Status  KPIStatus `json:"status" yaml:"status"`
}

// Resource is one resource requirement.
type Resource struct {
	Type        ResourceType   `json:"type" yaml:"type"`
	Description string         `json:"description" yaml:"description"`
	Allocation  string         `json:"allocation" yaml:"allocation"`
	Status      ResourceStatus `json:"status" yaml:"status"`
}

// TimeEntry records hours logged against an initiative task.
type TimeEntry struct {
	Task  string  `json:"task" yaml:"task"`
	Hours float64 `json:"hours" yaml:"hours"`
	Date  string  `json:"date" yaml:"date"`
	User  string  `json:"user" yaml:"user"`
}

// Document links supporting documentation.
type Document struct {
	Title string       `json:"title" yaml:"title"`
	Type  DocumentType `json:"type" yaml:"type"`
	URL   string       `json:"url" yaml:"url"`
}

// Integration describes a dependency on an external platform.
type Integration struct {
	Platform     string            `json:"platform" yaml:"platform"`
	Requirements []string          `json:"requirements" yaml:"requirements"`
	Status       IntegrationStatus `json:"status" yaml:"status"`
}

// Budget tracks allocated and spent funds. Spent may exceed Allocated.
type Budget struct {
	Allocated float64 `json:"allocated" yaml:"allocated"`
	Spent     float64 `json:"spent" yaml:"spent"`
	Currency  string  `json:"currency" yaml:"currency"`
}

// Remaining returns allocated minus spent; negative when overspent.
func (b Budget) Remaining() float64 {
	return b.Allocated - b.Spent
}

// Overspent reports whether spending exceeds the allocation.
func (b Budget) Overspent() bool {
	return b.Spent > b.Allocated
}

// Phase is one timeline phase; Duration is in weeks.
type Phase struct {
	Name     string      `json:"name" yaml:"name"`
	Duration int         `json:"duration" yaml:"duration"`
	Status   PhaseStatus `json:"status" yaml:"status"`
}

// Timeline holds the planned schedule of an initiative.
type Timeline struct {
	Start               string  `json:"start" yaml:"start"`
	EstimatedCompletion string  `json:"estimatedCompletion" yaml:"estimatedCompletion"`
	Phases              []Phase `json:"phases" yaml:"phases"`
}

// TotalWeeks sums the duration of every phase.
func (t Timeline) TotalWeeks() int {
	total := 0
	for _, phase := range t.Phases {
		total += phase.Duration
	}
	return total
}

// CurrentPhase returns the first in-progress phase, falling back to the first pending one.
func (t Timeline) CurrentPhase() (Phase, bool) {
	for _, phase := range t.Phases {
		if phase.Status == PhaseInProgress {
			return phase, true
		}
	}
	for _, phase := range t.Phases {
		if phase.Status == PhasePending {
			return phase, true
		}
	}
	return Phase{}, false
}

// Initiative is a tracked project or program record.
type Initiative struct {
	ID                   int64          `json:"id" yaml:"id"`
	ProjectID            string         `json:"projectId" yaml:"projectId"`
	Title                string         `json:"title" yaml:"title"`
	Owner                string         `json:"owner" yaml:"owner"`
	Progress             int            `json:"progress" yaml:"progress"`
	Status               Status         `json:"status" yaml:"status"`
	DueDate              string         `json:"dueDate" yaml:"dueDate"`
	Department           string         `json:"department" yaml:"department"`
	Description          string         `json:"description" yaml:"description"`
	Category             string         `json:"category" yaml:"category"`
	Priority             Priority       `json:"priority" yaml:"priority"`
	Type                 InitiativeType `json:"type" yaml:"type"`
	Stage                Stage          `json:"stage" yaml:"stage"`
	Archived             bool           `json:"archived" yaml:"archived"`
	Objectives           []string       `json:"objectives" yaml:"objectives"`
	Stakeholders         []string       `json:"stakeholders" yaml:"stakeholders"`
	KPIs                 []KPI          `json:"kpis" yaml:"kpis"`
	ResourceRequirements []Resource     `json:"resourceRequirements" yaml:"resourceRequirements"`
	TimeTracking         []TimeEntry    `json:"timeTracking" yaml:"timeTracking"`
	Documentation        []Document     `json:"documentation" yaml:"documentation"`
	Integrations         []Integration  `json:"integrations" yaml:"integrations"`
	Budget               Budget         `json:"budget" yaml:"budget"`
	Timeline             Timeline       `json:"timeline" yaml:"timeline"`
}

// InitiativeInput holds the caller-supplied fields of a new initiative.
type InitiativeInput struct {
	ProjectID            string
	Title                string
	Owner                string
	Progress             int
	Status               Status
	DueDate              string
	Department           string
	Description          string
	Category             string
	Priority             Priority
	Type                 InitiativeType
	Stage                Stage
	Objectives           []string
	Stakeholders         []string
	KPIs                 []KPI
	ResourceRequirements []Resource
	TimeTracking         []TimeEntry
	Documentation        []Document
	Integrations         []Integration
	Budget               Budget
	Timeline             Timeline
}

// NewInitiative validates input and applies the defaults of the new-initiative form.
// The returned record has no id; the store assigns one on Add.
func NewInitiative(in InitiativeInput, now time.Time) (Initiative, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Initiative{}, ErrInvalidTitle
	}
	if in.Progress < 0 || in.Progress > 100 {
		return Initiative{}, ErrInvalidProgress
	}
	if in.Status == "" {
		in.Status = StatusOnTrack
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Type == "" {
		in.Type = TypeStrategic
	}
	if in.Stage == "" {
		in.Stage = StageKickoff
	}
	if !IsValidStatus(in.Status) {
		return Initiative{}, ErrInvalidStatus
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Initiative{}, ErrInvalidPriority
	}
	if !slices.Contains(validTypes, in.Type) {
		return Initiative{}, ErrInvalidType
	}
	if !slices.Contains(validStages, in.Stage) {
		return Initiative{}, ErrInvalidStage
	}
	in.DueDate = strings.TrimSpace(in.DueDate)
	if err := validateDate(in.DueDate); err != nil {
		return Initiative{}, err
	}
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	if in.ProjectID != "" {
		if _, _, err := ParseProjectID(in.ProjectID); err != nil {
			return Initiative{}, err
		}
	}
	if err := ValidateKPIs(in.KPIs); err != nil {
		return Initiative{}, err
	}

	timeline := in.Timeline
	timeline.Start = strings.TrimSpace(timeline.Start)
	if timeline.Start == "" {
		timeline.Start = now.UTC().Format(dateLayout)
	}
	if err := validateDate(timeline.Start); err != nil {
		return Initiative{}, err
	}
	timeline.EstimatedCompletion = strings.TrimSpace(timeline.EstimatedCompletion)
	if err := validateDate(timeline.EstimatedCompletion); err != nil {
		return Initiative{}, err
	}
	if len(timeline.Phases) == 0 {
		timeline.Phases = []Phase{{Name: "Planning", Duration: 4, Status: PhasePending}}
	}
	if err := ValidatePhases(timeline.Phases); err != nil {
		return Initiative{}, err
	}

	budget := in.Budget
	budget.Currency = strings.ToUpper(strings.TrimSpace(budget.Currency))
	if budget.Currency == "" {
		budget.Currency = "USD"
	}

	out := Initiative{
		ProjectID:            in.ProjectID,
		Title:                in.Title,
		Owner:                strings.TrimSpace(in.Owner),
		Progress:             in.Progress,
		Status:               in.Status,
		DueDate:              in.DueDate,
		Department:           strings.TrimSpace(in.Department),
		Description:          strings.TrimSpace(in.Description),
		Category:             strings.TrimSpace(in.Category),
		Priority:             in.Priority,
		Type:                 in.Type,
		Stage:                in.Stage,
		Objectives:           compactStrings(in.Objectives),
		Stakeholders:         compactStrings(in.Stakeholders),
		KPIs:                 in.KPIs,
		ResourceRequirements: in.ResourceRequirements,
		TimeTracking:         in.TimeTracking,
		Documentation:        in.Documentation,
		Integrations:         in.Integrations,
		Budget:               budget,
		Timeline:             timeline,
	}
	return out.Clone(), nil
}

// Validate checks the descriptive fields of a stored record. Progress is not
// checked here; out-of-range values are flagged by the store.
func (i Initiative) Validate() error {
	if i.ID <= 0 {
		return ErrInvalidID
	}
	if strings.TrimSpace(i.Title) == "" {
		return ErrInvalidTitle
	}
	if !IsValidStatus(i.Status) {
		return ErrInvalidStatus
	}
	if i.Priority != "" && !slices.Contains(validPriorities, i.Priority) {
		return ErrInvalidPriority
	}
	if i.Type != "" && !slices.Contains(validTypes, i.Type) {
		return ErrInvalidType
	}
	if i.Stage != "" && !slices.Contains(validStages, i.Stage) {
		return ErrInvalidStage
	}
	if err := validateDate(i.DueDate); err != nil {
		return err
	}
	if err := ValidateKPIs(i.KPIs); err != nil {
		return err
	}
	return ValidatePhases(i.Timeline.Phases)
}

// ProgressInRange reports whether progress lies in [0,100].
func (i Initiative) ProgressInRange() bool {
	return i.Progress >= 0 && i.Progress <= 100
}

// InProgress reports whether work has started but not finished.
func (i Initiative) InProgress() bool {
	return i.Progress > 0 && i.Progress < 100
}

// Clone returns a deep copy that shares no slices with the receiver.
func (i Initiative) Clone() Initiative {
	out := i
	out.Objectives = slices.Clone(i.Objectives)
	out.Stakeholders = slices.Clone(i.Stakeholders)
	out.KPIs = slices.Clone(i.KPIs)
	out.ResourceRequirements = slices.Clone(i.ResourceRequirements)
	out.TimeTracking = slices.Clone(i.TimeTracking)
	out.Documentation = slices.Clone(i.Documentation)
	if i.Integrations != nil {
		out.Integrations = make([]Integration, len(i.Integrations))
		for idx, integration := range i.Integrations {
			integration.Requirements = slices.Clone(integration.Requirements)
			out.Integrations[idx] = integration
		}
	}
	out.Timeline.Phases = slices.Clone(i.Timeline.Phases)
	return out
}

// CloneInitiatives deep-copies a collection.
func CloneInitiatives(in []Initiative) []Initiative {
	if in == nil {
		return nil
	}
	out := make([]Initiative, len(in))
	for idx, initiative := range in {
		out[idx] = initiative.Clone()
	}
	return out
}

// ClampProgress bounds a progress value to [0,100].
func ClampProgress(progress int) int {
	return min(100, max(0, progress))
}

// IsValidStatus reports whether status is a known value.
func IsValidStatus(status Status) bool {
	return slices.Contains(validStatuses, status)
}

// ParseStatus normalizes user input into a status value.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	status = Status(strings.ReplaceAll(string(status), " ", "-"))
	if !IsValidStatus(status) {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// ParsePriority normalizes user input into a priority value.
func ParsePriority(raw string) (Priority, error) {
	priority := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(validPriorities, priority) {
		return "", ErrInvalidPriority
	}
	return priority, nil
}

// ValidateKPIs checks every KPI has a metric and a known status.
func ValidateKPIs(kpis []KPI) error {
	for idx, kpi := range kpis {
		if strings.TrimSpace(kpi.Metric) == "" {
			return fmt.Errorf("kpis[%d]: metric is required: %w", idx, ErrInvalidKPI)
		}
		if !slices.Contains(validKPIStatuses, kpi.Status) {
			return fmt.Errorf("kpis[%d]: status %q: %w", idx, kpi.Status, ErrInvalidKPI)
		}
	}
	return nil
}

// ValidatePhases checks every phase is named, has a positive duration and a known status.
func ValidatePhases(phases []Phase) error {
	for idx, phase := range phases {
		if strings.TrimSpace(phase.Name) == "" {
			return fmt.Errorf("phases[%d]: name is required: %w", idx, ErrInvalidPhase)
		}
		if phase.Duration <= 0 {
			return fmt.Errorf("phases[%d]: duration must be positive: %w", idx, ErrInvalidPhase)
		}
		if !slices.Contains(validPhaseStatuses, phase.Status) {
			return fmt.Errorf("phases[%d]: status %q: %w", idx, phase.Status, ErrInvalidPhase)
		}
	}
	return nil
}

// FormatProjectID renders HR-<year>-<sequence>.
func FormatProjectID(year int, sequence int64) string {
	return fmt.Sprintf("%s-%d-%03d", ProjectIDPrefix, year, sequence)
}

// ParseProjectID splits a project identifier into year and sequence.
func ParseProjectID(raw string) (int, int64, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 3 || parts[0] != ProjectIDPrefix {
		return 0, 0, ErrInvalidProjectID
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return 0, 0, ErrInvalidProjectID
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq <= 0 {
		return 0, 0, ErrInvalidProjectID
	}
	return year, seq, nil
}

// validateDate accepts an empty string or a YYYY-MM-DD date.
func validateDate(raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return fmt.Errorf("%q: %w", raw, ErrInvalidDate)
	}
	return nil
}

// compactStrings trims entries and drops blanks while keeping order.
func compactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}
