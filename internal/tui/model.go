package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
)

// Service is the slice of the application service the dashboard drives.
type Service interface {
	State(context.Context) store.State
	ListInitiatives(context.Context, app.Filter) ([]domain.Initiative, error)
	DashboardMetrics(context.Context) app.DashboardMetrics
	Departments(context.Context) []string
	ListUpdates(context.Context, app.UpdateFilter) []domain.Update
	ArchiveInitiative(context.Context, int64) (domain.Initiative, error)
	RestoreInitiative(context.Context, int64) (domain.Initiative, error)
	UpdateProgress(context.Context, int64, int) (domain.Initiative, error)
	AddUpdate(context.Context, int64, string, domain.UpdateType) (domain.Update, error)
	ClearError(context.Context) error
}

// inputMode selects which text input owns key presses.
type inputMode int

const (
	modeNone inputMode = iota
	modeSearch
	modeAddUpdate
)

// viewCycle is the order the view key steps through.
var viewCycle = []app.View{app.ViewAll, app.ViewOnTrack, app.ViewInProgress}

type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error
	status string

	help help.Model
	keys keyMap

	initiatives []domain.Initiative
	metrics     app.DashboardMetrics
	departments []string
	updates     []domain.Update
	storeError  string
	loading     bool

	selected     int
	pendingID    int64
	showDetail   bool
	view         app.View
	department   int // 0 means every department
	sortIdx      int
	descending   bool
	showArchived bool
	query        string

	mode        inputMode
	searchInput textinput.Model
	updateInput textinput.Model

	progressStep  int
	recentUpdates int
	markdownWrap  int
	markdown      *markdownRenderer
	copyText      func(string) error
	actor         app.Actor
}

// loadedMsg carries one refresh of the dashboard data.
type loadedMsg struct {
	initiatives []domain.Initiative
	metrics     app.DashboardMetrics
	departments []string
	updates     []domain.Update
	storeError  string
	loading     bool
	err         error
}

// actionMsg reports the outcome of one mutation.
type actionMsg struct {
	status  string
	err     error
	focusID int64
}

// NewModel constructs a dashboard over svc.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := textinput.New()
	searchInput.Prompt = "search: "
	searchInput.Placeholder = "title, department, owner"
	searchInput.CharLimit = 120
	updateInput := textinput.New()
	updateInput.Prompt = "update: "
	updateInput.Placeholder = "what changed?"
	updateInput.CharLimit = 500

	defaults := DefaultDashboardConfig()
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		view:          defaults.DefaultView,
		sortIdx:       sortIndex(defaults.DefaultSort),
		searchInput:   searchInput,
		updateInput:   updateInput,
		progressStep:  defaults.ProgressStep,
		recentUpdates: defaults.RecentUpdates,
		markdownWrap:  defaults.MarkdownWrap,
		markdown:      &markdownRenderer{},
		copyText:      clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init loads the first snapshot.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update applies one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.initiatives = msg.initiatives
		m.metrics = msg.metrics
		m.departments = msg.departments
		m.updates = msg.updates
		m.storeError = msg.storeError
		m.loading = msg.loading
		if m.department > len(m.departments) {
			m.department = 0
		}
		if m.pendingID != 0 {
			m.focusInitiative(m.pendingID)
			m.pendingID = 0
		}
		m.selected = clamp(m.selected, 0, len(m.initiatives)-1)
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		switch {
		case msg.err != nil:
			m.status = msg.err.Error()
		case msg.status != "":
			m.status = msg.status
		}
		m.pendingID = msg.focusID
		return m, m.loadData

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// View renders the dashboard.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// filter builds the list filter from the current table state.
func (m Model) filter() app.Filter {
	return app.Filter{
		View:            m.view,
		Department:      m.departmentName(),
		Query:           m.query,
		IncludeArchived: m.showArchived,
		SortBy:          m.sortField(),
		Descending:      m.descending,
	}
}

// loadData reads the filtered table plus header and feed data.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	initiatives, err := m.svc.ListInitiatives(ctx, m.filter())
	if err != nil {
		return loadedMsg{err: err}
	}
	state := m.svc.State(ctx)
	return loadedMsg{
		initiatives: initiatives,
		metrics:     m.svc.DashboardMetrics(ctx),
		departments: m.svc.Departments(ctx),
		updates:     m.svc.ListUpdates(ctx, app.UpdateFilter{}),
		storeError:  state.Error,
		loading:     state.Loading,
	}
}

// actionContext attributes mutations when an actor is configured.
func (m Model) actionContext() context.Context {
	ctx := context.Background()
	if strings.TrimSpace(m.actor.Name) != "" {
		ctx = app.WithActor(ctx, m.actor)
	}
	return ctx
}

func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			return m, nil
		}
		if m.showDetail {
			m.showDetail = false
			return m, nil
		}
		if m.query != "" {
			m.query = ""
			m.status = "search cleared"
			return m, m.loadData
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.moveDown):
		if m.selected < len(m.initiatives)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.toggleDetail):
		if _, ok := m.selectedInitiative(); !ok {
			m.status = "no initiative selected"
			return m, nil
		}
		m.showDetail = !m.showDetail
		return m, nil
	case key.Matches(msg, m.keys.nextView):
		idx := slices.Index(viewCycle, m.view)
		m.view = viewCycle[(idx+1)%len(viewCycle)]
		m.status = "view: " + string(m.view)
		return m.reloadKeepingSelection()
	case key.Matches(msg, m.keys.nextDepartment):
		m.department = (m.department + 1) % (len(m.departments) + 1)
		m.status = "department: " + m.departmentLabel()
		return m.reloadKeepingSelection()
	case key.Matches(msg, m.keys.cycleSort):
		m.sortIdx = (m.sortIdx + 1) % len(app.SortFields())
		m.status = "sort: " + m.sortLabel()
		return m.reloadKeepingSelection()
	case key.Matches(msg, m.keys.toggleOrder):
		m.descending = !m.descending
		m.status = "sort: " + m.sortLabel()
		return m.reloadKeepingSelection()
	case key.Matches(msg, m.keys.toggleArchived):
		m.showArchived = !m.showArchived
		if m.showArchived {
			m.status = "showing archived"
		} else {
			m.status = "hiding archived"
		}
		return m.reloadKeepingSelection()
	case key.Matches(msg, m.keys.search):
		m.mode = modeSearch
		m.searchInput.SetValue(m.query)
		m.searchInput.CursorEnd()
		m.status = "search"
		cmd := m.searchInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.addUpdate):
		if _, ok := m.selectedInitiative(); !ok {
			m.status = "no initiative selected"
			return m, nil
		}
		m.mode = modeAddUpdate
		m.updateInput.Reset()
		m.status = "post update"
		cmd := m.updateInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.archive):
		return m.archiveSelected()
	case key.Matches(msg, m.keys.restore):
		return m.restoreSelected()
	case key.Matches(msg, m.keys.progressUp):
		return m.stepProgress(m.progressStep)
	case key.Matches(msg, m.keys.progressDown):
		return m.stepProgress(-m.progressStep)
	case key.Matches(msg, m.keys.copyProjectID):
		return m.copySelectedProjectID()
	case key.Matches(msg, m.keys.clearError):
		if m.storeError == "" {
			return m, nil
		}
		svc := m.svc
		ctx := m.actionContext()
		return m, func() tea.Msg {
			return actionMsg{err: svc.ClearError(ctx), status: "error dismissed"}
		}
	default:
		return m, nil
	}
}

func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.searchInput.Blur()
		m.updateInput.Blur()
		m.status = "cancelled"
		return m, nil
	case "enter":
		return m.submitInputMode()
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case modeAddUpdate:
		m.updateInput, cmd = m.updateInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submitInputMode() (tea.Model, tea.Cmd) {
	mode := m.mode
	m.mode = modeNone
	switch mode {
	case modeSearch:
		m.searchInput.Blur()
		m.query = strings.TrimSpace(m.searchInput.Value())
		m.selected = 0
		if m.query == "" {
			m.status = "search cleared"
		} else {
			m.status = "search: " + m.query
		}
		return m, m.loadData
	case modeAddUpdate:
		m.updateInput.Blur()
		message := strings.TrimSpace(m.updateInput.Value())
		initiative, ok := m.selectedInitiative()
		if !ok || message == "" {
			m.status = "update discarded"
			return m, nil
		}
		svc := m.svc
		ctx := m.actionContext()
		return m, func() tea.Msg {
			if _, err := svc.AddUpdate(ctx, initiative.ID, message, domain.UpdateComment); err != nil {
				return actionMsg{err: fmt.Errorf("post update: %w", err)}
			}
			return actionMsg{status: "posted update to " + truncate(initiative.Title, 32), focusID: initiative.ID}
		}
	}
	return m, nil
}

func (m Model) archiveSelected() (tea.Model, tea.Cmd) {
	initiative, ok := m.selectedInitiative()
	if !ok {
		m.status = "no initiative selected"
		return m, nil
	}
	if initiative.Archived {
		m.status = "already archived"
		return m, nil
	}
	svc := m.svc
	ctx := m.actionContext()
	return m, func() tea.Msg {
		if _, err := svc.ArchiveInitiative(ctx, initiative.ID); err != nil {
			return actionMsg{err: fmt.Errorf("archive: %w", err)}
		}
		return actionMsg{status: "archived " + truncate(initiative.Title, 32), focusID: initiative.ID}
	}
}

func (m Model) restoreSelected() (tea.Model, tea.Cmd) {
	initiative, ok := m.selectedInitiative()
	if !ok {
		m.status = "no initiative selected"
		return m, nil
	}
	if !initiative.Archived {
		m.status = "not archived"
		return m, nil
	}
	svc := m.svc
	ctx := m.actionContext()
	return m, func() tea.Msg {
		if _, err := svc.RestoreInitiative(ctx, initiative.ID); err != nil {
			return actionMsg{err: fmt.Errorf("restore: %w", err)}
		}
		return actionMsg{status: "restored " + truncate(initiative.Title, 32), focusID: initiative.ID}
	}
}

// stepProgress moves the selected initiative's progress by delta without clamping.
func (m Model) stepProgress(delta int) (tea.Model, tea.Cmd) {
	initiative, ok := m.selectedInitiative()
	if !ok {
		m.status = "no initiative selected"
		return m, nil
	}
	svc := m.svc
	ctx := m.actionContext()
	next := initiative.Progress + delta
	return m, func() tea.Msg {
		updated, err := svc.UpdateProgress(ctx, initiative.ID, next)
		if err != nil {
			var validation *store.ValidationError
			if errors.As(err, &validation) {
				return actionMsg{err: fmt.Errorf("progress rejected: %w", err), focusID: initiative.ID}
			}
			return actionMsg{err: fmt.Errorf("progress: %w", err)}
		}
		return actionMsg{status: fmt.Sprintf("progress %d%%", updated.Progress), focusID: initiative.ID}
	}
}

func (m Model) copySelectedProjectID() (tea.Model, tea.Cmd) {
	initiative, ok := m.selectedInitiative()
	if !ok || initiative.ProjectID == "" {
		m.status = "no project id to copy"
		return m, nil
	}
	if err := m.copyText(initiative.ProjectID); err != nil {
		m.status = "copy failed: " + err.Error()
		return m, nil
	}
	m.status = "copied " + initiative.ProjectID
	return m, nil
}

// reloadKeepingSelection refreshes the table and re-focuses the current row when it survives the filter.
func (m Model) reloadKeepingSelection() (tea.Model, tea.Cmd) {
	if initiative, ok := m.selectedInitiative(); ok {
		m.pendingID = initiative.ID
	}
	return m, m.loadData
}

func (m Model) selectedInitiative() (domain.Initiative, bool) {
	if m.selected < 0 || m.selected >= len(m.initiatives) {
		return domain.Initiative{}, false
	}
	return m.initiatives[m.selected], true
}

func (m *Model) focusInitiative(id int64) {
	for idx, initiative := range m.initiatives {
		if initiative.ID == id {
			m.selected = idx
			return
		}
	}
}

// recentUpdatesFor returns up to recentUpdates feed entries for title.
func (m Model) recentUpdatesFor(title string) []domain.Update {
	out := make([]domain.Update, 0, m.recentUpdates)
	for _, up := range m.updates {
		if len(out) == m.recentUpdates {
			break
		}
		if strings.EqualFold(up.Initiative, title) {
			out = append(out, up)
		}
	}
	return out
}

func (m Model) departmentName() string {
	if m.department <= 0 || m.department > len(m.departments) {
		return ""
	}
	return m.departments[m.department-1]
}

func (m Model) departmentLabel() string {
	if name := m.departmentName(); name != "" {
		return name
	}
	return "all"
}

func (m Model) sortField() app.SortField {
	fields := app.SortFields()
	return fields[clamp(m.sortIdx, 0, len(fields)-1)]
}

func (m Model) sortLabel() string {
	if m.descending {
		return string(m.sortField()) + " ↓"
	}
	return string(m.sortField()) + " ↑"
}

// sortIndex returns the cycle position of field, defaulting to the first field.
func sortIndex(field app.SortField) int {
	return max(0, slices.Index(app.SortFields(), field))
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	return min(max(v, minV), maxV)
}

// truncate shortens s to limit runes with an ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit == 1 {
		return string(rs[:1])
	}
	return string(rs[:limit-1]) + "…"
}
