package tui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/evanschultz/beacon/internal/domain"
)

// Column widths of the initiative table; the title column takes the rest.
const (
	colProjectID  = 12
	colDepartment = 22
	colBar        = 10
	colPercent    = 5
	colStatus     = 10
	colDue        = 10
	minTitleWidth = 12
	splitMinWidth = 110
)

var (
	accentColor = lipgloss.Color("62")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
	titleColor  = lipgloss.Color("252")
)

// statusColor maps initiative health to a foreground color.
func statusColor(status domain.Status) color.Color {
	switch status {
	case domain.StatusOnTrack:
		return lipgloss.Color("42")
	case domain.StatusAtRisk:
		return lipgloss.Color("214")
	case domain.StatusDelayed:
		return lipgloss.Color("203")
	case domain.StatusCompleted:
		return lipgloss.Color("39")
	default:
		return mutedColor
	}
}

// render builds the full screen as plain text with ANSI styling.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	sections := []string{m.renderHeader(), m.renderMetrics()}
	if banner := m.renderBanner(); banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, "", m.renderBody())

	switch m.mode {
	case modeSearch:
		sections = append(sections, "", m.searchInput.View())
	case modeAddUpdate:
		if initiative, ok := m.selectedInitiative(); ok {
			sections = append(sections, "", statusStyle.Render("posting to "+initiative.Title))
		}
		sections = append(sections, m.updateInput.View())
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, "", statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	tagStyle := lipgloss.NewStyle().Foreground(dimColor)

	tags := []string{
		"view: " + string(m.view),
		"dept: " + m.departmentLabel(),
		"sort: " + m.sortLabel(),
	}
	if m.query != "" {
		tags = append(tags, "search: "+truncate(m.query, 24))
	}
	if m.showArchived {
		tags = append(tags, "archived shown")
	}
	header := titleStyle.Render("beacon") + "  initiatives"
	for _, tag := range tags {
		header += tagStyle.Render("  [" + tag + "]")
	}
	return header
}

func (m Model) renderMetrics() string {
	mt := m.metrics
	muted := lipgloss.NewStyle().Foreground(mutedColor)
	parts := []string{
		fmt.Sprintf("%d initiatives", mt.Total),
		lipgloss.NewStyle().Foreground(statusColor(domain.StatusOnTrack)).Render(fmt.Sprintf("%d on track", mt.OnTrack)),
		lipgloss.NewStyle().Foreground(statusColor(domain.StatusAtRisk)).Render(fmt.Sprintf("%d at risk", mt.AtRisk)),
		lipgloss.NewStyle().Foreground(statusColor(domain.StatusDelayed)).Render(fmt.Sprintf("%d delayed", mt.Delayed)),
		fmt.Sprintf("%d in progress", mt.InProgress),
		fmt.Sprintf("%d teams", mt.Teams),
	}
	if mt.BudgetAlloc > 0 {
		parts = append(parts, fmt.Sprintf("budget %s of %s spent", formatAmount(mt.BudgetSpent), formatAmount(mt.BudgetAlloc)))
	}
	if mt.OverspentCount > 0 {
		parts = append(parts, fmt.Sprintf("%d overspent", mt.OverspentCount))
	}
	if mt.Archived > 0 {
		parts = append(parts, fmt.Sprintf("%d archived", mt.Archived))
	}
	return strings.Join(parts, muted.Render(" · "))
}

// renderBanner mirrors the store error message until it is dismissed.
func (m Model) renderBanner() string {
	if m.storeError == "" {
		return ""
	}
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("231")).
		Background(lipgloss.Color("160")).
		Padding(0, 1)
	return style.Render("! " + m.storeError + "  (" + m.keys.clearError.Help().Key + " to dismiss)")
}

func (m Model) renderBody() string {
	if m.loading {
		return lipgloss.NewStyle().Foreground(mutedColor).Render("store loading...")
	}
	initiative, ok := m.selectedInitiative()
	if !m.showDetail || !ok {
		return m.renderTable(m.width)
	}

	detailStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1)
	if m.width >= splitMinWidth {
		tableWidth := m.width * 55 / 100
		detailWidth := max(minMarkdownWrap, m.width-tableWidth-4)
		detail := detailStyle.Width(detailWidth).Render(m.renderDetail(initiative, detailWidth-4))
		return lipgloss.JoinHorizontal(lipgloss.Top, m.renderTable(tableWidth), " ", detail)
	}
	detailWidth := max(minMarkdownWrap, m.width-2)
	return m.renderTable(m.width) + "\n" + detailStyle.Width(detailWidth).Render(m.renderDetail(initiative, detailWidth-4))
}

func (m Model) renderTable(width int) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	archivedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	compact := width < splitMinWidth-20
	fixed := 2 + colProjectID + 1 + colBar + 1 + colPercent + 1 + colStatus + 1 + colDue + 1
	if !compact {
		fixed += colDepartment + 1
	}
	titleWidth := max(minTitleWidth, width-fixed)

	header := "  " + cell("PROJECT", colProjectID) + " " + cell("TITLE", titleWidth) + " "
	if !compact {
		header += cell("DEPARTMENT", colDepartment) + " "
	}
	header += cell("PROGRESS", colBar+1+colPercent) + " " + cell("STATUS", colStatus) + " " + cell("DUE", colDue)
	lines := []string{headerStyle.Render(header)}

	if len(m.initiatives) == 0 {
		lines = append(lines, archivedStyle.Render("  (no initiatives match)"))
		return strings.Join(lines, "\n")
	}
	for idx, initiative := range m.initiatives {
		marker := "  "
		if idx == m.selected {
			marker = "│ "
		}
		row := cell(initiative.ProjectID, colProjectID) + " " + cell(initiative.Title, titleWidth) + " "
		if !compact {
			row += cell(initiative.Department, colDepartment) + " "
		}
		row += progressBar(initiative.Progress, colBar) + " " + cell(strconv.Itoa(initiative.Progress)+"%", colPercent) + " "
		status := cell(string(initiative.Status), colStatus)
		due := cell(initiative.DueDate, colDue)
		switch {
		case initiative.Archived:
			row = archivedStyle.Render(marker + row + status + " " + due + " archived")
		case idx == m.selected:
			row = selectedStyle.Render(marker+row) + lipgloss.NewStyle().Foreground(statusColor(initiative.Status)).Render(status) + " " + selectedStyle.Render(due)
		default:
			row = marker + row + lipgloss.NewStyle().Foreground(statusColor(initiative.Status)).Render(status) + " " + due
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail(initiative domain.Initiative, width int) string {
	md := detailMarkdown(initiative, m.recentUpdatesFor(initiative.Title))
	wrap := width
	if m.markdownWrap > 0 {
		wrap = min(wrap, m.markdownWrap)
	}
	return m.markdown.render(md, wrap)
}

// detailMarkdown renders one initiative and its recent feed entries as markdown.
func detailMarkdown(in domain.Initiative, updates []domain.Update) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", in.Title)

	meta := make([]string, 0, 5)
	for _, v := range []string{in.ProjectID, in.Department, string(in.Status)} {
		if strings.TrimSpace(v) != "" {
			meta = append(meta, v)
		}
	}
	if in.Owner != "" {
		meta = append(meta, "owner "+in.Owner)
	}
	if in.DueDate != "" {
		meta = append(meta, "due "+in.DueDate)
	}
	fmt.Fprintf(&b, "%s\n\n", strings.Join(meta, " · "))
	fmt.Fprintf(&b, "Progress: **%d%%**", in.Progress)
	if in.Stage != "" {
		fmt.Fprintf(&b, " in %s", in.Stage)
	}
	b.WriteString("\n\n")
	if desc := strings.TrimSpace(in.Description); desc != "" {
		b.WriteString(desc + "\n\n")
	}

	if len(in.Objectives) > 0 {
		b.WriteString("## Objectives\n\n")
		for _, objective := range in.Objectives {
			fmt.Fprintf(&b, "- %s\n", objective)
		}
		b.WriteString("\n")
	}

	if len(in.KPIs) > 0 {
		b.WriteString("## KPIs\n\n| Metric | Target | Current | Status |\n|---|---|---|---|\n")
		for _, kpi := range in.KPIs {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", kpi.Metric, kpi.Target, kpi.Current, kpi.Status)
		}
		b.WriteString("\n")
	}

	if in.Budget.Allocated > 0 || in.Budget.Spent > 0 {
		currency := strings.TrimSpace(in.Budget.Currency)
		b.WriteString("## Budget\n\n")
		fmt.Fprintf(&b, "- Allocated: %s\n", money(in.Budget.Allocated, currency))
		fmt.Fprintf(&b, "- Spent: %s\n", money(in.Budget.Spent, currency))
		fmt.Fprintf(&b, "- Remaining: %s\n", money(in.Budget.Remaining(), currency))
		if in.Budget.Overspent() {
			b.WriteString("\n**Overspent**\n")
		}
		b.WriteString("\n")
	}

	if len(in.Timeline.Phases) > 0 {
		b.WriteString("## Timeline\n\n")
		if in.Timeline.Start != "" || in.Timeline.EstimatedCompletion != "" {
			fmt.Fprintf(&b, "%s to %s, %d weeks\n\n", in.Timeline.Start, in.Timeline.EstimatedCompletion, in.Timeline.TotalWeeks())
		}
		for _, phase := range in.Timeline.Phases {
			fmt.Fprintf(&b, "- %s: %d weeks, %s\n", phase.Name, phase.Duration, phase.Status)
		}
		b.WriteString("\n")
	}

	if len(updates) > 0 {
		b.WriteString("## Recent updates\n\n")
		for _, up := range updates {
			who := up.User
			if who == "" {
				who = "unknown"
			}
			fmt.Fprintf(&b, "- %s **%s** (%s): %s\n", up.Timestamp.Format("2006-01-02"), who, up.Type, up.Message)
		}
	}
	return b.String()
}

// progressBar draws a fixed-width bar; out-of-range values saturate.
func progressBar(progress, width int) string {
	filled := clamp(progress, 0, 100) * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// cell truncates or pads s to exactly width display columns.
func cell(s string, width int) string {
	s = truncate(s, width)
	return s + strings.Repeat(" ", max(0, width-lipgloss.Width(s)))
}

func money(amount float64, currency string) string {
	if currency == "" {
		return formatAmount(amount)
	}
	return currency + " " + formatAmount(amount)
}

// formatAmount renders a whole-unit amount with thousands separators.
func formatAmount(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatFloat(amount, 'f', 0, 64)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}
