package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/evanschultz/beacon/internal/domain"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func initiativeTable(items []domain.Initiative) string {
	if len(items) == 0 {
		return "no initiatives match"
	}
	t := newTable("ID", "Project", "Title", "Department", "Progress", "Status", "Due")
	for _, in := range items {
		title := in.Title
		if in.Archived {
			title += " (archived)"
		}
		t.Row(
			strconv.FormatInt(in.ID, 10),
			in.ProjectID,
			title,
			in.Department,
			strconv.Itoa(in.Progress)+"%",
			string(in.Status),
			in.DueDate,
		)
	}
	return t.Render()
}

func auditTable(entries []domain.AuditEntry) string {
	if len(entries) == 0 {
		return "audit log is empty"
	}
	t := newTable("ID", "Time", "Action", "Initiative", "User", "Changes")
	for _, entry := range entries {
		t.Row(
			strconv.FormatInt(entry.ID, 10),
			entry.Timestamp.Local().Format(time.DateTime),
			string(entry.Action),
			strconv.FormatInt(entry.InitiativeID, 10),
			entry.User,
			formatChanges(entry.Changes),
		)
	}
	return t.Render()
}

// formatChanges renders a changes map as sorted key=value pairs, omitting correlation ids.
func formatChanges(changes map[string]string) string {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		if key == "request_id" {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+changes[key])
	}
	return strings.Join(parts, " ")
}

// initiativeSummary is the plain text view printed by show.
func initiativeSummary(in domain.Initiative, updates []domain.Update) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	line("%s  %s", in.ProjectID, in.Title)
	line("id: %d", in.ID)
	line("department: %s", in.Department)
	line("owner: %s", in.Owner)
	line("status: %s  priority: %s  stage: %s", in.Status, in.Priority, in.Stage)
	line("progress: %d%%", in.Progress)
	line("due: %s", in.DueDate)
	if in.Archived {
		line("archived: true")
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		line("")
		line("%s", desc)
	}
	if len(in.KPIs) > 0 {
		t := newTable("KPI", "Target", "Current", "Status")
		for _, kpi := range in.KPIs {
			t.Row(kpi.Metric, kpi.Target, kpi.Current, string(kpi.Status))
		}
		line("")
		line("%s", t.Render())
	}
	budget := in.Budget
	line("")
	line("budget: %.0f allocated, %.0f spent, %.0f remaining %s", budget.Allocated, budget.Spent, budget.Remaining(), budget.Currency)
	if len(updates) > 0 {
		line("")
		line("recent updates:")
		for _, up := range updates {
			line("  %s %s (%s): %s", up.Timestamp.Local().Format(time.DateOnly), up.User, up.Type, up.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
