package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/evanschultz/beacon/internal/domain"
)

// View selects a preset slice of the collection.
type View string

// ViewAll and related constants define the dashboard views.
const (
	ViewAll        View = "all"
	ViewOnTrack    View = "on-track"
	ViewInProgress View = "in-progress"
)

// SortField selects the ordering key of a listing.
type SortField string

// SortByTitle and related constants define the sortable columns.
const (
	SortByTitle      SortField = "title"
	SortByProgress   SortField = "progress"
	SortByStatus     SortField = "status"
	SortByDueDate    SortField = "dueDate"
	SortByDepartment SortField = "department"
)

// SortFields lists the sortable columns in display order.
func SortFields() []SortField {
	return []SortField{SortByTitle, SortByProgress, SortByStatus, SortByDueDate, SortByDepartment}
}

// Filter narrows and orders ListInitiatives results. The zero value lists every
// unarchived initiative in collection order.
type Filter struct {
	View            View
	Department      string
	Status          domain.Status
	Priority        domain.Priority
	Query           string
	IncludeArchived bool
	SortBy          SortField
	Descending      bool
}

// ParseView normalizes user input into a view.
func ParseView(raw string) (View, error) {
	view := View(strings.ToLower(strings.TrimSpace(raw)))
	switch view {
	case "":
		return ViewAll, nil
	case ViewAll, ViewOnTrack, ViewInProgress:
		return view, nil
	default:
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidView)
	}
}

// ParseSortField normalizes user input into a sort field.
func ParseSortField(raw string) (SortField, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	for _, field := range SortFields() {
		if strings.EqualFold(string(field), trimmed) {
			return field, nil
		}
	}
	return "", fmt.Errorf("%q: %w", raw, ErrInvalidSortField)
}

// ListInitiatives returns the filtered and sorted collection.
func (s *Service) ListInitiatives(ctx context.Context, filter Filter) ([]domain.Initiative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view, err := ParseView(string(filter.View))
	if err != nil {
		return nil, err
	}
	sortBy, err := ParseSortField(string(filter.SortBy))
	if err != nil {
		return nil, err
	}
	filter.View, filter.SortBy = view, sortBy
	return ApplyFilter(s.store.Snapshot().Initiatives, filter), nil
}

// Departments returns distinct departments of unarchived initiatives in first-appearance order.
func (s *Service) Departments(context.Context) []string {
	return departments(s.store.Snapshot().Initiatives)
}

// ApplyFilter narrows and orders initiatives. The input is not modified.
func ApplyFilter(initiatives []domain.Initiative, filter Filter) []domain.Initiative {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	department := strings.TrimSpace(filter.Department)
	out := make([]domain.Initiative, 0, len(initiatives))
	for _, initiative := range initiatives {
		if initiative.Archived && !filter.IncludeArchived {
			continue
		}
		switch filter.View {
		case ViewOnTrack:
			if initiative.Status != domain.StatusOnTrack {
				continue
			}
		case ViewInProgress:
			if !initiative.InProgress() {
				continue
			}
		}
		if department != "" && !strings.EqualFold(initiative.Department, department) {
			continue
		}
		if filter.Status != "" && initiative.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && initiative.Priority != filter.Priority {
			continue
		}
		if query != "" && !matchesQuery(initiative, query) {
			continue
		}
		out = append(out, initiative.Clone())
	}
	if filter.SortBy != "" {
		slices.SortStableFunc(out, func(a, b domain.Initiative) int {
			c := compareBy(filter.SortBy, a, b)
			if filter.Descending {
				return -c
			}
			return c
		})
	}
	return out
}

// matchesQuery reports whether query appears in the title, department or owner.
func matchesQuery(initiative domain.Initiative, query string) bool {
	for _, field := range []string{initiative.Title, initiative.Department, initiative.Owner} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func compareBy(field SortField, a, b domain.Initiative) int {
	switch field {
	case SortByProgress:
		return cmp.Compare(a.Progress, b.Progress)
	case SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortByDueDate:
		return strings.Compare(a.DueDate, b.DueDate)
	case SortByDepartment:
		return strings.Compare(a.Department, b.Department)
	default:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}
}

func departments(initiatives []domain.Initiative) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, initiative := range initiatives {
		if initiative.Archived || initiative.Department == "" {
			continue
		}
		if _, ok := seen[initiative.Department]; ok {
			continue
		}
		seen[initiative.Department] = struct{}{}
		out = append(out, initiative.Department)
	}
	return out
}
