// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// InitiativeService is the application surface the transports call.
type InitiativeService interface {
	State(context.Context) store.State
	ListInitiatives(context.Context, app.Filter) ([]domain.Initiative, error)
	GetInitiative(context.Context, int64) (domain.Initiative, error)
	CreateInitiative(context.Context, app.CreateInitiativeInput) (domain.Initiative, error)
	UpdateInitiative(context.Context, domain.Initiative) (domain.Initiative, error)
	DeleteInitiative(context.Context, int64) error
	ArchiveInitiative(context.Context, int64) (domain.Initiative, error)
	RestoreInitiative(context.Context, int64) (domain.Initiative, error)
	UpdateProgress(context.Context, int64, int) (domain.Initiative, error)
	UpdateKPIs(context.Context, int64, []domain.KPI) (domain.Initiative, error)
	AddUpdate(context.Context, int64, string, domain.UpdateType) (domain.Update, error)
	ListUpdates(context.Context, app.UpdateFilter) []domain.Update
	AuditLog(context.Context, int) []domain.AuditEntry
	DashboardMetrics(context.Context) app.DashboardMetrics
	DepartmentOverview(context.Context) []app.DepartmentStats
	ProgressDistribution(context.Context) app.ProgressDistribution
	ClearError(context.Context) error
}

// Dashboard bundles the aggregate views shown on the dashboard header.
type Dashboard struct {
	Metrics      app.DashboardMetrics     `json:"metrics"`
	Departments  []app.DepartmentStats    `json:"departments"`
	Distribution app.ProgressDistribution `json:"distribution"`
	Error        string                   `json:"error,omitempty"`
}

// BuildDashboard collects every aggregate from svc.
func BuildDashboard(ctx context.Context, svc InitiativeService) Dashboard {
	return Dashboard{
		Metrics:      svc.DashboardMetrics(ctx),
		Departments:  svc.DepartmentOverview(ctx),
		Distribution: svc.ProgressDistribution(ctx),
		Error:        svc.State(ctx).Error,
	}
}

// ListRequest carries raw list parameters before normalization.
type ListRequest struct {
	View            string
	Department      string
	Status          string
	Priority        string
	Query           string
	Sort            string
	Order           string
	IncludeArchived bool
}

// Filter converts raw list parameters into an app filter.
func (r ListRequest) Filter() (app.Filter, error) {
	view, err := app.ParseView(r.View)
	if err != nil {
		return app.Filter{}, err
	}
	filter := app.Filter{
		View:            view,
		Department:      strings.TrimSpace(r.Department),
		Query:           strings.TrimSpace(r.Query),
		IncludeArchived: r.IncludeArchived,
	}
	if strings.TrimSpace(r.Status) != "" {
		if filter.Status, err = domain.ParseStatus(r.Status); err != nil {
			return app.Filter{}, err
		}
	}
	if strings.TrimSpace(r.Priority) != "" {
		if filter.Priority, err = domain.ParsePriority(r.Priority); err != nil {
			return app.Filter{}, err
		}
	}
	if strings.TrimSpace(r.Sort) != "" {
		if filter.SortBy, err = app.ParseSortField(r.Sort); err != nil {
			return app.Filter{}, err
		}
	}
	switch strings.ToLower(strings.TrimSpace(r.Order)) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return app.Filter{}, fmt.Errorf("order %q: %w", r.Order, ErrInvalidRequest)
	}
	return filter, nil
}

// ParseID parses a positive initiative id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q: %w", raw, app.ErrInvalidID)
	}
	return id, nil
}
