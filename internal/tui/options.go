package tui

import "github.com/evanschultz/beacon/internal/app"

// DashboardConfig holds the initial table state and detail settings.
type DashboardConfig struct {
	DefaultView   app.View
	DefaultSort   app.SortField
	Descending    bool
	ShowArchived  bool
	ProgressStep  int
	RecentUpdates int
	MarkdownWrap  int
}

type Option func(*Model)

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		DefaultView:   app.ViewAll,
		DefaultSort:   app.SortByTitle,
		ProgressStep:  5,
		RecentUpdates: 5,
		MarkdownWrap:  72,
	}
}

// WithDashboardConfig overrides the defaults. A non-positive step or wrap keeps the default.
func WithDashboardConfig(cfg DashboardConfig) Option {
	return func(m *Model) {
		if view, err := app.ParseView(string(cfg.DefaultView)); err == nil {
			m.view = view
		}
		if field, err := app.ParseSortField(string(cfg.DefaultSort)); err == nil {
			m.sortIdx = sortIndex(field)
		}
		m.descending = cfg.Descending
		m.showArchived = cfg.ShowArchived
		if cfg.ProgressStep > 0 {
			m.progressStep = cfg.ProgressStep
		}
		if cfg.RecentUpdates >= 0 {
			m.recentUpdates = cfg.RecentUpdates
		}
		if cfg.MarkdownWrap > 0 {
			m.markdownWrap = cfg.MarkdownWrap
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithActor attributes dashboard mutations to actor.
func WithActor(actor app.Actor) Option {
	return func(m *Model) {
		m.actor = actor
	}
}
