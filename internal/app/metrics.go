package app

import (
	"context"
	"math"

	"github.com/evanschultz/beacon/internal/domain"
)

// DashboardMetrics summarizes the collection for the header cards.
type DashboardMetrics struct {
	Total          int     `json:"total"`
	OnTrack        int     `json:"onTrack"`
	AtRisk         int     `json:"atRisk"`
	Delayed        int     `json:"delayed"`
	InProgress     int     `json:"inProgress"`
	Teams          int     `json:"teams"`
	Archived       int     `json:"archived"`
	BudgetAlloc    float64 `json:"budgetAllocated"`
	BudgetSpent    float64 `json:"budgetSpent"`
	OverspentCount int     `json:"overspent"`
}

// DepartmentStats is one row of the teams overview.
type DepartmentStats struct {
	Department  string  `json:"department"`
	Total       int     `json:"total"`
	OnTrack     int     `json:"onTrack"`
	AtRisk      int     `json:"atRisk"`
	Delayed     int     `json:"delayed"`
	OnTrackRate float64 `json:"onTrackRate"`
}

// ProgressDistribution gives whole-number percentages of unarchived initiatives per bucket.
type ProgressDistribution struct {
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	AtRisk     int `json:"atRisk"`
	Delayed    int `json:"delayed"`
}

// DashboardMetrics computes header metrics over unarchived initiatives.
func (s *Service) DashboardMetrics(context.Context) DashboardMetrics {
	return ComputeMetrics(s.store.Snapshot().Initiatives)
}

// DepartmentOverview groups unarchived initiatives by department.
func (s *Service) DepartmentOverview(context.Context) []DepartmentStats {
	return ComputeDepartmentStats(s.store.Snapshot().Initiatives)
}

// ProgressDistribution buckets unarchived initiatives by delivery state.
func (s *Service) ProgressDistribution(context.Context) ProgressDistribution {
	return ComputeDistribution(s.store.Snapshot().Initiatives)
}

// ComputeMetrics summarizes initiatives; archived records only count toward Archived.
func ComputeMetrics(initiatives []domain.Initiative) DashboardMetrics {
	var out DashboardMetrics
	for _, initiative := range initiatives {
		if initiative.Archived {
			out.Archived++
			continue
		}
		out.Total++
		switch initiative.Status {
		case domain.StatusOnTrack:
			out.OnTrack++
		case domain.StatusAtRisk:
			out.AtRisk++
		case domain.StatusDelayed:
			out.Delayed++
		}
		if initiative.InProgress() {
			out.InProgress++
		}
		out.BudgetAlloc += initiative.Budget.Allocated
		out.BudgetSpent += initiative.Budget.Spent
		if initiative.Budget.Overspent() {
			out.OverspentCount++
		}
	}
	out.Teams = len(departments(initiatives))
	return out
}

// ComputeDepartmentStats groups initiatives by department in first-appearance order.
func ComputeDepartmentStats(initiatives []domain.Initiative) []DepartmentStats {
	index := map[string]int{}
	out := make([]DepartmentStats, 0)
	for _, initiative := range initiatives {
		if initiative.Archived {
			continue
		}
		idx, ok := index[initiative.Department]
		if !ok {
			idx = len(out)
			index[initiative.Department] = idx
			out = append(out, DepartmentStats{Department: initiative.Department})
		}
		row := &out[idx]
		row.Total++
		switch initiative.Status {
		case domain.StatusOnTrack:
			row.OnTrack++
		case domain.StatusAtRisk:
			row.AtRisk++
		case domain.StatusDelayed:
			row.Delayed++
		}
	}
	for idx := range out {
		out[idx].OnTrackRate = float64(out[idx].OnTrack) / float64(out[idx].Total)
	}
	return out
}

// ComputeDistribution buckets initiatives: completed (status completed or progress
// at 100), then at-risk, delayed, and everything else as in progress.
func ComputeDistribution(initiatives []domain.Initiative) ProgressDistribution {
	var completed, inProgress, atRisk, delayed, total int
	for _, initiative := range initiatives {
		if initiative.Archived || initiative.Status == domain.StatusCanceled {
			continue
		}
		total++
		switch {
		case initiative.Status == domain.StatusCompleted || initiative.Progress >= 100:
			completed++
		case initiative.Status == domain.StatusAtRisk:
			atRisk++
		case initiative.Status == domain.StatusDelayed:
			delayed++
		default:
			inProgress++
		}
	}
	if total == 0 {
		return ProgressDistribution{}
	}
	pct := func(n int) int {
		return int(math.Round(float64(n) * 100 / float64(total)))
	}
	return ProgressDistribution{
		Completed:  pct(completed),
		InProgress: pct(inProgress),
		AtRisk:     pct(atRisk),
		Delayed:    pct(delayed),
	}
}
