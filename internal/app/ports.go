package app

import (
	"context"

	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
)

// Seed is a dataset used to initialize the store and the activity feed.
type Seed struct {
	Initiatives []domain.Initiative `json:"initiatives" yaml:"initiatives"`
	Updates     []domain.Update     `json:"updates" yaml:"updates"`
}

// SeedSource loads the initial dataset.
type SeedSource interface {
	LoadSeed(context.Context) (Seed, error)
}

// SeedSourceFunc adapts a function to SeedSource.
type SeedSourceFunc func(context.Context) (Seed, error)

// LoadSeed calls f.
func (f SeedSourceFunc) LoadSeed(ctx context.Context) (Seed, error) {
	return f(ctx)
}

// ActionObserver receives the outcome of every action the service dispatches.
type ActionObserver interface {
	ObserveDispatch(kind store.Kind, res store.Result, err error)
}
