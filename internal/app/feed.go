package app

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/beacon/internal/domain"
)

// UpdateFilter narrows ListUpdates results.
type UpdateFilter struct {
	Initiative string
	Limit      int
}

// feed holds the activity stream newest first.
type feed struct {
	mu      sync.Mutex
	updates []domain.Update
	lastID  int64
}

// reset replaces the stream, ordering entries newest first.
func (f *feed) reset(updates []domain.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = slices.Clone(updates)
	slices.SortStableFunc(f.updates, func(a, b domain.Update) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	f.lastID = 0
	for _, up := range f.updates {
		f.lastID = max(f.lastID, up.ID)
	}
}

// add assigns the next id to in and inserts the entry at the head of the stream.
func (f *feed) add(in domain.UpdateInput, now time.Time) (domain.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in.ID = f.lastID + 1
	up, err := domain.NewUpdate(in, now)
	if err != nil {
		return domain.Update{}, err
	}
	f.updates = append([]domain.Update{up}, f.updates...)
	f.lastID = up.ID
	return up, nil
}

// all returns every entry newest first.
func (f *feed) all() []domain.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

// list returns matching entries newest first.
func (f *feed) list(filter UpdateFilter) []domain.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	title := strings.TrimSpace(filter.Initiative)
	out := make([]domain.Update, 0, len(f.updates))
	for _, up := range f.updates {
		if title != "" && !strings.EqualFold(up.Initiative, title) {
			continue
		}
		out = append(out, up)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// retitle rewrites the title key of entries after an initiative is renamed.
func (f *feed) retitle(from, to string) {
	if from == to || from == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for idx := range f.updates {
		if f.updates[idx].Initiative == from {
			f.updates[idx].Initiative = to
		}
	}
}
