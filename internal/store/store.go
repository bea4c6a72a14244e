// Package store holds the initiative collection, the loading/error status and the
// audit log behind a closed set of synchronous actions.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/evanschultz/beacon/internal/domain"
)

// MissingPolicy selects how actions addressing an unknown id are handled.
type MissingPolicy int

const (
	// MissingIgnore leaves state unchanged and reports success.
	MissingIgnore MissingPolicy = iota
	// MissingReport leaves state unchanged and returns ErrInitiativeNotFound.
	MissingReport
)

// ValidationMode selects what the post-action validation pass does with violations.
type ValidationMode int

const (
	// ValidateAdvisory commits the action and sets State.Error.
	ValidateAdvisory ValidationMode = iota
	// ValidateReject refuses the action and returns *ValidationError.
	ValidateReject
)

// Result describes the outcome of one dispatched action.
type Result struct {
	Kind       Kind
	Found      bool
	Committed  bool
	ID         int64
	Violations []Violation
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for audit ids, timestamps and project ids.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMissingPolicy sets the unknown-id policy.
func WithMissingPolicy(policy MissingPolicy) Option {
	return func(s *Store) {
		s.missing = policy
	}
}

// WithValidationMode sets the validation mode.
func WithValidationMode(mode ValidationMode) Option {
	return func(s *Store) {
		s.validation = mode
	}
}

// Store serializes actions over a single State value.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	ready    bool

	state       State
	lastID      int64
	lastAuditID int64

	clock      func() time.Time
	missing    MissingPolicy
	validation ValidationMode

	subSeq  int
	subs    map[int]func(State)
	pending []State
}

// New constructs a store in the loading state.
func New(opts ...Option) *Store {
	s := &Store{
		ready: true,
		state: State{
			Initiatives: []domain.Initiative{},
			Loading:     true,
			AuditLog:    []domain.AuditEntry{},
		},
		clock: time.Now,
		subs:  map[int]func(State){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Snapshot returns a deep copy of the committed state.
func (s *Store) Snapshot() State {
	s.mustReady()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to receive a snapshot after every committed action.
// Notifications are delivered in commit order outside the state lock; fn must not
// dispatch synchronously. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mustReady()
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.subSeq++
	id := s.subSeq
	s.subs[id] = fn
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Dispatch applies one action atomically.
func (s *Store) Dispatch(action Action) (Result, error) {
	s.mustReady()
	if action == nil {
		return Result{}, ErrUnknownAction
	}
	res := Result{Kind: action.Kind()}

	s.mu.Lock()
	action = s.prepare(action, &res)
	next, found := Reduce(s.state, action)
	res.Found = found
	if !found {
		s.mu.Unlock()
		if s.missing == MissingReport {
			id, _ := targetID(action)
			return res, fmt.Errorf("%s %d: %w", res.Kind, id, ErrInitiativeNotFound)
		}
		return res, nil
	}
	if touchesCollection(action) {
		res.Violations = Validate(next)
		if len(res.Violations) > 0 {
			if s.validation == ValidateReject {
				if _, ok := action.(Add); ok {
					s.lastID = res.ID
				}
				s.mu.Unlock()
				return res, &ValidationError{Kind: res.Kind, Violations: res.Violations}
			}
			next, _ = Reduce(next, SetError{Message: res.Violations[len(res.Violations)-1].Message()})
		}
	}
	s.commit(action, next, res)
	res.Committed = true
	if len(s.subs) > 0 {
		s.pending = append(s.pending, s.state.Clone())
	}
	s.mu.Unlock()
	s.drain()
	return res, nil
}

// drain delivers queued snapshots in commit order.
func (s *Store) drain() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		snapshot := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]func(State), 0, len(s.subs))
		for id := 1; id <= s.subSeq; id++ {
			if fn, ok := s.subs[id]; ok {
				subs = append(subs, fn)
			}
		}
		s.mu.Unlock()
		for _, fn := range subs {
			fn(snapshot.Clone())
		}
	}
}

// prepare assigns store-owned fields on Add and AppendAudit payloads.
func (s *Store) prepare(action Action, res *Result) Action {
	switch a := action.(type) {
	case Add:
		id := max(s.lastID, s.state.maxID()) + 1
		initiative := a.Initiative.Clone()
		initiative.ID = id
		initiative.Archived = false
		if initiative.ProjectID == "" {
			initiative.ProjectID = domain.FormatProjectID(s.clock().Year(), id)
		}
		res.ID = id
		return Add{Initiative: initiative}
	case AppendAudit:
		now := s.clock().UTC()
		id := now.UnixMilli()
		if id <= s.lastAuditID {
			id = s.lastAuditID + 1
		}
		entry := a.Entry.Clone()
		entry.ID = id
		entry.Timestamp = now
		res.ID = id
		return AppendAudit{Entry: entry}
	default:
		if id, ok := targetID(action); ok {
			res.ID = id
		}
	}
	return action
}

// commit stores next and advances the id counters. Caller holds s.mu.
func (s *Store) commit(action Action, next State, res Result) {
	s.state = next
	switch action.(type) {
	case Initialize:
		s.lastID = max(s.lastID, next.maxID())
	case Add:
		s.lastID = res.ID
	case AppendAudit:
		s.lastAuditID = res.ID
	}
}

func (s *Store) mustReady() {
	if s == nil || !s.ready {
		panic("store: use of uninitialized Store; construct with store.New")
	}
}
