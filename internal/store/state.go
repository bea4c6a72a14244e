package store

import "github.com/evanschultz/beacon/internal/domain"

// State is the store's committed value. An empty Error means no error.
type State struct {
	Initiatives []domain.Initiative `json:"initiatives"`
	Loading     bool                `json:"loading"`
	Error       string              `json:"error,omitempty"`
	AuditLog    []domain.AuditEntry `json:"auditLog"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		Initiatives: domain.CloneInitiatives(s.Initiatives),
		Loading:     s.Loading,
		Error:       s.Error,
		AuditLog:    domain.CloneAuditLog(s.AuditLog),
	}
}

// HasError reports whether an error message is set.
func (s State) HasError() bool {
	return s.Error != ""
}

// Find returns the initiative with id.
func (s State) Find(id int64) (domain.Initiative, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Initiative{}, false
	}
	return s.Initiatives[idx].Clone(), true
}

func (s State) indexOf(id int64) int {
	for idx := range s.Initiatives {
		if s.Initiatives[idx].ID == id {
			return idx
		}
	}
	return -1
}

func (s State) maxID() int64 {
	var out int64
	for _, initiative := range s.Initiatives {
		out = max(out, initiative.ID)
	}
	return out
}
