package store

import (
	"slices"

	"github.com/evanschultz/beacon/internal/domain"
)

// Reduce applies action to state and returns the next state. The input is never
// modified. found is false when the action addressed an id that does not exist;
// in that case next is equal to state.
//
// Reduce stores Add and AppendAudit payloads verbatim; id and timestamp
// assignment happens in Store.Dispatch.
func Reduce(state State, action Action) (next State, found bool) {
	next = State{
		Initiatives: state.Initiatives,
		Loading:     state.Loading,
		Error:       state.Error,
		AuditLog:    state.AuditLog,
	}
	switch a := action.(type) {
	case Initialize:
		next.Initiatives = domain.CloneInitiatives(a.Initiatives)
		if next.Initiatives == nil {
			next.Initiatives = []domain.Initiative{}
		}
		next.Loading = false
		return next, true
	case Add:
		next.Initiatives = append(slices.Clip(state.Initiatives), a.Initiative.Clone())
		return next, true
	case Update:
		return replaceAt(state, next, a.Initiative.ID, func(domain.Initiative) domain.Initiative {
			return a.Initiative.Clone()
		})
	case Delete:
		idx := state.indexOf(a.ID)
		if idx < 0 {
			return next, false
		}
		next.Initiatives = slices.Delete(slices.Clone(state.Initiatives), idx, idx+1)
		return next, true
	case Archive:
		return replaceAt(state, next, a.ID, func(in domain.Initiative) domain.Initiative {
			in.Archived = true
			return in
		})
	case Restore:
		return replaceAt(state, next, a.ID, func(in domain.Initiative) domain.Initiative {
			in.Archived = false
			return in
		})
	case UpdateProgress:
		return replaceAt(state, next, a.ID, func(in domain.Initiative) domain.Initiative {
			in.Progress = a.Progress
			return in
		})
	case UpdateKPIs:
		return replaceAt(state, next, a.ID, func(in domain.Initiative) domain.Initiative {
			in.KPIs = slices.Clone(a.KPIs)
			return in
		})
	case SetError:
		next.Error = a.Message
		next.Loading = false
		return next, true
	case AppendAudit:
		next.AuditLog = append(slices.Clip(state.AuditLog), a.Entry.Clone())
		return next, true
	default:
		return next, true
	}
}

// replaceAt copies the collection with the record at id transformed by fn.
func replaceAt(state, next State, id int64, fn func(domain.Initiative) domain.Initiative) (State, bool) {
	idx := state.indexOf(id)
	if idx < 0 {
		return next, false
	}
	initiatives := slices.Clone(state.Initiatives)
	initiatives[idx] = fn(initiatives[idx].Clone())
	next.Initiatives = initiatives
	return next, true
}

// Validate scans the collection and returns every out-of-range progress value, in collection order.
func Validate(state State) []Violation {
	var out []Violation
	for _, initiative := range state.Initiatives {
		if !initiative.ProgressInRange() {
			out = append(out, Violation{InitiativeID: initiative.ID, Progress: initiative.Progress})
		}
	}
	return out
}
