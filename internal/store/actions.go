package store

import "github.com/evanschultz/beacon/internal/domain"

// Kind names an action for logging and metrics.
type Kind string

const (
	KindInitialize     Kind = "initialize"
	KindAdd            Kind = "add"
	KindUpdate         Kind = "update"
	KindDelete         Kind = "delete"
	KindArchive        Kind = "archive"
	KindRestore        Kind = "restore"
	KindUpdateProgress Kind = "update_progress"
	KindUpdateKPIs     Kind = "update_kpis"
	KindSetError       Kind = "set_error"
	KindAppendAudit    Kind = "append_audit"
)

// Kinds lists every action kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindInitialize, KindAdd, KindUpdate, KindDelete, KindArchive,
		KindRestore, KindUpdateProgress, KindUpdateKPIs, KindSetError, KindAppendAudit,
	}
}

// Action is one of the store's closed set of mutations.
type Action interface {
	Kind() Kind
	action()
}

// Initialize replaces the collection and clears the loading flag.
type Initialize struct {
	Initiatives []domain.Initiative
}

// Add appends a new initiative. Any caller-supplied id is replaced.
type Add struct {
	Initiative domain.Initiative
}

// Update replaces the record with the same id.
type Update struct {
	Initiative domain.Initiative
}

// Delete removes a record.
type Delete struct {
	ID int64
}

// Archive soft-deletes a record.
type Archive struct {
	ID int64
}

// Restore clears the archived flag.
type Restore struct {
	ID int64
}

// UpdateProgress replaces only the progress value. It never clamps.
type UpdateProgress struct {
	ID       int64
	Progress int
}

// UpdateKPIs replaces only the KPI list.
type UpdateKPIs struct {
	ID   int64
	KPIs []domain.KPI
}

// SetError sets the status message and clears the loading flag.
type SetError struct {
	Message string
}

// AppendAudit appends an entry. ID and Timestamp are assigned by the store.
type AppendAudit struct {
	Entry domain.AuditEntry
}

func (Initialize) Kind() Kind     { return KindInitialize }
func (Add) Kind() Kind            { return KindAdd }
func (Update) Kind() Kind         { return KindUpdate }
func (Delete) Kind() Kind         { return KindDelete }
func (Archive) Kind() Kind        { return KindArchive }
func (Restore) Kind() Kind        { return KindRestore }
func (UpdateProgress) Kind() Kind { return KindUpdateProgress }
func (UpdateKPIs) Kind() Kind     { return KindUpdateKPIs }
func (SetError) Kind() Kind       { return KindSetError }
func (AppendAudit) Kind() Kind    { return KindAppendAudit }

func (Initialize) action()     {}
func (Add) action()            {}
func (Update) action()         {}
func (Delete) action()         {}
func (Archive) action()        {}
func (Restore) action()        {}
func (UpdateProgress) action() {}
func (UpdateKPIs) action()     {}
func (SetError) action()       {}
func (AppendAudit) action()    {}

// targetID returns the initiative id an action addresses, when it addresses one that must exist.
func targetID(action Action) (int64, bool) {
	switch a := action.(type) {
	case Update:
		return a.Initiative.ID, true
	case Delete:
		return a.ID, true
	case Archive:
		return a.ID, true
	case Restore:
		return a.ID, true
	case UpdateProgress:
		return a.ID, true
	case UpdateKPIs:
		return a.ID, true
	default:
		return 0, false
	}
}

// touchesCollection reports whether an action can change the initiative collection.
func touchesCollection(action Action) bool {
	switch action.(type) {
	case SetError, AppendAudit:
		return false
	default:
		return true
	}
}
