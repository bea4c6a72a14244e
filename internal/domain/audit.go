package domain

import (
	"maps"
	"slices"
	"time"
)

// AuditAction names the kind of change an audit entry records.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

var validAuditActions = []AuditAction{AuditCreate, AuditUpdate, AuditDelete}

// AuditEntry is one immutable audit log record.
type AuditEntry struct {
	ID           int64             `json:"id" yaml:"id"`
	Timestamp    time.Time         `json:"timestamp" yaml:"timestamp"`
	Action       AuditAction       `json:"action" yaml:"action"`
	InitiativeID int64             `json:"initiativeId" yaml:"initiativeId"`
	User         string            `json:"user" yaml:"user"`
	Changes      map[string]string `json:"changes" yaml:"changes"`
}

// IsValidAuditAction reports whether action is a known audit action.
func IsValidAuditAction(action AuditAction) bool {
	return slices.Contains(validAuditActions, action)
}

// Clone returns a copy that does not share the Changes map.
func (e AuditEntry) Clone() AuditEntry {
	out := e
	if e.Changes != nil {
		out.Changes = maps.Clone(e.Changes)
	}
	return out
}

// CloneAuditLog deep-copies a log.
func CloneAuditLog(in []AuditEntry) []AuditEntry {
	if in == nil {
		return nil
	}
	out := make([]AuditEntry, len(in))
	for idx, entry := range in {
		out[idx] = entry.Clone()
	}
	return out
}

// ChangedFields lists the top-level fields that differ between two versions of an initiative.
func ChangedFields(before, after Initiative) []string {
	var out []string
	add := func(name string, changed bool) {
		if changed {
			out = append(out, name)
		}
	}
	add("projectId", before.ProjectID != after.ProjectID)
	add("title", before.Title != after.Title)
	add("owner", before.Owner != after.Owner)
	add("progress", before.Progress != after.Progress)
	add("status", before.Status != after.Status)
	add("dueDate", before.DueDate != after.DueDate)
	add("department", before.Department != after.Department)
	add("description", before.Description != after.Description)
	add("category", before.Category != after.Category)
	add("priority", before.Priority != after.Priority)
	add("type", before.Type != after.Type)
	add("stage", before.Stage != after.Stage)
	add("archived", before.Archived != after.Archived)
	add("objectives", !slices.Equal(before.Objectives, after.Objectives))
	add("stakeholders", !slices.Equal(before.Stakeholders, after.Stakeholders))
	add("kpis", !slices.Equal(before.KPIs, after.KPIs))
	add("resourceRequirements", !slices.Equal(before.ResourceRequirements, after.ResourceRequirements))
	add("timeTracking", !slices.Equal(before.TimeTracking, after.TimeTracking))
	add("documentation", !slices.Equal(before.Documentation, after.Documentation))
	add("integrations", !slices.EqualFunc(before.Integrations, after.Integrations, func(a, b Integration) bool {
		return a.Platform == b.Platform && a.Status == b.Status && slices.Equal(a.Requirements, b.Requirements)
	}))
	add("budget", before.Budget != after.Budget)
	add("timeline", before.Timeline.Start != after.Timeline.Start ||
		before.Timeline.EstimatedCompletion != after.Timeline.EstimatedCompletion ||
		!slices.Equal(before.Timeline.Phases, after.Timeline.Phases))
	return out
}
