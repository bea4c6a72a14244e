package domain

import (
	"slices"
	"strings"
	"time"
)

// UpdateType classifies an activity feed entry.
type UpdateType string

const (
	UpdateStatus    UpdateType = "status"
	UpdateComment   UpdateType = "comment"
	UpdateMilestone UpdateType = "milestone"
)

var validUpdateTypes = []UpdateType{UpdateStatus, UpdateComment, UpdateMilestone}

// Update is one activity feed entry. It references its initiative by title.
type Update struct {
	ID         int64      `json:"id" yaml:"id"`
	Initiative string     `json:"initiative" yaml:"initiative"`
	Message    string     `json:"message" yaml:"message"`
	Timestamp  time.Time  `json:"timestamp" yaml:"timestamp"`
	User       string     `json:"user" yaml:"user"`
	Type       UpdateType `json:"type" yaml:"type"`
}

// UpdateInput holds write-time fields for a feed entry.
type UpdateInput struct {
	ID         int64
	Initiative string
	Message    string
	User       string
	Type       UpdateType
}

// NewUpdate validates and normalizes a feed entry.
func NewUpdate(in UpdateInput, now time.Time) (Update, error) {
	if in.ID <= 0 {
		return Update{}, ErrInvalidID
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return Update{}, ErrInvalidUpdateText
	}
	if in.Type == "" {
		in.Type = UpdateComment
	}
	if !IsValidUpdateType(in.Type) {
		return Update{}, ErrInvalidUpdateType
	}
	return Update{
		ID:         in.ID,
		Initiative: strings.TrimSpace(in.Initiative),
		Message:    in.Message,
		Timestamp:  now.UTC(),
		User:       strings.TrimSpace(in.User),
		Type:       in.Type,
	}, nil
}

// IsValidUpdateType reports whether kind is a known feed entry type.
func IsValidUpdateType(kind UpdateType) bool {
	return slices.Contains(validUpdateTypes, kind)
}

// ParseUpdateType normalizes user input into an update type.
func ParseUpdateType(raw string) (UpdateType, error) {
	kind := UpdateType(strings.ToLower(strings.TrimSpace(raw)))
	if kind == "" {
		return UpdateComment, nil
	}
	if !IsValidUpdateType(kind) {
		return "", ErrInvalidUpdateType
	}
	return kind, nil
}
