package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInitiativeNotFound = errors.New("initiative not found")
	ErrUnknownAction      = errors.New("unknown action")
)

// Violation is one initiative found in an invalid state by the validation pass.
type Violation struct {
	InitiativeID int64
	Progress     int
}

// Message renders the banner text for the violation.
func (v Violation) Message() string {
	return fmt.Sprintf("Invalid progress value for initiative %d", v.InitiativeID)
}

// ValidationError is returned when a mutation is refused in reject mode.
type ValidationError struct {
	Kind       Kind
	Violations []Violation
}

// Error returns the message of the last violation, matching the advisory banner.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	if len(e.Violations) == 1 {
		return e.Violations[0].Message()
	}
	ids := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		ids = append(ids, fmt.Sprint(v.InitiativeID))
	}
	return fmt.Sprintf("%s (violations: %s)", e.Violations[len(e.Violations)-1].Message(), strings.Join(ids, ", "))
}
