package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidType        = errors.New("invalid initiative type")
	ErrInvalidStage       = errors.New("invalid stage")
	ErrInvalidProgress    = errors.New("invalid progress")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidProjectID   = errors.New("invalid project id")
	ErrInvalidPhase       = errors.New("invalid timeline phase")
	ErrInvalidKPI         = errors.New("invalid kpi")
	ErrInvalidUpdateType  = errors.New("invalid update type")
	ErrInvalidUpdateText  = errors.New("invalid update message")
	ErrInvalidAuditAction = errors.New("invalid audit action")
)
