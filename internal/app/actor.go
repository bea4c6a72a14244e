package app

import (
	"context"
	"strings"
)

// ActorType identifies who initiated a mutation.
type ActorType string

// ActorTypeUser and related constants define the supported actor kinds.
const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAgent  ActorType = "agent"
	ActorTypeSystem ActorType = "system"
)

// Actor carries normalized caller identity for audit attribution.
type Actor struct {
	Name string
	Type ActorType
}

// actorContextKey stores context keys for actor metadata.
type actorContextKey struct{}

// requestIDContextKey stores context keys for caller-supplied correlation ids.
type requestIDContextKey struct{}

// WithActor attaches normalized actor metadata to context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, normalizeActor(actor))
}

// ActorFromContext returns actor metadata when present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok {
		return Actor{}, false
	}
	actor = normalizeActor(actor)
	if actor.Name == "" {
		return Actor{}, false
	}
	return actor, true
}

// WithRequestID attaches a correlation id that audit entries should carry instead of a generated one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, strings.TrimSpace(id))
}

// RequestIDFromContext returns the caller-supplied correlation id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id, id != ""
}

// normalizeActor trims and canonicalizes actor metadata.
func normalizeActor(actor Actor) Actor {
	actor.Name = strings.TrimSpace(actor.Name)
	actor.Type = ActorType(strings.TrimSpace(strings.ToLower(string(actor.Type))))
	switch actor.Type {
	case ActorTypeUser, ActorTypeAgent, ActorTypeSystem:
	default:
		actor.Type = ActorTypeUser
	}
	return actor
}
