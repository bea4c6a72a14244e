package common

import (
	"context"
	"net/http"
	"strings"

	"github.com/evanschultz/beacon/internal/app"
)

// Header names read by the transports for audit attribution.
const (
	HeaderActor     = "X-Beacon-Actor"
	HeaderActorType = "X-Beacon-Actor-Type"
	HeaderRequestID = "X-Request-Id"
)

// ContextWithHeaders attaches actor and request id headers to ctx when present.
// fallback is used for the actor type when the header is empty.
func ContextWithHeaders(ctx context.Context, h http.Header, fallback app.ActorType) context.Context {
	if name := strings.TrimSpace(h.Get(HeaderActor)); name != "" {
		kind := app.ActorType(strings.TrimSpace(h.Get(HeaderActorType)))
		if kind == "" {
			kind = fallback
		}
		ctx = app.WithActor(ctx, app.Actor{Name: name, Type: kind})
	}
	if id := strings.TrimSpace(h.Get(HeaderRequestID)); id != "" {
		ctx = app.WithRequestID(ctx, id)
	}
	return ctx
}
