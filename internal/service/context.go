package service

import (
	"context"

	"github.com/gdrocha-io/togglr-backend/internal/model"

	"github.com/google/uuid"
)

type contextKey string

const (
	actorKey   contextKey = "actor"
	requestKey contextKey = "request"
)

// Actor is the authenticated principal behind a request.
type Actor struct {
	Name   string
	Kind   model.ActorKind
	Roles  string
	Scopes string
}

// SystemActor stands in when no principal is authenticated.
var SystemActor = Actor{Name: "system", Kind: model.ActorSystem}

// RequestMeta carries transport details audit entries are stamped with.
type RequestMeta struct {
	IP      string
	TraceID string
}

// WithActor injects the actor into the context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// CurrentActor returns the actor on ctx, or SystemActor.
func CurrentActor(ctx context.Context) Actor {
	actor, ok := ctx.Value(actorKey).(Actor)
	if !ok || actor.Name == "" {
		return SystemActor
	}
	return actor
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestKey, meta)
}

func CurrentIP(ctx context.Context) string {
	meta, _ := ctx.Value(requestKey).(RequestMeta)
	return meta.IP
}

// CurrentTraceID returns the request's trace id. Outside a request every call
// yields a fresh id.
func CurrentTraceID(ctx context.Context) string {
	meta, ok := ctx.Value(requestKey).(RequestMeta)
	if !ok || meta.TraceID == "" {
		return uuid.New().String()
	}
	return meta.TraceID
}
