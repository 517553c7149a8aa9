package identity

import (
	"context"

	"slotbook/internal/models"
)

type contextKey string

const actorKey contextKey = "slotbook-actor"

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom retrieves the actor stored by WithActor.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}
