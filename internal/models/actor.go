package models

import "context"

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uint
	Email  string
	Role   string

	// Request metadata recorded in audit entries
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// ContextWithActor returns a copy of ctx carrying the actor.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor stored by ContextWithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || a.UserID == 0 {
		return Actor{}, false
	}
	return a, true
}
