package shared

import "context"

// Actor is the authenticated caller attached to a request context. Role and
// Permissions come from the verified token snapshot, not a fresh database
// read.
type Actor struct {
	UserID      int64
	Username    string
	Email       string
	Role        string
	Permissions []string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, nil when the request is
// unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
