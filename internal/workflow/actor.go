package workflow

import "context"

// Actor identifies who performs an engine call. It travels in the context.
type Actor struct {
	ID   string
	Name string
}

// SystemActor is used when the context carries no actor.
var SystemActor = Actor{ID: "system", Name: "system"}

// Label is the audit representation of the actor.
func (a Actor) Label() string {
	switch {
	case a.Name != "" && a.ID != "" && a.Name != a.ID:
		return a.Name + " <" + a.ID + ">"
	case a.Name != "":
		return a.Name
	default:
		return a.ID
	}
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor in ctx, or SystemActor.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && (a.ID != "" || a.Name != "") {
		return a
	}
	return SystemActor
}
