// Package api implements the Recruitflow REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/starford/recruitflow/internal/workflow"
)

// Actor headers. Both are optional; without them mutations are attributed
// to the API itself.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// apiActor is used when a request names no actor.
var apiActor = workflow.Actor{ID: "api", Name: "api"}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorMiddleware puts the calling actor into the request context so the
// engine can attribute audit entries.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := workflow.Actor{
			ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
			Name: strings.TrimSpace(r.Header.Get(HeaderActorName)),
		}
		if actor.ID == "" && actor.Name == "" {
			actor = apiActor
		}
		next.ServeHTTP(w, r.WithContext(workflow.WithActor(r.Context(), actor)))
	})
}
