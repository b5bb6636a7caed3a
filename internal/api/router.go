package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recruitflow/internal/workflow"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(eng *workflow.Engine, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(eng)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Use(ActorMiddleware)

	r.Route("/candidates", func(r chi.Router) {
		r.Get("/", h.ListCandidates)
		r.Post("/", h.AdmitCandidate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCandidate)
			r.Patch("/", h.UpdateCandidate)
			r.Delete("/", h.RemoveCandidate)
			r.Post("/contacted", h.MarkContacted)
			r.Post("/status", h.SetStatus)
			r.Get("/history", h.History)
			r.Get("/interviews", h.ListInterviews)

			r.Put("/cv", h.UploadCV)
			r.Get("/cv", h.DownloadCV)
			r.Delete("/cv", h.DeleteCV)
		})
	})

	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", h.Schedule)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetInterview)
			r.Post("/reschedule", h.Reschedule)
			r.Post("/cancel", h.Cancel)
			r.Post("/no-show", h.MarkNoShow)
			r.Put("/feedback", h.SubmitFeedback)
		})
	})

	r.Post("/ratings/preview", h.PreviewRating)
	r.Get("/scheduling-rules", h.SchedulingRules)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
