package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/workflow"
)

// Handler holds API route handlers.
type Handler struct {
	eng *workflow.Engine
}

// NewHandler creates a new Handler.
func NewHandler(eng *workflow.Engine) *Handler {
	return &Handler{eng: eng}
}

func idParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(fmt.Errorf("%s: must be a non-negative integer", name))
	}
	return n, nil
}

// ListCandidates handles GET /api/candidates.
//
//	@Summary		List candidates with optional filtering and pagination
//	@Tags			candidates
//	@Produce		json
//	@Param			status		query		string	false	"Filter by status"
//	@Param			position	query		string	false	"Filter by position"
//	@Param			q			query		string	false	"Match name or email"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	CandidateListResponse
//	@Security		BearerAuth
//	@Router			/candidates [get]
func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	items, total, err := h.eng.ListCandidates(r.Context(), models.CandidateFilter{
		Status:   models.CandidateStatus(q.Get("status")),
		Position: strings.TrimSpace(q.Get("position")),
		Query:    strings.TrimSpace(q.Get("q")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Candidate{}
	}
	writeJSON(w, http.StatusOK, CandidateListResponse{Candidates: items, Total: total})
}

// AdmitCandidate handles POST /api/candidates.
//
//	@Summary		Admit a new candidate
//	@Tags			candidates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CandidateRequest	true	"Candidate to admit"
//	@Success		201		{object}	models.Candidate
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Duplicate email; details carry the existing record"
//	@Security		BearerAuth
//	@Router			/candidates [post]
func (h *Handler) AdmitCandidate(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.eng.AdmitCandidate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/candidates/"+c.ID)
	writeJSON(w, http.StatusCreated, c)
}

// GetCandidate handles GET /api/candidates/{id}.
func (h *Handler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.eng.GetCandidate(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateCandidate handles PATCH /api/candidates/{id}.
//
//	@Summary		Edit candidate attributes
//	@Tags			candidates
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Candidate ID"
//	@Param			body	body		CandidatePatch	true	"Fields to change"
//	@Success		200		{object}	models.Candidate
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/candidates/{id} [patch]
func (h *Handler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	var patch CandidatePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	id := idParam(r)
	current, err := h.eng.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.eng.UpdateCandidate(r.Context(), id, patch.merge(current))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RemoveCandidate handles DELETE /api/candidates/{id}.
func (h *Handler) RemoveCandidate(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.RemoveCandidate(r.Context(), idParam(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkContacted handles POST /api/candidates/{id}/contacted.
func (h *Handler) MarkContacted(w http.ResponseWriter, r *http.Request) {
	c, err := h.eng.MarkContacted(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SetStatus handles POST /api/candidates/{id}/status. Only terminal
// statuses are accepted; the others follow from interview activity.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.eng.SetTerminalStatus(r.Context(), idParam(r), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// History handles GET /api/candidates/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.eng.History(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

// ListInterviews handles GET /api/candidates/{id}/interviews.
func (h *Handler) ListInterviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.eng.ListInterviews(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Interview{}
	}
	writeJSON(w, http.StatusOK, InterviewListResponse{Interviews: items})
}
