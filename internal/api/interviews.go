package api

import (
	"net/http"

	"github.com/starford/recruitflow/internal/models"
)

// Schedule handles POST /api/interviews.
//
//	@Summary		Schedule an interview
//	@Tags			interviews
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScheduleRequest	true	"Interview to schedule"
//	@Success		201		{object}	models.Interview
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Candidate is terminal or already has a scheduled interview"
//	@Failure		422		{object}	errResponse	"A scheduling rule rejected the date"
//	@Security		BearerAuth
//	@Router			/interviews [post]
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	iv, err := h.eng.Schedule(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/interviews/"+iv.ID)
	writeJSON(w, http.StatusCreated, iv)
}

// GetInterview handles GET /api/interviews/{id}.
func (h *Handler) GetInterview(w http.ResponseWriter, r *http.Request) {
	iv, err := h.eng.GetInterview(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// Reschedule handles POST /api/interviews/{id}/reschedule.
//
//	@Summary		Move a scheduled interview
//	@Tags			interviews
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Interview ID"
//	@Param			body	body		RescheduleRequest	true	"New date and optional link"
//	@Success		200		{object}	models.Interview
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/interviews/{id}/reschedule [post]
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	iv, err := h.eng.Reschedule(r.Context(), idParam(r), req.InterviewDate, req.MeetingLink)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// Cancel handles POST /api/interviews/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	iv, err := h.eng.Cancel(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// MarkNoShow handles POST /api/interviews/{id}/no-show.
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	iv, err := h.eng.MarkNoShow(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// SubmitFeedback handles PUT /api/interviews/{id}/feedback.
//
//	@Summary		Record feedback and complete the interview
//	@Tags			interviews
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Interview ID"
//	@Param			body	body		FeedbackRequest	true	"Ratings, outcome and notes"
//	@Success		200		{object}	models.Interview
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/interviews/{id}/feedback [put]
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	iv, err := h.eng.SubmitFeedback(r.Context(), idParam(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// PreviewRating handles POST /api/ratings/preview.
func (h *Handler) PreviewRating(w http.ResponseWriter, r *http.Request) {
	var req models.Ratings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	overall, err := h.eng.PreviewRating(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RatingPreviewResponse{OverallRating: overall})
}

// SchedulingRules handles GET /api/scheduling-rules.
func (h *Handler) SchedulingRules(w http.ResponseWriter, _ *http.Request) {
	v := h.eng.Validator()
	writeJSON(w, http.StatusOK, SchedulingRulesResponse{
		Timezone: v.Location().String(),
		Rules:    v.Rules(),
	})
}
