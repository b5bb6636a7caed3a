package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/recruitflow/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// decodeJSON reads a single JSON object from the request body. Unknown
// fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid(errors.New("request body is empty"))
		}
		return apperr.Invalid(fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}

type errResponse struct {
	Error   string      `json:"error" validate:"required"`
	Code    apperr.Code `json:"code,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Details any         `json:"details,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// DuplicateDetails describes the record that blocked an admission.
type DuplicateDetails struct {
	ExistingID     string `json:"existing_id"`
	ExistingName   string `json:"existing_name"`
	ExistingStatus string `json:"existing_status"`
}

// writeError maps engine failures to HTTP responses. Anything unclassified
// is logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errResponse{Error: err.Error(), Code: apperr.CodeOf(err)}

	var (
		dup    *apperr.DuplicateCandidateError
		sched  *apperr.ScheduleRejectedError
		status int
	)
	switch {
	case errors.As(err, &dup):
		status = http.StatusConflict
		body.Details = DuplicateDetails{
			ExistingID:     dup.ExistingID,
			ExistingName:   dup.ExistingName,
			ExistingStatus: dup.ExistingStatus,
		}
	case errors.As(err, &sched):
		status = http.StatusUnprocessableEntity
		body.Reason = string(sched.Reason)
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrHasActiveInterviews):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, status, body)
}
