package api

import (
	"time"

	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/schedule"
	"github.com/starford/recruitflow/internal/workflow"
)

// CandidateRequest is the request body for admitting a candidate.
type CandidateRequest = workflow.CandidateInput

// CandidatePatch is the request body for PATCH /candidates/{id}. Omitted
// fields keep their current value.
type CandidatePatch struct {
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Position  *string   `json:"position"`
	Source    *string   `json:"source"`
	Notes     *string   `json:"notes"`
	Skills    *[]string `json:"skills"`
}

// merge overlays the patch on the candidate's current attributes.
func (p CandidatePatch) merge(c *models.Candidate) workflow.CandidateInput {
	in := workflow.CandidateInput{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Position:  c.Position,
		Source:    c.Source,
		Notes:     c.Notes,
		Skills:    c.Skills,
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&in.FirstName, p.FirstName)
	set(&in.LastName, p.LastName)
	set(&in.Email, p.Email)
	set(&in.Phone, p.Phone)
	set(&in.Position, p.Position)
	set(&in.Source, p.Source)
	set(&in.Notes, p.Notes)
	if p.Skills != nil {
		in.Skills = *p.Skills
	}
	return in
}

// StatusRequest sets a terminal candidate status.
type StatusRequest struct {
	Status models.CandidateStatus `json:"status" example:"hired" validate:"required"`
}

// CandidateListResponse wraps paginated candidate listings.
type CandidateListResponse struct {
	Candidates []models.Candidate `json:"candidates" validate:"required"`
	Total      int                `json:"total" example:"42" validate:"required"`
}

// HistoryResponse wraps a candidate's audit trail.
type HistoryResponse struct {
	Entries []models.AuditEntry `json:"entries" validate:"required"`
}

// InterviewListResponse wraps the interviews of one candidate.
type InterviewListResponse struct {
	Interviews []models.Interview `json:"interviews" validate:"required"`
}

// ScheduleRequest is the request body for POST /interviews.
type ScheduleRequest = workflow.ScheduleInput

// RescheduleRequest moves an interview. A missing meeting_link keeps the
// current one; an empty string clears it.
type RescheduleRequest struct {
	InterviewDate time.Time `json:"interview_date" validate:"required"`
	MeetingLink   *string   `json:"meeting_link"`
}

// FeedbackRequest is the request body for PUT /interviews/{id}/feedback.
type FeedbackRequest = workflow.FeedbackInput

// RatingPreviewResponse is the derived overall rating for a set of scores.
type RatingPreviewResponse struct {
	OverallRating float64 `json:"overall_rating" example:"3.5"`
}

// CVUploadResponse is returned after a successful CV upload.
type CVUploadResponse struct {
	Candidate *models.Candidate `json:"candidate" validate:"required"`
	Size      int64             `json:"size" example:"12345" validate:"required"`
	Checksum  string            `json:"checksum" validate:"required"`
}

// SchedulingRulesResponse lists the active scheduling rules in evaluation order.
type SchedulingRulesResponse struct {
	Timezone string          `json:"timezone" example:"UTC"`
	Rules    []schedule.Rule `json:"rules"`
}
