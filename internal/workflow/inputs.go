package workflow

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/recruitflow/internal/models"
)

// CandidateInput carries the caller-editable candidate attributes. Status is
// never accepted from callers.
type CandidateInput struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Position  string   `json:"position"`
	Source    string   `json:"source"`
	Notes     string   `json:"notes"`
	Skills    []string `json:"skills"`
}

func (in *CandidateInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Position = strings.TrimSpace(in.Position)
	in.Source = strings.TrimSpace(in.Source)
	skills := make([]string, 0, len(in.Skills))
	for _, s := range in.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	in.Skills = skills
}

// Validate checks required fields and formats.
func (in CandidateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Phone, validation.Length(0, 40)),
	)
}

func (in CandidateInput) apply(c *models.Candidate) {
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Email = in.Email
	c.Phone = in.Phone
	c.Position = in.Position
	c.Source = in.Source
	c.Notes = in.Notes
	c.Skills = in.Skills
}

// ScheduleInput describes a new interview.
type ScheduleInput struct {
	CandidateID   string    `json:"candidate_id"`
	InterviewDate time.Time `json:"interview_date"`
	InterviewType string    `json:"interview_type"`
	Interviewers  []string  `json:"interviewers"`
	MeetingLink   string    `json:"meeting_link"`
}

// Validate checks required fields.
func (in ScheduleInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CandidateID, validation.Required),
		validation.Field(&in.InterviewDate, validation.Required),
		validation.Field(&in.InterviewType, validation.Length(0, 100)),
		validation.Field(&in.Interviewers, validation.Each(validation.Required)),
	)
}

// FeedbackInput is a feedback submission. The overall rating is always
// derived from Ratings.
type FeedbackInput struct {
	Ratings     models.Ratings `json:"ratings"`
	Outcome     models.Outcome `json:"outcome"`
	Notes       string         `json:"notes"`
	SubmittedBy string         `json:"submitted_by"`
}

// Validate checks the outcome. Ratings are checked by the aggregator.
func (in FeedbackInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Outcome, validation.By(func(v any) error {
			o, _ := v.(models.Outcome)
			if o != "" && !o.IsValid() {
				return validation.NewError("validation_outcome_invalid", "must be one of pending, passed, failed, recommended-next-round")
			}
			return nil
		})),
		validation.Field(&in.SubmittedBy, validation.Length(0, 200)),
	)
}
