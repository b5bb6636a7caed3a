package models

import "time"

// InterviewStatus is the lifecycle state of a single interview.
type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewCompleted InterviewStatus = "completed"
	InterviewCancelled InterviewStatus = "cancelled"
	InterviewNoShow    InterviewStatus = "no-show"
)

// IsValid reports whether s is one of the known interview statuses.
func (s InterviewStatus) IsValid() bool {
	switch s {
	case InterviewScheduled, InterviewCompleted, InterviewCancelled, InterviewNoShow:
		return true
	default:
		return false
	}
}

func (s InterviewStatus) String() string {
	return string(s)
}

// Outcome is the categorical decision recorded with feedback. It is assessed
// independently of the numeric rating.
type Outcome string

const (
	OutcomePending              Outcome = "pending"
	OutcomePassed               Outcome = "passed"
	OutcomeFailed               Outcome = "failed"
	OutcomeRecommendedNextRound Outcome = "recommended-next-round"
)

// IsValid reports whether o is one of the known outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomePassed, OutcomeFailed, OutcomeRecommendedNextRound:
		return true
	default:
		return false
	}
}

func (o Outcome) String() string {
	return string(o)
}

// Ratings holds the four category scores, each in [0,5] with 0 meaning "not rated".
type Ratings struct {
	TechnicalSkills int `json:"technical_skills"`
	Communication   int `json:"communication"`
	ProblemSolving  int `json:"problem_solving"`
	CulturalFit     int `json:"cultural_fit"`
}

// Feedback is embedded in an Interview once submitted. OverallRating is
// always derived from Ratings.
type Feedback struct {
	Ratings
	OverallRating float64   `json:"overall_rating"`
	Outcome       Outcome   `json:"outcome"`
	Notes         string    `json:"notes"`
	SubmittedBy   string    `json:"submitted_by"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Interview is a meeting between a candidate and interviewers.
type Interview struct {
	ID            string          `json:"id"`
	CandidateID   string          `json:"candidate_id"`
	InterviewDate time.Time       `json:"interview_date"`
	InterviewType string          `json:"interview_type"`
	Interviewers  []string        `json:"interviewers"`
	MeetingLink   string          `json:"meeting_link,omitempty"`
	Status        InterviewStatus `json:"status"`
	Feedback      *Feedback       `json:"feedback,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AuditEntry records one committed lifecycle mutation.
type AuditEntry struct {
	ID         string    `json:"id"`
	Entity     string    `json:"entity"`
	EntityID   string    `json:"entity_id"`
	Operation  string    `json:"operation"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	At         time.Time `json:"at"`
}
