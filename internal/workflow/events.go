package workflow

import "time"

// Event types.
const (
	EventCandidateAdmitted      = "candidate.admitted"
	EventCandidateUpdated       = "candidate.updated"
	EventCandidateStatusChanged = "candidate.status_changed"
	EventCandidateRemoved       = "candidate.removed"
	EventInterviewScheduled     = "interview.scheduled"
	EventInterviewRescheduled   = "interview.rescheduled"
	EventInterviewCancelled     = "interview.cancelled"
	EventInterviewCompleted     = "interview.completed"
	EventInterviewNoShow        = "interview.no_show"
)

// Event describes one committed change.
type Event struct {
	Type        string    `json:"type"`
	CandidateID string    `json:"candidate_id"`
	InterviewID string    `json:"interview_id,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Actor       string    `json:"actor"`
	At          time.Time `json:"at"`
}

// Notifier receives events after the transaction that produced them commits.
// Notify must not block.
type Notifier interface {
	Notify(Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

func (e *Engine) emit(events []Event) {
	for _, ev := range events {
		e.notifier.Notify(ev)
	}
}
