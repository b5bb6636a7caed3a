package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/rating"
	"github.com/starford/recruitflow/internal/store"
)

// Interview operation names.
const (
	OpSchedule       = "schedule"
	OpReschedule     = "reschedule"
	OpCancel         = "cancel"
	OpMarkNoShow     = "mark_no_show"
	OpSubmitFeedback = "submit_feedback"
)

// Schedule validates the slot, creates a scheduled interview and moves the
// candidate to scheduled, all in one transaction. A rejected slot, a
// terminal candidate or an already scheduled interview leaves nothing behind.
func (e *Engine) Schedule(ctx context.Context, in ScheduleInput) (_ *models.Interview, err error) {
	defer func() { e.observe(ctx, OpSchedule, err) }()

	if err := in.Validate(); err != nil {
		return nil, apperr.Invalid(err)
	}
	at := in.InterviewDate.UTC().Truncate(time.Millisecond)
	if err := e.validator.Validate(at, in.MeetingLink, nil); err != nil {
		return nil, err
	}

	now := e.now()
	iv := &models.Interview{
		ID:            newID(),
		CandidateID:   in.CandidateID,
		InterviewDate: at,
		InterviewType: in.InterviewType,
		Interviewers:  in.Interviewers,
		MeetingLink:   in.MeetingLink,
		Status:        models.InterviewScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if iv.Interviewers == nil {
		iv.Interviewers = []string{}
	}

	var events []Event
	var c *models.Candidate
	err = e.db.WithinTx(ctx, func(q *store.Queries) error {
		var err error
		c, err = q.GetCandidateForUpdate(ctx, in.CandidateID)
		if err != nil {
			return candidateNotFound(in.CandidateID, err)
		}
		active, err := q.ScheduledInterview(ctx, c.ID)
		switch {
		case err == nil:
			return alreadyScheduled(c, active.ID)
		case !errors.Is(err, store.ErrNoRows):
			return err
		}
		if err := q.InsertInterview(ctx, iv); err != nil {
			return err
		}
		if err := e.audit(ctx, q, c.ID, apperr.EntityInterview, iv.ID, OpSchedule, "", iv.Status.String(), now); err != nil {
			return err
		}
		events = append(events, Event{
			Type:        EventInterviewScheduled,
			CandidateID: c.ID,
			InterviewID: iv.ID,
			To:          iv.Status.String(),
			Actor:       ActorFrom(ctx).Label(),
			At:          now,
		})
		return e.recordScheduled(ctx, q, c, OpSchedule, &events)
	})
	if errors.Is(err, store.ErrUniqueViolation) {
		// Lost a race with a concurrent schedule for the same candidate.
		err = alreadyScheduled(c, "")
	}
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "interview scheduled",
		slog.String("interview_id", iv.ID),
		slog.String("candidate_id", iv.CandidateID),
		slog.Time("interview_date", iv.InterviewDate))
	e.emit(events)
	return iv, nil
}

func alreadyScheduled(c *models.Candidate, interviewID string) error {
	from := ""
	if c != nil {
		from = c.Status.String()
	}
	detail := "candidate already has a scheduled interview"
	if interviewID != "" {
		detail += " (" + interviewID + ")"
	}
	return &apperr.InvalidTransitionError{
		Entity:    apperr.EntityCandidate,
		From:      from,
		Operation: OpSchedule,
		Detail:    detail,
	}
}

// Reschedule moves a scheduled interview to a new slot. A nil link keeps
// the current one; an empty link clears it. Only the new values are
// validated.
func (e *Engine) Reschedule(ctx context.Context, interviewID string, at time.Time, link *string) (_ *models.Interview, err error) {
	defer func() { e.observe(ctx, OpReschedule, err) }()

	if at.IsZero() {
		return nil, apperr.Invalid(errors.New("interview_date: cannot be blank"))
	}
	at = at.UTC().Truncate(time.Millisecond)

	return e.mutateInterview(ctx, interviewID, OpReschedule, func(q *store.Queries, iv *models.Interview, _ *models.Candidate, now time.Time, events *[]Event) error {
		if iv.Status != models.InterviewScheduled {
			return invalidInterviewTransition(iv, OpReschedule)
		}
		newLink := iv.MeetingLink
		supplied := ""
		if link != nil {
			newLink = *link
			supplied = *link
		}
		if err := e.validator.Validate(at, supplied, iv); err != nil {
			return err
		}
		iv.InterviewDate = at
		iv.MeetingLink = newLink
		iv.UpdatedAt = now
		if err := q.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		*events = append(*events, interviewEvent(ctx, EventInterviewRescheduled, iv, iv.Status, now))
		return e.audit(ctx, q, iv.CandidateID, apperr.EntityInterview, iv.ID, OpReschedule,
			iv.Status.String(), iv.Status.String(), now)
	})
}

// Cancel moves a scheduled interview to cancelled. The candidate status is
// left as it is.
func (e *Engine) Cancel(ctx context.Context, interviewID string) (_ *models.Interview, err error) {
	defer func() { e.observe(ctx, OpCancel, err) }()
	return e.closeInterview(ctx, interviewID, OpCancel, models.InterviewCancelled, EventInterviewCancelled)
}

// MarkNoShow moves a scheduled interview to no-show. The candidate status is
// left as it is.
func (e *Engine) MarkNoShow(ctx context.Context, interviewID string) (_ *models.Interview, err error) {
	defer func() { e.observe(ctx, OpMarkNoShow, err) }()
	return e.closeInterview(ctx, interviewID, OpMarkNoShow, models.InterviewNoShow, EventInterviewNoShow)
}

func (e *Engine) closeInterview(ctx context.Context, id, op string, to models.InterviewStatus, eventType string) (*models.Interview, error) {
	return e.mutateInterview(ctx, id, op, func(q *store.Queries, iv *models.Interview, _ *models.Candidate, now time.Time, events *[]Event) error {
		if iv.Status != models.InterviewScheduled {
			return invalidInterviewTransition(iv, op)
		}
		from := iv.Status
		iv.Status = to
		iv.UpdatedAt = now
		if err := q.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		ev := interviewEvent(ctx, eventType, iv, to, now)
		ev.From = from.String()
		*events = append(*events, ev)
		return e.audit(ctx, q, iv.CandidateID, apperr.EntityInterview, iv.ID, op, from.String(), to.String(), now)
	})
}

// SubmitFeedback attaches feedback to a scheduled interview, or replaces the
// feedback of a completed one, and moves the candidate to interviewed. The
// overall rating is recomputed and submittedAt restamped on every call.
func (e *Engine) SubmitFeedback(ctx context.Context, interviewID string, in FeedbackInput) (_ *models.Interview, err error) {
	defer func() { e.observe(ctx, OpSubmitFeedback, err) }()

	if err := in.Validate(); err != nil {
		return nil, apperr.Invalid(err)
	}
	if in.Outcome == "" {
		in.Outcome = models.OutcomePending
	}
	overall, err := rating.Aggregate(in.Ratings)
	if err != nil {
		return nil, err
	}
	if in.SubmittedBy == "" {
		in.SubmittedBy = ActorFrom(ctx).Label()
	}

	iv, err := e.mutateInterview(ctx, interviewID, OpSubmitFeedback, func(q *store.Queries, iv *models.Interview, c *models.Candidate, now time.Time, events *[]Event) error {
		if iv.Status != models.InterviewScheduled && iv.Status != models.InterviewCompleted {
			return invalidInterviewTransition(iv, OpSubmitFeedback)
		}
		from := iv.Status
		iv.Feedback = &models.Feedback{
			Ratings:       in.Ratings,
			OverallRating: overall,
			Outcome:       in.Outcome,
			Notes:         in.Notes,
			SubmittedBy:   in.SubmittedBy,
			SubmittedAt:   now,
		}
		iv.Status = models.InterviewCompleted
		iv.UpdatedAt = now
		if err := q.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		if err := e.audit(ctx, q, iv.CandidateID, apperr.EntityInterview, iv.ID, OpSubmitFeedback,
			from.String(), iv.Status.String(), now); err != nil {
			return err
		}
		ev := interviewEvent(ctx, EventInterviewCompleted, iv, iv.Status, now)
		ev.From = from.String()
		*events = append(*events, ev)

		// A later round already scheduled keeps the candidate scheduled.
		switch _, err := q.ScheduledInterview(ctx, c.ID); {
		case err == nil:
			return nil
		case !errors.Is(err, store.ErrNoRows):
			return err
		}
		return e.recordCompleted(ctx, q, c, in.Outcome, events)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveRating(overall)
	return iv, nil
}

// mutateInterview locks an interview and its candidate, applies fn in the
// same transaction and emits the resulting events after commit. Rows are
// locked candidate first, the order Schedule and RemoveCandidate use.
func (e *Engine) mutateInterview(ctx context.Context, id, op string, fn func(*store.Queries, *models.Interview, *models.Candidate, time.Time, *[]Event) error) (*models.Interview, error) {
	now := e.now()
	var (
		iv     *models.Interview
		events []Event
	)
	err := e.db.WithinTx(ctx, func(q *store.Queries) error {
		owner, err := q.GetInterview(ctx, id)
		if err != nil {
			return interviewNotFound(id, err)
		}
		c, err := q.GetCandidateForUpdate(ctx, owner.CandidateID)
		if err != nil {
			return candidateNotFound(owner.CandidateID, err)
		}
		iv, err = q.GetInterviewForUpdate(ctx, id)
		if err != nil {
			return interviewNotFound(id, err)
		}
		return fn(q, iv, c, now, &events)
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "interview updated",
		slog.String("operation", op),
		slog.String("interview_id", iv.ID),
		slog.String("status", iv.Status.String()))
	e.emit(events)
	return iv, nil
}

func invalidInterviewTransition(iv *models.Interview, op string) error {
	return &apperr.InvalidTransitionError{
		Entity:    apperr.EntityInterview,
		From:      iv.Status.String(),
		Operation: op,
	}
}

func interviewEvent(ctx context.Context, typ string, iv *models.Interview, to models.InterviewStatus, at time.Time) Event {
	return Event{
		Type:        typ,
		CandidateID: iv.CandidateID,
		InterviewID: iv.ID,
		To:          to.String(),
		Actor:       ActorFrom(ctx).Label(),
		At:          at,
	}
}

// GetInterview loads an interview.
func (e *Engine) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	iv, err := e.db.Queries().GetInterview(ctx, id)
	if err != nil {
		return nil, interviewNotFound(id, err)
	}
	return iv, nil
}

// ListInterviews returns the interviews of an existing candidate ordered by
// date.
func (e *Engine) ListInterviews(ctx context.Context, candidateID string) ([]models.Interview, error) {
	q := e.db.Queries()
	if _, err := q.GetCandidate(ctx, candidateID); err != nil {
		return nil, candidateNotFound(candidateID, err)
	}
	out, err := q.ListInterviews(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	if out == nil {
		out = []models.Interview{}
	}
	return out, nil
}
