package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/workflow"
)

func TestScheduleMovesCandidateToScheduled(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")

	iv := f.schedule(t, c.ID, nextTuesday(14, 30))
	assert.Equal(t, models.InterviewScheduled, iv.Status)
	assert.Equal(t, []string{"A", "B"}, iv.Interviewers)
	assert.Equal(t, models.CandidateScheduled, f.candidateStatus(t, c.ID))

	stored, err := f.eng.GetInterview(f.ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, iv, stored)

	assert.Equal(t, []string{
		workflow.EventCandidateAdmitted,
		workflow.EventInterviewScheduled,
		workflow.EventCandidateStatusChanged,
	}, f.events.types())
}

func TestScheduleRejectedPerformsNoMutation(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")

	cases := map[apperr.ScheduleReason]time.Time{
		apperr.ReasonNotInPast:            monday.Add(-time.Hour),
		apperr.ReasonNoWeekends:           time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC),
		apperr.ReasonOutsideBusinessHours: nextTuesday(18, 0),
	}
	for want, at := range cases {
		_, err := f.eng.Schedule(f.ctx, workflow.ScheduleInput{CandidateID: c.ID, InterviewDate: at})
		var rej *apperr.ScheduleRejectedError
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, want, rej.Reason)
	}

	ivs, err := f.eng.ListInterviews(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, ivs)
	assert.Equal(t, models.CandidateNew, f.candidateStatus(t, c.ID))
}

func TestScheduleIgnoresLinkFormatOnCreate(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	_, err := f.eng.Schedule(f.ctx, workflow.ScheduleInput{
		CandidateID:   c.ID,
		InterviewDate: nextTuesday(11, 0),
		MeetingLink:   "room 4",
	})
	assert.NoError(t, err)
}

func TestScheduleTerminalCandidateRollsBack(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	_, err := f.eng.SetTerminalStatus(f.ctx, c.ID, models.CandidateHired)
	require.NoError(t, err)

	_, err = f.eng.Schedule(f.ctx, workflow.ScheduleInput{CandidateID: c.ID, InterviewDate: nextTuesday(10, 0)})
	var inv *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, apperr.EntityCandidate, inv.Entity)
	assert.Equal(t, "hired", inv.From)

	ivs, err := f.eng.ListInterviews(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, ivs, "interview must not persist")
	assert.Equal(t, models.CandidateHired, f.candidateStatus(t, c.ID))
}

func TestScheduleUnknownCandidate(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Schedule(f.ctx, workflow.ScheduleInput{CandidateID: "nope", InterviewDate: nextTuesday(10, 0)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.eng.Schedule(f.ctx, workflow.ScheduleInput{InterviewDate: nextTuesday(10, 0)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAtMostOneScheduledInterview(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	first := f.schedule(t, c.ID, nextTuesday(10, 0))

	_, err := f.eng.Schedule(f.ctx, workflow.ScheduleInput{CandidateID: c.ID, InterviewDate: nextTuesday(15, 0)})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.eng.Cancel(f.ctx, first.ID)
	require.NoError(t, err)
	f.schedule(t, c.ID, nextTuesday(15, 0))
}

func TestConcurrentScheduleSameCandidate(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	const n = 6

	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.eng.Schedule(context.Background(), workflow.ScheduleInput{
				CandidateID:   c.ID,
				InterviewDate: nextTuesday(10+i, 0),
			})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.True(t, errors.Is(err, apperr.ErrInvalidTransition), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	ivs, err := f.eng.ListInterviews(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, ivs, 1)
}

func TestScheduleThenReschedule(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))

	link := "https://meet.example.com/abc"
	moved, err := f.eng.Reschedule(f.ctx, iv.ID, nextTuesday(16, 0).Add(24*time.Hour), &link)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewScheduled, moved.Status)

	stored, err := f.eng.GetInterview(f.ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, nextTuesday(16, 0).Add(24*time.Hour), stored.InterviewDate)
	assert.Equal(t, link, stored.MeetingLink)

	// A nil link keeps the current one.
	again, err := f.eng.Reschedule(f.ctx, iv.ID, nextTuesday(9, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, link, again.MeetingLink)

	// An empty link clears it.
	empty := ""
	cleared, err := f.eng.Reschedule(f.ctx, iv.ID, nextTuesday(9, 0), &empty)
	require.NoError(t, err)
	assert.Empty(t, cleared.MeetingLink)
}

func TestRescheduleValidatesNewValues(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))

	bad := "meet dot example"
	_, err := f.eng.Reschedule(f.ctx, iv.ID, nextTuesday(15, 0), &bad)
	var rej *apperr.ScheduleRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, apperr.ReasonInvalidMeetingLink, rej.Reason)

	_, err = f.eng.Reschedule(f.ctx, iv.ID, nextTuesday(8, 0), nil)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, apperr.ReasonOutsideBusinessHours, rej.Reason)

	// The old slot is not re-checked even once it lies in the past.
	f.clock.Set(nextTuesday(15, 0))
	_, err = f.eng.Reschedule(f.ctx, iv.ID, nextTuesday(16, 0), nil)
	assert.NoError(t, err)

	_, err = f.eng.Reschedule(f.ctx, "missing", nextTuesday(16, 30), nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))
	f.clock.Set(nextTuesday(16, 0))

	done, err := f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{
		Ratings:     models.Ratings{TechnicalSkills: 4, Communication: 5, ProblemSolving: 3, CulturalFit: 4},
		Outcome:     models.OutcomePassed,
		Notes:       "strong",
		SubmittedBy: "A",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, done.Status)
	require.NotNil(t, done.Feedback)
	assert.Equal(t, 4.0, done.Feedback.OverallRating)
	assert.Equal(t, nextTuesday(16, 0), done.Feedback.SubmittedAt)
	assert.Equal(t, models.CandidateInterviewed, f.candidateStatus(t, c.ID))
	assert.Equal(t, []float64{4}, f.metrics.ratings)

	stored, err := f.eng.GetInterview(f.ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, done, stored)
}

func TestFeedbackEditOverwrites(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))

	_, err := f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{
		Ratings: models.Ratings{TechnicalSkills: 2},
		Outcome: models.OutcomePending,
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	edited, err := f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{
		Ratings: models.Ratings{TechnicalSkills: 5, Communication: 5, ProblemSolving: 5, CulturalFit: 2},
		Outcome: models.OutcomeRecommendedNextRound,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, edited.Status)
	assert.Equal(t, 4.5, edited.Feedback.OverallRating)
	assert.Equal(t, models.OutcomeRecommendedNextRound, edited.Feedback.Outcome)
	assert.Equal(t, monday.Add(time.Hour), edited.Feedback.SubmittedAt)
	assert.Equal(t, "hr <u1>", edited.Feedback.SubmittedBy)
}

func TestFeedbackEditKeepsLaterRoundScheduled(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	first := f.schedule(t, c.ID, nextTuesday(10, 0))

	_, err := f.eng.SubmitFeedback(f.ctx, first.ID, workflow.FeedbackInput{
		Ratings: models.Ratings{TechnicalSkills: 4},
		Outcome: models.OutcomeRecommendedNextRound,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CandidateInterviewed, f.candidateStatus(t, c.ID))

	f.schedule(t, c.ID, nextTuesday(15, 0))
	require.Equal(t, models.CandidateScheduled, f.candidateStatus(t, c.ID))

	edited, err := f.eng.SubmitFeedback(f.ctx, first.ID, workflow.FeedbackInput{
		Ratings: models.Ratings{TechnicalSkills: 5, Communication: 4},
		Outcome: models.OutcomePassed,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePassed, edited.Feedback.Outcome)
	assert.Equal(t, models.CandidateScheduled, f.candidateStatus(t, c.ID))
}

func TestFeedbackRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))

	_, err := f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{Ratings: models.Ratings{Communication: 6}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{Outcome: "hire"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	stored, err := f.eng.GetInterview(f.ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewScheduled, stored.Status)
	assert.Nil(t, stored.Feedback)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))

	got, err := f.eng.Cancel(f.ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCancelled, got.Status)
	assert.Equal(t, models.CandidateScheduled, f.candidateStatus(t, c.ID), "cancel leaves candidate status alone")

	_, err = f.eng.Cancel(f.ctx, iv.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCancelCompletedFails(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))
	done, err := f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{Outcome: models.OutcomeFailed})
	require.NoError(t, err)

	_, err = f.eng.Cancel(f.ctx, iv.ID)
	var inv *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, apperr.EntityInterview, inv.Entity)
	assert.Equal(t, "completed", inv.From)
	assert.Equal(t, workflow.OpCancel, inv.Operation)

	stored, err := f.eng.GetInterview(f.ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, done, stored)

	_, err = f.eng.Reschedule(f.ctx, iv.ID, nextTuesday(15, 0), nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))

	got, err := f.eng.MarkNoShow(f.ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewNoShow, got.Status)

	_, err = f.eng.MarkNoShow(f.ctx, iv.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.eng.SubmitFeedback(f.ctx, iv.ID, workflow.FeedbackInput{})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// No longer blocks a new interview or removal.
	f.schedule(t, c.ID, nextTuesday(16, 0))
}

func TestListInterviewsUnknownCandidate(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.ListInterviews(f.ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPreviewRating(t *testing.T) {
	f := newFixture(t)
	v, err := f.eng.PreviewRating(models.Ratings{TechnicalSkills: 4, Communication: 5, ProblemSolving: 3, CulturalFit: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}
