package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/workflow"
)

func TestAdmitCandidate(t *testing.T) {
	f := newFixture(t)
	c, err := f.eng.AdmitCandidate(f.ctx, workflow.CandidateInput{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     " Ada@Example.com",
		Skills:    []string{" go ", "", "sql"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, models.CandidateNew, c.Status)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "Ada@Example.com", c.Email)
	assert.Equal(t, []string{"go", "sql"}, c.Skills)

	stored, err := f.eng.GetCandidate(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, stored)
	assert.Equal(t, []string{workflow.EventCandidateAdmitted}, f.events.types())
}

func TestAdmitDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	first := f.admit(t, "x@y.com")

	_, err := f.eng.AdmitCandidate(f.ctx, workflow.CandidateInput{
		FirstName: "Other", LastName: "Person", Email: "  X@Y.COM ",
	})
	var dup *apperr.DuplicateCandidateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.Equal(t, "Ada Lovelace", dup.ExistingName)
	assert.Equal(t, "new", dup.ExistingStatus)

	list, total, err := f.eng.ListCandidates(f.ctx, models.CandidateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}

func TestAdmitConcurrentSameEmail(t *testing.T) {
	f := newFixture(t)
	const n = 8

	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.eng.AdmitCandidate(context.Background(), workflow.CandidateInput{
				FirstName: "Ada", LastName: "Lovelace", Email: "x@y.com",
			})
		}()
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrDuplicateCandidate):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestAdmitValidation(t *testing.T) {
	f := newFixture(t)
	cases := []workflow.CandidateInput{
		{FirstName: "Ada", LastName: "Lovelace"},
		{FirstName: "Ada", LastName: "Lovelace", Email: "not-an-email"},
		{LastName: "Lovelace", Email: "x@y.com"},
	}
	for _, in := range cases {
		_, err := f.eng.AdmitCandidate(f.ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestMarkContacted(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")

	got, err := f.eng.MarkContacted(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CandidateContacted, got.Status)

	_, err = f.eng.MarkContacted(f.ctx, c.ID)
	var inv *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "contacted", inv.From)
}

func TestSetTerminalStatus(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")

	_, err := f.eng.SetTerminalStatus(f.ctx, c.ID, models.CandidateInterviewed)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.eng.SetTerminalStatus(f.ctx, c.ID, models.CandidateHired)
	require.NoError(t, err)
	assert.Equal(t, models.CandidateHired, got.Status)

	_, err = f.eng.SetTerminalStatus(f.ctx, c.ID, models.CandidateRejected)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, models.CandidateHired, f.candidateStatus(t, c.ID))

	_, err = f.eng.SetTerminalStatus(f.ctx, "missing", models.CandidateHired)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordInterviewScheduledOnTerminalCandidate(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	_, err := f.eng.SetTerminalStatus(f.ctx, c.ID, models.CandidateTerminated)
	require.NoError(t, err)

	_, err = f.eng.RecordInterviewScheduled(f.ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, models.CandidateTerminated, f.candidateStatus(t, c.ID))
}

func TestRecordInterviewCompleted(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")

	for _, o := range []models.Outcome{models.OutcomePassed, models.OutcomeFailed,
		models.OutcomeRecommendedNextRound, models.OutcomePending} {
		got, err := f.eng.RecordInterviewCompleted(f.ctx, c.ID, o)
		require.NoError(t, err)
		assert.Equal(t, models.CandidateInterviewed, got.Status, o)
	}

	_, err := f.eng.RecordInterviewCompleted(f.ctx, c.ID, "maybe")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// Terminal candidates keep their status.
	_, err = f.eng.SetTerminalStatus(f.ctx, c.ID, models.CandidateRejected)
	require.NoError(t, err)
	got, err := f.eng.RecordInterviewCompleted(f.ctx, c.ID, models.OutcomePassed)
	require.NoError(t, err)
	assert.Equal(t, models.CandidateRejected, got.Status)
}

func TestUpdateCandidate(t *testing.T) {
	f := newFixture(t)
	a := f.admit(t, "a@y.com")
	f.admit(t, "b@y.com")

	got, err := f.eng.UpdateCandidate(f.ctx, a.ID, workflow.CandidateInput{
		FirstName: "Ada", LastName: "King", Email: "A@Y.com", Phone: "+44 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "King", got.LastName)
	assert.Equal(t, models.CandidateNew, got.Status)

	_, err = f.eng.UpdateCandidate(f.ctx, a.ID, workflow.CandidateInput{
		FirstName: "Ada", LastName: "King", Email: "B@y.com",
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicateCandidate)

	_, err = f.eng.UpdateCandidate(f.ctx, "missing", workflow.CandidateInput{
		FirstName: "Ada", LastName: "King", Email: "c@y.com",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveCandidate(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	iv := f.schedule(t, c.ID, nextTuesday(14, 30))

	err := f.eng.RemoveCandidate(f.ctx, c.ID)
	var active *apperr.HasActiveInterviewsError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, 1, active.Count)

	_, err = f.eng.Cancel(f.ctx, iv.ID)
	require.NoError(t, err)
	require.NoError(t, f.eng.RemoveCandidate(f.ctx, c.ID))

	_, err = f.eng.GetCandidate(f.ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.eng.GetInterview(f.ctx, iv.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.eng.RemoveCandidate(f.ctx, c.ID), apperr.ErrNotFound)

	// The email is free again.
	f.admit(t, "x@y.com")
}

func TestCVLifecycle(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")

	got, err := f.eng.AttachCV(f.ctx, c.ID, "../../Ada CV.pdf", []byte("%PDF"))
	require.NoError(t, err)
	require.NotNil(t, got.CVReference)
	assert.Equal(t, "cv/"+c.ID+"/Ada CV.pdf", *got.CVReference)

	ref, data, err := f.eng.ReadCV(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, *got.CVReference, ref)
	assert.Equal(t, "%PDF", string(data))

	// Replacing drops the old file.
	_, err = f.eng.AttachCV(f.ctx, c.ID, "v2.pdf", []byte("%PDF-2"))
	require.NoError(t, err)
	_, err = f.docs.Read(ref)
	assert.Error(t, err)

	detached, err := f.eng.DetachCV(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.CVReference)
	_, _, err = f.eng.ReadCV(f.ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	docs, err := f.docs.List("cv", "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRemoveCandidateDeletesCV(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	got, err := f.eng.AttachCV(f.ctx, c.ID, "cv.pdf", []byte("%PDF"))
	require.NoError(t, err)

	require.NoError(t, f.eng.RemoveCandidate(f.ctx, c.ID))
	_, err = f.docs.Read(*got.CVReference)
	assert.Error(t, err)
}

func TestHistoryRecordsActor(t *testing.T) {
	f := newFixture(t)
	c := f.admit(t, "x@y.com")
	f.schedule(t, c.ID, nextTuesday(10, 0))

	entries, err := f.eng.History(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	ops := make([]string, len(entries))
	for i, e := range entries {
		ops[i] = e.Operation
		assert.Equal(t, "hr <u1>", e.Actor)
	}
	assert.Equal(t, []string{workflow.OpAdmit, workflow.OpSchedule, workflow.OpRecordInterviewScheduled}, ops)
	assert.Equal(t, "new", entries[2].FromStatus)
	assert.Equal(t, "scheduled", entries[2].ToStatus)

	none, err := f.eng.History(f.ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestActorDefaultsToSystem(t *testing.T) {
	assert.Equal(t, workflow.SystemActor, workflow.ActorFrom(context.Background()))
	ctx := workflow.WithActor(context.Background(), workflow.Actor{ID: "42"})
	assert.Equal(t, "42", workflow.ActorFrom(ctx).Label())
}

func TestMetricsObserveOutcomes(t *testing.T) {
	f := newFixture(t)
	f.admit(t, "x@y.com")
	_, err := f.eng.AdmitCandidate(f.ctx, workflow.CandidateInput{FirstName: "A", LastName: "B", Email: "x@y.com"})
	require.Error(t, err)

	assert.Equal(t, 1, f.metrics.ops[workflow.OpAdmit+":"+workflow.ResultOK])
	assert.Equal(t, 1, f.metrics.ops[workflow.OpAdmit+":"+string(apperr.CodeDuplicateCandidate)])
}
