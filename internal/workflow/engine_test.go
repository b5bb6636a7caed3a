package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/schedule"
	"github.com/starford/recruitflow/internal/storage"
	"github.com/starford/recruitflow/internal/testutil"
	"github.com/starford/recruitflow/internal/workflow"
)

// Monday 2026-03-02 08:00 UTC.
var monday = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

// nextTuesday is 2026-03-03 at hh:mm UTC.
func nextTuesday(hh, mm int) time.Time {
	return time.Date(2026, time.March, 3, hh, mm, 0, 0, time.UTC)
}

type eventLog struct {
	mu     sync.Mutex
	events []workflow.Event
}

func (l *eventLog) Notify(ev workflow.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

type recorder struct {
	mu      sync.Mutex
	ops     map[string]int
	ratings []float64
}

func (r *recorder) ObserveOperation(op, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = map[string]int{}
	}
	r.ops[op+":"+result]++
}

func (r *recorder) ObserveRating(v float64) {
	r.mu.Lock()
	r.ratings = append(r.ratings, v)
	r.mu.Unlock()
}

type fixture struct {
	eng     *workflow.Engine
	clock   *schedule.FixedClock
	events  *eventLog
	metrics *recorder
	docs    *storage.FS
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, docs := testutil.TestDocuments(t)
	f := &fixture{
		clock:   schedule.NewFixedClock(monday),
		events:  &eventLog{},
		metrics: &recorder{},
		docs:    docs,
		ctx:     workflow.WithActor(context.Background(), workflow.Actor{ID: "u1", Name: "hr"}),
	}
	f.eng = workflow.New(testutil.TestDB(t),
		workflow.WithClock(f.clock),
		workflow.WithLocation(time.UTC),
		workflow.WithNotifier(f.events),
		workflow.WithMetrics(f.metrics),
		workflow.WithDocuments(docs),
	)
	return f
}

func (f *fixture) admit(t *testing.T, email string) *models.Candidate {
	t.Helper()
	c, err := f.eng.AdmitCandidate(f.ctx, workflow.CandidateInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Position:  "Engineer",
		Skills:    []string{"go"},
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) schedule(t *testing.T, candidateID string, at time.Time) *models.Interview {
	t.Helper()
	iv, err := f.eng.Schedule(f.ctx, workflow.ScheduleInput{
		CandidateID:   candidateID,
		InterviewDate: at,
		InterviewType: "First Round",
		Interviewers:  []string{"A", "B"},
	})
	require.NoError(t, err)
	return iv
}

func (f *fixture) candidateStatus(t *testing.T, id string) models.CandidateStatus {
	t.Helper()
	c, err := f.eng.GetCandidate(f.ctx, id)
	require.NoError(t, err)
	return c.Status
}
