// Package workflow implements the recruitment workflow engine: the candidate
// and interview state machines, duplicate detection on admission, and the
// cross-entity status updates that tie them together.
//
// Every mutating operation runs in a single store transaction together with
// its audit rows. Events and metrics are emitted only after commit.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/rating"
	"github.com/starford/recruitflow/internal/schedule"
	"github.com/starford/recruitflow/internal/storage"
	"github.com/starford/recruitflow/internal/store"
)

// Result values passed to Recorder for calls that did not end in a typed
// failure.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	// ObserveOperation records one engine call. result is ResultOK,
	// ResultError or the apperr code of a business rejection.
	ObserveOperation(operation, result string)
	// ObserveRating records a computed overall rating.
	ObserveRating(overall float64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string) {}
func (nopRecorder) ObserveRating(float64)           {}

// Engine owns candidate and interview lifecycles. It holds no per-caller
// state and is safe for concurrent use.
type Engine struct {
	db        *store.DB
	docs      storage.Provider
	clock     schedule.Clock
	loc       *time.Location
	validator *schedule.Validator
	notifier  Notifier
	metrics   Recorder
	log       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for validation and timestamps.
func WithClock(c schedule.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the business timezone for scheduling rules.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithNotifier sets the receiver of committed workflow events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDocuments enables CV storage.
func WithDocuments(p storage.Provider) Option {
	return func(e *Engine) { e.docs = p }
}

// New creates an Engine on top of db.
func New(db *store.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		clock:    schedule.SystemClock{},
		loc:      time.Local,
		notifier: nopNotifier{},
		metrics:  nopRecorder{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validator = schedule.NewValidator(e.clock, e.loc)
	return e
}

// Validator returns the scheduling rule evaluator.
func (e *Engine) Validator() *schedule.Validator { return e.validator }

// PreviewRating computes the overall rating without touching any interview.
func (e *Engine) PreviewRating(r models.Ratings) (float64, error) {
	return rating.Aggregate(r)
}

// now is the engine timestamp, truncated to what the store keeps.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Millisecond)
}

func newID() string { return uuid.NewString() }

// observe records the outcome of an operation. Business rejections log at
// debug; anything unclassified logs at error.
func (e *Engine) observe(ctx context.Context, op string, err error) {
	code := apperr.CodeOf(err)
	switch {
	case err == nil:
		e.metrics.ObserveOperation(op, ResultOK)
	case code != "":
		e.metrics.ObserveOperation(op, string(code))
		e.log.DebugContext(ctx, "workflow rejected",
			slog.String("operation", op),
			slog.String("code", string(code)),
			slog.String("error", err.Error()))
	default:
		e.metrics.ObserveOperation(op, ResultError)
		e.log.ErrorContext(ctx, "workflow failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
	}
}

// audit appends an audit row inside q's transaction.
func (e *Engine) audit(ctx context.Context, q *store.Queries, candidateID, entity, entityID, op, from, to string, at time.Time) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	return q.InsertAudit(ctx, candidateID, models.AuditEntry{
		ID:         id.String(),
		Entity:     entity,
		EntityID:   entityID,
		Operation:  op,
		FromStatus: from,
		ToStatus:   to,
		Actor:      ActorFrom(ctx).Label(),
		At:         at,
	})
}

func candidateNotFound(id string, err error) error {
	if errors.Is(err, store.ErrNoRows) {
		return &apperr.NotFoundError{Entity: apperr.EntityCandidate, ID: id}
	}
	return err
}

func interviewNotFound(id string, err error) error {
	if errors.Is(err, store.ErrNoRows) {
		return &apperr.NotFoundError{Entity: apperr.EntityInterview, ID: id}
	}
	return err
}
