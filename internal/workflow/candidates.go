package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/store"
)

// Operation names, used in audit rows, metrics and InvalidTransition errors.
const (
	OpAdmit                    = "admit"
	OpUpdateCandidate          = "update"
	OpMarkContacted            = "mark_contacted"
	OpSetTerminalStatus        = "set_terminal_status"
	OpRecordInterviewScheduled = "record_interview_scheduled"
	OpRecordInterviewCompleted = "record_interview_completed"
	OpRemoveCandidate          = "remove"
	OpAttachCV                 = "attach_cv"
	OpDetachCV                 = "detach_cv"
)

func duplicateOf(c *models.Candidate) error {
	return &apperr.DuplicateCandidateError{
		ExistingID:     c.ID,
		ExistingName:   c.FullName(),
		ExistingStatus: c.Status.String(),
	}
}

// resolveUnique turns a unique-constraint failure on the email index into a
// DuplicateCandidateError by looking up the row that won the race.
func (e *Engine) resolveUnique(ctx context.Context, email string, err error) error {
	if !errors.Is(err, store.ErrUniqueViolation) {
		return err
	}
	existing, lerr := e.db.Queries().GetCandidateByEmail(ctx, email)
	if lerr != nil {
		return err
	}
	return duplicateOf(existing)
}

// AdmitCandidate creates a candidate in status new. The duplicate check and
// the insert share one transaction; the email index backs it up when two
// admissions race.
func (e *Engine) AdmitCandidate(ctx context.Context, in CandidateInput) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpAdmit, err) }()

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperr.Invalid(err)
	}

	now := e.now()
	c := &models.Candidate{ID: newID(), Status: models.CandidateNew, CreatedAt: now, UpdatedAt: now}
	in.apply(c)

	err = e.db.WithinTx(ctx, func(q *store.Queries) error {
		existing, err := q.GetCandidateByEmail(ctx, c.Email)
		switch {
		case err == nil:
			return duplicateOf(existing)
		case !errors.Is(err, store.ErrNoRows):
			return err
		}
		if err := q.InsertCandidate(ctx, c); err != nil {
			return err
		}
		return e.audit(ctx, q, c.ID, apperr.EntityCandidate, c.ID, OpAdmit, "", c.Status.String(), now)
	})
	if err != nil {
		return nil, e.resolveUnique(ctx, c.Email, err)
	}

	e.log.InfoContext(ctx, "candidate admitted",
		slog.String("candidate_id", c.ID),
		slog.String("position", c.Position))
	e.emit([]Event{{Type: EventCandidateAdmitted, CandidateID: c.ID, To: c.Status.String(),
		Actor: ActorFrom(ctx).Label(), At: now}})
	return c, nil
}

// UpdateCandidate replaces the editable attributes of a candidate. Changing
// the email re-runs duplicate detection.
func (e *Engine) UpdateCandidate(ctx context.Context, id string, in CandidateInput) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpUpdateCandidate, err) }()

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperr.Invalid(err)
	}

	now := e.now()
	var c *models.Candidate
	err = e.db.WithinTx(ctx, func(q *store.Queries) error {
		var err error
		c, err = q.GetCandidateForUpdate(ctx, id)
		if err != nil {
			return candidateNotFound(id, err)
		}
		if models.NormalizeEmail(in.Email) != models.NormalizeEmail(c.Email) {
			existing, err := q.GetCandidateByEmail(ctx, in.Email)
			switch {
			case err == nil:
				return duplicateOf(existing)
			case !errors.Is(err, store.ErrNoRows):
				return err
			}
		}
		in.apply(c)
		c.UpdatedAt = now
		if err := q.UpdateCandidate(ctx, c); err != nil {
			return err
		}
		return e.audit(ctx, q, c.ID, apperr.EntityCandidate, c.ID, OpUpdateCandidate,
			c.Status.String(), c.Status.String(), now)
	})
	if err != nil {
		return nil, e.resolveUnique(ctx, in.Email, err)
	}

	e.emit([]Event{{Type: EventCandidateUpdated, CandidateID: c.ID, Actor: ActorFrom(ctx).Label(), At: now}})
	return c, nil
}

// transitionCandidate moves c to status inside q and records the change. It
// is a no-op when c already has that status.
func (e *Engine) transitionCandidate(ctx context.Context, q *store.Queries, c *models.Candidate, to models.CandidateStatus, op string, events *[]Event) error {
	if c.Status == to {
		return nil
	}
	now := e.now()
	from := c.Status
	if err := q.UpdateCandidateStatus(ctx, c.ID, to, now); err != nil {
		return err
	}
	if err := e.audit(ctx, q, c.ID, apperr.EntityCandidate, c.ID, op, from.String(), to.String(), now); err != nil {
		return err
	}
	c.Status = to
	c.UpdatedAt = now
	*events = append(*events, Event{
		Type:        EventCandidateStatusChanged,
		CandidateID: c.ID,
		From:        from.String(),
		To:          to.String(),
		Actor:       ActorFrom(ctx).Label(),
		At:          now,
	})
	return nil
}

// recordScheduled moves a non-terminal candidate to scheduled. op names the
// triggering operation in the returned error.
func (e *Engine) recordScheduled(ctx context.Context, q *store.Queries, c *models.Candidate, op string, events *[]Event) error {
	if c.Status.IsTerminal() {
		return &apperr.InvalidTransitionError{
			Entity:    apperr.EntityCandidate,
			From:      c.Status.String(),
			Operation: op,
			Detail:    "candidate is in a terminal status",
		}
	}
	return e.transitionCandidate(ctx, q, c, models.CandidateScheduled, OpRecordInterviewScheduled, events)
}

// recordCompleted moves a non-terminal candidate to interviewed. Every
// outcome maps to interviewed; hire and reject decisions are explicit.
// Terminal candidates keep their status.
func (e *Engine) recordCompleted(ctx context.Context, q *store.Queries, c *models.Candidate, _ models.Outcome, events *[]Event) error {
	if c.Status.IsTerminal() {
		return nil
	}
	return e.transitionCandidate(ctx, q, c, models.CandidateInterviewed, OpRecordInterviewCompleted, events)
}

// RecordInterviewScheduled applies the scheduled-interview side effect to a
// candidate on its own. Schedule performs the same step in its transaction.
func (e *Engine) RecordInterviewScheduled(ctx context.Context, candidateID string) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpRecordInterviewScheduled, err) }()
	return e.mutateCandidate(ctx, candidateID, func(q *store.Queries, c *models.Candidate, events *[]Event) error {
		return e.recordScheduled(ctx, q, c, OpRecordInterviewScheduled, events)
	})
}

// RecordInterviewCompleted applies the completed-interview side effect to a
// candidate on its own. SubmitFeedback performs the same step in its
// transaction.
func (e *Engine) RecordInterviewCompleted(ctx context.Context, candidateID string, outcome models.Outcome) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpRecordInterviewCompleted, err) }()
	if !outcome.IsValid() {
		return nil, apperr.Invalid(fmt.Errorf("outcome: unknown value %q", outcome))
	}
	return e.mutateCandidate(ctx, candidateID, func(q *store.Queries, c *models.Candidate, events *[]Event) error {
		return e.recordCompleted(ctx, q, c, outcome, events)
	})
}

// MarkContacted moves a new candidate to contacted.
func (e *Engine) MarkContacted(ctx context.Context, candidateID string) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpMarkContacted, err) }()
	return e.mutateCandidate(ctx, candidateID, func(q *store.Queries, c *models.Candidate, events *[]Event) error {
		if c.Status != models.CandidateNew {
			return &apperr.InvalidTransitionError{
				Entity:    apperr.EntityCandidate,
				From:      c.Status.String(),
				Operation: OpMarkContacted,
			}
		}
		return e.transitionCandidate(ctx, q, c, models.CandidateContacted, OpMarkContacted, events)
	})
}

// SetTerminalStatus moves a non-terminal candidate to hired, rejected or
// terminated.
func (e *Engine) SetTerminalStatus(ctx context.Context, candidateID string, status models.CandidateStatus) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpSetTerminalStatus, err) }()
	if !status.IsTerminal() {
		return nil, apperr.Invalid(fmt.Errorf("status: %q is not a terminal status", status))
	}
	return e.mutateCandidate(ctx, candidateID, func(q *store.Queries, c *models.Candidate, events *[]Event) error {
		if c.Status.IsTerminal() {
			return &apperr.InvalidTransitionError{
				Entity:    apperr.EntityCandidate,
				From:      c.Status.String(),
				Operation: OpSetTerminalStatus,
			}
		}
		return e.transitionCandidate(ctx, q, c, status, OpSetTerminalStatus, events)
	})
}

// mutateCandidate loads a candidate, applies fn in the same transaction and
// emits the resulting events after commit.
func (e *Engine) mutateCandidate(ctx context.Context, id string, fn func(*store.Queries, *models.Candidate, *[]Event) error) (*models.Candidate, error) {
	var (
		c      *models.Candidate
		events []Event
	)
	err := e.db.WithinTx(ctx, func(q *store.Queries) error {
		var err error
		c, err = q.GetCandidateForUpdate(ctx, id)
		if err != nil {
			return candidateNotFound(id, err)
		}
		return fn(q, c, &events)
	})
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		e.log.InfoContext(ctx, "candidate status changed",
			slog.String("candidate_id", ev.CandidateID),
			slog.String("from", ev.From),
			slog.String("to", ev.To))
	}
	e.emit(events)
	return c, nil
}

// RemoveCandidate hard-deletes a candidate and its interviews. A candidate
// with a scheduled interview cannot be removed. The stored CV is deleted
// after commit on a best-effort basis.
func (e *Engine) RemoveCandidate(ctx context.Context, id string) (err error) {
	defer func() { e.observe(ctx, OpRemoveCandidate, err) }()

	now := e.now()
	var c *models.Candidate
	err = e.db.WithinTx(ctx, func(q *store.Queries) error {
		var err error
		c, err = q.GetCandidateForUpdate(ctx, id)
		if err != nil {
			return candidateNotFound(id, err)
		}
		n, err := q.CountInterviews(ctx, id, models.InterviewScheduled)
		if err != nil {
			return err
		}
		if n > 0 {
			return &apperr.HasActiveInterviewsError{CandidateID: id, Count: n}
		}
		if err := q.DeleteCandidate(ctx, id); err != nil {
			return err
		}
		return e.audit(ctx, q, id, apperr.EntityCandidate, id, OpRemoveCandidate, c.Status.String(), "", now)
	})
	if err != nil {
		return err
	}

	if c.CVReference != nil && e.docs != nil {
		if derr := e.docs.Delete(*c.CVReference); derr != nil {
			e.log.WarnContext(ctx, "delete cv of removed candidate",
				slog.String("candidate_id", id),
				slog.String("error", derr.Error()))
		}
	}
	e.log.InfoContext(ctx, "candidate removed", slog.String("candidate_id", id))
	e.emit([]Event{{Type: EventCandidateRemoved, CandidateID: id, From: c.Status.String(),
		Actor: ActorFrom(ctx).Label(), At: now}})
	return nil
}

// cvPath is where a candidate's CV is kept inside the document store.
func cvPath(candidateID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "cv"
	}
	return path.Join("cv", candidateID, name)
}

var errNoDocuments = errors.New("workflow: document storage is not configured")

// AttachCV stores content as the candidate's CV and points cvReference at
// it, replacing any previous file.
func (e *Engine) AttachCV(ctx context.Context, candidateID, filename string, content []byte) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpAttachCV, err) }()
	if e.docs == nil {
		return nil, errNoDocuments
	}
	if len(content) == 0 {
		return nil, apperr.Invalid(errors.New("cv: cannot be empty"))
	}
	if _, err := e.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}

	ref := cvPath(candidateID, filename)
	if err := e.docs.Write(ref, content); err != nil {
		return nil, err
	}

	var previous *string
	c, err := e.setCV(ctx, candidateID, &ref, OpAttachCV, &previous)
	if err != nil {
		if previous == nil || *previous != ref {
			e.removeDocument(ctx, candidateID, ref)
		}
		return nil, err
	}
	if previous != nil && *previous != ref {
		e.removeDocument(ctx, candidateID, *previous)
	}
	return c, nil
}

// DetachCV clears cvReference and deletes the stored file.
func (e *Engine) DetachCV(ctx context.Context, candidateID string) (_ *models.Candidate, err error) {
	defer func() { e.observe(ctx, OpDetachCV, err) }()
	var previous *string
	c, err := e.setCV(ctx, candidateID, nil, OpDetachCV, &previous)
	if err != nil {
		return nil, err
	}
	if previous != nil && e.docs != nil {
		e.removeDocument(ctx, candidateID, *previous)
	}
	return c, nil
}

func (e *Engine) setCV(ctx context.Context, id string, ref *string, op string, previous **string) (*models.Candidate, error) {
	now := e.now()
	var c *models.Candidate
	err := e.db.WithinTx(ctx, func(q *store.Queries) error {
		var err error
		c, err = q.GetCandidateForUpdate(ctx, id)
		if err != nil {
			return candidateNotFound(id, err)
		}
		*previous = c.CVReference
		c.CVReference = ref
		c.UpdatedAt = now
		if err := q.UpdateCandidate(ctx, c); err != nil {
			return err
		}
		return e.audit(ctx, q, id, apperr.EntityCandidate, id, op, c.Status.String(), c.Status.String(), now)
	})
	if err != nil {
		return nil, err
	}
	e.emit([]Event{{Type: EventCandidateUpdated, CandidateID: id, Actor: ActorFrom(ctx).Label(), At: now}})
	return c, nil
}

func (e *Engine) removeDocument(ctx context.Context, candidateID, ref string) {
	if err := e.docs.Delete(ref); err != nil {
		e.log.WarnContext(ctx, "delete previous cv",
			slog.String("candidate_id", candidateID),
			slog.String("path", ref),
			slog.String("error", err.Error()))
	}
}

// ReadCV returns the stored CV of a candidate.
func (e *Engine) ReadCV(ctx context.Context, candidateID string) (string, []byte, error) {
	c, err := e.GetCandidate(ctx, candidateID)
	if err != nil {
		return "", nil, err
	}
	if c.CVReference == nil || e.docs == nil {
		return "", nil, &apperr.NotFoundError{Entity: "cv", ID: candidateID}
	}
	data, err := e.docs.Read(*c.CVReference)
	if err != nil {
		return "", nil, fmt.Errorf("read cv: %w", err)
	}
	return *c.CVReference, data, nil
}

// GetCandidate loads a candidate.
func (e *Engine) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := e.db.Queries().GetCandidate(ctx, id)
	if err != nil {
		return nil, candidateNotFound(id, err)
	}
	return c, nil
}

// ListCandidates returns one page of candidates and the total match count.
func (e *Engine) ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Candidate, int, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, 0, apperr.Invalid(fmt.Errorf("status: unknown value %q", f.Status))
	}
	return e.db.Queries().ListCandidates(ctx, f)
}

// History returns the audit trail of a candidate, including entries written
// before it was removed.
func (e *Engine) History(ctx context.Context, candidateID string) ([]models.AuditEntry, error) {
	entries, err := e.db.Queries().ListAudit(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}
