// Package apperr defines the typed failures returned by the workflow engine.
//
// Every business rejection is one of the types below. Each type matches its
// package sentinel through errors.Is, so callers can branch on the kind and
// still extract details with errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds.
var (
	ErrDuplicateCandidate  = errors.New("duplicate candidate")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrScheduleRejected    = errors.New("schedule rejected")
	ErrHasActiveInterviews = errors.New("candidate has active interviews")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
)

// Code is a stable machine-readable failure identifier.
type Code string

const (
	CodeDuplicateCandidate  Code = "DUPLICATE_CANDIDATE"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeScheduleRejected    Code = "SCHEDULE_REJECTED"
	CodeHasActiveInterviews Code = "HAS_ACTIVE_INTERVIEWS"
	CodeNotFound            Code = "NOT_FOUND"
	CodeValidation          Code = "VALIDATION_FAILED"
)

// Entity names used in failures.
const (
	EntityCandidate = "candidate"
	EntityInterview = "interview"
)

// DuplicateCandidateError blocks admission of a candidate whose normalized
// email already exists.
type DuplicateCandidateError struct {
	ExistingID     string
	ExistingName   string
	ExistingStatus string
}

func (e *DuplicateCandidateError) Error() string {
	return fmt.Sprintf("duplicate candidate: %s (%s) already exists with status %s",
		e.ExistingName, e.ExistingID, e.ExistingStatus)
}

func (e *DuplicateCandidateError) Is(target error) bool { return target == ErrDuplicateCandidate }

// Code returns CodeDuplicateCandidate.
func (e *DuplicateCandidateError) Code() Code { return CodeDuplicateCandidate }

// InvalidTransitionError reports a state machine rule violation.
type InvalidTransitionError struct {
	Entity    string
	From      string
	Operation string
	Detail    string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition: cannot %s %s in status %q", e.Operation, e.Entity, e.From)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Code returns CodeInvalidTransition.
func (e *InvalidTransitionError) Code() Code { return CodeInvalidTransition }

// ScheduleReason names the scheduling rule that rejected a proposal.
type ScheduleReason string

const (
	ReasonNotInPast            ScheduleReason = "NotInPast"
	ReasonNoWeekends           ScheduleReason = "NoWeekends"
	ReasonOutsideBusinessHours ScheduleReason = "OutsideBusinessHours"
	ReasonInvalidMeetingLink   ScheduleReason = "InvalidMeetingLink"
)

// ScheduleRejectedError reports the first scheduling rule a proposal failed.
type ScheduleRejectedError struct {
	Reason ScheduleReason
}

func (e *ScheduleRejectedError) Error() string {
	return "schedule rejected: " + string(e.Reason)
}

func (e *ScheduleRejectedError) Is(target error) bool { return target == ErrScheduleRejected }

// Code returns CodeScheduleRejected.
func (e *ScheduleRejectedError) Code() Code { return CodeScheduleRejected }

// HasActiveInterviewsError blocks deletion of a candidate that still owns a
// scheduled interview.
type HasActiveInterviewsError struct {
	CandidateID string
	Count       int
}

func (e *HasActiveInterviewsError) Error() string {
	return fmt.Sprintf("candidate %s has %d scheduled interview(s)", e.CandidateID, e.Count)
}

func (e *HasActiveInterviewsError) Is(target error) bool { return target == ErrHasActiveInterviews }

// Code returns CodeHasActiveInterviews.
func (e *HasActiveInterviewsError) Code() Code { return CodeHasActiveInterviews }

// NotFoundError reports a missing candidate or interview.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Code returns CodeNotFound.
func (e *NotFoundError) Code() Code { return CodeNotFound }

// ValidationError wraps malformed caller input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Code returns CodeValidation.
func (e *ValidationError) Code() Code { return CodeValidation }

// Invalid wraps err as a ValidationError. A nil err stays nil.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

// Coder is implemented by every typed failure in this package.
type Coder interface {
	Code() Code
}

// CodeOf returns the failure code of err, or "" for unclassified errors.
func CodeOf(err error) Code {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}
