// Package models defines the domain types for Recruitflow.
package models

import (
	"strings"
	"time"
)

// CandidateStatus is the position of a candidate in the recruitment pipeline.
type CandidateStatus string

const (
	CandidateNew         CandidateStatus = "new"
	CandidateContacted   CandidateStatus = "contacted"
	CandidateScheduled   CandidateStatus = "scheduled"
	CandidateInterviewed CandidateStatus = "interviewed"
	CandidateHired       CandidateStatus = "hired"
	CandidateRejected    CandidateStatus = "rejected"
	CandidateTerminated  CandidateStatus = "terminated"
)

// IsValid reports whether s is one of the known candidate statuses.
func (s CandidateStatus) IsValid() bool {
	switch s {
	case CandidateNew, CandidateContacted, CandidateScheduled, CandidateInterviewed,
		CandidateHired, CandidateRejected, CandidateTerminated:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further lifecycle transition is defined out of s.
func (s CandidateStatus) IsTerminal() bool {
	return s == CandidateHired || s == CandidateRejected || s == CandidateTerminated
}

func (s CandidateStatus) String() string {
	return string(s)
}

// Candidate is a person tracked through the recruitment pipeline.
type Candidate struct {
	ID          string          `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Position    string          `json:"position"`
	Source      string          `json:"source"`
	Notes       string          `json:"notes"`
	Skills      []string        `json:"skills"`
	CVReference *string         `json:"cv_reference"`
	Status      CandidateStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FullName joins first and last name.
func (c Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NormalizeEmail is the identity key used for duplicate detection.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CandidateFilter narrows ListCandidates results.
type CandidateFilter struct {
	Status   CandidateStatus
	Position string
	Query    string
	Limit    int
	Offset   int
}
