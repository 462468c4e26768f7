package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamCandidate tracks one candidate's invitation/attempt at one exam.
//
// StartedAt is set at most once, by StartExam. SubmittedAt holds the
// provisional deadline from the moment the exam starts and is overwritten
// with the actual submission instant by SubmitExam; once set it is never
// unset, so "now >= SubmittedAt" is the single end-of-session test.
// Rows are never physically deleted, only soft-deleted.
type ExamCandidate struct {
	ID             uuid.UUID  `json:"id"`
	ExaminationID  uuid.UUID  `json:"examination_id"`
	AccountID      *uuid.UUID `json:"account_id,omitempty"` // nil until the invitation is linked to an account
	CandidateEmail string     `json:"candidate_email"`
	Score          *float64   `json:"score,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	HasCheated     bool       `json:"has_cheated"`
	IsActive       bool       `json:"is_active"`
	IsDeleted      bool       `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SessionStatus is the derived state of a candidate's attempt. It is never
// stored; it falls out of the timestamps at the instant of observation.
type SessionStatus string

const (
	SessionStatusInvited    SessionStatus = "INVITED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusEnded      SessionStatus = "ENDED"
)

// StatusAt derives the session state at the given instant. An ended
// session covers both an explicit submit and natural deadline expiry.
func (c *ExamCandidate) StatusAt(now time.Time) SessionStatus {
	if c.StartedAt == nil {
		return SessionStatusInvited
	}
	if c.SubmittedAt != nil && !now.Before(*c.SubmittedAt) {
		return SessionStatusEnded
	}
	return SessionStatusInProgress
}

// CanSubmitAt reports whether answer submissions are acceptable at the
// given instant: the exam was started and the deadline has not passed.
func (c *ExamCandidate) CanSubmitAt(now time.Time) bool {
	if c.StartedAt == nil || c.SubmittedAt == nil {
		return false
	}
	return now.Before(*c.SubmittedAt)
}
