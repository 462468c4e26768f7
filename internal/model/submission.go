package model

import (
	"time"

	"github.com/google/uuid"
)

// McqSubmission holds one candidate's answer to one MCQ question.
// At most one row exists per (QuestionID, AccountID); resubmission
// overwrites the answer and score in place.
type McqSubmission struct {
	ID            uuid.UUID `json:"id"`
	QuestionID    uuid.UUID `json:"question_id"`
	AccountID     uuid.UUID `json:"account_id"`
	AnswerOptions string    `json:"answer_options"` // candidate's chosen set, same encoding as McqOption.AnswerOptions
	Score         float64   `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WrittenSubmission holds one candidate's free-text answer. Score stays
// nil until a manual or AI-assisted review sets it (outside this core).
type WrittenSubmission struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Answer     string    `json:"answer"`
	Score      *float64  `json:"score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProblemSubmission holds one candidate's latest code for one
// problem-solving question. Attempts counts every submission and is
// never reset by resubmission.
type ProblemSubmission struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Code       string    `json:"code"`
	Language   Language  `json:"language"`
	Score      float64   `json:"score"`
	Attempts   int       `json:"attempts"`
	IsFlagged  bool      `json:"is_flagged"`
	FlagReason *string   `json:"flag_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TestCodeResponse is the per-test-case outcome returned to the caller
// after a problem-solving submission. Exception text is surfaced
// verbatim; candidates need to see their own runtime errors.
type TestCodeResponse struct {
	TestCaseID      uuid.UUID `json:"test_case_id"`
	Passed          bool      `json:"passed"`
	ReceivedOutput  string    `json:"received_output"`
	Exception       *string   `json:"exception,omitempty"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
}
