package service

import (
	"context"
	"time"

	"github.com/certiq/certiq-backend/internal/model"
	"github.com/certiq/certiq-backend/internal/repository"
	"github.com/google/uuid"
)

// Collaborator interfaces consumed by the services. The pgx-backed
// implementations live in internal/repository; tests substitute
// in-memory fakes. Get-style methods return (nil, nil) when the row
// does not exist.

// CandidateStore is the durable home of all session state. No session
// state lives in process memory between calls.
type CandidateStore interface {
	GetByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) (*model.ExamCandidate, error)
	SetStarted(ctx context.Context, id uuid.UUID, startedAt, deadline time.Time) (int64, error)
	SetSubmitted(ctx context.Context, id uuid.UUID, submittedAt time.Time) (int64, error)
	LinkAccountByEmail(ctx context.Context, email string, accountID uuid.UUID) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]repository.LobbyRow, error)
}

// ExamStore reads exam definitions.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Examination, error)
}

// QuestionStore reads questions, options and test cases.
type QuestionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	ListTestCases(ctx context.Context, questionID uuid.UUID) ([]model.TestCase, error)
}

// McqSubmissionStore persists MCQ submissions.
type McqSubmissionStore interface {
	UpsertBatch(ctx context.Context, subs []model.McqSubmission) error
	ListByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) ([]model.McqSubmission, error)
}

// WrittenSubmissionStore persists written submissions.
type WrittenSubmissionStore interface {
	UpsertBatch(ctx context.Context, subs []model.WrittenSubmission) error
	ListByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) ([]model.WrittenSubmission, error)
}

// ProblemSubmissionStore persists problem-solving submissions.
type ProblemSubmissionStore interface {
	Upsert(ctx context.Context, sub *model.ProblemSubmission) error
	ListByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) ([]model.ProblemSubmission, error)
}

// AccountStore reads and creates candidate accounts.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

// SessionCache is the redis fast lane for papers and deadlines. All
// calls are best-effort; callers fall back to the store on miss.
type SessionCache interface {
	GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
	SetPaper(ctx context.Context, paper *model.ExamPaper, ttl time.Duration) error
	SetDeadline(ctx context.Context, examID, accountID uuid.UUID, deadline time.Time) error
	GetDeadline(ctx context.Context, examID, accountID uuid.UUID) (time.Time, error)
}

// ScoreQueue hands a finished candidate off for asynchronous total-score
// aggregation.
type ScoreQueue interface {
	EnqueueScoreAggregation(ctx context.Context, candidateID, examID, accountID uuid.UUID) error
}
