package repository

import (
	"context"

	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProblemSubmissionRepository handles problem-solving submission
// persistence. Attempts is bumped inside the upsert itself so the
// counter stays monotonic no matter how requests interleave.
type ProblemSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewProblemSubmissionRepository creates a new ProblemSubmissionRepository.
func NewProblemSubmissionRepository(pool *pgxpool.Pool) *ProblemSubmissionRepository {
	return &ProblemSubmissionRepository{pool: pool}
}

// Upsert creates the submission with attempts=1, or overwrites code,
// language and score in place and increments attempts. The final
// attempts value is written back into sub.
func (r *ProblemSubmissionRepository) Upsert(ctx context.Context, sub *model.ProblemSubmission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO problem_submissions (question_id, account_id, code, language, score, attempts)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 ON CONFLICT (question_id, account_id) DO UPDATE
		 SET code = EXCLUDED.code,
		     language = EXCLUDED.language,
		     score = EXCLUDED.score,
		     attempts = problem_submissions.attempts + 1,
		     updated_at = NOW()
		 RETURNING id, attempts`,
		sub.QuestionID, sub.AccountID, sub.Code, sub.Language, sub.Score,
	).Scan(&sub.ID, &sub.Attempts)
}

// ListByExamAndAccount retrieves a candidate's problem submissions for one exam.
func (r *ProblemSubmissionRepository) ListByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) ([]model.ProblemSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.question_id, s.account_id, s.code, s.language, s.score,
		        s.attempts, s.is_flagged, s.flag_reason, s.created_at, s.updated_at
		 FROM problem_submissions s
		 JOIN questions q ON q.id = s.question_id
		 WHERE q.examination_id = $1 AND s.account_id = $2`,
		examID, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.ProblemSubmission
	for rows.Next() {
		var s model.ProblemSubmission
		if err := rows.Scan(&s.ID, &s.QuestionID, &s.AccountID, &s.Code, &s.Language, &s.Score,
			&s.Attempts, &s.IsFlagged, &s.FlagReason, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
