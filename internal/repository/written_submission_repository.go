package repository

import (
	"context"

	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WrittenSubmissionRepository handles written submission persistence.
// Resubmission overwrites only the answer text; a reviewer's score, once
// present, survives until the reviewer changes it.
type WrittenSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewWrittenSubmissionRepository creates a new WrittenSubmissionRepository.
func NewWrittenSubmissionRepository(pool *pgxpool.Pool) *WrittenSubmissionRepository {
	return &WrittenSubmissionRepository{pool: pool}
}

// UpsertBatch persists a whole written batch inside one transaction so a
// failure mid-batch leaves no partial application.
func (r *WrittenSubmissionRepository) UpsertBatch(ctx context.Context, subs []model.WrittenSubmission) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range subs {
			s := &subs[i]
			if _, err := tx.Exec(ctx,
				`INSERT INTO written_submissions (question_id, account_id, answer)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (question_id, account_id) DO UPDATE
				 SET answer = EXCLUDED.answer,
				     updated_at = NOW()`,
				s.QuestionID, s.AccountID, s.Answer,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByExamAndAccount retrieves a candidate's written submissions for one exam.
func (r *WrittenSubmissionRepository) ListByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) ([]model.WrittenSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.question_id, s.account_id, s.answer, s.score, s.created_at, s.updated_at
		 FROM written_submissions s
		 JOIN questions q ON q.id = s.question_id
		 WHERE q.examination_id = $1 AND s.account_id = $2`,
		examID, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.WrittenSubmission
	for rows.Next() {
		var s model.WrittenSubmission
		if err := rows.Scan(&s.ID, &s.QuestionID, &s.AccountID, &s.Answer, &s.Score, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
