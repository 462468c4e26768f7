package repository

import (
	"context"

	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// McqSubmissionRepository handles MCQ submission persistence. The unique
// constraint on (question_id, account_id) plus ON CONFLICT upserts keep
// the at-most-one-row invariant under concurrent requests without
// explicit locking; last writer wins on answer and score.
type McqSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewMcqSubmissionRepository creates a new McqSubmissionRepository.
func NewMcqSubmissionRepository(pool *pgxpool.Pool) *McqSubmissionRepository {
	return &McqSubmissionRepository{pool: pool}
}

// UpsertBatch persists a whole MCQ batch inside one transaction so a
// failure mid-batch leaves no partial application.
func (r *McqSubmissionRepository) UpsertBatch(ctx context.Context, subs []model.McqSubmission) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range subs {
			s := &subs[i]
			if _, err := tx.Exec(ctx,
				`INSERT INTO mcq_submissions (question_id, account_id, answer_options, score)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (question_id, account_id) DO UPDATE
				 SET answer_options = EXCLUDED.answer_options,
				     score = EXCLUDED.score,
				     updated_at = NOW()`,
				s.QuestionID, s.AccountID, s.AnswerOptions, s.Score,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByExamAndAccount retrieves a candidate's MCQ submissions for one exam.
func (r *McqSubmissionRepository) ListByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) ([]model.McqSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.question_id, s.account_id, s.answer_options, s.score, s.created_at, s.updated_at
		 FROM mcq_submissions s
		 JOIN questions q ON q.id = s.question_id
		 WHERE q.examination_id = $1 AND s.account_id = $2`,
		examID, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.McqSubmission
	for rows.Next() {
		var s model.McqSubmission
		if err := rows.Scan(&s.ID, &s.QuestionID, &s.AccountID, &s.AnswerOptions, &s.Score, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
