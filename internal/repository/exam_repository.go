package repository

import (
	"context"
	"errors"

	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles read access to exam definitions. The scoring
// core never mutates examinations; authoring owns them.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an examination. Returns (nil, nil) when absent.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Examination, error) {
	e := &model.Examination{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, opens_at, closes_at, is_published,
		        mcq_points, written_points, problem_points, created_at, updated_at
		 FROM examinations WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.OpensAt, &e.ClosesAt, &e.IsPublished,
		&e.McqPoints, &e.WrittenPoints, &e.ProblemPoints, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
