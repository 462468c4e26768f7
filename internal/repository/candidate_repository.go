package repository

import (
	"context"
	"errors"
	"time"

	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LobbyRow combines an invitation with its exam definition for the
// candidate's exam list.
type LobbyRow struct {
	Candidate model.ExamCandidate
	Title     string
	OpensAt   time.Time
	ClosesAt  time.Time
	Duration  int
}

// CandidateRepository handles exam_candidates data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

const candidateColumns = `id, examination_id, account_id, candidate_email, score,
	started_at, submitted_at, has_cheated, is_active, is_deleted, created_at, updated_at`

func scanCandidate(row pgx.Row) (*model.ExamCandidate, error) {
	c := &model.ExamCandidate{}
	err := row.Scan(&c.ID, &c.ExaminationID, &c.AccountID, &c.CandidateEmail, &c.Score,
		&c.StartedAt, &c.SubmittedAt, &c.HasCheated, &c.IsActive, &c.IsDeleted,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByExamAndAccount retrieves the invitation row for one candidate in
// one exam. Soft-deleted rows are invisible. Returns (nil, nil) when the
// candidate was never invited.
func (r *CandidateRepository) GetByExamAndAccount(ctx context.Context, examID, accountID uuid.UUID) (*model.ExamCandidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+`
		 FROM exam_candidates
		 WHERE examination_id = $1 AND account_id = $2 AND NOT is_deleted`,
		examID, accountID,
	))
}

// SetStarted stamps the session start and its provisional deadline.
// The started_at IS NULL guard makes the write first-wins under
// concurrent starts; the caller refetches on zero rows.
func (r *CandidateRepository) SetStarted(ctx context.Context, id uuid.UUID, startedAt, deadline time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_candidates
		 SET started_at = $2, submitted_at = $3, updated_at = NOW()
		 WHERE id = $1 AND started_at IS NULL`,
		id, startedAt, deadline)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetSubmitted overwrites the provisional deadline with the actual
// submission instant. Zero affected rows signals a lost update.
func (r *CandidateRepository) SetSubmitted(ctx context.Context, id uuid.UUID, submittedAt time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_candidates
		 SET submitted_at = $2, updated_at = NOW()
		 WHERE id = $1`,
		id, submittedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LinkAccountByEmail attaches pending invitations matching the email to
// a freshly authenticated account. Already-linked rows are untouched.
func (r *CandidateRepository) LinkAccountByEmail(ctx context.Context, email string, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_candidates
		 SET account_id = $2, updated_at = NOW()
		 WHERE candidate_email = $1 AND account_id IS NULL AND NOT is_deleted`,
		email, accountID)
	return err
}

// ListByAccount retrieves all of a candidate's invitations joined with
// their exam definitions, newest exam first.
func (r *CandidateRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]LobbyRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.examination_id, c.account_id, c.candidate_email, c.score,
		        c.started_at, c.submitted_at, c.has_cheated, c.is_active, c.is_deleted,
		        c.created_at, c.updated_at,
		        e.title, e.opens_at, e.closes_at, e.duration_minutes
		 FROM exam_candidates c
		 JOIN examinations e ON e.id = c.examination_id
		 WHERE c.account_id = $1 AND NOT c.is_deleted AND e.is_published
		 ORDER BY e.opens_at DESC`, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LobbyRow
	for rows.Next() {
		var lr LobbyRow
		c := &lr.Candidate
		if err := rows.Scan(&c.ID, &c.ExaminationID, &c.AccountID, &c.CandidateEmail, &c.Score,
			&c.StartedAt, &c.SubmittedAt, &c.HasCheated, &c.IsActive, &c.IsDeleted,
			&c.CreatedAt, &c.UpdatedAt,
			&lr.Title, &lr.OpensAt, &lr.ClosesAt, &lr.Duration); err != nil {
			return nil, err
		}
		entries = append(entries, lr)
	}
	return entries, rows.Err()
}

// Invite inserts an invitation row, idempotently per (exam, email).
func (r *CandidateRepository) Invite(ctx context.Context, examID uuid.UUID, email string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_candidates (examination_id, candidate_email, is_active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (examination_id, candidate_email) DO NOTHING`,
		examID, email)
	return err
}
