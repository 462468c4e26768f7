package repository

import (
	"context"
	"errors"

	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question, option and test case data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionSelect = `
	SELECT q.id, q.examination_id, q.body, q.question_type, q.points, q.difficulty,
	       q.created_at, q.updated_at,
	       m.option1, m.option2, m.option3, m.option4, m.is_multi_select, m.answer_options
	FROM questions q
	LEFT JOIN mcq_options m ON m.question_id = q.id`

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	var opt1, opt2, opt3, opt4, answerOptions *string
	var isMultiSelect *bool
	err := row.Scan(&q.ID, &q.ExaminationID, &q.Body, &q.Type, &q.Points, &q.Difficulty,
		&q.CreatedAt, &q.UpdatedAt,
		&opt1, &opt2, &opt3, &opt4, &isMultiSelect, &answerOptions)
	if err != nil {
		return nil, err
	}
	if answerOptions != nil {
		q.McqOption = &model.McqOption{
			QuestionID:    q.ID,
			Option1:       deref(opt1),
			Option2:       deref(opt2),
			Option3:       deref(opt3),
			Option4:       deref(opt4),
			IsMultiSelect: isMultiSelect != nil && *isMultiSelect,
			AnswerOptions: *answerOptions,
		}
	}
	return q, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetByID retrieves a question with its MCQ option when present.
// Returns (nil, nil) when the question does not exist.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx, questionSelect+` WHERE q.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

// ListByExam retrieves all questions of an exam in creation order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, questionSelect+` WHERE q.examination_id = $1 ORDER BY q.created_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// ListTestCases retrieves a question's test cases in insertion order.
func (r *QuestionRepository) ListTestCases(ctx context.Context, questionID uuid.UUID) ([]model.TestCase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, input, expected_output
		 FROM test_cases
		 WHERE question_id = $1
		 ORDER BY created_at`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.QuestionID, &tc.Input, &tc.ExpectedOutput); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}
