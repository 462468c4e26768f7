package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMcq            QuestionType = "MCQ"
	QuestionTypeWritten        QuestionType = "WRITTEN"
	QuestionTypeProblemSolving QuestionType = "PROBLEM_SOLVING"
)

// Question is a single exam question. McqOption is populated only for
// MCQ questions; test cases are loaded separately for problem solving.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	ExaminationID uuid.UUID    `json:"examination_id"`
	Body          string       `json:"body"`
	Type          QuestionType `json:"type"`
	Points        float64      `json:"points"`
	Difficulty    string       `json:"difficulty"`
	McqOption     *McqOption   `json:"mcq_option,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// McqOption carries up to four option texts and the canonical correct
// answer set, encoded as a sorted comma-separated list of 1-based option
// indices (e.g. "1,3").
type McqOption struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Option1       string    `json:"option1"`
	Option2       string    `json:"option2"`
	Option3       string    `json:"option3"`
	Option4       string    `json:"option4"`
	IsMultiSelect bool      `json:"is_multi_select"`
	AnswerOptions string    `json:"-"` // never sent to candidates
}

// Options returns the non-empty option texts in order.
func (o *McqOption) Options() []string {
	all := []string{o.Option1, o.Option2, o.Option3, o.Option4}
	opts := make([]string, 0, 4)
	for _, v := range all {
		if v != "" {
			opts = append(opts, v)
		}
	}
	return opts
}

// OptionCount returns the number of options present on the question.
func (o *McqOption) OptionCount() int {
	return len(o.Options())
}

// TestCase verifies one problem-solving submission against an
// (input, expectedOutput) pair. Immutable once the exam is published.
type TestCase struct {
	ID             uuid.UUID `json:"id"`
	QuestionID     uuid.UUID `json:"question_id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
}
