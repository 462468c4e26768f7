package model

import (
	"time"

	"github.com/google/uuid"
)

// McqAnswerInput is one (question, chosen options) pair of an MCQ batch.
type McqAnswerInput struct {
	QuestionID    uuid.UUID `json:"question_id" binding:"required"`
	AnswerOptions string    `json:"answer_options" binding:"required,optiontokens"`
}

// SaveMcqSubmissionsRequest is the payload for a batch MCQ submission.
type SaveMcqSubmissionsRequest struct {
	Answers []McqAnswerInput `json:"answers" binding:"required,min=1,dive"`
}

// WrittenAnswerInput is one (question, answer text) pair of a written batch.
type WrittenAnswerInput struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer" binding:"required"`
}

// SaveWrittenSubmissionsRequest is the payload for a batch written submission.
type SaveWrittenSubmissionsRequest struct {
	Answers []WrittenAnswerInput `json:"answers" binding:"required,min=1,dive"`
}

// SaveProblemSubmissionRequest is the payload for a problem-solving submission.
type SaveProblemSubmissionRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Code       string    `json:"code" binding:"required"`
	Language   string    `json:"language" binding:"required,oneof=c cpp go java javascript python"`
}

// QuestionForCandidate is a question stripped of everything that would
// give the answer away: no canonical option set, no test cases.
type QuestionForCandidate struct {
	ID            uuid.UUID    `json:"id"`
	Type          QuestionType `json:"type"`
	Body          string       `json:"body"`
	Points        float64      `json:"points"`
	Difficulty    string       `json:"difficulty"`
	Options       []string     `json:"options,omitempty"`
	IsMultiSelect bool         `json:"is_multi_select,omitempty"`
}

// SavedAnswer restores one previously saved answer when a candidate
// resumes after a disconnect or reload.
type SavedAnswer struct {
	QuestionID uuid.UUID    `json:"question_id"`
	Type       QuestionType `json:"type"`
	Answer     string       `json:"answer"`
	Language   string       `json:"language,omitempty"`
}

// ExamPaper is the cacheable candidate-facing view of an exam.
type ExamPaper struct {
	ExamID          uuid.UUID              `json:"exam_id"`
	Title           string                 `json:"title"`
	DurationMinutes int                    `json:"duration_minutes"`
	Questions       []QuestionForCandidate `json:"questions"`
}

// StartExamResponse is what StartExam returns: the paper, the effective
// deadline and any answers saved before a disconnect.
type StartExamResponse struct {
	ExamID          uuid.UUID              `json:"exam_id"`
	Title           string                 `json:"title"`
	DurationMinutes int                    `json:"duration_minutes"`
	StartedAt       time.Time              `json:"started_at"`
	Deadline        time.Time              `json:"deadline"`
	Questions       []QuestionForCandidate `json:"questions"`
	ExistingAnswers []SavedAnswer          `json:"existing_answers"`
}

// LobbyEntry is one invitation as shown in the candidate's exam list.
type LobbyEntry struct {
	ExamID          uuid.UUID     `json:"exam_id"`
	Title           string        `json:"title"`
	OpensAt         time.Time     `json:"opens_at"`
	ClosesAt        time.Time     `json:"closes_at"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	Deadline        *time.Time    `json:"deadline,omitempty"`
	Score           *float64      `json:"score,omitempty"`
}
