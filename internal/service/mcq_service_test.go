package service

import (
	"context"
	"testing"
	"time"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mcqFixture struct {
	svc        *McqService
	clock      *fakeClock
	candidates *fakeCandidateStore
	exams      *fakeExamStore
	questions  *fakeQuestionStore
	subs       *fakeMcqStore

	examID    uuid.UUID
	accountID uuid.UUID
	singleQ   uuid.UUID // canonical "2", 3 options, 10 points
	multiQ    uuid.UUID // canonical "1,3", 4 options, 15 points
}

// newMcqFixture builds an in-progress session with one single-select and
// one multi-select MCQ question.
func newMcqFixture(t *testing.T) *mcqFixture {
	t.Helper()

	examID := uuid.New()
	accountID := uuid.New()
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	started := now.Add(-10 * time.Minute)
	deadline := now.Add(50 * time.Minute)

	clock := &fakeClock{now: now}
	exams := &fakeExamStore{exam: &model.Examination{
		ID:              examID,
		DurationMinutes: 60,
		OpensAt:         started.Add(-time.Hour),
		ClosesAt:        deadline.Add(time.Hour),
		IsPublished:     true,
	}}
	candidates := &fakeCandidateStore{candidate: &model.ExamCandidate{
		ID:            uuid.New(),
		ExaminationID: examID,
		AccountID:     &accountID,
		StartedAt:     &started,
		SubmittedAt:   &deadline,
		IsActive:      true,
	}}

	singleQ := uuid.New()
	multiQ := uuid.New()
	questions := &fakeQuestionStore{
		questions: map[uuid.UUID]*model.Question{
			singleQ: {
				ID: singleQ, ExaminationID: examID,
				Type: model.QuestionTypeMcq, Points: 10,
				McqOption: &model.McqOption{
					QuestionID: singleQ,
					Option1:    "3", Option2: "4", Option3: "5",
					AnswerOptions: "2",
				},
			},
			multiQ: {
				ID: multiQ, ExaminationID: examID,
				Type: model.QuestionTypeMcq, Points: 15,
				McqOption: &model.McqOption{
					QuestionID: multiQ,
					Option1:    "2", Option2: "3", Option3: "5", Option4: "9",
					IsMultiSelect: true,
					AnswerOptions: "1,3",
				},
			},
		},
	}

	subs := newFakeMcqStore()
	svc := NewMcqService(candidates, exams, questions, subs, clock, zerolog.Nop())

	return &mcqFixture{
		svc: svc, clock: clock, candidates: candidates, exams: exams,
		questions: questions, subs: subs,
		examID: examID, accountID: accountID,
		singleQ: singleQ, multiQ: multiQ,
	}
}

func (f *mcqFixture) save(qID uuid.UUID, options string) error {
	return f.svc.Save(context.Background(), f.examID, f.accountID, &model.SaveMcqSubmissionsRequest{
		Answers: []model.McqAnswerInput{{QuestionID: qID, AnswerOptions: options}},
	})
}

func TestMcqSaveScoresCorrectAnswer(t *testing.T) {
	f := newMcqFixture(t)
	require.NoError(t, f.save(f.singleQ, "2"))

	row := f.subs.rows[f.singleQ]
	assert.Equal(t, "2", row.AnswerOptions)
	assert.Equal(t, 10.0, row.Score)
}

func TestMcqSaveScoresWrongAnswerZero(t *testing.T) {
	f := newMcqFixture(t)
	require.NoError(t, f.save(f.singleQ, "3"))
	assert.Equal(t, 0.0, f.subs.rows[f.singleQ].Score)
}

func TestMcqSaveMultiSelectOrderInsensitive(t *testing.T) {
	f := newMcqFixture(t)
	require.NoError(t, f.save(f.multiQ, "3,1"))
	assert.Equal(t, 15.0, f.subs.rows[f.multiQ].Score)
}

func TestMcqSaveMultiSelectNoPartialCredit(t *testing.T) {
	f := newMcqFixture(t)
	require.NoError(t, f.save(f.multiQ, "1"))
	assert.Equal(t, 0.0, f.subs.rows[f.multiQ].Score)
}

func TestMcqSaveResubmissionOverwrites(t *testing.T) {
	f := newMcqFixture(t)
	require.NoError(t, f.save(f.singleQ, "2"))
	require.NoError(t, f.save(f.singleQ, "1"))

	require.Len(t, f.subs.rows, 1, "at most one row per (question, account)")
	row := f.subs.rows[f.singleQ]
	assert.Equal(t, "1", row.AnswerOptions)
	assert.Equal(t, 0.0, row.Score)
}

func TestMcqSaveBatch(t *testing.T) {
	f := newMcqFixture(t)
	err := f.svc.Save(context.Background(), f.examID, f.accountID, &model.SaveMcqSubmissionsRequest{
		Answers: []model.McqAnswerInput{
			{QuestionID: f.singleQ, AnswerOptions: "2"},
			{QuestionID: f.multiQ, AnswerOptions: "1,3"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, f.subs.rows, 2)
	assert.Equal(t, 10.0, f.subs.rows[f.singleQ].Score)
	assert.Equal(t, 15.0, f.subs.rows[f.multiQ].Score)
}

func TestMcqSaveBadBatchPersistsNothing(t *testing.T) {
	f := newMcqFixture(t)
	err := f.svc.Save(context.Background(), f.examID, f.accountID, &model.SaveMcqSubmissionsRequest{
		Answers: []model.McqAnswerInput{
			{QuestionID: f.singleQ, AnswerOptions: "2"},
			{QuestionID: uuid.New(), AnswerOptions: "1"}, // unknown question
		},
	})
	assert.ErrorIs(t, err, apperr.NotFound)
	assert.Empty(t, f.subs.rows, "a failing batch must not apply partially")
}

func TestMcqSaveOptionIndexBeyondQuestion(t *testing.T) {
	f := newMcqFixture(t)
	// singleQ has three options; token 4 parses but does not exist here.
	err := f.save(f.singleQ, "4")
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Empty(t, f.subs.rows)
}

func TestMcqSaveMalformedTokens(t *testing.T) {
	f := newMcqFixture(t)
	for _, input := range []string{"", "0", "a", "2,2", "7"} {
		assert.ErrorIs(t, f.save(f.singleQ, input), apperr.Validation, "input %q", input)
	}
}

func TestMcqSaveWrongQuestionType(t *testing.T) {
	f := newMcqFixture(t)
	wID := uuid.New()
	f.questions.questions[wID] = &model.Question{
		ID: wID, ExaminationID: f.examID, Type: model.QuestionTypeWritten, Points: 5,
	}
	assert.ErrorIs(t, f.save(wID, "1"), apperr.Validation)
}

func TestMcqSaveAfterDeadline(t *testing.T) {
	f := newMcqFixture(t)
	f.clock.now = f.candidates.candidate.SubmittedAt.Add(time.Second)

	err := f.save(f.singleQ, "2")
	assert.ErrorIs(t, err, apperr.Forbidden)
	assert.Empty(t, f.subs.rows, "no writes after the deadline")
}

func TestMcqSaveExactlyAtDeadline(t *testing.T) {
	f := newMcqFixture(t)
	// The deadline instant itself is already closed: now must be
	// strictly before the deadline.
	f.clock.now = *f.candidates.candidate.SubmittedAt
	assert.ErrorIs(t, f.save(f.singleQ, "2"), apperr.Forbidden)
}

func TestMcqSaveUnpublishedExam(t *testing.T) {
	f := newMcqFixture(t)
	f.exams.exam.IsPublished = false
	assert.ErrorIs(t, f.save(f.singleQ, "2"), apperr.Conflict)
}

func TestMcqSaveUninvited(t *testing.T) {
	f := newMcqFixture(t)
	err := f.svc.Save(context.Background(), f.examID, uuid.New(), &model.SaveMcqSubmissionsRequest{
		Answers: []model.McqAnswerInput{{QuestionID: f.singleQ, AnswerOptions: "2"}},
	})
	assert.ErrorIs(t, err, apperr.Forbidden)
}
