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

type writtenFixture struct {
	svc        *WrittenService
	clock      *fakeClock
	candidates *fakeCandidateStore
	questions  *fakeQuestionStore
	subs       *fakeWrittenStore

	examID    uuid.UUID
	accountID uuid.UUID
	qID       uuid.UUID
}

func newWrittenFixture(t *testing.T) *writtenFixture {
	t.Helper()

	examID := uuid.New()
	accountID := uuid.New()
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	started := now.Add(-10 * time.Minute)
	deadline := now.Add(50 * time.Minute)

	clock := &fakeClock{now: now}
	exams := &fakeExamStore{exam: &model.Examination{
		ID: examID, DurationMinutes: 60,
		OpensAt: started.Add(-time.Hour), ClosesAt: deadline.Add(time.Hour),
		IsPublished: true,
	}}
	candidates := &fakeCandidateStore{candidate: &model.ExamCandidate{
		ID: uuid.New(), ExaminationID: examID, AccountID: &accountID,
		StartedAt: &started, SubmittedAt: &deadline, IsActive: true,
	}}

	qID := uuid.New()
	questions := &fakeQuestionStore{
		questions: map[uuid.UUID]*model.Question{
			qID: {
				ID: qID, ExaminationID: examID,
				Type: model.QuestionTypeWritten, Points: 20,
				Body: "Explain TCP slow start.",
			},
		},
	}

	subs := newFakeWrittenStore()
	svc := NewWrittenService(candidates, exams, questions, subs, clock, zerolog.Nop())

	return &writtenFixture{
		svc: svc, clock: clock, candidates: candidates,
		questions: questions, subs: subs,
		examID: examID, accountID: accountID, qID: qID,
	}
}

func (f *writtenFixture) save(qID uuid.UUID, answer string) error {
	return f.svc.Save(context.Background(), f.examID, f.accountID, &model.SaveWrittenSubmissionsRequest{
		Answers: []model.WrittenAnswerInput{{QuestionID: qID, Answer: answer}},
	})
}

func TestWrittenSaveStoresUnscored(t *testing.T) {
	f := newWrittenFixture(t)
	require.NoError(t, f.save(f.qID, "It doubles cwnd every RTT."))

	row := f.subs.rows[f.qID]
	assert.Equal(t, "It doubles cwnd every RTT.", row.Answer)
	assert.Nil(t, row.Score, "written answers await review")
}

func TestWrittenResubmissionKeepsReviewerScore(t *testing.T) {
	f := newWrittenFixture(t)
	require.NoError(t, f.save(f.qID, "first draft"))

	// A reviewer scores the answer out of band.
	reviewed := 12.5
	row := f.subs.rows[f.qID]
	row.Score = &reviewed
	f.subs.rows[f.qID] = row

	require.NoError(t, f.save(f.qID, "second draft"))

	require.Len(t, f.subs.rows, 1)
	got := f.subs.rows[f.qID]
	assert.Equal(t, "second draft", got.Answer)
	require.NotNil(t, got.Score)
	assert.Equal(t, 12.5, *got.Score)
}

func TestWrittenSaveWrongQuestionType(t *testing.T) {
	f := newWrittenFixture(t)
	mID := uuid.New()
	f.questions.questions[mID] = &model.Question{
		ID: mID, ExaminationID: f.examID, Type: model.QuestionTypeMcq, Points: 5,
		McqOption: &model.McqOption{QuestionID: mID, AnswerOptions: "1"},
	}
	assert.ErrorIs(t, f.save(mID, "text"), apperr.Validation)
}

func TestWrittenSaveUnknownQuestion(t *testing.T) {
	f := newWrittenFixture(t)
	assert.ErrorIs(t, f.save(uuid.New(), "text"), apperr.NotFound)
}

func TestWrittenSaveAfterDeadline(t *testing.T) {
	f := newWrittenFixture(t)
	f.clock.now = f.candidates.candidate.SubmittedAt.Add(time.Minute)

	assert.ErrorIs(t, f.save(f.qID, "too late"), apperr.Forbidden)
	assert.Empty(t, f.subs.rows)
}
