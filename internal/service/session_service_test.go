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

type sessionFixture struct {
	svc        *SessionService
	clock      *fakeClock
	candidates *fakeCandidateStore
	exams      *fakeExamStore
	questions  *fakeQuestionStore
	cache      *fakeCache
	queue      *fakeQueue

	examID    uuid.UUID
	accountID uuid.UUID
}

// newSessionFixture builds a published exam open since 10:00, closing at
// 12:00, 60 minutes long, with one MCQ question and one invited,
// not-yet-started candidate. The clock starts at 10:30.
func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	examID := uuid.New()
	accountID := uuid.New()
	opens := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	clock := &fakeClock{now: opens.Add(30 * time.Minute)}
	exams := &fakeExamStore{exam: &model.Examination{
		ID:              examID,
		Title:           "Networking Basics",
		DurationMinutes: 60,
		OpensAt:         opens,
		ClosesAt:        opens.Add(2 * time.Hour),
		IsPublished:     true,
	}}
	candidates := &fakeCandidateStore{candidate: &model.ExamCandidate{
		ID:            uuid.New(),
		ExaminationID: examID,
		AccountID:     &accountID,
		IsActive:      true,
	}}

	qID := uuid.New()
	questions := &fakeQuestionStore{
		questions: map[uuid.UUID]*model.Question{
			qID: {
				ID:            qID,
				ExaminationID: examID,
				Body:          "What is 2+2?",
				Type:          model.QuestionTypeMcq,
				Points:        10,
				McqOption: &model.McqOption{
					QuestionID:    qID,
					Option1:       "3",
					Option2:       "4",
					Option3:       "5",
					AnswerOptions: "2",
				},
			},
		},
		testCases: map[uuid.UUID][]model.TestCase{},
	}

	sessionCache := newFakeCache()
	queue := &fakeQueue{}

	svc := NewSessionService(
		candidates, exams, questions,
		newFakeMcqStore(), newFakeWrittenStore(), newFakeProblemStore(),
		sessionCache, queue, clock, zerolog.Nop(),
	)

	return &sessionFixture{
		svc:        svc,
		clock:      clock,
		candidates: candidates,
		exams:      exams,
		questions:  questions,
		cache:      sessionCache,
		queue:      queue,
		examID:     examID,
		accountID:  accountID,
	}
}

func TestStartExamFirstTime(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	resp, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	assert.Equal(t, f.clock.now, resp.StartedAt)
	assert.Equal(t, f.clock.now.Add(60*time.Minute), resp.Deadline)
	require.Len(t, resp.Questions, 1)
	assert.Equal(t, []string{"3", "4", "5"}, resp.Questions[0].Options)
	assert.Empty(t, resp.ExistingAnswers)

	// The candidate row carries the provisional deadline.
	require.NotNil(t, f.candidates.candidate.StartedAt)
	assert.Equal(t, resp.Deadline, *f.candidates.candidate.SubmittedAt)
}

func TestStartExamDeadlineClampedToClose(t *testing.T) {
	f := newSessionFixture(t)
	// 11:30: only 30 minutes remain before the exam closes.
	f.clock.now = f.exams.exam.ClosesAt.Add(-30 * time.Minute)

	resp, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
	require.NoError(t, err)
	assert.Equal(t, f.exams.exam.ClosesAt, resp.Deadline)
}

func TestStartExamResumeKeepsDeadline(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	// A reload 10 minutes later must not extend anything.
	f.clock.now = f.clock.now.Add(10 * time.Minute)
	second, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	assert.Equal(t, first.StartedAt, second.StartedAt)
	assert.Equal(t, first.Deadline, second.Deadline)
}

func TestStartExamRejections(t *testing.T) {
	t.Run("uninvited account", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.StartExam(context.Background(), f.examID, uuid.New())
		assert.ErrorIs(t, err, apperr.Forbidden)
	})

	t.Run("deactivated invitation", func(t *testing.T) {
		f := newSessionFixture(t)
		f.candidates.candidate.IsActive = false
		_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
		assert.ErrorIs(t, err, apperr.Forbidden)
	})

	t.Run("before opening", func(t *testing.T) {
		f := newSessionFixture(t)
		f.clock.now = f.exams.exam.OpensAt.Add(-time.Minute)
		_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
		assert.ErrorIs(t, err, apperr.Forbidden)
	})

	t.Run("after closing", func(t *testing.T) {
		f := newSessionFixture(t)
		f.clock.now = f.exams.exam.ClosesAt
		_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
		assert.ErrorIs(t, err, apperr.Forbidden)
	})

	t.Run("unpublished exam", func(t *testing.T) {
		f := newSessionFixture(t)
		f.exams.exam.IsPublished = false
		_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
		assert.ErrorIs(t, err, apperr.Forbidden)
	})

	t.Run("already ended session", func(t *testing.T) {
		f := newSessionFixture(t)
		started := f.clock.now.Add(-2 * time.Minute)
		ended := f.clock.now.Add(-time.Minute)
		f.candidates.candidate.StartedAt = &started
		f.candidates.candidate.SubmittedAt = &ended
		_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
		assert.ErrorIs(t, err, apperr.Forbidden)
	})
}

func TestSubmitExam(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	f.clock.now = f.clock.now.Add(20 * time.Minute)
	require.NoError(t, f.svc.SubmitExam(ctx, f.examID, f.accountID))

	// The deadline field now holds the actual submission instant.
	assert.Equal(t, f.clock.now, *f.candidates.candidate.SubmittedAt)
	assert.Len(t, f.queue.enqueued, 1)
}

func TestSubmitExamTwiceIsNoOp(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitExam(ctx, f.examID, f.accountID))

	submittedAt := *f.candidates.candidate.SubmittedAt
	f.clock.now = f.clock.now.Add(5 * time.Minute)
	require.NoError(t, f.svc.SubmitExam(ctx, f.examID, f.accountID))

	assert.Equal(t, submittedAt, *f.candidates.candidate.SubmittedAt, "retry must not move the submission instant")
	assert.Len(t, f.queue.enqueued, 1, "retry must not enqueue twice")
}

func TestSubmitExamWithoutStart(t *testing.T) {
	f := newSessionFixture(t)
	err := f.svc.SubmitExam(context.Background(), f.examID, f.accountID)
	assert.ErrorIs(t, err, apperr.Forbidden)
}

func TestSubmitExamQueueFailureDoesNotUndoSubmit(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	f.queue.err = assert.AnError
	require.NoError(t, f.svc.SubmitExam(ctx, f.examID, f.accountID))
	assert.Equal(t, f.clock.now, *f.candidates.candidate.SubmittedAt)
}

func TestLobbyStatuses(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	entries, err := f.svc.Lobby(ctx, f.accountID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.SessionStatusInvited, entries[0].Status)
	assert.Nil(t, entries[0].Score)

	_, err = f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	entries, err = f.svc.Lobby(ctx, f.accountID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusInProgress, entries[0].Status)
	assert.Nil(t, entries[0].Score, "score is hidden while in progress")

	require.NoError(t, f.svc.SubmitExam(ctx, f.examID, f.accountID))
	score := 42.0
	f.candidates.candidate.Score = &score

	entries, err = f.svc.Lobby(ctx, f.accountID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusEnded, entries[0].Status)
	require.NotNil(t, entries[0].Score)
	assert.Equal(t, 42.0, *entries[0].Score)
}

func TestDeadlineFallsBackToStoreAndSelfHeals(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)
	want := *f.candidates.candidate.SubmittedAt

	// Simulate an evicted cache entry.
	f.cache.deadlines = map[string]time.Time{}

	got, err := f.svc.Deadline(ctx, f.examID, f.accountID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The fallback repopulated the cache.
	cached, err := f.cache.GetDeadline(ctx, f.examID, f.accountID)
	require.NoError(t, err)
	assert.Equal(t, want, cached)
}

func TestDeadlineWithoutSession(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Deadline(context.Background(), f.examID, f.accountID)
	assert.ErrorIs(t, err, apperr.Forbidden)
}

func TestStartExamResumeRestoresSavedAnswers(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	mcqSvc := NewMcqService(f.candidates, f.exams, f.questions, f.svc.mcqSubs.(*fakeMcqStore), f.clock, zerolog.Nop())
	var qID uuid.UUID
	for id := range f.questions.questions {
		qID = id
	}
	require.NoError(t, mcqSvc.Save(ctx, f.examID, f.accountID, &model.SaveMcqSubmissionsRequest{
		Answers: []model.McqAnswerInput{{QuestionID: qID, AnswerOptions: "2"}},
	}))

	resp, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)
	require.Len(t, resp.ExistingAnswers, 1)
	assert.Equal(t, qID, resp.ExistingAnswers[0].QuestionID)
	assert.Equal(t, "2", resp.ExistingAnswers[0].Answer)
}

func TestStartExamConcurrentStartUsesWinningTimestamps(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// Another device committed the start 10 minutes ago; this request's
	// write matches zero rows and must adopt the winner's view.
	winStart := f.clock.now.Add(-10 * time.Minute)
	winDeadline := winStart.Add(60 * time.Minute)
	f.candidates.raceStartedAt = &winStart
	f.candidates.raceDeadline = &winDeadline

	resp, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	assert.Equal(t, winStart, resp.StartedAt)
	assert.Equal(t, winDeadline, resp.Deadline, "losing start must not extend the deadline")

	cached, err := f.cache.GetDeadline(ctx, f.examID, f.accountID)
	require.NoError(t, err)
	assert.Equal(t, winDeadline, cached)
}

func TestStartExamLostStartIsUnexpected(t *testing.T) {
	f := newSessionFixture(t)

	// Zero rows affected and the refetch still shows no start: the
	// commit was lost, not raced.
	f.candidates.setStartedZeroRows = true

	_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
	assert.ErrorIs(t, err, apperr.Unexpected)
}

func TestStartExamStoreError(t *testing.T) {
	f := newSessionFixture(t)
	f.candidates.setStartedErr = assert.AnError

	_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
	assert.ErrorIs(t, err, apperr.Unexpected)
}

func TestStartExamStartedSessionWithoutDeadline(t *testing.T) {
	f := newSessionFixture(t)

	// A started row missing its deadline violates the SetStarted
	// write-both invariant; resuming it must fail loudly.
	started := f.clock.now.Add(-5 * time.Minute)
	f.candidates.candidate.StartedAt = &started
	f.candidates.candidate.SubmittedAt = nil

	_, err := f.svc.StartExam(context.Background(), f.examID, f.accountID)
	assert.ErrorIs(t, err, apperr.Unexpected)
}

func TestSubmitExamZeroRowCommit(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)
	provisional := *f.candidates.candidate.SubmittedAt

	f.candidates.setSubmittedZeroRows = true
	f.clock.now = f.clock.now.Add(20 * time.Minute)

	err = f.svc.SubmitExam(ctx, f.examID, f.accountID)
	assert.ErrorIs(t, err, apperr.Unexpected)
	assert.Equal(t, provisional, *f.candidates.candidate.SubmittedAt, "failed commit must not move the deadline")
	assert.Empty(t, f.queue.enqueued, "failed commit must not enqueue aggregation")
}

func TestSubmitExamStoreError(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	f.candidates.setSubmittedErr = assert.AnError
	err = f.svc.SubmitExam(ctx, f.examID, f.accountID)
	assert.ErrorIs(t, err, apperr.Unexpected)
	assert.Empty(t, f.queue.enqueued)
}

func TestLobbyBackfillsScoreForExpiredSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartExam(ctx, f.examID, f.accountID)
	require.NoError(t, err)

	// The session expires naturally; SubmitExam is never called, so
	// nothing enqueued aggregation yet.
	f.clock.now = f.candidates.candidate.SubmittedAt.Add(time.Minute)
	require.Empty(t, f.queue.enqueued)

	entries, err := f.svc.Lobby(ctx, f.accountID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.SessionStatusEnded, entries[0].Status)
	assert.Len(t, f.queue.enqueued, 1, "expired session without a score gets aggregation enqueued")

	// Once the worker has landed the score, further reads stay quiet.
	score := 10.0
	f.candidates.candidate.Score = &score
	_, err = f.svc.Lobby(ctx, f.accountID)
	require.NoError(t, err)
	assert.Len(t, f.queue.enqueued, 1)
}
