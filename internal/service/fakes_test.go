package service

import (
	"context"
	"sync"
	"time"

	"github.com/certiq/certiq-backend/internal/cache"
	"github.com/certiq/certiq-backend/internal/coderunner"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/certiq/certiq-backend/internal/repository"
	"github.com/google/uuid"
)

// In-memory collaborators for service tests. They mirror the repository
// conventions: (nil, nil) for absent rows, first-wins SetStarted.

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeCandidateStore struct {
	candidate *model.ExamCandidate
	linked    []string

	setStartedErr   error
	setSubmittedErr error

	// Zero-rows modes: the write reports no affected rows without an
	// error, as pgx does when the WHERE clause matches nothing.
	setStartedZeroRows   bool
	setSubmittedZeroRows bool

	// When set, SetStarted loses the race: the candidate row takes
	// these timestamps (the other device's write) and the call reports
	// zero affected rows.
	raceStartedAt *time.Time
	raceDeadline  *time.Time
}

func (s *fakeCandidateStore) GetByExamAndAccount(_ context.Context, examID, accountID uuid.UUID) (*model.ExamCandidate, error) {
	c := s.candidate
	if c == nil || c.IsDeleted || c.ExaminationID != examID ||
		c.AccountID == nil || *c.AccountID != accountID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCandidateStore) SetStarted(_ context.Context, id uuid.UUID, startedAt, deadline time.Time) (int64, error) {
	if s.setStartedErr != nil {
		return 0, s.setStartedErr
	}
	if s.raceStartedAt != nil {
		s.candidate.StartedAt = s.raceStartedAt
		s.candidate.SubmittedAt = s.raceDeadline
		return 0, nil
	}
	if s.setStartedZeroRows {
		return 0, nil
	}
	if s.candidate == nil || s.candidate.ID != id || s.candidate.StartedAt != nil {
		return 0, nil
	}
	s.candidate.StartedAt = &startedAt
	s.candidate.SubmittedAt = &deadline
	return 1, nil
}

func (s *fakeCandidateStore) SetSubmitted(_ context.Context, id uuid.UUID, submittedAt time.Time) (int64, error) {
	if s.setSubmittedErr != nil {
		return 0, s.setSubmittedErr
	}
	if s.setSubmittedZeroRows {
		return 0, nil
	}
	if s.candidate == nil || s.candidate.ID != id {
		return 0, nil
	}
	s.candidate.SubmittedAt = &submittedAt
	return 1, nil
}

func (s *fakeCandidateStore) LinkAccountByEmail(_ context.Context, email string, _ uuid.UUID) error {
	s.linked = append(s.linked, email)
	return nil
}

func (s *fakeCandidateStore) ListByAccount(_ context.Context, accountID uuid.UUID) ([]repository.LobbyRow, error) {
	if s.candidate == nil || s.candidate.AccountID == nil || *s.candidate.AccountID != accountID {
		return nil, nil
	}
	return []repository.LobbyRow{{Candidate: *s.candidate, Title: "Fake Exam", Duration: 60}}, nil
}

type fakeExamStore struct {
	exam *model.Examination
}

func (s *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Examination, error) {
	if s.exam == nil || s.exam.ID != id {
		return nil, nil
	}
	cp := *s.exam
	return &cp, nil
}

type fakeQuestionStore struct {
	questions map[uuid.UUID]*model.Question
	testCases map[uuid.UUID][]model.TestCase
}

func (s *fakeQuestionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questions[id], nil
}

func (s *fakeQuestionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, q := range s.questions {
		if q.ExaminationID == examID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *fakeQuestionStore) ListTestCases(_ context.Context, questionID uuid.UUID) ([]model.TestCase, error) {
	return s.testCases[questionID], nil
}

type fakeMcqStore struct {
	rows map[uuid.UUID]model.McqSubmission // keyed by question id
	err  error
}

func newFakeMcqStore() *fakeMcqStore {
	return &fakeMcqStore{rows: make(map[uuid.UUID]model.McqSubmission)}
}

func (s *fakeMcqStore) UpsertBatch(_ context.Context, subs []model.McqSubmission) error {
	if s.err != nil {
		return s.err
	}
	for _, sub := range subs {
		s.rows[sub.QuestionID] = sub
	}
	return nil
}

func (s *fakeMcqStore) ListByExamAndAccount(_ context.Context, _, _ uuid.UUID) ([]model.McqSubmission, error) {
	var out []model.McqSubmission
	for _, sub := range s.rows {
		out = append(out, sub)
	}
	return out, nil
}

type fakeWrittenStore struct {
	rows map[uuid.UUID]model.WrittenSubmission
}

func newFakeWrittenStore() *fakeWrittenStore {
	return &fakeWrittenStore{rows: make(map[uuid.UUID]model.WrittenSubmission)}
}

func (s *fakeWrittenStore) UpsertBatch(_ context.Context, subs []model.WrittenSubmission) error {
	for _, sub := range subs {
		// Resubmission keeps a reviewer's score, like the SQL upsert.
		if prev, ok := s.rows[sub.QuestionID]; ok {
			sub.Score = prev.Score
		}
		s.rows[sub.QuestionID] = sub
	}
	return nil
}

func (s *fakeWrittenStore) ListByExamAndAccount(_ context.Context, _, _ uuid.UUID) ([]model.WrittenSubmission, error) {
	var out []model.WrittenSubmission
	for _, sub := range s.rows {
		out = append(out, sub)
	}
	return out, nil
}

type fakeProblemStore struct {
	rows map[uuid.UUID]*model.ProblemSubmission
}

func newFakeProblemStore() *fakeProblemStore {
	return &fakeProblemStore{rows: make(map[uuid.UUID]*model.ProblemSubmission)}
}

func (s *fakeProblemStore) Upsert(_ context.Context, sub *model.ProblemSubmission) error {
	if prev, ok := s.rows[sub.QuestionID]; ok {
		sub.ID = prev.ID
		sub.Attempts = prev.Attempts + 1
	} else {
		sub.ID = uuid.New()
		sub.Attempts = 1
	}
	cp := *sub
	s.rows[sub.QuestionID] = &cp
	return nil
}

func (s *fakeProblemStore) ListByExamAndAccount(_ context.Context, _, _ uuid.UUID) ([]model.ProblemSubmission, error) {
	var out []model.ProblemSubmission
	for _, sub := range s.rows {
		out = append(out, *sub)
	}
	return out, nil
}

type fakeCache struct {
	paper     *model.ExamPaper
	deadlines map[string]time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{deadlines: make(map[string]time.Time)}
}

func (c *fakeCache) GetPaper(_ context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	if c.paper == nil || c.paper.ExamID != examID {
		return nil, cache.ErrMiss
	}
	return c.paper, nil
}

func (c *fakeCache) SetPaper(_ context.Context, paper *model.ExamPaper, _ time.Duration) error {
	c.paper = paper
	return nil
}

func (c *fakeCache) SetDeadline(_ context.Context, examID, accountID uuid.UUID, deadline time.Time) error {
	c.deadlines[examID.String()+accountID.String()] = deadline
	return nil
}

func (c *fakeCache) GetDeadline(_ context.Context, examID, accountID uuid.UUID) (time.Time, error) {
	d, ok := c.deadlines[examID.String()+accountID.String()]
	if !ok {
		return time.Time{}, cache.ErrMiss
	}
	return d, nil
}

type fakeQueue struct {
	enqueued []uuid.UUID // candidate ids
	err      error
}

func (q *fakeQueue) EnqueueScoreAggregation(_ context.Context, candidateID, _, _ uuid.UUID) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, candidateID)
	return nil
}

// fakeRunner routes each call through a per-test function. Safe for the
// concurrent calls the problem service makes.
type fakeRunner struct {
	mu    sync.Mutex
	calls int
	fn    func(stdin string) (*coderunner.RunResult, error)
}

func (r *fakeRunner) Run(_ context.Context, _ model.Language, _ string, stdin string) (*coderunner.RunResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.fn(stdin)
}
