package service

import (
	"context"
	"time"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/cache"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionService owns the exam session state machine: StartExam and
// SubmitExam transitions against the ExamCandidate record, plus the
// lobby and deadline reads built on the same fields.
type SessionService struct {
	candidates  CandidateStore
	exams       ExamStore
	questions   QuestionStore
	mcqSubs     McqSubmissionStore
	writtenSubs WrittenSubmissionStore
	problemSubs ProblemSubmissionStore
	cache       SessionCache
	queue       ScoreQueue
	clock       Clock
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	candidates CandidateStore,
	exams ExamStore,
	questions QuestionStore,
	mcqSubs McqSubmissionStore,
	writtenSubs WrittenSubmissionStore,
	problemSubs ProblemSubmissionStore,
	sessionCache SessionCache,
	queue ScoreQueue,
	clock Clock,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		candidates:  candidates,
		exams:       exams,
		questions:   questions,
		mcqSubs:     mcqSubs,
		writtenSubs: writtenSubs,
		problemSubs: problemSubs,
		cache:       sessionCache,
		queue:       queue,
		clock:       clock,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// StartExam opens (or re-enters) a candidate's session. The first call
// stamps started_at and the provisional deadline min(now+duration,
// closes_at); any later call is a pure read returning the same view, so
// a page reload never extends the deadline.
func (s *SessionService) StartExam(ctx context.Context, examID, accountID uuid.UUID) (*model.StartExamResponse, error) {
	now := s.clock.Now()

	cand, err := s.candidates.GetByExamAndAccount(ctx, examID, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "load exam candidate", err)
	}
	if cand == nil || !cand.IsActive {
		return nil, apperr.E(apperr.Forbidden, "you were not invited to this exam")
	}
	if cand.SubmittedAt != nil && !now.Before(*cand.SubmittedAt) {
		return nil, apperr.E(apperr.Forbidden, "exam is already submitted or ended")
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "load examination", err)
	}
	if exam == nil {
		// Invitation without an exam is a data-integrity fault, not a
		// user error.
		s.log.Error().
			Str("exam_id", examID.String()).
			Str("account_id", accountID.String()).
			Msg("Invitation references a missing examination")
		return nil, apperr.E(apperr.Unexpected, "examination not found")
	}

	if cand.StartedAt == nil {
		if !exam.IsPublished || now.Before(exam.OpensAt) || !now.Before(exam.ClosesAt) {
			return nil, apperr.E(apperr.Forbidden, "exam is not open")
		}

		deadline := exam.Deadline(now)
		affected, err := s.candidates.SetStarted(ctx, cand.ID, now, deadline)
		if err != nil {
			return nil, apperr.Wrap(apperr.Unexpected, "persist session start", err)
		}
		if affected == 0 {
			// Concurrent start from another device won the write. Use
			// its timestamps instead of failing the reload.
			cand, err = s.candidates.GetByExamAndAccount(ctx, examID, accountID)
			if err != nil || cand == nil || cand.StartedAt == nil {
				return nil, apperr.E(apperr.Unexpected, "session start was lost")
			}
		} else {
			cand.StartedAt = &now
			cand.SubmittedAt = &deadline
			s.log.Info().
				Str("exam_id", examID.String()).
				Str("account_id", accountID.String()).
				Time("deadline", deadline).
				Msg("Exam started")
		}
	}

	if cand.SubmittedAt == nil {
		// A started session always carries a deadline; a row without
		// one is corrupt, not resumable.
		s.log.Error().
			Str("candidate_id", cand.ID.String()).
			Str("exam_id", examID.String()).
			Msg("Started session has no deadline")
		return nil, apperr.E(apperr.Unexpected, "session is missing its deadline")
	}

	// Cache the deadline for the live session clock. Best-effort: the
	// clock stream falls back to the store on a miss.
	if err := s.cache.SetDeadline(ctx, examID, accountID, *cand.SubmittedAt); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache session deadline")
	}

	paper, err := s.loadPaper(ctx, exam)
	if err != nil {
		return nil, err
	}

	existing, err := s.collectSavedAnswers(ctx, examID, accountID)
	if err != nil {
		return nil, err
	}

	return &model.StartExamResponse{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		StartedAt:       *cand.StartedAt,
		Deadline:        *cand.SubmittedAt,
		Questions:       paper.Questions,
		ExistingAnswers: existing,
	}, nil
}

// SubmitExam closes the candidate's session by overwriting the
// provisional deadline with the actual submission instant. Repeat calls
// after success are accepted as no-ops; network retries are expected.
func (s *SessionService) SubmitExam(ctx context.Context, examID, accountID uuid.UUID) error {
	now := s.clock.Now()

	cand, err := s.candidates.GetByExamAndAccount(ctx, examID, accountID)
	if err != nil {
		return apperr.Wrap(apperr.Unexpected, "load exam candidate", err)
	}
	if cand == nil {
		// Unreachable when StartExam succeeded first; log loudly.
		s.log.Error().
			Str("exam_id", examID.String()).
			Str("account_id", accountID.String()).
			Time("now", now).
			Msg("SubmitExam without a candidate row")
		return apperr.E(apperr.Unexpected, "no session found for this exam")
	}
	if cand.StartedAt == nil {
		return apperr.E(apperr.Forbidden, "exam has not been started")
	}
	if cand.SubmittedAt != nil && !now.Before(*cand.SubmittedAt) {
		// Already submitted or expired: repeat submits neither extend
		// nor revert anything.
		return nil
	}

	affected, err := s.candidates.SetSubmitted(ctx, cand.ID, now)
	if err != nil {
		return apperr.Wrap(apperr.Unexpected, "persist exam submission", err)
	}
	if affected == 0 {
		s.log.Error().
			Str("candidate_id", cand.ID.String()).
			Str("exam_id", examID.String()).
			Time("now", now).
			Msg("SubmitExam commit affected no rows")
		return apperr.E(apperr.Unexpected, "exam submission was not recorded")
	}

	if err := s.cache.SetDeadline(ctx, examID, accountID, now); err != nil {
		s.log.Warn().Err(err).Msg("Failed to update cached deadline")
	}

	// Total-score aggregation is async; a queue hiccup must not undo a
	// successful submit.
	if err := s.queue.EnqueueScoreAggregation(ctx, cand.ID, examID, accountID); err != nil {
		s.log.Error().Err(err).
			Str("candidate_id", cand.ID.String()).
			Msg("Failed to enqueue score aggregation")
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("account_id", accountID.String()).
		Msg("Exam submitted")
	return nil
}

// Lobby lists the caller's invitations with their derived status. It
// also backfills score aggregation for sessions that ended by natural
// expiry rather than an explicit submit.
func (s *SessionService) Lobby(ctx context.Context, accountID uuid.UUID) ([]model.LobbyEntry, error) {
	rows, err := s.candidates.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "list invitations", err)
	}

	now := s.clock.Now()
	entries := make([]model.LobbyEntry, 0, len(rows))
	for _, row := range rows {
		entry := model.LobbyEntry{
			ExamID:          row.Candidate.ExaminationID,
			Title:           row.Title,
			OpensAt:         row.OpensAt,
			ClosesAt:        row.ClosesAt,
			DurationMinutes: row.Duration,
			Status:          row.Candidate.StatusAt(now),
			Deadline:        row.Candidate.SubmittedAt,
		}
		if entry.Status == model.SessionStatusEnded {
			entry.Score = row.Candidate.Score
			if row.Candidate.Score == nil && row.Candidate.StartedAt != nil {
				// Sessions that expired without an explicit submit never
				// passed through SubmitExam's enqueue. Aggregation is an
				// idempotent recompute, so enqueueing on every read until
				// the score lands is harmless.
				if err := s.queue.EnqueueScoreAggregation(ctx, row.Candidate.ID, row.Candidate.ExaminationID, accountID); err != nil {
					s.log.Error().Err(err).
						Str("candidate_id", row.Candidate.ID.String()).
						Msg("Failed to enqueue score aggregation for expired session")
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Deadline resolves a candidate's effective deadline, preferring the
// cache and self-healing it from the store on a miss.
func (s *SessionService) Deadline(ctx context.Context, examID, accountID uuid.UUID) (time.Time, error) {
	deadline, err := s.cache.GetDeadline(ctx, examID, accountID)
	if err == nil {
		return deadline, nil
	}
	if err != cache.ErrMiss {
		s.log.Warn().Err(err).Msg("Deadline cache read failed, falling back to store")
	}

	cand, err := s.candidates.GetByExamAndAccount(ctx, examID, accountID)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.Unexpected, "load exam candidate", err)
	}
	if cand == nil || cand.SubmittedAt == nil {
		return time.Time{}, apperr.E(apperr.Forbidden, "no active session for this exam")
	}

	if err := s.cache.SetDeadline(ctx, examID, accountID, *cand.SubmittedAt); err != nil {
		s.log.Warn().Err(err).Msg("Failed to self-heal deadline cache")
	}
	return *cand.SubmittedAt, nil
}

// loadPaper returns the candidate-facing paper, warming the cache from
// the store on first use. The paper never carries canonical answers or
// test cases.
func (s *SessionService) loadPaper(ctx context.Context, exam *model.Examination) (*model.ExamPaper, error) {
	if paper, err := s.cache.GetPaper(ctx, exam.ID); err == nil {
		return paper, nil
	} else if err != cache.ErrMiss {
		s.log.Warn().Err(err).Msg("Paper cache read failed, falling back to store")
	}

	questions, err := s.questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "list questions", err)
	}
	if len(questions) == 0 {
		return nil, apperr.E(apperr.Unexpected, "examination has no questions")
	}

	forCandidate := make([]model.QuestionForCandidate, len(questions))
	for i, q := range questions {
		qc := model.QuestionForCandidate{
			ID:         q.ID,
			Type:       q.Type,
			Body:       q.Body,
			Points:     q.Points,
			Difficulty: q.Difficulty,
		}
		if q.McqOption != nil {
			qc.Options = q.McqOption.Options()
			qc.IsMultiSelect = q.McqOption.IsMultiSelect
		}
		forCandidate[i] = qc
	}

	paper := &model.ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Questions:       forCandidate,
	}

	ttl := exam.ClosesAt.Sub(s.clock.Now())
	if ttl > 0 {
		if err := s.cache.SetPaper(ctx, paper, ttl); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache exam paper")
		}
	}

	return paper, nil
}

// collectSavedAnswers gathers previously persisted answers of all three
// types so a reconnecting candidate resumes where they left off.
func (s *SessionService) collectSavedAnswers(ctx context.Context, examID, accountID uuid.UUID) ([]model.SavedAnswer, error) {
	mcq, err := s.mcqSubs.ListByExamAndAccount(ctx, examID, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "list mcq submissions", err)
	}
	written, err := s.writtenSubs.ListByExamAndAccount(ctx, examID, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "list written submissions", err)
	}
	problems, err := s.problemSubs.ListByExamAndAccount(ctx, examID, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "list problem submissions", err)
	}

	answers := make([]model.SavedAnswer, 0, len(mcq)+len(written)+len(problems))
	for _, sub := range mcq {
		answers = append(answers, model.SavedAnswer{
			QuestionID: sub.QuestionID,
			Type:       model.QuestionTypeMcq,
			Answer:     sub.AnswerOptions,
		})
	}
	for _, sub := range written {
		answers = append(answers, model.SavedAnswer{
			QuestionID: sub.QuestionID,
			Type:       model.QuestionTypeWritten,
			Answer:     sub.Answer,
		})
	}
	for _, sub := range problems {
		answers = append(answers, model.SavedAnswer{
			QuestionID: sub.QuestionID,
			Type:       model.QuestionTypeProblemSolving,
			Answer:     sub.Code,
			Language:   string(sub.Language),
		})
	}
	return answers, nil
}
