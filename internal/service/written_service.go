package service

import (
	"context"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WrittenService persists free-text answers. No scoring happens here;
// the score stays unset until a reviewer grades it elsewhere.
type WrittenService struct {
	guard     sessionGuard
	questions QuestionStore
	subs      WrittenSubmissionStore
	log       zerolog.Logger
}

// NewWrittenService creates a new WrittenService.
func NewWrittenService(
	candidates CandidateStore,
	exams ExamStore,
	questions QuestionStore,
	subs WrittenSubmissionStore,
	clock Clock,
	log zerolog.Logger,
) *WrittenService {
	return &WrittenService{
		guard:     sessionGuard{candidates: candidates, exams: exams, clock: clock},
		questions: questions,
		subs:      subs,
		log:       log.With().Str("component", "written_service").Logger(),
	}
}

// Save upserts one row per (question, account) pair. Overwriting the
// answer on resubmission is unconditional once candidacy holds.
func (s *WrittenService) Save(ctx context.Context, examID, accountID uuid.UUID, req *model.SaveWrittenSubmissionsRequest) error {
	cand, err := s.guard.requireOpenSession(ctx, examID, accountID)
	if err != nil {
		return err
	}

	subs := make([]model.WrittenSubmission, 0, len(req.Answers))
	for _, answer := range req.Answers {
		question, err := s.questions.GetByID(ctx, answer.QuestionID)
		if err != nil {
			return apperr.Wrap(apperr.Unexpected, "load question", err)
		}
		if question == nil || question.ExaminationID != examID {
			return apperr.E(apperr.NotFound, "question not found in this exam")
		}
		if question.Type != model.QuestionTypeWritten {
			return apperr.E(apperr.Validation, "question is not a written question")
		}

		subs = append(subs, model.WrittenSubmission{
			QuestionID: question.ID,
			AccountID:  accountID,
			Answer:     answer.Answer,
		})
	}

	if err := s.subs.UpsertBatch(ctx, subs); err != nil {
		return apperr.Wrap(apperr.Unexpected, "persist written submissions", err)
	}

	s.log.Debug().
		Str("candidate_id", cand.ID.String()).
		Int("answers", len(subs)).
		Msg("Written batch saved")
	return nil
}
