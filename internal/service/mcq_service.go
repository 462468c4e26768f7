package service

import (
	"context"
	"fmt"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/certiq/certiq-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// McqService scores and persists multiple-choice submissions. A batch is
// validated and scored in full before any write; persistence happens in
// one transaction so the batch applies entirely or not at all.
type McqService struct {
	guard     sessionGuard
	questions QuestionStore
	subs      McqSubmissionStore
	log       zerolog.Logger
}

// NewMcqService creates a new McqService.
func NewMcqService(
	candidates CandidateStore,
	exams ExamStore,
	questions QuestionStore,
	subs McqSubmissionStore,
	clock Clock,
	log zerolog.Logger,
) *McqService {
	return &McqService{
		guard:     sessionGuard{candidates: candidates, exams: exams, clock: clock},
		questions: questions,
		subs:      subs,
		log:       log.With().Str("component", "mcq_service").Logger(),
	}
}

// Save validates candidacy, scores each (question, answer) pair by exact
// set equality, and upserts one row per pair keyed by
// (question, account). Resubmission before the deadline overwrites the
// previous answer and score.
func (s *McqService) Save(ctx context.Context, examID, accountID uuid.UUID, req *model.SaveMcqSubmissionsRequest) error {
	cand, err := s.guard.requireOpenSession(ctx, examID, accountID)
	if err != nil {
		return err
	}

	subs := make([]model.McqSubmission, 0, len(req.Answers))
	for _, answer := range req.Answers {
		question, err := s.questions.GetByID(ctx, answer.QuestionID)
		if err != nil {
			return apperr.Wrap(apperr.Unexpected, "load question", err)
		}
		if question == nil || question.ExaminationID != examID {
			return apperr.E(apperr.NotFound, "question not found in this exam")
		}
		if question.Type != model.QuestionTypeMcq || question.McqOption == nil {
			return apperr.E(apperr.Validation, "question is not multiple choice")
		}

		tokens, err := scoring.ParseOptionTokens(answer.AnswerOptions)
		if err != nil {
			return apperr.E(apperr.Validation, err.Error())
		}
		if max := question.McqOption.OptionCount(); tokens[len(tokens)-1] > max {
			return apperr.E(apperr.Validation,
				fmt.Sprintf("option index %d out of range for this question", tokens[len(tokens)-1]))
		}

		subs = append(subs, model.McqSubmission{
			QuestionID:    question.ID,
			AccountID:     accountID,
			AnswerOptions: answer.AnswerOptions,
			Score:         scoring.ScoreMcq(question.Points, question.McqOption.AnswerOptions, answer.AnswerOptions),
		})
	}

	if err := s.subs.UpsertBatch(ctx, subs); err != nil {
		return apperr.Wrap(apperr.Unexpected, "persist mcq submissions", err)
	}

	s.log.Debug().
		Str("candidate_id", cand.ID.String()).
		Int("answers", len(subs)).
		Msg("MCQ batch saved")
	return nil
}
