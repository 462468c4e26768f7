package service

import (
	"context"
	"errors"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/coderunner"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/certiq/certiq-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProblemService verifies code submissions against their test cases via
// the external runner and persists the aggregate score. Test cases are
// independent: they run with bounded parallelism and a runner failure on
// one never aborts the others.
type ProblemService struct {
	guard       sessionGuard
	questions   QuestionStore
	subs        ProblemSubmissionStore
	runner      coderunner.Runner
	concurrency int
	log         zerolog.Logger
}

// NewProblemService creates a new ProblemService.
func NewProblemService(
	candidates CandidateStore,
	exams ExamStore,
	questions QuestionStore,
	subs ProblemSubmissionStore,
	runner coderunner.Runner,
	concurrency int,
	clock Clock,
	log zerolog.Logger,
) *ProblemService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ProblemService{
		guard:       sessionGuard{candidates: candidates, exams: exams, clock: clock},
		questions:   questions,
		subs:        subs,
		runner:      runner,
		concurrency: concurrency,
		log:         log.With().Str("component", "problem_service").Logger(),
	}
}

// Save runs the candidate's code against every test case, scores
// all-or-nothing, and upserts the submission (attempts incremented by
// exactly one). It returns per-test-case results in test-case order so
// the caller can render pass/fail per case; the persisted score is the
// aggregate. A cancelled request persists nothing.
func (s *ProblemService) Save(ctx context.Context, examID, accountID uuid.UUID, req *model.SaveProblemSubmissionRequest) ([]model.TestCodeResponse, error) {
	cand, err := s.guard.requireOpenSession(ctx, examID, accountID)
	if err != nil {
		return nil, err
	}

	language, ok := model.ParseLanguage(req.Language)
	if !ok {
		return nil, apperr.E(apperr.Validation, "unsupported language")
	}

	question, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "load question", err)
	}
	if question == nil || question.ExaminationID != examID {
		return nil, apperr.E(apperr.NotFound, "question not found in this exam")
	}
	if question.Type != model.QuestionTypeProblemSolving {
		return nil, apperr.E(apperr.Validation, "question is not a problem-solving question")
	}

	testCases, err := s.questions.ListTestCases(ctx, question.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "load test cases", err)
	}
	if len(testCases) == 0 {
		return nil, apperr.E(apperr.Unexpected, "question has no test cases")
	}

	results, err := s.runTestCases(ctx, language, req.Code, testCases)
	if err != nil {
		return nil, err
	}

	passed := make([]bool, len(results))
	for i, r := range results {
		passed[i] = r.Passed
	}

	sub := &model.ProblemSubmission{
		QuestionID: question.ID,
		AccountID:  accountID,
		Code:       req.Code,
		Language:   language,
		Score:      scoring.ScoreProblem(question.Points, passed),
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "persist problem submission", err)
	}

	s.log.Debug().
		Str("candidate_id", cand.ID.String()).
		Str("question_id", question.ID.String()).
		Int("attempts", sub.Attempts).
		Float64("score", sub.Score).
		Msg("Problem submission saved")
	return results, nil
}

// runTestCases executes every test case with bounded parallelism.
// Results land at their test case's index, so order is stable no matter
// the completion order. A runner error, including a per-call timeout,
// becomes that test case's exception; only cancellation of the inbound
// request aborts the run.
func (s *ProblemService) runTestCases(ctx context.Context, language model.Language, code string, testCases []model.TestCase) ([]model.TestCodeResponse, error) {
	results := make([]model.TestCodeResponse, len(testCases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tc := range testCases {
		g.Go(func() error {
			run, err := s.runner.Run(gctx, language, code, tc.Input)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Runner unavailability fails this test case, not the
				// whole batch.
				s.log.Warn().Err(err).
					Str("test_case_id", tc.ID.String()).
					Msg("Code runner call failed")
				msg := "code execution failed: " + err.Error()
				results[i] = model.TestCodeResponse{
					TestCaseID: tc.ID,
					Passed:     false,
					Exception:  &msg,
				}
				return nil
			}

			results[i] = model.TestCodeResponse{
				TestCaseID:      tc.ID,
				Passed:          run.Exception == nil && scoring.OutputMatches(tc.ExpectedOutput, run.Stdout),
				ReceivedOutput:  run.Stdout,
				Exception:       run.Exception,
				ExecutionTimeMS: run.ExecutionTimeMS,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.Unexpected, "submission cancelled", err)
		}
		return nil, apperr.Wrap(apperr.Unexpected, "test execution aborted", err)
	}
	return results, nil
}
