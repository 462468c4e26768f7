package service

import (
	"context"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/google/uuid"
)

// sessionGuard performs the candidacy validation every submission
// orchestrator must run before touching any answer. The check goes to
// the store on every call. The deadline is time-relative, so a cached
// verdict would go stale the moment it was taken.
type sessionGuard struct {
	candidates CandidateStore
	exams      ExamStore
	clock      Clock
}

// requireOpenSession confirms the caller belongs to the exam, has
// started it, and is still inside the effective deadline. It also
// defends against answers landing on an unpublished exam.
func (g *sessionGuard) requireOpenSession(ctx context.Context, examID, accountID uuid.UUID) (*model.ExamCandidate, error) {
	now := g.clock.Now()

	cand, err := g.candidates.GetByExamAndAccount(ctx, examID, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "load exam candidate", err)
	}
	if cand == nil || !cand.IsActive {
		return nil, apperr.E(apperr.Forbidden, "you are not part of this exam")
	}
	if !cand.CanSubmitAt(now) {
		return nil, apperr.E(apperr.Forbidden, "your session has ended")
	}

	exam, err := g.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "load examination", err)
	}
	if exam == nil {
		return nil, apperr.E(apperr.Unexpected, "examination record missing for an invited candidate")
	}
	if !exam.IsPublished {
		return nil, apperr.E(apperr.Conflict, "examination is not published")
	}

	return cand, nil
}
