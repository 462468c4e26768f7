package handler

import (
	"net/http"

	"github.com/certiq/certiq-backend/internal/middleware"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/certiq/certiq-backend/internal/response"
	"github.com/certiq/certiq-backend/internal/service"
	"github.com/certiq/certiq-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubmissionHandler handles answer submission endpoints.
type SubmissionHandler struct {
	mcqService     *service.McqService
	writtenService *service.WrittenService
	problemService *service.ProblemService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(
	mcqService *service.McqService,
	writtenService *service.WrittenService,
	problemService *service.ProblemService,
) *SubmissionHandler {
	return &SubmissionHandler{
		mcqService:     mcqService,
		writtenService: writtenService,
		problemService: problemService,
	}
}

// SaveMcq godoc
// PUT /api/v1/candidate/exams/:exam_id/mcq-submissions
// Saves a batch of multiple-choice answers, scoring each on the spot.
func (h *SubmissionHandler) SaveMcq(c *gin.Context) {
	claims, examID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SaveMcqSubmissionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.mcqService.Save(c.Request.Context(), examID, claims.AccountID, &req); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SaveWritten godoc
// PUT /api/v1/candidate/exams/:exam_id/written-submissions
// Saves a batch of free-text answers for later review.
func (h *SubmissionHandler) SaveWritten(c *gin.Context) {
	claims, examID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SaveWrittenSubmissionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.writtenService.Save(c.Request.Context(), examID, claims.AccountID, &req); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SaveProblem godoc
// PUT /api/v1/candidate/exams/:exam_id/problem-submissions
// Runs candidate code against the question's test cases, scores it and
// persists the attempt. Returns the per-test-case results.
func (h *SubmissionHandler) SaveProblem(c *gin.Context) {
	claims, examID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SaveProblemSubmissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	results, err := h.problemService.Save(c.Request.Context(), examID, claims.AccountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// sessionParams extracts the claims and exam id shared by every
// submission route, writing the error response itself on failure.
func (h *SubmissionHandler) sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}

	return claims, examID, true
}
