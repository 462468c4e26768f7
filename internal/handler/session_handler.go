package handler

import (
	"net/http"

	"github.com/certiq/certiq-backend/internal/middleware"
	"github.com/certiq/certiq-backend/internal/response"
	"github.com/certiq/certiq-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles the candidate exam session lifecycle.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Lobby godoc
// GET /api/v1/candidate/exams
// Lists the caller's exam invitations with their session status.
func (h *SessionHandler) Lobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	entries, err := h.sessionService.Lobby(c.Request.Context(), claims.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": entries})
}

// StartExam godoc
// POST /api/v1/candidate/exams/:exam_id/start
// Starts (or resumes) the caller's session and returns the exam paper.
func (h *SessionHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.sessionService.StartExam(c.Request.Context(), examID, claims.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// SubmitExam godoc
// POST /api/v1/candidate/exams/:exam_id/submit
// Finishes the caller's session. Submitting twice is a no-op.
func (h *SessionHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.SubmitExam(c.Request.Context(), examID, claims.AccountID); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "submitted"})
}
