package handler

import (
	"errors"
	"net/http"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to the HTTP envelope. Validation
// errors carry the service message as a field detail; everything else
// uses the canonical message for its code so internals never leak.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.Forbidden):
		response.FailWithFields(c, http.StatusForbidden, response.ErrForbidden,
			map[string]string{"detail": apperr.Message(err)})
	case errors.Is(err, apperr.NotFound):
		response.FailWithFields(c, http.StatusNotFound, response.ErrNotFound,
			map[string]string{"detail": apperr.Message(err)})
	case errors.Is(err, apperr.Conflict):
		response.FailWithFields(c, http.StatusConflict, response.ErrConflict,
			map[string]string{"detail": apperr.Message(err)})
	case errors.Is(err, apperr.Validation):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"detail": apperr.Message(err)})
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
