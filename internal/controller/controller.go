package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/dto"
)

// HTTPStatus maps engine outcome codes to response statuses. Gate denials and
// lifecycle conflicts are client-state errors, not server faults.
func HTTPStatus(code apperr.Code) int {
	switch code {
	case apperr.CodeNotAvailable, apperr.CodeQuizDisabled, apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeQuizNotFound, apperr.CodeAttemptNotFound, apperr.CodeQuestionNotFound:
		return http.StatusNotFound
	case apperr.CodeMaxAttemptsReached, apperr.CodeRetakeNotAllowed,
		apperr.CodeAttemptAlreadyInProgress, apperr.CodeAttemptAlreadyCompleted,
		apperr.CodeConcurrentConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the JSON error envelope for a service error. Plain
// errors become an opaque 500 so internals never leak to clients.
func RespondError(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code == apperr.CodeDataIntegrity {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(HTTPStatus(e.Code), dto.ErrorResponse{Error: e.Message, Code: string(e.Code)})
}
