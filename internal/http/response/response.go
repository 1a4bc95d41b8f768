package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps a coded domain error onto the wire envelope. Errors
// without a code read as internal.
func RespondDomainError(c *gin.Context, err error) {
	var de *aggregates.Error
	if errors.As(err, &de) {
		RespondError(c, StatusForCode(de.Code), string(de.Code), errors.New(de.Message))
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal", err)
}

func StatusForCode(code aggregates.ErrorCode) int {
	switch code {
	case aggregates.CodeValidation:
		return http.StatusBadRequest
	case aggregates.CodeNotFound:
		return http.StatusNotFound
	case aggregates.CodeConflict:
		return http.StatusConflict
	case aggregates.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case aggregates.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
