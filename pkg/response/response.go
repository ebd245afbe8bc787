package response

import (
	"log/slog"
	"net/http"

	apperrors "messaging-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is a standardized error response for API
type ErrorResponse struct {
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	Details       string   `json:"details,omitempty"`
	Field         string   `json:"field,omitempty"`
	InvalidIDs    []string `json:"invalidIds,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindValidation:     http.StatusBadRequest,
	apperrors.KindUnauthorized:   http.StatusUnauthorized,
	apperrors.KindForbidden:      http.StatusForbidden,
	apperrors.KindNotFound:       http.StatusNotFound,
	apperrors.KindConflict:       http.StatusConflict,
	apperrors.KindInfrastructure: http.StatusInternalServerError,
}

// HTTPStatusFromError maps the error taxonomy onto status codes.
func HTTPStatusFromError(err error) int {
	if status, ok := statusByKind[apperrors.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error writes err as JSON and aborts the chain. Infrastructure failures are
// logged with their correlation id and returned opaque.
func Error(c *gin.Context, err error) {
	status := HTTPStatusFromError(err)
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Infrastructure(c.FullPath(), err).(*apperrors.AppError)
	}

	body := ErrorResponse{
		Code:       string(appErr.Kind),
		Message:    appErr.Message,
		Field:      appErr.Field,
		InvalidIDs: appErr.InvalidIDs,
	}
	if appErr.Kind == apperrors.KindInfrastructure {
		body.CorrelationID = appErr.CorrelationID
		slog.ErrorContext(c.Request.Context(), "request failed",
			"op", appErr.Op,
			"correlation_id", appErr.CorrelationID,
			"request_id", c.GetString("request_id"),
			"error", appErr.Cause,
		)
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest reports a binding failure.
func BadRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    string(apperrors.KindValidation),
		Message: "Invalid input data",
		Details: details,
	})
}
