package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Evgesha-thunder/user-service/internal/service"
	"github.com/Evgesha-thunder/user-service/pkg/middleware"
)

const (
	TitleValidationFailed = "Validation failed"
	TitleBadJSON          = "Bad JSON request"
	TitleBadRequest       = "Bad request"
	TitleNotFound         = "User not found"
	TitleEmailDuplicate   = "Email duplicate"
	TitleInternal         = "Internal Server Error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Title       string            `json:"title" example:"User not found"`
	Message     string            `json:"message" example:"user with id 999 not found"`
	Timestamp   time.Time         `json:"timestamp"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func abortWithError(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func abortWithFieldErrors(c *gin.Context, fieldErrors map[string]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		Title:       TitleValidationFailed,
		Message:     "request has invalid fields",
		Timestamp:   time.Now().UTC(),
		FieldErrors: fieldErrors,
	})
}

// writeServiceError maps a service error onto a status. failMsg is returned
// for unexpected faults; their details only go to the log.
func (h *UserHandler) writeServiceError(c *gin.Context, err error, failMsg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, TitleNotFound, err.Error())
	case errors.Is(err, service.ErrEmailAlreadyExists):
		abortWithError(c, http.StatusConflict, TitleEmailDuplicate, err.Error())
	default:
		h.log.Error(failMsg,
			slog.Any("error", err),
			slog.String("correlation_id", middleware.GetCorrelationID(c)),
		)
		abortWithError(c, http.StatusInternalServerError, TitleInternal, failMsg)
	}
}
