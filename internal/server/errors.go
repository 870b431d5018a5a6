package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	verificationdomain "github.com/rupeeback/verify/internal/verification/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

// ErrorHandlingMiddleware renders the last gin error as a JSON payload
// when no handler wrote a response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, verificationdomain.ErrInvalidSubmission),
		errors.Is(err, verificationdomain.ErrRejectionReasonRequired):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}

	case errors.Is(err, verificationdomain.ErrBillNotFound),
		errors.Is(err, verificationdomain.ErrMerchantNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}

	case errors.Is(err, verificationdomain.ErrNotOwner):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}

	case errors.Is(err, verificationdomain.ErrAlreadyApproved),
		errors.Is(err, verificationdomain.ErrAlreadyRejected),
		errors.Is(err, verificationdomain.ErrNotRejected),
		errors.Is(err, verificationdomain.ErrResubmissionLocked):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}

	case errors.Is(err, verificationdomain.ErrResubmissionLimit):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "resubmission_limit",
			Message: err.Error(),
		}

	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "upload rate limit exceeded",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}
