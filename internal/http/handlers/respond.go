package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

// RespondDomainError maps directory errors onto the transport. Duplicates
// name the conflicting field so clients can highlight it; store failures
// are the only thing that surfaces as a 5xx.
func RespondDomainError(ctx *gin.Context, err error) {
	var vErr *user.ValidationError

	switch {
	case errors.As(err, &vErr):
		RespondBadRequest(ctx, vErr.Reason, gin.H{"field": vErr.Field})
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use.")
	case errors.Is(err, user.ErrUsernameTaken):
		RespondConflict(ctx, "username_taken", "Username is already taken.")
	default:
		RespondInternal(ctx, "Something went wrong")
	}
}
