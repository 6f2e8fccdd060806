package common

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	publicapp "github.com/beanscene/api/internal/public/application"
)

// Error codes clients branch on.
const (
	CodeValidation   = "invalid_input"
	CodeRateLimited  = "too_many_submissions"
	CodeNotFound     = "not_found"
	CodeUnauthorized = "auth_required"
	CodeSelfFollow   = "self_follow"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// StatusFor maps an application error to an HTTP status and response body.
func StatusFor(err error) (int, ErrorResponse) {
	var validation *publicapp.ValidationError
	var upstream *publicapp.UpstreamError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorResponse{Error: validation.Message, Code: CodeValidation, Field: validation.Field}
	case errors.Is(err, publicapp.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{Error: "too many reviews submitted recently, try again later", Code: CodeRateLimited}
	case errors.Is(err, publicapp.ErrNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return http.StatusNotFound, ErrorResponse{Error: "not found", Code: CodeNotFound}
	case errors.Is(err, publicapp.ErrAuthRequired):
		return http.StatusUnauthorized, ErrorResponse{Error: "sign in required", Code: CodeUnauthorized}
	case errors.Is(err, publicapp.ErrSelfFollow):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeSelfFollow}
	case errors.As(err, &upstream):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:     upstream.Source + " is temporarily unavailable",
			Code:      CodeUnavailable,
			Retryable: upstream.Retryable,
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: CodeInternal}
	}
}

// WriteError logs server-side failures and writes the mapped response.
func WriteError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, body := StatusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	WriteJSON(logger, w, status, body)
}
