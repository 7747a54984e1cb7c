// Package services implements the application operations exposed to the
// transport layer: document job submission/status/result/retry and the
// asynchronous chat sub-flow.
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/common"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
)

// ErrorCode is the machine-readable failure code surfaced to clients.
type ErrorCode string

const (
	CodeValidationError    ErrorCode = "VALIDATION_ERROR"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeProcessingError    ErrorCode = "PROCESSING_ERROR"
	CodeRetryExhausted     ErrorCode = "RETRY_EXHAUSTED"
	CodeResultNotReady     ErrorCode = "RESULT_NOT_READY"
	CodeInvalidJobIDFormat ErrorCode = "INVALID_JOB_ID_FORMAT"
)

// APIError is the typed error variant of every service operation.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// toAPIError maps internal errors onto the client-facing taxonomy.
// Ownership and expiry failures read as not-found so existence is never
// leaked; anything unrecognized becomes a generic retryable failure.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrorJobExpired):
		return &APIError{Code: CodeNotFound, Message: "job not found"}
	case errors.Is(err, common.ErrorInvalidJobIDFormat):
		return &APIError{Code: CodeInvalidJobIDFormat, Message: "invalid job id format"}
	case errors.Is(err, common.ErrorValidation):
		return &APIError{Code: CodeValidationError, Message: err.Error()}
	case errors.Is(err, common.ErrorRetryExhausted):
		return &APIError{Code: CodeRetryExhausted, Message: "retry is no longer possible"}
	case errors.Is(err, common.ErrorResultNotReady):
		return &APIError{Code: CodeResultNotReady, Message: "result is not ready"}
	}
	return &APIError{Code: CodeProcessingError, Message: "processing failed, please retry"}
}

// SubmitResponse acknowledges an accepted document job or retry.
type SubmitResponse struct {
	JobID                      string `json:"job_id"`
	Status                     string `json:"status"`
	EstimatedCompletionSeconds int    `json:"estimated_completion_seconds"`
}

// JobStatusResponse is the status poll payload for a document job. Status
// carries the effective (derived) status, so timeout appears here even
// though it is never stored.
type JobStatusResponse struct {
	JobID               string     `json:"job_id"`
	Status              string     `json:"status"`
	ProgressPercentage  int        `json:"progress_percentage"`
	UploadedAt          time.Time  `json:"uploaded_at"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	RetryCount          int        `json:"retry_count"`
	Error               string     `json:"error,omitempty"`
}

// ChatAck acknowledges an accepted chat question.
type ChatAck struct {
	JobID                      string `json:"job_id"`
	Status                     string `json:"status"`
	EstimatedCompletionSeconds int    `json:"estimated_completion_seconds"`
}

// ChatStatusResponse is the chat poll payload: processing while no artifact
// exists, complete with the response exactly once after it does.
type ChatStatusResponse struct {
	Status   string             `json:"status"`
	Response *models.ChatAnswer `json:"response,omitempty"`
}
