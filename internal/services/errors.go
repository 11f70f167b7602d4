package services

import (
	"errors"

	apperrors "github.com/verisona-ai/analysis-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Session specific errors
	ErrSessionNotFound     = errors.New("questionnaire session not found")
	ErrSessionNotCompleted = errors.New("questionnaire session is not completed")
	ErrSessionNoAnswers    = errors.New("questionnaire session has no answers to analyze")

	// Report specific errors
	ErrReportNotFound     = errors.New("report not found")
	ErrReportAccessDenied = errors.New("access denied to report")
	ErrReportNotRetryable = errors.New("only failed reports can be retried")

	// Execution errors
	ErrQueueSaturated = errors.New("analysis queue is full - try again later")
	ErrBatchTooLarge  = errors.New("batch exceeds the maximum number of sessions")
	ErrBatchEmpty     = errors.New("batch contains no sessions")

	// Export errors
	ErrExportFormatUnsupported = errors.New("unsupported export format")
	ErrExportNotReady          = errors.New("only completed reports can be exported")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

// IsForbidden checks if error represents an access control failure
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrReportAccessDenied)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrSessionNotCompleted) ||
		errors.Is(err, ErrSessionNoAnswers) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, ErrBatchEmpty) ||
		errors.Is(err, ErrExportFormatUnsupported) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrReportNotRetryable) ||
		errors.Is(err, ErrExportNotReady)
}

// IsUnavailable checks if error represents temporary saturation
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrQueueSaturated)
}
