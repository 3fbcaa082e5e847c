package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// Capture errors
	CodeInvalidCandidate        ErrorCode = "INVALID_CANDIDATE"
	CodeMissingQuestionMetadata ErrorCode = "MISSING_QUESTION_METADATA"
	CodeInteractionNotFound     ErrorCode = "INTERACTION_NOT_FOUND"
	CodeNotMounted              ErrorCode = "NOT_MOUNTED"
	CodeSinkFailed              ErrorCode = "SINK_FAILED"

	// Upload errors
	CodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	CodeImageProcessing  ErrorCode = "IMAGE_PROCESSING_FAILED"
	CodeUploadInProgress ErrorCode = "UPLOAD_IN_PROGRESS"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code ErrorCode) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

// AsDomainError finds the first *DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(CodeInternal, message, err)
}

func NewInvalidCandidateError(interactionID, reason string) *DomainError {
	return NewError(CodeInvalidCandidate, fmt.Sprintf("Candidate for interaction %s rejected: %s", interactionID, reason), nil)
}

func NewMissingQuestionMetadataError(interactionID string) *DomainError {
	return NewError(CodeMissingQuestionMetadata, fmt.Sprintf("Judged interaction %s has no question metadata", interactionID), nil)
}

func NewInteractionNotFoundError(slideID, interactionID string) *DomainError {
	return NewError(CodeInteractionNotFound, fmt.Sprintf("Interaction %s not found on slide %s", interactionID, slideID), nil)
}

func NewNotMountedError(interactionID string) *DomainError {
	return NewError(CodeNotMounted, fmt.Sprintf("Interaction %s is not mounted", interactionID), nil)
}

func NewSinkError(err error) *DomainError {
	return NewError(CodeSinkFailed, "Failed to hand response to sink", err)
}

// NewFileTooLargeError builds the user-facing oversize rejection.
func NewFileTooLargeError(size, limit int64) *DomainError {
	return NewError(CodeFileTooLarge,
		fmt.Sprintf("File too large (%s). Please choose an image smaller than %s.", FormatBytes(size), FormatBytes(limit)),
		nil)
}

// NewImageProcessingError builds the user-facing decode/encode failure.
func NewImageProcessingError(err error) *DomainError {
	return NewError(CodeImageProcessing, "Could not process image. Please try a different file.", err)
}

func NewUploadInProgressError(interactionID string) *DomainError {
	return NewError(CodeUploadInProgress, fmt.Sprintf("An upload for interaction %s is already in progress", interactionID), nil)
}

// FormatBytes renders n as a short binary-unit string, e.g. "15 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	suffix := []string{"KiB", "MiB", "GiB", "TiB"}[exp]
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d %s", int64(value), suffix)
	}
	return fmt.Sprintf("%.1f %s", value, suffix)
}
