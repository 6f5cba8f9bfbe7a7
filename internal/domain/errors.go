package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so sentinel
// errors below work with errors.Is even when wrapped with a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeUnreadableDocument = "UNREADABLE_DOCUMENT"
	ErrCodeEmptyBatch         = "EMPTY_BATCH"
	ErrCodeEmbedding          = "EMBEDDING_UNAVAILABLE"
	ErrCodeGeneration         = "GENERATION_UNAVAILABLE"
)

// Per-document errors. Unreadable documents never abort the batch; the
// document is marked failed and listed in the report.
var (
	ErrUnreadableDocument = NewDomainError(ErrCodeUnreadableDocument, "document is empty or unreadable")
	ErrEmptyBatch         = NewDomainError(ErrCodeEmptyBatch, "no document in the batch could be normalized")
)

// External collaborator errors. Both are retryable; exhausting retries
// degrades the affected rule to unverified rather than failing the batch.
var (
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeEmbedding, "embedding backend unavailable")
	ErrGenerationUnavailable = NewDomainError(ErrCodeGeneration, "completion backend unavailable")
)

// Lookup errors
var (
	ErrSourceNotFound = NewDomainError(ErrCodeNotFound, "knowledge source not found")
)

// Authorization errors
var (
	ErrInvalidAPIToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)
