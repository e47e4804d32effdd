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

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeIngestion        = "INGESTION_ERROR"
	ErrCodeGeneration       = "GENERATION_ERROR"
)

// Validation errors
var (
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidChunkType      = NewDomainError(ErrCodeValidation, "invalid chunk type")
	ErrInvalidJobStatus      = NewDomainError(ErrCodeValidation, "invalid processing job status")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrJobNotFound      = NewDomainError(ErrCodeNotFound, "processing job not found")
)

// Ingestion errors are fatal for the document; no partial result is stored.
var (
	ErrUnsupportedFileType = NewDomainError(ErrCodeIngestion, "unsupported file type")
	ErrUndecodableContent  = NewDomainError(ErrCodeIngestion, "unable to decode document content")
	ErrEmptyDocument       = NewDomainError(ErrCodeIngestion, "document contains no extractable text")
)

// Generation errors
var (
	ErrGenerationFailed = NewDomainError(ErrCodeGeneration, "answer generation failed")
)

// Operation errors
var (
	ErrDocumentNotProcessed = NewDomainError(ErrCodeInvalidOperation, "document has not been processed")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
