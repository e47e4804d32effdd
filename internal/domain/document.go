package domain

import (
	"fmt"
	"time"
)

// FileType identifies the source format of an uploaded document.
type FileType string

const (
	FileTypeTXT  FileType = "txt"
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
)

// DocumentStatus represents the processing lifecycle of a document.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusError      DocumentStatus = "error"
)

// Document represents an uploaded legal document. The raw bytes live in the
// object store under StorageKey; only the chunker pipeline mutates status.
type Document struct {
	ID          string
	Title       string
	Filename    string
	FileType    FileType
	SizeBytes   int64
	StorageKey  string
	Status      DocumentStatus
	ChunkCount  int
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// NewDocument creates a Document in the uploaded state.
func NewDocument(id, title, filename string, fileType FileType, sizeBytes int64, storageKey string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:         id,
		Title:      title,
		Filename:   filename,
		FileType:   fileType,
		SizeBytes:  sizeBytes,
		StorageKey: storageKey,
		Status:     DocumentStatusUploaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidateDocument validates a Document instance.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}
	if !IsValidFileType(d.FileType) {
		return ErrUnsupportedFileType
	}
	if !isValidDocumentStatus(d.Status) {
		return ErrInvalidDocumentStatus
	}
	return nil
}

// IsValidFileType reports whether ft is one of the supported source formats.
func IsValidFileType(ft FileType) bool {
	switch ft {
	case FileTypeTXT, FileTypePDF, FileTypeDOCX:
		return true
	}
	return false
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusProcessing,
		DocumentStatusProcessed, DocumentStatusError:
		return true
	}
	return false
}
