package domain

import (
	"fmt"
	"time"
)

// ProcessingJobStatus represents the status of a document processing job
type ProcessingJobStatus string

const (
	ProcessingJobStatusPending    ProcessingJobStatus = "pending"
	ProcessingJobStatusProcessing ProcessingJobStatus = "processing"
	ProcessingJobStatusCompleted  ProcessingJobStatus = "completed"
	ProcessingJobStatusFailed     ProcessingJobStatus = "failed"
)

// ProcessingJob represents an async chunk-and-embed job for one document
type ProcessingJob struct {
	ID          string
	DocumentID  string
	Status      ProcessingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewProcessingJob creates a pending ProcessingJob for a document
func NewProcessingJob(id, documentID string) *ProcessingJob {
	return &ProcessingJob{
		ID:         id,
		DocumentID: documentID,
		Status:     ProcessingJobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// ValidateProcessingJob validates a ProcessingJob instance
func ValidateProcessingJob(j *ProcessingJob) error {
	if j == nil {
		return fmt.Errorf("processing job cannot be nil")
	}
	if j.ID == "" {
		return fmt.Errorf("processing job ID is required")
	}
	if j.DocumentID == "" {
		return fmt.Errorf("processing job DocumentID is required")
	}
	if !isValidProcessingJobStatus(j.Status) {
		return fmt.Errorf("processing job Status is invalid: %s", j.Status)
	}
	if j.Retries < 0 {
		return fmt.Errorf("processing job Retries cannot be negative")
	}
	return nil
}

func isValidProcessingJobStatus(s ProcessingJobStatus) bool {
	switch s {
	case ProcessingJobStatusPending, ProcessingJobStatusProcessing,
		ProcessingJobStatusCompleted, ProcessingJobStatusFailed:
		return true
	}
	return false
}
