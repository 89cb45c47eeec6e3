package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of an import job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ImportJob represents an uploaded PDF ledger waiting to be loaded into a client's account
type ImportJob struct {
	ID             string    `json:"id"`
	MerchantID     uuid.UUID `json:"merchant_id"`
	ClientID       uuid.UUID `json:"client_id"`
	SourceFile     string    `json:"source_file"`
	Status         JobStatus `json:"status"`
	Imported       int       `json:"imported"`
	CreatedAt      time.Time `json:"created_at"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ProcessingNode string    `json:"processing_node,omitempty"`
}

// Clone returns a copy that can be handed out without sharing the queue's record
func (j *ImportJob) Clone() *ImportJob {
	c := *j
	return &c
}

// Done reports whether the job reached a final state
func (j *ImportJob) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
