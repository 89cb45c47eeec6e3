package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/models"
)

var (
	ErrNoPendingJobs = errors.New("no pending jobs available")
	ErrJobNotFound   = errors.New("job not found")
)

// ImportQueue holds the PDF ledger imports waiting for a worker. Every state
// change is written to dataDir so jobs survive a restart.
type ImportQueue struct {
	mu             sync.RWMutex
	pendingJobs    []*models.ImportJob
	processingJobs map[string]*models.ImportJob
	completedJobs  map[string]*models.ImportJob
	failedJobs     map[string]*models.ImportJob
	jobsByID       map[string]*models.ImportJob
	dataDir        string
	logger         *zap.Logger
}

// NewImportQueue creates the queue and its data directory
func NewImportQueue(dataDir string, logger *zap.Logger) (*ImportQueue, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &ImportQueue{
		pendingJobs:    make([]*models.ImportJob, 0),
		processingJobs: make(map[string]*models.ImportJob),
		completedJobs:  make(map[string]*models.ImportJob),
		failedJobs:     make(map[string]*models.ImportJob),
		jobsByID:       make(map[string]*models.ImportJob),
		dataDir:        dataDir,
		logger:         logger,
	}, nil
}

// EnqueueJob adds an import of sourceFile into the account of clientID
func (q *ImportQueue) EnqueueJob(merchantID, clientID uuid.UUID, sourceFile string) (*models.ImportJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	job := &models.ImportJob{
		ID:         uuid.New().String(),
		MerchantID: merchantID,
		ClientID:   clientID,
		SourceFile: sourceFile,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := q.persistJob(job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	q.pendingJobs = append(q.pendingJobs, job)
	q.jobsByID[job.ID] = job

	q.logger.Info("import job enqueued",
		zap.String("job_id", job.ID),
		zap.String("client_id", clientID.String()),
		zap.String("file", sourceFile))
	return job.Clone(), nil
}

// DequeueJob gets the oldest pending job and marks it as processing by workerID
func (q *ImportQueue) DequeueJob(workerID string) (*models.ImportJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pendingJobs) == 0 {
		return nil, ErrNoPendingJobs
	}

	job := q.pendingJobs[0]
	q.pendingJobs = q.pendingJobs[1:]

	now := time.Now()
	job.Status = models.StatusProcessing
	job.StartedAt = now
	job.UpdatedAt = now
	job.ProcessingNode = workerID
	q.processingJobs[job.ID] = job

	if err := q.persistJob(job); err != nil {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}
	return job.Clone(), nil
}

// CompleteJob marks a processing job as completed with the number of rows it imported
func (q *ImportQueue) CompleteJob(jobID string, imported int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, exists := q.processingJobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not in processing queue: %w", jobID, ErrJobNotFound)
	}

	now := time.Now()
	job.Status = models.StatusCompleted
	job.Imported = imported
	job.CompletedAt = now
	job.UpdatedAt = now

	delete(q.processingJobs, jobID)
	q.completedJobs[jobID] = job
	return q.persistJob(job)
}

// FailJob marks a processing job as failed
func (q *ImportQueue) FailJob(jobID string, errorMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, exists := q.processingJobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not in processing queue: %w", jobID, ErrJobNotFound)
	}

	now := time.Now()
	job.Status = models.StatusFailed
	job.ErrorMessage = errorMsg
	job.CompletedAt = now
	job.UpdatedAt = now

	delete(q.processingJobs, jobID)
	q.failedJobs[jobID] = job
	return q.persistJob(job)
}

// GetJob returns a copy of the job with jobID
func (q *ImportQueue) GetJob(jobID string) (*models.ImportJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, exists := q.jobsByID[jobID]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return job.Clone(), nil
}

// persistJob must be called with q.mu held
func (q *ImportQueue) persistJob(job *models.ImportJob) error {
	jobPath := filepath.Join(q.dataDir, job.ID+".json")

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job data: %w", err)
	}

	if err := os.WriteFile(jobPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}
	return nil
}

// LoadJobs loads all persisted jobs from disk. Jobs that were processing when
// the process stopped go back to pending.
func (q *ImportQueue) LoadJobs() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := os.ReadDir(q.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}

	var pending []*models.ImportJob
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		jobPath := filepath.Join(q.dataDir, file.Name())
		data, err := os.ReadFile(jobPath)
		if err != nil {
			q.logger.Warn("failed to read job file", zap.String("path", jobPath), zap.Error(err))
			continue
		}

		job := &models.ImportJob{}
		if err := json.Unmarshal(data, job); err != nil {
			q.logger.Warn("failed to unmarshal job data", zap.String("path", jobPath), zap.Error(err))
			continue
		}

		q.jobsByID[job.ID] = job
		switch job.Status {
		case models.StatusPending, models.StatusProcessing:
			job.Status = models.StatusPending
			job.ProcessingNode = ""
			pending = append(pending, job)
		case models.StatusCompleted:
			q.completedJobs[job.ID] = job
		case models.StatusFailed:
			q.failedJobs[job.ID] = job
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	q.pendingJobs = append(q.pendingJobs, pending...)

	q.logger.Info("loaded import jobs from disk",
		zap.Int("jobs", len(q.jobsByID)),
		zap.Int("pending", len(q.pendingJobs)))
	return nil
}

// GetJobsByStatus returns copies of the jobs in status
func (q *ImportQueue) GetJobsByStatus(status models.JobStatus) ([]*models.ImportJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	switch status {
	case models.StatusPending:
		return cloneAll(q.pendingJobs), nil
	case models.StatusProcessing:
		return cloneMap(q.processingJobs), nil
	case models.StatusCompleted:
		return cloneMap(q.completedJobs), nil
	case models.StatusFailed:
		return cloneMap(q.failedJobs), nil
	}
	return nil, fmt.Errorf("unknown job status %q", status)
}

// GetAllJobs returns copies of every job, oldest first
func (q *ImportQueue) GetAllJobs() []*models.ImportJob {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return cloneMap(q.jobsByID)
}

func cloneAll(jobs []*models.ImportJob) []*models.ImportJob {
	out := make([]*models.ImportJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Clone())
	}
	return out
}

func cloneMap(jobs map[string]*models.ImportJob) []*models.ImportJob {
	out := make([]*models.ImportJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
