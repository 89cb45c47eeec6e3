package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/ledger"
	"github.com/jupark12/fiado/metrics"
	"github.com/jupark12/fiado/models"
	"github.com/jupark12/fiado/queue"
	"github.com/jupark12/fiado/store"
)

var ErrNoEntries = errors.New("no ledger lines found")

// BalanceNotifier is told about the balance a client ends up with after an import
type BalanceNotifier func(clientID uuid.UUID, balance decimal.Decimal)

// Worker consumes import jobs and writes their lines to the ledger
type Worker struct {
	ID           string
	Queue        *queue.ImportQueue
	Ledger       store.Ledger
	PollInterval time.Duration

	processing bool
	mu         sync.Mutex
	notifier   BalanceNotifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewWorker creates a new worker instance
func NewWorker(id string, q *queue.ImportQueue, l store.Ledger, m *metrics.Metrics, logger *zap.Logger) *Worker {
	return &Worker{
		ID:           id,
		Queue:        q,
		Ledger:       l,
		PollInterval: 5 * time.Second,
		metrics:      m,
		logger:       logger.With(zap.String("worker_id", id)),
	}
}

func (w *Worker) SetNotifier(n BalanceNotifier) {
	w.notifier = n
}

// Processing reports whether the worker is busy with a job
func (w *Worker) Processing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processing
}

func (w *Worker) setProcessing(v bool) {
	w.mu.Lock()
	w.processing = v
	w.mu.Unlock()
}

// Run polls the queue until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker starting")
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		for w.runOnce(ctx) {
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// runOnce processes one job if there is one and reports whether it did
func (w *Worker) runOnce(ctx context.Context) bool {
	job, err := w.Queue.DequeueJob(w.ID)
	if err != nil {
		if !errors.Is(err, queue.ErrNoPendingJobs) {
			w.logger.Error("failed to dequeue job", zap.Error(err))
		}
		return false
	}

	w.setProcessing(true)
	defer w.setProcessing(false)

	log := w.logger.With(zap.String("job_id", job.ID), zap.String("client_id", job.ClientID.String()))
	log.Info("processing import job", zap.String("file", job.SourceFile))

	imported, err := w.processStatement(ctx, job)
	if err != nil {
		log.Warn("import job failed", zap.Error(err))
		if qerr := w.Queue.FailJob(job.ID, err.Error()); qerr != nil {
			log.Error("failed to record job failure", zap.Error(qerr))
		}
		w.observe(models.StatusFailed)
		return true
	}

	log.Info("import job completed", zap.Int("imported", imported))
	if qerr := w.Queue.CompleteJob(job.ID, imported); qerr != nil {
		log.Error("failed to record job completion", zap.Error(qerr))
	}
	w.observe(models.StatusCompleted)
	return true
}

func (w *Worker) observe(status models.JobStatus) {
	if w.metrics != nil {
		w.metrics.ObserveImport(status)
	}
}

// processStatement reads the uploaded PDF and imports its lines
func (w *Worker) processStatement(ctx context.Context, job *models.ImportJob) (int, error) {
	if _, err := os.Stat(job.SourceFile); err != nil {
		return 0, fmt.Errorf("source file %s: %w", job.SourceFile, err)
	}

	lines, err := readPDFLines(job.SourceFile)
	if err != nil {
		return 0, err
	}
	return w.importLines(ctx, job, lines)
}

func readPDFLines(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	lines := []string{}
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}
	return lines, nil
}

// importLines writes every line of the statement in one batch, so a failed
// import leaves neither rows nor a balance change behind.
func (w *Worker) importLines(ctx context.Context, job *models.ImportJob, lines []string) (int, error) {
	entries, skipped := ExtractEntries(lines)
	merchant := ledger.MerchantContext{MerchantID: job.MerchantID}
	rows, rejected := composeRows(merchant, job.ClientID, entries)
	if skipped+rejected > 0 {
		w.logger.Warn("skipped statement lines",
			zap.String("job_id", job.ID),
			zap.Int("skipped", skipped+rejected))
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%s: %w", job.SourceFile, ErrNoEntries)
	}

	balance, err := w.Ledger.InsertMany(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to insert statement rows: %w", err)
	}

	if w.metrics != nil {
		w.metrics.ObserveRows(rows)
	}
	if w.notifier != nil {
		w.notifier(job.ClientID, balance)
	}
	return len(rows), nil
}
