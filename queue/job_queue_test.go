package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/models"
)

func newQueue(t *testing.T, dir string) *ImportQueue {
	t.Helper()
	q, err := NewImportQueue(dir, zap.NewNop())
	require.NoError(t, err)
	return q
}

func TestImportQueueLifecycle(t *testing.T) {
	q := newQueue(t, t.TempDir())
	merchantID, clientID := uuid.New(), uuid.New()

	first, err := q.EnqueueJob(merchantID, clientID, "a.pdf")
	require.NoError(t, err)
	second, err := q.EnqueueJob(merchantID, clientID, "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, first.Status)

	job, err := q.DequeueJob("worker-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, job.ID)
	assert.Equal(t, models.StatusProcessing, job.Status)
	assert.Equal(t, "worker-1", job.ProcessingNode)

	require.NoError(t, q.CompleteJob(job.ID, 7))
	done, err := q.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, 7, done.Imported)
	assert.True(t, done.Done())

	job, err = q.DequeueJob("worker-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, job.ID)
	require.NoError(t, q.FailJob(job.ID, "no rows found"))

	failed, err := q.GetJobsByStatus(models.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "no rows found", failed[0].ErrorMessage)

	_, err = q.DequeueJob("worker-1")
	assert.ErrorIs(t, err, ErrNoPendingJobs)
}

func TestImportQueueUnknownJobs(t *testing.T) {
	q := newQueue(t, t.TempDir())

	_, err := q.GetJob("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, q.CompleteJob("missing", 1), ErrJobNotFound)
	assert.ErrorIs(t, q.FailJob("missing", "x"), ErrJobNotFound)

	_, err = q.GetJobsByStatus("archived")
	assert.Error(t, err)
}

func TestImportQueueReturnsCopies(t *testing.T) {
	q := newQueue(t, t.TempDir())
	job, err := q.EnqueueJob(uuid.New(), uuid.New(), "a.pdf")
	require.NoError(t, err)

	job.Status = models.StatusFailed
	stored, err := q.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestImportQueueLoadJobs(t *testing.T) {
	dir := t.TempDir()
	q := newQueue(t, dir)
	merchantID, clientID := uuid.New(), uuid.New()

	completed, err := q.EnqueueJob(merchantID, clientID, "done.pdf")
	require.NoError(t, err)
	_, err = q.DequeueJob("worker-1")
	require.NoError(t, err)
	require.NoError(t, q.CompleteJob(completed.ID, 3))

	interrupted, err := q.EnqueueJob(merchantID, clientID, "half.pdf")
	require.NoError(t, err)
	_, err = q.DequeueJob("worker-1")
	require.NoError(t, err)

	waiting, err := q.EnqueueJob(merchantID, clientID, "next.pdf")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	reloaded := newQueue(t, dir)
	require.NoError(t, reloaded.LoadJobs())

	assert.Len(t, reloaded.GetAllJobs(), 3)

	pending, err := reloaded.GetJobsByStatus(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, interrupted.ID, pending[0].ID)
	assert.Equal(t, waiting.ID, pending[1].ID)
	assert.Empty(t, pending[0].ProcessingNode)

	job, err := reloaded.GetJob(completed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
	assert.Equal(t, 3, job.Imported)
	assert.Equal(t, clientID, job.ClientID)
}
