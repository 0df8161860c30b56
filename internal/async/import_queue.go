package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/importer"
	"github.com/joseph-ayodele/catalog-ingest/internal/metrics"
)

// FileImporter is the part of importer.Importer the queue drives.
type FileImporter interface {
	ImportFile(ctx context.Context, path string, opts importer.Options) (*importer.Summary, error)
}

type ImportQueue struct {
	imp     FileImporter
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan Job
	done    chan struct{}
	wg      sync.WaitGroup
	senders sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ImportQueue)

func WithWorkers(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithImportTimeout(d time.Duration) Option {
	return func(q *ImportQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewImportQueue starts the workers immediately.
func NewImportQueue(imp FileImporter, logger *slog.Logger, opts ...Option) *ImportQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ImportQueue{
		imp:     imp,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ImportQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					metrics.QueueDepth.Dec()
					q.run(workerID, job)
				}
				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ImportQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.RunID != "" {
		ctx = common.WithRunID(ctx, job.RunID)
	}

	start := time.Now()
	summary, err := q.imp.ImportFile(ctx, job.Path, importer.Options{Force: job.Force})
	elapsed := time.Since(start)
	var waited time.Duration
	if !job.SubmittedAt.IsZero() {
		waited = start.Sub(job.SubmittedAt)
	}
	if err != nil {
		q.logger.Error("queue.job.failed",
			"worker_id", workerID,
			"path", job.Path,
			"code", common.ErrorCode(err),
			"waited_ms", waited.Milliseconds(),
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return
	}
	q.logger.Info("queue.job.done",
		"worker_id", workerID,
		"path", job.Path,
		"status", summary.Status,
		"products", summary.Products,
		"waited_ms", waited.Milliseconds(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// Enqueue blocks while the queue is full, until ctx is done or the queue shuts down.
func (q *ImportQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.rejected", "path", job.Path, "reason", "shutting down")
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	metrics.QueueDepth.Inc()
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.full", "path", job.Path, "capacity", cap(q.ch))
		select {
		case q.ch <- job:
		case <-ctx.Done():
			metrics.QueueDepth.Dec()
			return ctx.Err()
		case <-q.done:
			metrics.QueueDepth.Dec()
			q.logger.Warn("queue.enqueue.rejected", "path", job.Path, "reason", "shutting down")
			return ErrQueueClosed
		}
	}
	q.logger.Info("queue.enqueued", "path", job.Path, "force", job.Force)
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to end.
// Enqueue calls blocked on a full queue return ErrQueueClosed.
func (q *ImportQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	// no sender can be mid-send once this returns, so closing ch is safe
	q.senders.Wait()
	close(q.ch)

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-drained:
		q.logger.Info("queue.shutdown.drained")
	}
}
