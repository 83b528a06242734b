package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/pipeline"
)

// Recognizer is the part of pipeline.Processor the workers need.
type Recognizer interface {
	RecognizeFile(ctx context.Context, path string) (pipeline.Result, error)
}

// ResultHandler observes every finished job.
type ResultHandler func(job Job, res pipeline.Result, err error)

type ProcessorQueue struct {
	proc     Recognizer
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultHandler

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithResultHandler(h ResultHandler) Option {
	return func(q *ProcessorQueue) { q.onResult = h }
}

func NewProcessorQueue(proc Recognizer, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}

	q.logger.Debug("queue.job.running", "worker_id", workerID, "path", job.Path, "status", constants.StatusRunning)
	res, err := q.proc.RecognizeFile(ctx, job.Path)
	if err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path, "request_id", job.RequestID, "source", job.Source, "error", err)
	} else {
		q.logger.Info("queue.job.done",
			"worker_id", workerID, "path", job.Path, "status", res.Status,
			"receipt_id", res.ReceiptID, "wait", time.Since(job.SubmittedAt).Round(time.Millisecond))
	}
	if q.onResult != nil {
		q.onResult(job, res, err)
	}
}

// Enqueue blocks while the queue is full until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.job.queued", "path", job.Path, "status", constants.StatusQueued)
		return nil
	default:
	}
	q.logger.Warn("queue.full", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
