package async

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/async"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Processor is satisfied by *core.Processor.
type Processor interface {
	ExtractRegatta(ctx context.Context, req regatta.Request) core.RegattaResponse
	ExtractInvoice(ctx context.Context, pdfBase64 string, progress ocr.ProgressFunc) core.InvoiceResponse
}

// Outcome is reported once per dequeued job. Err is set only when the file
// could not be read; extraction problems live on the responses.
type Outcome struct {
	Job      async.Job
	Regatta  *core.RegattaResponse
	Invoice  *core.InvoiceResponse
	Err      error
	Duration time.Duration
}

type ProcessorQueue struct {
	proc     Processor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Outcome)

	ch   chan async.Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
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
			q.ch = make(chan async.Job, n)
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

// WithOnResult registers a callback invoked from worker goroutines.
func WithOnResult(fn func(Outcome)) Option {
	return func(q *ProcessorQueue) { q.onResult = fn }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan async.Job, 256),
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
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					out := q.process(job)
					if out.Err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", out.Err)
					} else {
						q.logger.Info("processed file", "worker_id", workerID, "path", job.Path, "duration_ms", out.Duration.Milliseconds())
					}
					if q.onResult != nil {
						q.onResult(out)
					}
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(job async.Job) Outcome {
	start := time.Now()
	out := Outcome{Job: job}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	b, err := os.ReadFile(job.Path)
	if err != nil {
		out.Err = fmt.Errorf("read %s: %w", job.Path, err)
		out.Duration = time.Since(start)
		return out
	}
	payload := base64.StdEncoding.EncodeToString(b)

	switch job.Kind {
	case constants.JobKindInvoice:
		resp := q.proc.ExtractInvoice(ctx, payload, nil)
		out.Invoice = &resp
	default:
		resp := q.proc.ExtractRegatta(ctx, regatta.Request{PDFBase64: payload, SailNumber: job.SailNumber})
		out.Regatta = &resp
	}
	out.Duration = time.Since(start)
	return out
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "path", job.Path, "kind", job.Kind)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

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
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
