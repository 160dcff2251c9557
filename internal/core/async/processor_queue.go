package async

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// SourceLoader reads a file into a processor source. Implemented by ingest.FSLoader.
type SourceLoader interface {
	LoadPath(ctx context.Context, path string) (core.Source, error)
}

// ProcessorQueue processes queued file paths on a bounded worker pool, records each
// outcome in run history, and keeps outcomes for later assembly.
type ProcessorQueue struct {
	proc    *core.Processor
	loader  SourceLoader
	store   core.OutcomeStore
	runID   uuid.UUID
	sel     fields.Selection
	debug   bool
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan queued
	quit    chan struct{}
	wg      sync.WaitGroup
	sending sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
	seq    int

	resMu    sync.Mutex
	outcomes []entity.Outcome
}

type queued struct {
	Job
	seq int
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
			q.ch = make(chan queued, n)
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

// WithRun records every outcome under runID in store.
func WithRun(store core.OutcomeStore, runID uuid.UUID) Option {
	return func(q *ProcessorQueue) {
		q.store = store
		q.runID = runID
	}
}

// WithDebug keeps a trace on every outcome.
func WithDebug(debug bool) Option {
	return func(q *ProcessorQueue) {
		q.debug = debug
	}
}

func NewProcessorQueue(proc *core.Processor, loader SourceLoader, sel fields.Selection, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		loader:  loader,
		sel:     sel,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan queued, 256),
		quit:    make(chan struct{}),
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
				q.logger.Debug("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.handle(workerID, job)
				}
				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) handle(workerID int, job queued) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	logger := q.logger.With("worker_id", workerID, "path", job.Path)
	if q.store != nil {
		logger = logger.With("run_id", q.runID.String())
	}
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
		logger = logger.With("request_id", job.RequestID)
	}
	ctx = common.WithLogger(ctx, logger)

	var out entity.Outcome
	src, err := q.loader.LoadPath(ctx, job.Path)
	if err != nil {
		out = entity.Outcome{Name: job.Path, Err: err.Error()}
		logger.Error("queue.job.load_failed", "err", err)
	} else {
		out = q.proc.ProcessDocument(ctx, src, q.sel, q.debug)
	}
	out.Seq = job.seq

	if q.store != nil {
		if err := q.store.SaveOutcome(ctx, q.runID, out); err != nil {
			logger.Error("queue.job.save_failed", "err", err)
		}
	}

	q.resMu.Lock()
	q.outcomes = append(q.outcomes, out)
	q.resMu.Unlock()

	if out.Failed() {
		logger.Warn("queue.job.failed", "err", out.Err)
		return
	}
	logger.Info("queue.job.ok", "queued_ms", time.Since(job.SubmittedAt).Milliseconds())
}

// Enqueue blocks when the queue is full until a slot frees up, ctx is done or
// the queue shuts down. The send happens outside the lock.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	item := queued{Job: job, seq: q.seq}
	q.seq++
	q.sending.Add(1)
	q.mu.Unlock()
	defer q.sending.Done()

	if item.SubmittedAt.IsZero() {
		item.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- item:
	default:
		q.logger.Warn("queue.enqueue.backpressure", "path", job.Path)
		select {
		case q.ch <- item:
		case <-ctx.Done():
			return ctx.Err()
		case <-q.quit:
			q.logger.Warn("queue.enqueue.closed", "path", job.Path)
			return ErrQueueClosed
		}
	}
	q.logger.Debug("queue.enqueue.ok", "path", job.Path)
	return nil
}

// Outcomes returns a copy of the outcomes processed so far in enqueue order.
func (q *ProcessorQueue) Outcomes() []entity.Outcome {
	q.resMu.Lock()
	out := append([]entity.Outcome(nil), q.outcomes...)
	q.resMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Stats summarizes the outcomes processed so far.
func (q *ProcessorQueue) Stats() entity.RunStats {
	q.resMu.Lock()
	defer q.resMu.Unlock()
	s := entity.RunStats{Documents: len(q.outcomes)}
	for _, o := range q.outcomes {
		if o.Failed() {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

// Shutdown stops accepting jobs, releases senders blocked on a full queue and
// waits for queued jobs until ctx is done.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	// No sender may still be selecting on ch when it closes.
	q.sending.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
