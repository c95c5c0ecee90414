package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/docspectre/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Job is one discovered file queued for processing
type Job struct {
	Index int // discovery order
	File  models.CandidateFile
}

// Handler processes a single job. Per-file failures are the handler's to log.
type Handler func(ctx context.Context, job Job)

// WorkerPool runs a handler over submitted jobs on a fixed number of goroutines
type WorkerPool struct {
	workers int
	handler Handler
	jobs    chan Job
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
	logger  zerolog.Logger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, handler Handler, logger zerolog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		handler: handler,
		jobs:    make(chan Job, workers*2),
		logger:  logger,
	}
}

// Start starts the worker pool
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.group = &errgroup.Group{}
	p.started = true

	for i := 0; i < p.workers; i++ {
		id := i
		p.group.Go(func() error {
			return p.worker(id)
		})
	}
}

// worker processes jobs until the queue closes or the context is cancelled.
// Cancellation is observed between jobs only.
func (p *WorkerPool) worker(id int) error {
	for {
		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		case job, ok := <-p.jobs:
			if !ok {
				return nil
			}
			if err := p.ctx.Err(); err != nil {
				return err
			}
			p.run(id, job)
		}
	}
}

func (p *WorkerPool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", id).
				Str("path", job.File.Path).
				Str("panic", fmt.Sprint(r)).
				Msg("worker panic recovered")
		}
	}()
	p.handler(p.ctx, job)
}

// Submit queues a job. It returns false once the pool context is done.
func (p *WorkerPool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Stop closes the queue and waits for every worker to finish.
// It returns the context error if the pool was cancelled.
func (p *WorkerPool) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Close jobs channel to signal workers to stop
	close(p.jobs)

	err := p.group.Wait()

	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	return err
}
