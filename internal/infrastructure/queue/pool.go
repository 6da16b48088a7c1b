package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/paysecure/auth-service/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ErrStopped is returned by Do once the pool has been shut down.
var ErrStopped = errors.New("queue: pool stopped")

type job struct {
	ctx  context.Context
	fn   func()
	done chan struct{}
}

// Pool runs CPU-heavy jobs on a fixed set of workers so a burst of hashing
// cannot starve request handling.
type Pool struct {
	jobs    chan job
	workers int
	stopped chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewPool creates a Pool with numWorkers workers and a queue of queueSize
// pending jobs. Non-positive values fall back to the defaults.
func NewPool(numWorkers, queueSize int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = channelBuffer
	}
	return &Pool{
		jobs:    make(chan job, queueSize),
		workers: numWorkers,
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Start launches the workers. They exit when ctx is cancelled or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.stopped:
		}
	}()
	p.log.Info().Int("workers", p.workers).Int("queue_size", cap(p.jobs)).Msg("hash pool started")
}

// Stop signals all workers to exit and waits for running jobs to finish.
func (p *Pool) Stop() {
	p.stop.Do(func() { close(p.stopped) })
	p.wg.Wait()
}

// Do runs fn on a worker and waits for it to complete. It returns ctx.Err()
// if ctx ends first; fn may still run to completion in that case, so callers
// must not read values fn writes unless Do returned nil.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	j := job{ctx: ctx, fn: fn, done: make(chan struct{})}

	select {
	case p.jobs <- j:
		metrics.HashQueueDepth.Set(float64(len(p.jobs)))
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrStopped
	}

	select {
	case <-j.done:
		// The worker skips jobs whose context already ended.
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		// A worker may have picked the job up just before stopping.
		select {
		case <-j.done:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopped:
			return
		case j := <-p.jobs:
			metrics.HashQueueDepth.Set(float64(len(p.jobs)))
			p.run(id, j)
		}
	}
}

func (p *Pool) run(id int, j job) {
	defer close(j.done)
	// Skip work nobody is waiting for any more.
	if j.ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Int("worker_id", id).Msg("hash job panicked")
		}
	}()
	j.fn()
}
