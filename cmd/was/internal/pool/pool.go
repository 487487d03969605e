package pool

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
)

var (
	ErrInvalidPoolSize = errors.New("invalid pool size")
	ErrPoolClosed      = errors.New("pool is closed")
)

// Pool is a fixed-size set of goroutines running submitted jobs.
// All workers are started up front; Submit blocks while every worker is busy.
type Pool struct {
	capacity int32
	running  int32

	jobs chan func()
	log  *slog.Logger

	lock   sync.RWMutex // guards closed against concurrent Submit
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPool starts capacity workers. Recovered job panics are logged to log,
// or to the default logger when log is nil.
func NewPool(capacity int, log *slog.Logger) (*Pool, error) {
	if capacity <= 0 {
		return nil, ErrInvalidPoolSize
	}
	if log == nil {
		log = logger.With()
	}
	p := &Pool{
		capacity: int32(capacity),
		jobs:     make(chan func()),
		log:      log,
	}
	p.wg.Add(capacity)
	for i := 0; i < capacity; i++ {
		go p.worker()
	}
	return p, nil
}

// Submit hands job to an idle worker, waiting for one until ctx is done.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the number of jobs currently executing.
func (p *Pool) Running() int {
	return int(atomic.LoadInt32(&p.running))
}

func (p *Pool) Cap() int {
	return int(atomic.LoadInt32(&p.capacity))
}

// Close stops accepting jobs and waits for the running ones to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.lock.Lock()
		p.closed = true
		close(p.jobs)
		p.lock.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(job)
	}
}

func (p *Pool) execute(job func()) {
	atomic.AddInt32(&p.running, 1)
	defer atomic.AddInt32(&p.running, -1)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Worker job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	job()
}
