package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/verisona-ai/analysis-service/internal/utils"
)

// ErrQueueFull is returned by Submit when the task queue has no capacity.
var ErrQueueFull = errors.New("worker queue is full")

// ErrPoolClosed is returned by Submit after Shutdown has started.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Task is one unit of background work. The context is the pool's lifecycle
// context: it is canceled when the pool shuts down.
type Task = func(ctx context.Context)

// Pool runs tasks on a fixed set of goroutines behind a bounded queue.
// Submission never blocks; a full queue is an explicit error so callers can
// surface backpressure instead of hiding it.
type Pool struct {
	queue  chan Task
	logger utils.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(workerCount, queueSize int, logger utils.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan Task, queueSize),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", "worker", id, "panic", r)
		}
	}()
	task(p.ctx)
}

// Submit enqueues a task. Returns ErrQueueFull when the queue is at
// capacity and ErrPoolClosed after shutdown.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks, cancels the lifecycle context, and waits
// for in-flight tasks to finish or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
