// Package writer implements the single-consumer write queue. The index file
// permits exactly one concurrent writer, so every physical mutation from any
// caller funnels through here: a bounded channel feeds one background worker
// that executes operations strictly in submission order, each against a
// freshly opened store handle.
package writer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/domain"
	"github.com/openstay/stayindex/internal/metrics"
	"github.com/openstay/stayindex/internal/store"
)

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 2000

// Op is a physical write operation. It receives an exclusive store handle
// and may read or write any collection.
type Op func(ctx context.Context, s *store.Store) error

type task struct {
	op          Op
	description string
	done        chan error
}

// Queue is the bounded single-consumer write queue.
type Queue struct {
	path   string
	tasks  chan *task
	quit   chan struct{}
	logger *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a queue for the store file at path. capacity <= 0 selects
// DefaultCapacity.
func New(path string, capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		path:   path,
		tasks:  make(chan *task, capacity),
		quit:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the background worker. ctx is passed to each operation.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.wg.Add(1)
		go q.work(ctx)
		q.logger.Info("write queue started", zap.Int("capacity", cap(q.tasks)))
	})
}

// Stop tells the worker to drain remaining accepted operations and exit,
// then waits for it. Enqueue calls after Stop fail with ErrQueueClosed.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.quit) })
	q.wg.Wait()
	// An Enqueue racing the close can win the send after the worker already
	// drained and exited. Accepted means executed, so drain once more here.
	for {
		select {
		case t := <-q.tasks:
			q.run(context.Background(), t)
		default:
			q.logger.Info("write queue stopped")
			return
		}
	}
}

// Enqueue submits an operation and blocks until it has been durably applied
// or failed, returning the operation's error. When the queue is full the
// call blocks until space frees (backpressure, not drop). Cancelling ctx
// while waiting for completion abandons the wait but never retracts an
// operation the queue has already accepted.
func (q *Queue) Enqueue(ctx context.Context, description string, op Op) error {
	t := &task{op: op, description: description, done: make(chan error, 1)}

	select {
	case <-q.quit:
		return domain.ErrQueueClosed
	default:
	}

	select {
	case q.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return domain.ErrQueueClosed
	}

	q.logger.Debug("write operation queued", zap.String("description", description))

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// The operation stays in the queue and will still run.
		return ctx.Err()
	}
}

// Depth returns the current queue backlog.
func (q *Queue) Depth() int {
	return len(q.tasks)
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case t := <-q.tasks:
			q.run(ctx, t)
		case <-q.quit:
			for {
				select {
				case t := <-q.tasks:
					q.run(ctx, t)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) run(ctx context.Context, t *task) {
	metrics.SetWriteQueueDepth(len(q.tasks))
	start := time.Now()

	err := q.execute(ctx, t)

	metrics.ObserveWriteOp(time.Since(start).Seconds(), err)
	if err != nil {
		q.logger.Error("write operation failed",
			zap.String("description", t.description),
			zap.Error(err),
		)
	}
	t.done <- err
}

func (q *Queue) execute(ctx context.Context, t *task) error {
	s, err := store.Open(q.path)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return t.op(ctx, s)
}
