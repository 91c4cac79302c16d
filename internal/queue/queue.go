package queue

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"github.com/Popie52/pinger/internal/model"
)

var ErrClosed = errors.New("queue closed")

// Queue carries requests from the producer to the workers.
// Every pushed request is handed to exactly one Pop caller.
type Queue interface {
	Push(ctx context.Context, req *model.Request) error
	Pop(ctx context.Context) (*model.Request, error)
	// Depth is the number of items waiting, as seen by every process
	// sharing the queue.
	Depth(ctx context.Context) (int64, error)
	Close() error
}

// Memory is an unbounded in-process FIFO.
type Memory struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *list.List
	closed bool
}

// Constructor
func NewMemory() *Memory {
	q := &Memory{items: list.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push never blocks on capacity.
func (q *Memory) Push(_ context.Context, req *model.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.items.PushBack(req)
	q.cond.Signal()
	return nil
}

// Pop blocks until a request is available, ctx is done, or the queue is
// closed and drained. A done ctx wins over queued items.
func (q *Memory) Pop(ctx context.Context) (*model.Request, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.items.Len() > 0 {
			break
		}
		if q.closed {
			return nil, ErrClosed
		}
		q.cond.Wait()
	}

	front := q.items.Front()
	q.items.Remove(front)
	return front.Value.(*model.Request), nil
}

// TryPop returns immediately; ok is false when the queue is empty. Workers
// always use Pop; TryPop is for inspecting a queue without blocking.
func (q *Memory) TryPop() (*model.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.items.Front()
	if front == nil {
		return nil, false
	}
	q.items.Remove(front)
	return front.Value.(*model.Request), true
}

func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *Memory) Depth(context.Context) (int64, error) {
	return int64(q.Len()), nil
}

func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
	return nil
}
