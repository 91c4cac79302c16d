package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Popie52/pinger/internal/metrics"
	"github.com/Popie52/pinger/internal/model"
	"github.com/Popie52/pinger/internal/queue"
	"github.com/Popie52/pinger/internal/store"
)

// Dispatcher sits between the queue and its users and keeps the gauges and
// the result store in step with queue traffic.
type Dispatcher struct {
	queue   queue.Queue
	store   store.ResultStore
	metrics metrics.MetricsFn
}

func NewDispatcher(q queue.Queue, st store.ResultStore, m metrics.MetricsFn) *Dispatcher {
	if st == nil {
		st = store.Nop{}
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Dispatcher{
		queue:   q,
		store:   st,
		metrics: m,
	}
}

func (d *Dispatcher) Submit(ctx context.Context, ep model.Endpoint) (*model.Request, error) {
	req := &model.Request{
		ID:         uuid.NewString(),
		Endpoint:   ep,
		EnqueuedAt: time.Now(),
	}
	if err := d.queue.Push(ctx, req); err != nil {
		return nil, err
	}

	d.metrics.IncEnqueued()
	_, _ = d.RefreshDepth(ctx)
	return req, nil
}

func (d *Dispatcher) Pop(ctx context.Context) (*model.Request, error) {
	req, err := d.queue.Pop(ctx)
	if err != nil {
		return nil, err
	}

	_, _ = d.RefreshDepth(ctx)
	d.metrics.IncInflight()
	return req, nil
}

// RefreshDepth reads the depth from the queue itself, so a Redis queue shared
// by producer-only and worker-only processes reports the same number in each.
func (d *Dispatcher) RefreshDepth(ctx context.Context) (int64, error) {
	n, err := d.queue.Depth(ctx)
	if err != nil {
		return 0, err
	}
	d.metrics.SetQueueDepth(n)
	return n, nil
}

// Complete records the outcome. The save outlives ctx so results of
// requests cut short by shutdown are still written.
func (d *Dispatcher) Complete(ctx context.Context, res *model.Result) error {
	d.metrics.DecInflight()
	return d.store.Save(context.WithoutCancel(ctx), res)
}

func (d *Dispatcher) Close() error {
	return d.queue.Close()
}
