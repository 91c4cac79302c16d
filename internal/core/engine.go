package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Engine runs a producer and a worker pool over one dispatcher. Either
// side may be nil when this process only produces or only consumes.
type Engine struct {
	Dispatcher *Dispatcher
	Producer   *Producer
	Pool       *Pool
}

// Run returns once the pool has stopped. When the producer finishes on its
// own the queue is closed so workers drain what is left and exit.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if e.Producer != nil {
		g.Go(func() error {
			err := e.Producer.Run(gctx)
			if cerr := e.Dispatcher.Close(); err == nil {
				err = cerr
			}
			return err
		})
	}
	if e.Pool != nil {
		g.Go(func() error { return e.Pool.Run(gctx) })
	}
	err := g.Wait()

	// concurrent refreshes may land out of order; settle on the final depth
	_, _ = e.Dispatcher.RefreshDepth(context.WithoutCancel(ctx))
	return err
}
