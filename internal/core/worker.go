package core

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/Popie52/pinger/internal/client"
	"github.com/Popie52/pinger/internal/logging"
	"github.com/Popie52/pinger/internal/metrics"
	"github.com/Popie52/pinger/internal/model"
	"github.com/Popie52/pinger/internal/queue"
	"github.com/Popie52/pinger/internal/sampler"
)

// Requester sends one request and reports the HTTP status.
type Requester interface {
	Do(ctx context.Context, ep model.Endpoint, extra http.Header) (int, error)
}

type Worker struct {
	id         int
	dispatcher *Dispatcher
	client     Requester
	tracer     *sampler.Tracer
	reqLog     *logging.RequestLog
	log        *slog.Logger
	metrics    metrics.MetricsFn
	rng        *rand.Rand
	idle       time.Duration
}

// Run processes requests until ctx is done or the queue is closed and empty.
func (w *Worker) Run(ctx context.Context) error {
	w.metrics.IncActiveWorkers()
	defer w.metrics.DecActiveWorkers()

	w.log.Debug("worker started", "worker", w.id)
	defer w.log.Debug("worker stopped", "worker", w.id)

	for {
		req, err := w.dispatcher.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			w.log.Warn("dequeue failed", "worker", w.id, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.idle):
			}
			continue
		}
		w.process(ctx, req)
	}
}

func (w *Worker) process(ctx context.Context, req *model.Request) {
	h := http.Header{}
	h.Set(client.HeaderRequestID, req.ID)
	traceparent, traced := w.tracer.Apply(w.rng, h)

	start := time.Now()
	status, err := w.client.Do(ctx, req.Endpoint, h)
	elapsed := time.Since(start)

	res := &model.Result{
		RequestID:   req.ID,
		WorkerID:    w.id,
		Method:      req.Endpoint.Method,
		URL:         req.Endpoint.URL,
		StatusCode:  status,
		Duration:    elapsed,
		Traced:      traced,
		TraceParent: traceparent,
		FinishedAt:  time.Now(),
	}

	switch {
	case err == nil:
		w.reqLog.Response(status, w.id, req.Endpoint.URL)
		w.metrics.ObserveRequest(status, elapsed, traced, nil)
	case ctx.Err() != nil:
		// shutting down; not the target's fault, so not counted as a failure
		res.Error = err.Error()
	default:
		res.Error = err.Error()
		w.reqLog.Failure(w.id, req.Endpoint.URL, err)
		w.metrics.ObserveRequest(status, elapsed, traced, err)
	}

	if err := w.dispatcher.Complete(ctx, res); err != nil {
		w.log.Warn("saving result failed", "worker", w.id, "request_id", req.ID, "error", err)
	}
}
