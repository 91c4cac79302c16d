package core

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Popie52/pinger/internal/logging"
	"github.com/Popie52/pinger/internal/metrics"
	"github.com/Popie52/pinger/internal/sampler"
)

const DefaultWorkers = 4

type PoolConfig struct {
	Workers    int
	Client     Requester
	Tracer     *sampler.Tracer
	RequestLog *logging.RequestLog
	Metrics    metrics.MetricsFn
	// IdleWait is how long a worker backs off after a failed dequeue.
	IdleWait time.Duration
	Seed     uint64
}

type Pool struct {
	workers []*Worker
}

func NewPool(d *Dispatcher, cfg PoolConfig, log *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.RequestLog == nil {
		cfg.RequestLog = logging.NewRequestLog(nil)
	}
	if log == nil {
		log = logging.Nop()
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = 500 * time.Millisecond
	}

	p := &Pool{workers: make([]*Worker, cfg.Workers)}
	for i := range p.workers {
		p.workers[i] = &Worker{
			id:         i,
			dispatcher: d,
			client:     cfg.Client,
			tracer:     cfg.Tracer,
			reqLog:     cfg.RequestLog,
			log:        log,
			metrics:    cfg.Metrics,
			rng:        newRand(cfg.Seed, uint64(i)+1),
			idle:       cfg.IdleWait,
		}
	}
	return p
}

func (p *Pool) Size() int { return len(p.workers) }

// Run blocks until every worker has returned.
func (p *Pool) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, w := range p.workers {
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}
