package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"

	"golang.org/x/time/rate"

	"github.com/Popie52/pinger/internal/endpoint"
	"github.com/Popie52/pinger/internal/logging"
	"github.com/Popie52/pinger/internal/queue"
)

type ProducerConfig struct {
	Endpoints *endpoint.List
	// Rate is items per second; zero leaves the producer unthrottled.
	Rate float64
	// Limit stops the producer after that many items; zero runs forever.
	Limit int
	Seed  uint64
}

type Producer struct {
	endpoints  *endpoint.List
	dispatcher *Dispatcher
	limiter    *rate.Limiter
	limit      int
	rng        *rand.Rand
	log        *slog.Logger
}

func NewProducer(d *Dispatcher, cfg ProducerConfig, log *slog.Logger) *Producer {
	if log == nil {
		log = logging.Nop()
	}
	p := &Producer{
		endpoints:  cfg.Endpoints,
		dispatcher: d,
		limit:      cfg.Limit,
		rng:        newRand(cfg.Seed, 0),
		log:        log,
	}
	if cfg.Rate > 0 {
		burst := int(cfg.Rate)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return p
}

// Run picks a random endpoint and enqueues it, over and over. It never
// waits on queue capacity, only on the optional rate limiter.
func (p *Producer) Run(ctx context.Context) error {
	p.log.Debug("producer started", "endpoints", p.endpoints.Len(), "limit", p.limit)

	for n := 0; p.limit == 0 || n < p.limit; n++ {
		if ctx.Err() != nil {
			return nil
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil
			}
		} else {
			runtime.Gosched()
		}

		ep := p.endpoints.Pick(p.rng)
		if _, err := p.dispatcher.Submit(ctx, ep); err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("enqueue %s: %w", ep, err)
		}
	}

	p.log.Info("producer reached limit", "limit", p.limit)
	return nil
}

func newRand(seed, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, stream))
}
