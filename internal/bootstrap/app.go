package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Popie52/pinger/internal/client"
	"github.com/Popie52/pinger/internal/config"
	"github.com/Popie52/pinger/internal/core"
	"github.com/Popie52/pinger/internal/endpoint"
	"github.com/Popie52/pinger/internal/logging"
	"github.com/Popie52/pinger/internal/metrics"
	"github.com/Popie52/pinger/internal/queue"
	"github.com/Popie52/pinger/internal/sampler"
	"github.com/Popie52/pinger/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Output is where the request lines and diagnostics go.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run wires every component from cfg and blocks until ctx is cancelled or a
// bounded run has drained.
func Run(ctx context.Context, cfg *config.Config, out Output) error {
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = os.Stderr
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: out.Stderr,
	}).With("run_id", uuid.NewString())

	// metrics
	m := metrics.New()

	// store
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close result store", "err", err)
		}
	}()

	// queue
	q, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	eps, err := cfg.Endpoints()
	if err != nil {
		return err
	}

	d := core.NewDispatcher(q, st, m)
	engine, err := buildEngine(cfg, d, eps, m, out.Stdout, log)
	if err != nil {
		return err
	}

	// status server
	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv, err = startStatusServer(ctx, cfg.StatusAddr, newRouter(ctx, d, eps, m), log)
		if err != nil {
			return err
		}
	}

	log.Info("pinger started",
		"role", cfg.Role,
		"workers", cfg.Workers,
		"endpoints", eps.Len(),
		"queue", cfg.Queue,
		"store", cfg.Store,
		"trace_ratio", cfg.TraceRatio,
		"trace_style", cfg.TraceStyle,
	)

	runErr := engine.Run(ctx)

	if srv != nil {
		log.Info("shutting down status server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	snap := m.Snapshot()
	log.Info("pinger stopped",
		"enqueued", snap.Enqueued,
		"completed", snap.Completed,
		"failed", snap.Failed,
		"traced", snap.Traced,
	)
	return runErr
}

func buildEngine(
	cfg *config.Config,
	d *core.Dispatcher,
	eps *endpoint.List,
	m *metrics.Metrics,
	stdout io.Writer,
	log *slog.Logger,
) (*core.Engine, error) {
	engine := &core.Engine{Dispatcher: d}

	if cfg.Role == config.RoleAll || cfg.Role == config.RoleProducer {
		engine.Producer = core.NewProducer(d, core.ProducerConfig{
			Endpoints: eps,
			Rate:      cfg.Rate,
			Limit:     cfg.Count,
			Seed:      cfg.Seed,
		}, log)
	}

	if cfg.Role == config.RoleAll || cfg.Role == config.RoleWorker {
		style, err := sampler.ParseStyle(cfg.TraceStyle)
		if err != nil {
			return nil, err
		}
		tracer, err := sampler.New(cfg.TraceRatio, style)
		if err != nil {
			return nil, err
		}

		engine.Pool = core.NewPool(d, core.PoolConfig{
			Workers: cfg.Workers,
			Client: client.New(client.Options{
				Timeout: cfg.Timeout,
				Retries: cfg.Retries,
			}),
			Tracer:     tracer,
			RequestLog: logging.NewRequestLog(stdout),
			Metrics:    m,
			IdleWait:   cfg.PollInterval,
			Seed:       cfg.Seed,
		}, log)
	}
	return engine, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.ResultStore, error) {
	switch cfg.Store {
	case config.StoreFile:
		return store.NewFileResultStore(cfg.StorePath)
	case config.StorePostgres:
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return store.Nop{}, nil
	}
}

func openQueue(ctx context.Context, cfg *config.Config) (queue.Queue, func(), error) {
	if cfg.Queue != config.QueueRedis {
		q := queue.NewMemory()
		return q, func() { _ = q.Close() }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:                  cfg.RedisAddr,
		DB:                    cfg.RedisDB,
		ContextTimeoutEnabled: true,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	key := cfg.RedisKey
	if key == "" {
		key = queue.DefaultRedisKey
	}
	q := queue.NewRedis(rdb, key, cfg.PollInterval)
	return q, func() {
		_ = q.Close()
		_ = rdb.Close()
	}, nil
}

func startStatusServer(ctx context.Context, addr string, h http.Handler, log *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status server: %w", err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("status server error", "err", err)
		}
	}()

	log.Info("status server listening", "addr", ln.Addr().String())
	return srv, nil
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
