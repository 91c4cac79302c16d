package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Popie52/pinger/internal/bootstrap"
	"github.com/Popie52/pinger/internal/config"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// RunFunc starts the pinger with a fully resolved config.
type RunFunc func(ctx context.Context, cfg *config.Config, out bootstrap.Output) error

type flags struct {
	configFile string
	dotEnv     string

	targets    []string
	role       string
	rate       float64
	count      int
	seed       uint64
	poll       time.Duration
	timeout    time.Duration
	retries    int
	traceRatio float64
	traceStyle string
	queue      string
	redisAddr  string
	redisKey   string
	store      string
	storePath  string
	dbURL      string
	statusAddr string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds `pinger [workers]`. run is bootstrap.Run outside tests.
func NewRootCmd(run RunFunc) *cobra.Command {
	if run == nil {
		run = bootstrap.Run
	}
	def := config.Default()
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "pinger [workers]",
		Short: "Generate steady HTTP traffic against a demo app",
		Long: `pinger keeps a demo web app busy so an APM agent has requests to trace.

A producer picks random endpoints from the target list and queues them; a pool
of workers sends each request, sometimes with synthetic trace headers, and logs
one line per response:

  2024/01/02 15:04:05 [200] worker 3 - http://nginx:8000/

Configuration can be provided via flags, PINGER_* environment variables
(a .env file is read when present) or a YAML file given with --config.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(cmd, f, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, bootstrap.Output{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "YAML config file")
	pf.StringVar(&f.dotEnv, "env-file", ".env", "dotenv file loaded into the environment when present")

	fl := cmd.Flags()
	fl.StringArrayVarP(&f.targets, "target", "t", nil, `target endpoint, "URL" or "METHOD URL" (repeatable)`)
	fl.StringVar(&f.role, "role", def.Role, "all, producer or worker")
	fl.Float64Var(&f.rate, "rate", def.Rate, "requests enqueued per second (0 = unthrottled)")
	fl.IntVarP(&f.count, "count", "n", def.Count, "stop after this many requests (0 = run forever)")
	fl.Uint64Var(&f.seed, "seed", def.Seed, "random seed (0 = random)")
	fl.DurationVar(&f.poll, "poll-interval", def.PollInterval, "queue poll interval")
	fl.DurationVar(&f.timeout, "timeout", def.Timeout, "per-request timeout")
	fl.IntVar(&f.retries, "retries", def.Retries, "retries on transport errors and 5xx")
	fl.Float64Var(&f.traceRatio, "trace-ratio", def.TraceRatio, "fraction of requests sent with trace headers")
	fl.StringVar(&f.traceStyle, "trace-style", def.TraceStyle, "trace header style: template or w3c")
	fl.StringVar(&f.queue, "queue", def.Queue, "queue backend: memory or redis")
	fl.StringVar(&f.redisAddr, "redis-addr", def.RedisAddr, "redis address for --queue redis")
	fl.StringVar(&f.redisKey, "redis-key", def.RedisKey, "redis list key (default pinger:requests)")
	fl.StringVar(&f.store, "store", def.Store, "result store: none, file or postgres")
	fl.StringVar(&f.storePath, "store-path", def.StorePath, "JSON lines file for --store file")
	fl.StringVar(&f.dbURL, "database-url", "", "postgres DSN for --store postgres")
	fl.StringVar(&f.statusAddr, "status-addr", def.StatusAddr, "status server address, e.g. :9090 (empty = disabled)")
	fl.StringVar(&f.logLevel, "log-level", def.LogLevel, "debug, info, warn or error")
	fl.StringVar(&f.logFormat, "log-format", def.LogFormat, "text or json")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// resolve layers flags over environment, file and defaults.
func resolve(cmd *cobra.Command, f *flags, args []string) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: f.configFile, DotEnv: f.dotEnv})
	if err != nil {
		return nil, err
	}

	if len(args) == 1 {
		n, err := config.ParseWorkers(args[0])
		if err != nil {
			return nil, err
		}
		cfg.Workers = n
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("target", func() { cfg.Targets = f.targets })
	set("role", func() { cfg.Role = f.role })
	set("rate", func() { cfg.Rate = f.rate })
	set("count", func() { cfg.Count = f.count })
	set("seed", func() { cfg.Seed = f.seed })
	set("poll-interval", func() { cfg.PollInterval = f.poll })
	set("timeout", func() { cfg.Timeout = f.timeout })
	set("retries", func() { cfg.Retries = f.retries })
	set("trace-ratio", func() { cfg.TraceRatio = f.traceRatio })
	set("trace-style", func() { cfg.TraceStyle = f.traceStyle })
	set("queue", func() { cfg.Queue = f.queue })
	set("redis-addr", func() { cfg.RedisAddr = f.redisAddr })
	set("redis-key", func() { cfg.RedisKey = f.redisKey })
	set("store", func() { cfg.Store = f.store })
	set("store-path", func() { cfg.StorePath = f.storePath })
	set("database-url", func() { cfg.DatabaseURL = f.dbURL })
	set("status-addr", func() { cfg.StatusAddr = f.statusAddr })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-format", func() { cfg.LogFormat = f.logFormat })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "pinger %s (commit %s, built %s)\n", Version, Commit, BuildDate)
}
