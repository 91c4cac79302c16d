package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Popie52/pinger/internal/endpoint"
	"github.com/Popie52/pinger/internal/sampler"
)

var (
	ErrFileNotFound   = errors.New("configuration file not found")
	ErrInvalidYAML    = errors.New("invalid YAML syntax")
	ErrInvalidEnv     = errors.New("invalid environment value")
	ErrInvalidWorkers = errors.New("worker count must be a positive integer")
	ErrInvalid        = errors.New("invalid configuration")
)

const (
	RoleAll      = "all"
	RoleProducer = "producer"
	RoleWorker   = "worker"

	QueueMemory = "memory"
	QueueRedis  = "redis"

	StoreNone     = "none"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

type Config struct {
	Workers int      `yaml:"workers"`
	Targets []string `yaml:"targets"`
	Role    string   `yaml:"role"`

	// producer
	Rate  float64 `yaml:"rate"`
	Count int     `yaml:"count"`
	Seed  uint64  `yaml:"seed"`

	// requests
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	TraceRatio   float64       `yaml:"trace_ratio"`
	TraceStyle   string        `yaml:"trace_style"`

	// queue backend
	Queue     string `yaml:"queue"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	RedisKey  string `yaml:"redis_key"`

	// result store
	Store       string `yaml:"store"`
	StorePath   string `yaml:"store_path"`
	DatabaseURL string `yaml:"database_url"`

	StatusAddr string `yaml:"status_addr"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		Workers:      4,
		Role:         RoleAll,
		Rate:         10,
		PollInterval: 500 * time.Millisecond,
		Timeout:      10 * time.Second,
		TraceRatio:   sampler.DefaultRatio,
		TraceStyle:   string(sampler.StyleTemplate),
		Queue:        QueueMemory,
		RedisAddr:    "localhost:6379",
		Store:        StoreNone,
		StorePath:    "pinger-results.jsonl",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

type LoadOptions struct {
	// File is an optional YAML config file.
	File string
	// DotEnv is loaded into the process environment when it exists.
	DotEnv string
	// Lookup reads the environment; defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load layers defaults, the YAML file and the environment, in that order.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := LoadFile(opts.File, cfg); err != nil {
			return nil, err
		}
	}

	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.DotEnv, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w in %s: %v", ErrInvalidYAML, path, err)
	}
	return nil
}

func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v))
				return
			}
			*dst = f
		}
	}
	unsigned := func(key string, dst *uint64) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v))
				return
			}
			*dst = d
		}
	}

	num("PINGER_WORKERS", &cfg.Workers)
	if v, ok := lookup("PINGER_TARGETS"); ok && v != "" {
		cfg.Targets = splitList(v)
	}
	str("PINGER_ROLE", &cfg.Role)
	float("PINGER_RATE", &cfg.Rate)
	num("PINGER_COUNT", &cfg.Count)
	unsigned("PINGER_SEED", &cfg.Seed)
	dur("PINGER_POLL_INTERVAL", &cfg.PollInterval)
	dur("PINGER_TIMEOUT", &cfg.Timeout)
	num("PINGER_RETRIES", &cfg.Retries)
	float("PINGER_TRACE_RATIO", &cfg.TraceRatio)
	str("PINGER_TRACE_STYLE", &cfg.TraceStyle)
	str("PINGER_QUEUE", &cfg.Queue)
	str("PINGER_REDIS_ADDR", &cfg.RedisAddr)
	num("PINGER_REDIS_DB", &cfg.RedisDB)
	str("PINGER_REDIS_KEY", &cfg.RedisKey)
	str("PINGER_STORE", &cfg.Store)
	str("PINGER_STORE_PATH", &cfg.StorePath)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("PINGER_STATUS_ADDR", &cfg.StatusAddr)
	str("PINGER_LOG_LEVEL", &cfg.LogLevel)
	str("PINGER_LOG_FORMAT", &cfg.LogFormat)

	return errors.Join(errs...)
}

// ParseWorkers reads the positional worker-count argument.
func ParseWorkers(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWorkers, arg)
	}
	return n, nil
}

// Endpoints returns the configured targets, or the built-in demo list.
func (c *Config) Endpoints() (*endpoint.List, error) {
	if len(c.Targets) == 0 {
		return endpoint.Default(), nil
	}
	return endpoint.ParseAll(c.Targets)
}

func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers))
	}
	switch c.Role {
	case RoleAll, RoleProducer, RoleWorker:
	default:
		bad("role %q (want all, producer or worker)", c.Role)
	}
	if c.Rate < 0 {
		bad("rate %v must be >= 0", c.Rate)
	}
	if c.Count < 0 {
		bad("count %d must be >= 0", c.Count)
	}
	if c.Timeout < 0 {
		bad("timeout %v must be >= 0", c.Timeout)
	}
	if c.PollInterval <= 0 {
		bad("poll interval %v must be > 0", c.PollInterval)
	}
	if c.Retries < 0 {
		bad("retries %d must be >= 0", c.Retries)
	}
	if c.TraceRatio < 0 || c.TraceRatio > 1 {
		bad("trace ratio %v must be within [0,1]", c.TraceRatio)
	}
	if _, err := sampler.ParseStyle(c.TraceStyle); err != nil {
		errs = append(errs, err)
	}

	switch c.Queue {
	case QueueMemory:
		if c.Role != RoleAll {
			bad("role %q needs a shared queue (queue: redis)", c.Role)
		}
	case QueueRedis:
		if c.RedisAddr == "" {
			bad("redis queue needs redis_addr")
		}
	default:
		bad("queue %q (want memory or redis)", c.Queue)
	}

	switch c.Store {
	case StoreNone, "":
	case StoreFile:
		if c.StorePath == "" {
			bad("file store needs store_path")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			bad("postgres store needs DATABASE_URL")
		}
	default:
		bad("store %q (want none, file or postgres)", c.Store)
	}

	if _, err := c.Endpoints(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
