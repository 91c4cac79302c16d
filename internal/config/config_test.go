package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.InDelta(t, 1.0/11, cfg.TraceRatio, 1e-9)

	list, err := cfg.Endpoints()
	require.NoError(t, err)
	assert.Positive(t, list.Len())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "pinger.yaml", `
workers: 8
rate: 25
timeout: 3s
targets:
  - http://file/a
  - POST http://file/b
log_level: debug
`)

	cfg, err := Load(LoadOptions{
		File:   path,
		Lookup: env(map[string]string{"PINGER_WORKERS": "12", "PINGER_TIMEOUT": "1500ms"}),
	})
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Workers, "env overrides file")
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 25.0, cfg.Rate, "file overrides default")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "default kept")
	assert.Equal(t, []string{"http://file/a", "POST http://file/b"}, cfg.Targets)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("PINGER_QUEUE", "")
	require.NoError(t, os.Unsetenv("PINGER_QUEUE"))
	path := writeFile(t, ".env", "PINGER_QUEUE=redis\n")

	cfg, err := Load(LoadOptions{DotEnv: path})
	require.NoError(t, err)
	assert.Equal(t, QueueRedis, cfg.Queue)
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(LoadOptions{
		DotEnv: filepath.Join(t.TempDir(), ".env"),
		Lookup: env(nil),
	})
	require.NoError(t, err)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()

	err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), cfg)
	require.ErrorIs(t, err, ErrFileNotFound)

	err = LoadFile(writeFile(t, "bad.yaml", "workers: [1"), cfg)
	require.ErrorIs(t, err, ErrInvalidYAML)

	err = LoadFile(writeFile(t, "unknown.yaml", "wrokers: 3\n"), cfg)
	require.ErrorIs(t, err, ErrInvalidYAML)

	require.NoError(t, LoadFile(writeFile(t, "empty.yaml", ""), cfg))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, env(map[string]string{
		"PINGER_TARGETS":     " http://a/ , POST http://b/x ,",
		"PINGER_TRACE_RATIO": "0.5",
		"PINGER_STORE":       "postgres",
		"DATABASE_URL":       "postgres://localhost/pinger",
		"PINGER_SEED":        "18446744073709551615",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a/", "POST http://b/x"}, cfg.Targets)
	assert.Equal(t, 0.5, cfg.TraceRatio)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://localhost/pinger", cfg.DatabaseURL)
	assert.Equal(t, uint64(18446744073709551615), cfg.Seed)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, env(map[string]string{
		"PINGER_WORKERS": "many",
		"PINGER_TIMEOUT": "soon",
		"PINGER_SEED":    "-1",
	}))
	require.ErrorIs(t, err, ErrInvalidEnv)
	assert.Contains(t, err.Error(), "PINGER_WORKERS")
	assert.Contains(t, err.Error(), "PINGER_TIMEOUT")
	assert.Contains(t, err.Error(), "PINGER_SEED")
	assert.Equal(t, 4, cfg.Workers)
}

func TestParseWorkers(t *testing.T) {
	n, err := ParseWorkers("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, arg := range []string{"0", "-2", "four", "", "1.5"} {
		_, err := ParseWorkers(arg)
		assert.ErrorIs(t, err, ErrInvalidWorkers, arg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative rate", func(c *Config) { c.Rate = -1 }, ErrInvalid},
		{"ratio above one", func(c *Config) { c.TraceRatio = 1.5 }, ErrInvalid},
		{"unknown queue", func(c *Config) { c.Queue = "kafka" }, ErrInvalid},
		{"split role on memory queue", func(c *Config) { c.Role = RoleWorker }, ErrInvalid},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }, ErrInvalid},
		{"file without path", func(c *Config) { c.Store = StoreFile; c.StorePath = "" }, ErrInvalid},
		{"unknown store", func(c *Config) { c.Store = "s3" }, ErrInvalid},
		{"bad poll", func(c *Config) { c.PollInterval = 0 }, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	t.Run("bad target", func(t *testing.T) {
		cfg := Default()
		cfg.Targets = []string{"ftp://nope"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("split role on redis", func(t *testing.T) {
		cfg := Default()
		cfg.Queue = QueueRedis
		cfg.Role = RoleProducer
		assert.NoError(t, cfg.Validate())
	})
}
