package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Popie52/pinger/internal/bootstrap"
	"github.com/Popie52/pinger/internal/config"
)

func execute(t *testing.T, args ...string) (*config.Config, string, error) {
	t.Helper()

	var got *config.Config
	cmd := NewRootCmd(func(_ context.Context, cfg *config.Config, _ bootstrap.Output) error {
		got = cfg
		return nil
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return got, out.String(), err
}

func TestDefaultWorkers(t *testing.T) {
	cfg, _, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, config.RoleAll, cfg.Role)
}

func TestPositionalWorkers(t *testing.T) {
	cfg, _, err := execute(t, "8")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
}

func TestInvalidWorkers(t *testing.T) {
	for _, arg := range []string{"0", "-3", "many"} {
		cfg, _, err := execute(t, "--", arg)
		assert.ErrorIs(t, err, config.ErrInvalidWorkers, arg)
		assert.Nil(t, cfg)
	}

	_, _, err := execute(t, "2", "3")
	assert.Error(t, err)
}

func TestFlagsOverrideEnvAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pinger.yaml")
	require.NoError(t, os.WriteFile(file, []byte("rate: 2\nretries: 1\ntimeout: 4s\n"), 0o644))
	t.Setenv("PINGER_RATE", "3")

	cfg, _, err := execute(t,
		"--config", file,
		"--timeout", "250ms",
		"--target", "http://a/",
		"--target", "POST http://b/x",
		"--trace-style", "w3c",
		"6",
	)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, 3.0, cfg.Rate, "env beats file")
	assert.Equal(t, 1, cfg.Retries, "file beats default")
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout, "flag beats file")
	assert.Equal(t, []string{"http://a/", "POST http://b/x"}, cfg.Targets)
	assert.Equal(t, "w3c", cfg.TraceStyle)

	cfg, _, err = execute(t, "--config", file, "--rate", "7")
	require.NoError(t, err)
	assert.Equal(t, 7.0, cfg.Rate, "flag beats env")
}

func TestInvalidFlagValues(t *testing.T) {
	_, _, err := execute(t, "--trace-ratio", "2")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = execute(t, "--target", "ftp://nope")
	assert.Error(t, err)

	_, _, err = execute(t, "--queue", "kafka")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestVersion(t *testing.T) {
	Version, Commit, BuildDate = "1.2.3", "abc123", "today"
	t.Cleanup(func() { Version, Commit, BuildDate = "dev", "none", "unknown" })

	cfg, out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, "pinger 1.2.3 (commit abc123, built today)\n", out)
}
