package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Popie52/pinger/internal/model"
)

func result(worker int) *model.Result {
	return &model.Result{
		RequestID:  uuid.NewString(),
		WorkerID:   worker,
		Method:     "GET",
		URL:        "http://host/",
		StatusCode: 200,
		Duration:   12 * time.Millisecond,
		FinishedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestFileResultStoreAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.jsonl")
	s, err := NewFileResultStore(path)
	require.NoError(t, err)

	want := []*model.Result{result(0), result(1)}
	want[1].Error = "context deadline exceeded"
	want[1].StatusCode = 0
	for _, r := range want {
		require.NoError(t, s.Save(context.Background(), r))
	}
	require.NoError(t, s.Close())

	got, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].RequestID, got[i].RequestID)
		assert.Equal(t, want[i].Error, got[i].Error)
		assert.Equal(t, want[i].Duration, got[i].Duration)
		assert.True(t, want[i].FinishedAt.Equal(got[i].FinishedAt))
	}
}

func TestFileResultStoreConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	s, err := NewFileResultStore(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, s.Save(context.Background(), result(w)))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	got, err := ReadResults(path)
	require.NoError(t, err)
	assert.Len(t, got, 200)
}

func TestFileResultStoreClosed(t *testing.T) {
	s, err := NewFileResultStore(filepath.Join(t.TempDir(), "r.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Save(context.Background(), result(0)), os.ErrClosed)
}

func TestReadResultsMissingFile(t *testing.T) {
	got, err := ReadResults(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresResultStore(t *testing.T) {
	dsn := os.Getenv("PINGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PINGER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	before, err := s.Count(ctx)
	require.NoError(t, err)

	r := result(3)
	require.NoError(t, s.Save(ctx, r))
	// duplicate request ids are ignored
	require.NoError(t, s.Save(ctx, r))

	after, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}
