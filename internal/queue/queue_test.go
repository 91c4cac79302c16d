package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Popie52/pinger/internal/model"
)

func req(id string) *model.Request {
	return &model.Request{ID: id, Endpoint: model.Endpoint{Method: "GET", URL: "http://host/" + id}}
}

func TestMemoryFIFO(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push(ctx, req(fmt.Sprint(i))))
	}
	assert.Equal(t, 10, q.Len())

	for i := 0; i < 10; i++ {
		got, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), got.ID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestMemorySingleConsumerPerItem(t *testing.T) {
	q := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const items = 2000
	const consumers = 8

	var (
		mu   sync.Mutex
		seen = make(map[string]int, items)
		wg   sync.WaitGroup
	)
	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				r, err := q.Pop(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[r.ID]++
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < items; i++ {
		require.NoError(t, q.Push(ctx, req(fmt.Sprint(i))))
	}
	require.NoError(t, q.Close())
	wg.Wait()

	require.Len(t, seen, items)
	for id, n := range seen {
		require.Equal(t, 1, n, "item %s consumed %d times", id, n)
	}
}

func TestMemoryPopUnblocksOnCancel(t *testing.T) {
	q := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after cancel")
	}
}

func TestMemoryCloseDrainsThenFails(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, req("a")))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(ctx, req("b")), ErrClosed)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryTryPop(t *testing.T) {
	q := NewMemory()

	_, ok := q.TryPop()
	assert.False(t, ok)

	require.NoError(t, q.Push(context.Background(), req("x")))
	got, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "x", got.ID)
}

func TestMemoryDepth(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, req("a")))
	require.NoError(t, q.Push(ctx, req("b")))
	n, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = q.Pop(ctx)
	require.NoError(t, err)
	n, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
