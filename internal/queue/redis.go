package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Popie52/pinger/internal/model"
)

const DefaultRedisKey = "pinger:requests"

// Redis shares one FIFO between several pinger processes. Producers LPUSH,
// consumers BRPOP, so each item still reaches a single worker.
type Redis struct {
	client *redis.Client
	key    string
	poll   time.Duration
	closed atomic.Bool
}

func NewRedis(client *redis.Client, key string, poll time.Duration) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, poll: brpopTimeout(poll)}
}

// brpopTimeout rounds poll up to whole seconds, the BRPOP resolution.
func brpopTimeout(poll time.Duration) time.Duration {
	if poll <= time.Second {
		return time.Second
	}
	return (poll + time.Second - 1) / time.Second * time.Second
}

func (q *Redis) Push(ctx context.Context, req *model.Request) error {
	if q.closed.Load() {
		return ErrClosed
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

func (q *Redis) Pop(ctx context.Context) (*model.Request, error) {
	for {
		if q.closed.Load() {
			return nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue // timeout, poll again
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("brpop %s: %w", q.key, err)
		}

		// res is [key, value]
		var req model.Request
		if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		return &req, nil
	}
}

func (q *Redis) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *Redis) Depth(ctx context.Context) (int64, error) {
	return q.Len(ctx)
}

// Close stops this handle; the underlying client belongs to the caller.
func (q *Redis) Close() error {
	q.closed.Store(true)
	return nil
}
