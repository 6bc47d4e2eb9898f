package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	defaultRedisQueueKey = "lensflow:jobs"
	redisPopTimeout      = 1 * time.Second
	redisPingTimeout     = 5 * time.Second
)

// RedisQueue is a Redis list backed job queue so several API instances can
// feed a shared worker pool. RPUSH on enqueue, BLPOP on dequeue.
type RedisQueue struct {
	client redis.UniversalClient
	key    string

	mu     sync.Mutex
	closed bool
}

func NewRedisQueue(ctx context.Context, redisURL, key string) (*RedisQueue, error) {
	if key == "" {
		key = defaultRedisQueueKey
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{client: client, key: key}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()

	if closed {
		return ErrQueueClosed
	}

	err := q.client.RPush(ctx, q.key, jobID).Err()
	if err != nil {
		return fmt.Errorf("failed to push job to queue: %w", err)
	}

	return nil
}

// Dequeue polls BLPOP with a short timeout so close and context cancellation
// are observed promptly.
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", ErrQueueClosed
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		result, err := q.client.BLPop(ctx, redisPopTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}

			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			return "", fmt.Errorf("failed to pop job from queue: %w", err)
		}

		if len(result) < 2 {
			continue
		}

		return result[1], nil
	}
}

func (q *RedisQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true

	return q.client.Close()
}
