package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"whatswizard/internal/core/domain"
)

// RedisQueue is a durable backend over a Redis list. Jobs are JSON-encoded;
// LPUSH/BRPop gives FIFO across restarts.
type RedisQueue struct {
	client *redis.Client
	key    string

	mu      sync.Mutex
	running int
}

// NewRedisQueue connects to addr and uses key as the list name.
func NewRedisQueue(addr, key string) *RedisQueue {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisQueue{client: rdb, key: key}
}

// Enqueue appends a job to the list.
func (q *RedisQueue) Enqueue(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %v: %w", job.ID, err, domain.ErrQueueUnavailable)
	}
	return nil
}

// Dequeue blocks on the list tail until a job arrives or ctx is done.
func (q *RedisQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	vals, err := q.client.BRPop(ctx, 0, q.key).Result()
	if err != nil {
		return domain.Job{}, err
	}
	if len(vals) < 2 {
		return domain.Job{}, fmt.Errorf("unexpected BRPop response: %v", vals)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return domain.Job{}, fmt.Errorf("decode queued job: %w", err)
	}

	q.mu.Lock()
	q.running++
	q.mu.Unlock()
	return job, nil
}

// Done clears the in-flight marker. Terminal status is not kept in Redis;
// the record store is the durable history.
func (q *RedisQueue) Done(_ context.Context, _ string, status domain.JobStatus, _ string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("non-terminal status %q", status)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running > 0 {
		q.running--
	}
	return nil
}

// Count returns list length plus the in-flight job, if any.
func (q *RedisQueue) Count(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(n) + q.running, nil
}

func (q *RedisQueue) Close() error { return q.client.Close() }
