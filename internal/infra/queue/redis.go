package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-quotes-bot/internal/domain"
)

// RedisSlotQueue реализует очередь задач на базе Redis lists.
// Используется в dev-окружении вместо RabbitMQ.
type RedisSlotQueue struct {
	client *redis.Client
	key    string
}

// NewRedisSlotQueue создаёт очередь по указанному ключу.
func NewRedisSlotQueue(client *redis.Client, key string) *RedisSlotQueue {
	return &RedisSlotQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisSlotQueue) Enqueue(ctx context.Context, job domain.SlotJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisSlotQueue) Pop(ctx context.Context) (domain.SlotJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.SlotJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.SlotJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.SlotJob{}, err
		}
		if len(res) != 2 {
			return domain.SlotJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.SlotJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.SlotJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
