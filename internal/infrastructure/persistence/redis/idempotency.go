package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// IdempotencyStore 消息去重
// 设计说明：
// 1. RabbitMQ是至少一次投递，同一条支付回调可能被消费多次
// 2. SET key NX EX：第一次处理时占位，重复消息直接跳过
// 3. 处理失败要Release，否则重新入队的消息会被误判为已处理
// Key设计：idem:{scope}:{message_id}
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore 创建去重存储
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Acquire 尝试占位，返回false表示已经处理过（或正在处理）
func (s *IdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "idem:"+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "消息去重失败")
	}
	return ok, nil
}

// Release 释放占位（处理失败时调用）
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, "idem:"+key).Err(); err != nil {
		return apperrors.Wrap(err, "释放去重标记失败")
	}
	return nil
}
