package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// OrderNumberGenerator 基于Redis INCR的订单号生成器
// 设计说明：
// 1. Key按天划分：order_no:20261019，INCR是原子的，多实例部署也不会重复
// 2. 第一次INCR时设置48小时过期（跨时区/时钟漂移留余量），过期后自动清理
// 3. INCR和EXPIRE放在同一个Pipeline里，减少一次往返
type OrderNumberGenerator struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewOrderNumberGenerator 创建订单号生成器
func NewOrderNumberGenerator(client *redis.Client) *OrderNumberGenerator {
	return &OrderNumberGenerator{client: client, prefix: "order_no:", now: time.Now}
}

var _ order.NumberGenerator = (*OrderNumberGenerator)(nil)

// Next 生成下一个订单号，格式 ORD-yyyyMMdd-NNNNNN
func (g *OrderNumberGenerator) Next(ctx context.Context) (string, error) {
	now := g.now()
	key := g.prefix + now.Format("20060102")

	var incr *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, 48*time.Hour)
		return nil
	})
	if err != nil {
		return "", apperrors.Wrap(err, "生成订单号失败")
	}
	return order.FormatOrderNo(now, incr.Val()), nil
}
