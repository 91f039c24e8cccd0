package order

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// NumberGenerator 订单号生成器
// 教学要点:订单号设计原则
// 1. 全局唯一(绝不能冲突)
// 2. 人类可读,带日期前缀便于客服检索
// 3. 多实例部署时使用Redis INCR实现(见persistence/redis),单机/测试用LocalNumberGenerator
type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// FormatOrderNo 格式: ORD-yyyyMMdd-NNNNNN
// 示例: ORD-20261019-000042
func FormatOrderNo(t time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%06d", t.Format("20060102"), seq)
}

// LocalNumberGenerator 进程内订单号生成器(每天从1开始)
type LocalNumberGenerator struct {
	mu  sync.Mutex
	day string
	seq int64
	now func() time.Time
}

// NewLocalNumberGenerator 创建进程内订单号生成器
func NewLocalNumberGenerator() *LocalNumberGenerator {
	return &LocalNumberGenerator{now: time.Now}
}

// Next 生成下一个订单号
func (g *LocalNumberGenerator) Next(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	day := now.Format("20060102")
	if day != g.day {
		g.day = day
		g.seq = 0
	}
	g.seq++
	return FormatOrderNo(now, g.seq), nil
}
