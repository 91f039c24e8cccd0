// Package guard 用熔断器包装外部依赖（商品目录、用户目录）
//
// 结账链路每次都要读商品和用户，这两个依赖如果变慢或宕机，
// 结账请求会在连接池上排队，最后拖垮整个服务。
// 熔断打开后直接返回ErrUnavailable（503），让调用方快速失败。
package guard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/user"
	"github.com/xiebiao/storefront/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// DefaultConfig 默认熔断配置
// 10秒窗口内连续失败5次打开，30秒后半开放行3个探测请求
func DefaultConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxRequests:  3,
		Interval:     10 * time.Second,
		Timeout:      30 * time.Second,
		IsSuccessful: isHealthy,
	}
}

// isHealthy 业务错误（4xx）说明下游正常应答，不计入失败
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	appErr := apperrors.GetAppError(err)
	return appErr != nil && appErr.Code < 50000
}

func newBreaker(name string, cfg circuitbreaker.Config, log *zap.Logger) *circuitbreaker.CircuitBreaker {
	cb := circuitbreaker.NewCircuitBreaker(name, cfg)
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		log.Warn("熔断器状态变化",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return cb
}

// translate 熔断打开 → 503
func translate(err error) error {
	if errors.Is(err, circuitbreaker.ErrOpenState) {
		return apperrors.WithDetail(apperrors.ErrUnavailable, "%v", err)
	}
	return err
}

// guardedCatalog 带熔断的商品目录
type guardedCatalog struct {
	next catalog.Catalog
	cb   *circuitbreaker.CircuitBreaker
}

// NewCatalog 包装商品目录
func NewCatalog(next catalog.Catalog, cfg circuitbreaker.Config, log *zap.Logger) catalog.Catalog {
	return &guardedCatalog{next: next, cb: newBreaker("catalog", cfg, log)}
}

func (g *guardedCatalog) GetByID(ctx context.Context, id uint) (*catalog.Product, error) {
	p, err := circuitbreaker.Do(g.cb, func() (*catalog.Product, error) {
		return g.next.GetByID(ctx, id)
	})
	return p, translate(err)
}

func (g *guardedCatalog) GetByIDs(ctx context.Context, ids []uint) (map[uint]*catalog.Product, error) {
	products, err := circuitbreaker.Do(g.cb, func() (map[uint]*catalog.Product, error) {
		return g.next.GetByIDs(ctx, ids)
	})
	return products, translate(err)
}

// guardedDirectory 带熔断的用户目录
type guardedDirectory struct {
	next user.Directory
	cb   *circuitbreaker.CircuitBreaker
}

// NewDirectory 包装用户目录
func NewDirectory(next user.Directory, cfg circuitbreaker.Config, log *zap.Logger) user.Directory {
	return &guardedDirectory{next: next, cb: newBreaker("user_directory", cfg, log)}
}

func (g *guardedDirectory) GetByID(ctx context.Context, id uint) (*user.User, error) {
	u, err := circuitbreaker.Do(g.cb, func() (*user.User, error) {
		return g.next.GetByID(ctx, id)
	})
	return u, translate(err)
}
