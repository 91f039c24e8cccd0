package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/storefront/internal/application/maintenance"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/internal/infrastructure/scheduler"
	"github.com/xiebiao/storefront/internal/interface/consumer"
	"github.com/xiebiao/storefront/pkg/jwt"
	"github.com/xiebiao/storefront/pkg/mq"
)

// App 组装好的应用
// HTTP服务、定时任务、支付消费者共用同一套应用层对象
type App struct {
	Config   *config.Config
	Engine   *gin.Engine
	Ledger   *inventory.Ledger
	Jobs     *maintenance.Jobs
	Payments *consumer.PaymentHandler
	JWT      *jwt.Manager

	consumer *mq.Consumer
	logger   *zap.Logger
}

// NewApp 创建应用
// 内存模式下把演示商品的库存写入账本
func NewApp(
	cfg *config.Config,
	infra *Infrastructure,
	logger *zap.Logger,
	engine *gin.Engine,
	ledger *inventory.Ledger,
	jobs *maintenance.Jobs,
	payments *consumer.PaymentHandler,
	jwtManager *jwt.Manager,
) (*App, error) {
	if err := SeedDemoInventory(context.Background(), ledger, infra.Demo); err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Engine:   engine,
		Ledger:   ledger,
		Jobs:     jobs,
		Payments: payments,
		JWT:      jwtManager,
		consumer: infra.Consumer,
		logger:   logger,
	}, nil
}

// SeedDemoInventory 把演示商品的库存写入账本(已存在的跳过)
func SeedDemoInventory(ctx context.Context, ledger *inventory.Ledger, demo []DemoProduct) error {
	for _, d := range demo {
		_, err := ledger.CreateForProduct(ctx, d.Product.ID, d.Stock, d.ReorderLevel, "A-01-01")
		if err != nil && !errors.Is(err, inventory.ErrInventoryExists) {
			return fmt.Errorf("写入演示库存失败: %w", err)
		}
	}
	return nil
}

// Run 启动HTTP服务、定时任务和支付消费者,阻塞到ctx取消或任一组件失败
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// 1. HTTP服务
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Engine,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
	g.Go(func() error {
		a.logger.Info("HTTP服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务异常退出: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("HTTP服务正在关闭")
		return srv.Shutdown(shutdownCtx)
	})

	// 2. 定时任务
	if a.Config.Jobs.Enabled {
		sched, err := a.newScheduler()
		if err != nil {
			return err
		}
		sched.Start()
		g.Go(func() error {
			<-ctx.Done()
			sched.Stop()
			return nil
		})
	}

	// 3. 支付消费者
	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Consume(ctx, a.Payments.Handle)
		})
	}

	return g.Wait()
}

// jobTimeout 单次维护任务的最长执行时间
const jobTimeout = 5 * time.Minute

// newScheduler 注册维护任务,spec为空的任务不启用
func (a *App) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger, jobTimeout)
	jobs := []struct {
		name string
		spec string
		job  scheduler.Job
	}{
		{"reconcile_stale_pending", a.Config.Jobs.ReconcileSpec, func(ctx context.Context) error {
			n, err := a.Jobs.ReconcileStalePending(ctx)
			if n > 0 {
				a.logger.Info("已回收超时订单", zap.Int("count", n))
			}
			return err
		}},
		{"sweep_expired_carts", a.Config.Jobs.CartSweepSpec, func(ctx context.Context) error {
			n, err := a.Jobs.SweepExpiredCarts(ctx)
			if n > 0 {
				a.logger.Info("已清理过期购物车条目", zap.Int64("count", n))
			}
			return err
		}},
		{"check_low_stock", a.Config.Jobs.LowStockSpec, func(ctx context.Context) error {
			_, err := a.Jobs.CheckLowStock(ctx)
			return err
		}},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if err := sched.Register(j.name, j.spec, j.job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
