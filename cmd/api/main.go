package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/bootstrap"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/pkg/logger"
	"github.com/xiebiao/storefront/pkg/tracing"
)

// @title           Storefront API
// @version         1.0
// @description     结账与库存预留服务
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

// main 主程序入口
// 启动顺序:配置 → 日志 → 链路追踪 → 基础设施 → 依赖注入(wire_gen.go) → 运行
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 日志
	zl, err := logger.New(cfg.Log.Logger())
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	zl.Info("配置加载成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("rabbitmq", cfg.RabbitMQ.Enabled),
	)

	// 3. 链路追踪(可选)
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			zl.Fatal("初始化链路追踪失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				zl.Warn("关闭链路追踪失败", zap.Error(err))
			}
		}()
	}

	// 4. 基础设施
	infra, cleanup, err := bootstrap.NewInfrastructure(cfg, zl)
	if err != nil {
		zl.Fatal("初始化基础设施失败", zap.Error(err))
	}
	defer cleanup()

	// 5. 依赖注入
	app, err := InitializeApp(cfg, infra, zl)
	if err != nil {
		zl.Fatal("初始化应用失败", zap.Error(err))
	}

	// 6. 运行,收到SIGINT/SIGTERM后优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		zl.Error("服务异常退出", zap.Error(err))
		return
	}
	zl.Info("服务已停止")
}
