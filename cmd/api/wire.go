//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 教学说明：
// 1. Wire在编译期生成代码，零运行时开销
// 2. Provider分组在internal/bootstrap/providers.go
// 3. 基础设施（MySQL/内存、Redis、RabbitMQ）按配置选择，不交给Wire，
//    由bootstrap.NewInfrastructure创建后作为Injector参数传入
//
// 修改依赖图后运行 `wire gen ./cmd/api` 重新生成 wire_gen.go

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/bootstrap"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
)

// InitializeApp 初始化整个应用
func InitializeApp(cfg *config.Config, infra *bootstrap.Infrastructure, logger *zap.Logger) (*bootstrap.App, error) {
	wire.Build(bootstrap.ProviderSet)
	return nil, nil
}
