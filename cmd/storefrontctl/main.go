// storefrontctl 运维命令行
//
//	storefrontctl stock show 1
//	storefrontctl stock add 1 20 --remark "供应商到货"
//	storefrontctl stock set 1 80 --remark "月度盘点"
//	storefrontctl stock low
//	storefrontctl jobs reconcile
//	storefrontctl token --user-id 9000 --role admin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/bootstrap"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/pkg/logger"
)

type options struct {
	configPath string
	verbose    bool
}

// env 命令执行环境(配置、日志、基础设施),按需创建
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	infra   *bootstrap.Infrastructure
	cleanup func()
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load()
}

// open 加载配置并连接基础设施
func (o *options) open() (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	zl, err := logger.New(logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "memory" {
		zl.Warn("当前是内存仓储,命令行的修改不会影响正在运行的服务")
	}

	infra, cleanup, err := bootstrap.NewInfrastructure(cfg, zl)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: zl, infra: infra, cleanup: cleanup}, nil
}

// ledger 创建库存账本;内存模式先写入演示库存
func (e *env) ledger(ctx context.Context) (*inventory.Ledger, error) {
	ledger := bootstrap.ProvideLedger(e.infra, e.logger)
	if err := bootstrap.SeedDemoInventory(ctx, ledger, e.infra.Demo); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (e *env) close() {
	e.cleanup()
	_ = e.logger.Sync()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Storefront运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "配置文件路径(默认 ./config/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(
		newStockCmd(opts),
		newJobsCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
