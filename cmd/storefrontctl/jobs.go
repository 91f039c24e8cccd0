package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiebiao/storefront/internal/application/maintenance"
	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/bootstrap"
)

// newJobsCmd 手动触发维护任务(与服务内的定时任务是同一套实现)
func newJobsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "手动执行维护任务",
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "取消超时未支付的订单并释放预留",
		Args:  cobra.NoArgs,
		RunE: withJobs(opts, func(cmd *cobra.Command, jobs *maintenance.Jobs) error {
			n, err := jobs.ReconcileStalePending(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "已取消 %d 个超时订单\n", n)
			return err
		}),
	}

	sweep := &cobra.Command{
		Use:   "sweep-carts",
		Short: "清理过期的购物车条目",
		Args:  cobra.NoArgs,
		RunE: withJobs(opts, func(cmd *cobra.Command, jobs *maintenance.Jobs) error {
			n, err := jobs.SweepExpiredCarts(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "已删除 %d 个购物车条目\n", n)
			return err
		}),
	}

	lowStock := &cobra.Command{
		Use:   "low-stock",
		Short: "低库存检查(发布低库存事件)",
		Args:  cobra.NoArgs,
		RunE: withJobs(opts, func(cmd *cobra.Command, jobs *maintenance.Jobs) error {
			low, err := jobs.CheckLowStock(cmd.Context())
			if err != nil {
				return err
			}
			printInventoryTable(cmd.OutOrStdout(), low)
			return nil
		}),
	}

	cmd.AddCommand(reconcile, sweep, lowStock)
	return cmd
}

func withJobs(opts *options, run func(cmd *cobra.Command, jobs *maintenance.Jobs) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := opts.open()
		if err != nil {
			return err
		}
		defer e.close()

		ledger, err := e.ledger(cmd.Context())
		if err != nil {
			return err
		}
		validator := bootstrap.ProvideValidator(e.infra.Carts, bootstrap.ProvideCatalog(e.infra, e.logger), ledger, e.logger)
		lifecycle := apporder.NewLifecycleService(e.infra.Orders, ledger, e.infra.Tx, nil, e.infra.Publisher, e.logger)
		jobs := maintenance.NewJobs(lifecycle, validator, ledger, e.infra.Publisher, bootstrap.ProvideMaintenanceConfig(e.cfg), e.logger)
		return run(cmd, jobs)
	}
}
