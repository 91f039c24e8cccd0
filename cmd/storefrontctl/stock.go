package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xiebiao/storefront/internal/domain/inventory"
)

func newStockCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "库存管理",
	}

	var remark string
	var reorderLevel int
	var location string

	show := &cobra.Command{
		Use:   "show <product_id>",
		Short: "查看库存",
		Args:  cobra.ExactArgs(1),
		RunE: withLedger(opts, func(cmd *cobra.Command, ledger *inventory.Ledger, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			inv, err := ledger.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printInventory(cmd.OutOrStdout(), inv)
			return nil
		}),
	}

	create := &cobra.Command{
		Use:   "create <product_id> <qty>",
		Short: "为商品建立库存记录",
		Args:  cobra.ExactArgs(2),
		RunE: withLedger(opts, func(cmd *cobra.Command, ledger *inventory.Ledger, args []string) error {
			id, qty, err := parseIDAndQty(args)
			if err != nil {
				return err
			}
			inv, err := ledger.CreateForProduct(cmd.Context(), id, qty, reorderLevel, location)
			if err != nil {
				return err
			}
			printInventory(cmd.OutOrStdout(), inv)
			return nil
		}),
	}
	create.Flags().IntVar(&reorderLevel, "reorder-level", 0, "低库存阈值")
	create.Flags().StringVar(&location, "location", "", "仓库位置")

	add := &cobra.Command{
		Use:   "add <product_id> <qty>",
		Short: "补货(增加实物库存)",
		Args:  cobra.ExactArgs(2),
		RunE: withLedger(opts, func(cmd *cobra.Command, ledger *inventory.Ledger, args []string) error {
			id, qty, err := parseIDAndQty(args)
			if err != nil {
				return err
			}
			inv, err := ledger.AddStock(cmd.Context(), id, qty, remark)
			if err != nil {
				return err
			}
			printInventory(cmd.OutOrStdout(), inv)
			return nil
		}),
	}
	add.Flags().StringVar(&remark, "remark", "", "备注")

	set := &cobra.Command{
		Use:   "set <product_id> <qty>",
		Short: "盘点(设置实物库存,不能低于已预留)",
		Args:  cobra.ExactArgs(2),
		RunE: withLedger(opts, func(cmd *cobra.Command, ledger *inventory.Ledger, args []string) error {
			id, qty, err := parseIDAndQty(args)
			if err != nil {
				return err
			}
			inv, err := ledger.SetStock(cmd.Context(), id, qty, remark)
			if err != nil {
				return err
			}
			printInventory(cmd.OutOrStdout(), inv)
			return nil
		}),
	}
	set.Flags().StringVar(&remark, "remark", "", "备注")

	low := &cobra.Command{
		Use:   "low",
		Short: "列出低库存商品",
		Args:  cobra.NoArgs,
		RunE: withLedger(opts, func(cmd *cobra.Command, ledger *inventory.Ledger, args []string) error {
			list, err := ledger.LowStock(cmd.Context())
			if err != nil {
				return err
			}
			printInventoryTable(cmd.OutOrStdout(), list)
			return nil
		}),
	}

	cmd.AddCommand(show, create, add, set, low)
	return cmd
}

// withLedger 打开基础设施并创建账本,命令结束后关闭连接
func withLedger(opts *options, run func(cmd *cobra.Command, ledger *inventory.Ledger, args []string) error) func(*cobra.Command, []string) error {
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
		return run(cmd, ledger, args)
	}
}

func parseProductID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("无效的商品ID: %q", s)
	}
	return uint(id), nil
}

func parseIDAndQty(args []string) (uint, int, error) {
	id, err := parseProductID(args[0])
	if err != nil {
		return 0, 0, err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("无效的数量: %q", args[1])
	}
	return id, qty, nil
}

func printInventory(w io.Writer, inv *inventory.Inventory) {
	printInventoryTable(w, []*inventory.Inventory{inv})
}

func printInventoryTable(w io.Writer, list []*inventory.Inventory) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tAVAILABLE\tRESERVED\tFOR_SALE\tREORDER\tLOCATION")
	for _, inv := range list {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\n",
			inv.ProductID, inv.QtyAvailable, inv.QtyReserved, inv.AvailableForSale(), inv.ReorderLevel, inv.WarehouseLocation)
	}
	tw.Flush()
}
