package inventory

import "time"

// ChangeLog 库存变更日志
//
// 教学要点：
// 1. 只增不改（Append-Only），每次账本变更与日志在同一事务中写入
// 2. 记录变更后的两个计数器，排查问题时可以逐条回放
// 3. 带OrderID的日志可以算出某个订单当前还占用多少预留（对账用）
type ChangeLog struct {
	ID             uint
	ProductID      uint
	OrderID        uint // 0表示与订单无关（补货、盘点）
	ChangeType     ChangeType
	Quantity       int // 本次变更数量（SetStock时为差值，可为负）
	AvailableAfter int
	ReservedAfter  int
	Remark         string
	CreatedAt      time.Time
}

// ChangeType 库存变更类型
type ChangeType string

const (
	ChangeTypeReserve ChangeType = "RESERVE" // 下单预留
	ChangeTypeRelease ChangeType = "RELEASE" // 释放预留（取消、回滚）
	ChangeTypeCommit  ChangeType = "COMMIT"  // 送达扣减
	ChangeTypeRestock ChangeType = "RESTOCK" // 补货
	ChangeTypeAdjust  ChangeType = "ADJUST"  // 盘点设置
)

func newLog(inv *Inventory, changeType ChangeType, qty int, orderID uint, remark string) *ChangeLog {
	return &ChangeLog{
		ProductID:      inv.ProductID,
		OrderID:        orderID,
		ChangeType:     changeType,
		Quantity:       qty,
		AvailableAfter: inv.QtyAvailable,
		ReservedAfter:  inv.QtyReserved,
		Remark:         remark,
		CreatedAt:      time.Now(),
	}
}

// NetReserved 按商品汇总一组日志留下的净预留量
// RESERVE加，RELEASE和COMMIT减；结果为0的商品不返回
func NetReserved(logs []*ChangeLog) map[uint]int {
	net := make(map[uint]int)
	for _, l := range logs {
		switch l.ChangeType {
		case ChangeTypeReserve:
			net[l.ProductID] += l.Quantity
		case ChangeTypeRelease, ChangeTypeCommit:
			net[l.ProductID] -= l.Quantity
		}
	}
	for productID, qty := range net {
		if qty == 0 {
			delete(net, productID)
		}
	}
	return net
}
