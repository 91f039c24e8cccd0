package inventory

import "time"

// DefaultReorderLevel 默认补货阈值
const DefaultReorderLevel = 10

// Inventory 库存实体（每个商品一条）
//
// 教学要点：
// 1. QtyAvailable：实物库存总数（仓库里真实存在的数量）
// 2. QtyReserved：已预留数量（下单未发货的订单占用）
// 3. 可售数量 = QtyAvailable - QtyReserved，永远不能为负
//
// 为什么下单时不直接扣减QtyAvailable？
//   - 订单可能被取消，预留可以原样释放
//   - 只有送达时才真正扣减（Commit），实物库存和账面一致
type Inventory struct {
	ProductID         uint
	QtyAvailable      int // 实物库存
	QtyReserved       int // 已预留
	ReorderLevel      int // 低库存阈值
	WarehouseLocation string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInventory 创建库存记录（工厂方法）
func NewInventory(productID uint, qty, reorderLevel int, location string) *Inventory {
	now := time.Now()
	return &Inventory{
		ProductID:         productID,
		QtyAvailable:      qty,
		ReorderLevel:      reorderLevel,
		WarehouseLocation: location,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// AvailableForSale 可售数量
func (i *Inventory) AvailableForSale() int {
	return i.QtyAvailable - i.QtyReserved
}

// IsLowStock 是否低库存（实物库存不高于补货阈值）
func (i *Inventory) IsLowStock() bool {
	return i.QtyAvailable <= i.ReorderLevel
}

// IsOutOfStock 是否无货可卖
func (i *Inventory) IsOutOfStock() bool {
	return i.AvailableForSale() <= 0
}

// CanReserve 是否可以预留
// 注意：这里只是读时判断，真正的原子保证在Repository.Reserve的条件更新里
func (i *Inventory) CanReserve(qty int) bool {
	return qty > 0 && i.AvailableForSale() >= qty
}

// Validate 校验账本不变量：0 <= QtyReserved <= QtyAvailable
func (i *Inventory) Validate() error {
	if i.ProductID == 0 {
		return ErrInvalidProductID
	}
	if i.QtyAvailable < 0 || i.QtyReserved < 0 || i.ReorderLevel < 0 {
		return ErrInvalidQuantity
	}
	if i.QtyReserved > i.QtyAvailable {
		return ErrInvalidState
	}
	return nil
}

// Totals 库存汇总（运维看板）
type Totals struct {
	Products      int64
	TotalUnits    int64
	ReservedUnits int64
	LowStock      int64
	OutOfStock    int64
}
