package inventory

import "context"

// Repository 库存仓储接口
//
// 教学要点：
// 1. Reserve/Release/Commit必须是"单条条件更新"，不允许先查再改：
//    UPDATE inventory SET qty_reserved = qty_reserved + ?
//    WHERE product_id = ? AND qty_available - qty_reserved >= ?
//    影响行数为0即失败，两个并发下单不可能都看到"库存充足"
// 2. 变更成功后返回最新的库存记录（用于写日志和返回给调用方）
// 3. 内存实现用按商品加锁达到同样的原子性
type Repository interface {
	// Get 查询库存
	Get(ctx context.Context, productID uint) (*Inventory, error)

	// GetMany 批量查询库存，不存在的商品不在结果中
	GetMany(ctx context.Context, productIDs []uint) (map[uint]*Inventory, error)

	// Create 创建库存记录，已存在返回ErrInventoryExists
	Create(ctx context.Context, inv *Inventory) error

	// Reserve 预留：可售数量不足返回ErrInsufficientStock
	Reserve(ctx context.Context, productID uint, qty int) (*Inventory, error)

	// Release 释放预留：qty大于已预留返回ErrInvalidState
	Release(ctx context.Context, productID uint, qty int) (*Inventory, error)

	// Commit 扣减实物并释放预留（同一条UPDATE）：预留不足返回ErrInvalidState
	Commit(ctx context.Context, productID uint, qty int) (*Inventory, error)

	// AddStock 补货
	AddStock(ctx context.Context, productID uint, qty int) (*Inventory, error)

	// SetStock 盘点设置实物库存，低于已预留返回ErrStockBelowReserved
	SetStock(ctx context.Context, productID uint, qty int) (*Inventory, error)

	// UpdateReorderLevel 修改补货阈值
	UpdateReorderLevel(ctx context.Context, productID uint, level int) (*Inventory, error)

	// ListLowStock 低库存列表（qty_available <= reorder_level）
	ListLowStock(ctx context.Context) ([]*Inventory, error)

	// ListOutOfStock 无货列表（可售数量 <= 0）
	ListOutOfStock(ctx context.Context) ([]*Inventory, error)

	// ListWithReserved 有预留的库存列表
	ListWithReserved(ctx context.Context) ([]*Inventory, error)

	// Totals 汇总统计
	Totals(ctx context.Context) (*Totals, error)
}

// LogRepository 库存日志仓储接口
type LogRepository interface {
	Create(ctx context.Context, log *ChangeLog) error

	// ListByProduct 分页查询商品的变更历史（新的在前）
	ListByProduct(ctx context.Context, productID uint, page, pageSize int) ([]*ChangeLog, int64, error)

	// ListByOrder 查询订单相关的全部变更（按时间正序）
	ListByOrder(ctx context.Context, orderID uint) ([]*ChangeLog, error)
}

// TxManager 事务管理器
// 账本变更和日志写入必须在同一个事务里
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
