package order

import (
	"context"
	"time"
)

// Repository 订单仓储接口(依赖倒置原则)
// 教学要点:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 支持事务操作(通过context传递事务)
// 3. 状态写入是CAS:WHERE id = ? AND status = ?,并发修改时返回ErrStatusConflict
type Repository interface {
	// Create 创建订单(订单和明细在同一事务中创建)
	Create(ctx context.Context, order *Order) error

	// FindByID 根据ID查找订单(包含订单明细)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByIDForUpdate 加行锁读取订单(SELECT ... FOR UPDATE),锁持有到事务结束
	// 状态流转和结账的逐行预留都先锁订单行,取消不会插进预留中间
	FindByIDForUpdate(ctx context.Context, id uint) (*Order, error)

	// FindByOrderNo 根据订单号查找订单
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// ListByUserID 查询用户的订单列表(分页)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Order, int64, error)

	// ListByStatus 按状态查询订单(分页,新订单在前),total即该状态的订单数
	ListByStatus(ctx context.Context, status Status, page, pageSize int) ([]*Order, int64, error)

	// UpdateStatus 状态CAS写入
	UpdateStatus(ctx context.Context, id uint, from, to Status) error

	// UpdatePaymentStatus 支付状态CAS写入
	UpdatePaymentStatus(ctx context.Context, id uint, from, to PaymentStatus) error

	// Delete 物理删除订单和明细(仅用于下单失败的补偿)
	Delete(ctx context.Context, id uint) error

	// ListPendingBefore 创建时间早于before的PENDING订单(对账任务)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*Order, error)
}
