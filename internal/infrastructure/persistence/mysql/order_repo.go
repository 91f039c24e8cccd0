package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
// 教学要点:
// 1. Order和OrderItem是聚合关系,必须一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 事务通过context传递
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
// 教学要点:GORM会在同一事务中保存关联的Items
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrInvalidOrderItems
	}

	model := toOrderModel(o)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithDetail(order.ErrOrderNoGenerate, "order_no=%s", o.OrderNo)
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	// 回填自增ID
	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

// FindByID 根据ID查找订单
// Preload("Items")会执行:
// 1. SELECT * FROM orders WHERE id = ?
// 2. SELECT * FROM order_items WHERE order_id IN (?)
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := getDB(ctx, r.db).Preload("Items").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// FindByIDForUpdate 加行锁读取订单
// 必须在TxManager.Transaction内调用,否则锁随自动提交立即释放
//
//	SELECT * FROM orders WHERE id = ? FOR UPDATE
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := getDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "锁定订单失败")
	}
	// 明细不可变,不需要加锁
	if err := getDB(ctx, r.db).Where("order_id = ?", id).Order("id").Find(&model.Items).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询订单明细失败")
	}
	return toOrderEntity(&model), nil
}

// FindByOrderNo 根据订单号查找订单
func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var model OrderModel
	err := getDB(ctx, r.db).Preload("Items").Where("order_no = ?", orderNo).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// ListByUserID 查询用户的订单列表
func (r *orderRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	query := getDB(ctx, r.db).Model(&OrderModel{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Items").
		Order("id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// ListByStatus 按状态查询订单(走idx_status_created索引)
func (r *orderRepository) ListByStatus(ctx context.Context, status order.Status, page, pageSize int) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	query := getDB(ctx, r.db).Model(&OrderModel{}).Where("status = ?", int(status))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	err := query.Preload("Items").
		Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// UpdateStatus 状态CAS写入
// 教学要点:WHERE带上旧状态,两个并发请求只有一个能成功
//
//	UPDATE orders SET status = ? WHERE id = ? AND status = ?
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, from, to order.Status) error {
	return r.compareAndSet(ctx, id, "status", int(from), int(to))
}

// UpdatePaymentStatus 支付状态CAS写入
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uint, from, to order.PaymentStatus) error {
	return r.compareAndSet(ctx, id, "payment_status", int(from), int(to))
}

func (r *orderRepository) compareAndSet(ctx context.Context, id uint, column string, from, to int) error {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("id = ? AND "+column+" = ?", id, from).
		Updates(map[string]interface{}{
			column:       to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单状态失败")
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// 0行:订单不存在,或旧状态已被别人改掉
	var count int64
	if err := db.Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Wrap(err, "查询订单失败")
	}
	if count == 0 {
		return order.ErrOrderNotFound
	}
	return order.ErrStatusConflict
}

// Delete 物理删除订单和明细(下单失败的补偿)
func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	return getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&OrderItemModel{}).Error; err != nil {
			return apperrors.Wrap(err, "删除订单明细失败")
		}
		result := tx.Delete(&OrderModel{}, id)
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "删除订单失败")
		}
		if result.RowsAffected == 0 {
			return order.ErrOrderNotFound
		}
		return nil
	})
}

// ListPendingBefore 超时的PENDING订单(走idx_status_created索引)
func (r *orderRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*order.Order, error) {
	var models []OrderModel
	err := getDB(ctx, r.db).Preload("Items").
		Where("status = ? AND created_at < ?", int(order.StatusPending), before).
		Order("id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询超时订单失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:           item.ID,
			OrderID:      item.OrderID,
			ProductID:    item.ProductID,
			ProductTitle: item.ProductTitle,
			ProductSKU:   item.ProductSKU,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
		}
	}

	return &OrderModel{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Status:          int(o.Status),
		PaymentStatus:   int(o.PaymentStatus),
		TotalPrice:      o.TotalPrice,
		TaxAmount:       o.TaxAmount,
		ShippingCost:    o.ShippingCost,
		DiscountAmount:  o.DiscountAmount,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(model *OrderModel) *order.Order {
	items := make([]order.Item, len(model.Items))
	for i, item := range model.Items {
		items[i] = order.Item{
			ID:           item.ID,
			OrderID:      item.OrderID,
			ProductID:    item.ProductID,
			ProductTitle: item.ProductTitle,
			ProductSKU:   item.ProductSKU,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
		}
	}

	return &order.Order{
		ID:              model.ID,
		OrderNo:         model.OrderNo,
		UserID:          model.UserID,
		Status:          order.Status(model.Status),
		PaymentStatus:   order.PaymentStatus(model.PaymentStatus),
		TotalPrice:      model.TotalPrice,
		TaxAmount:       model.TaxAmount,
		ShippingCost:    model.ShippingCost,
		DiscountAmount:  model.DiscountAmount,
		ShippingAddress: model.ShippingAddress,
		PaymentMethod:   model.PaymentMethod,
		Notes:           model.Notes,
		Items:           items,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
