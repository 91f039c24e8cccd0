package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// inventoryRepository 库存仓储实现(MySQL)
//
// 教学要点：为什么不用SELECT FOR UPDATE？
//   - 悲观锁需要 查询→判断→更新 三步，并且必须放在事务里
//   - 条件更新把判断写进WHERE，一条语句完成，行锁只持有到语句（或所在事务）结束
//   - RowsAffected == 0 说明条件不满足（或记录不存在，再查一次区分）
type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓储
func NewInventoryRepository(db *gorm.DB) inventory.Repository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Get(ctx context.Context, productID uint) (*inventory.Inventory, error) {
	var model InventoryModel
	err := getDB(ctx, r.db).Where("product_id = ?", productID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithDetail(inventory.ErrInventoryNotFound, "product=%d", productID)
		}
		return nil, apperrors.Wrap(err, "查询库存失败")
	}
	return toInventoryEntity(&model), nil
}

func (r *inventoryRepository) GetMany(ctx context.Context, productIDs []uint) (map[uint]*inventory.Inventory, error) {
	result := make(map[uint]*inventory.Inventory, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	var models []InventoryModel
	if err := getDB(ctx, r.db).Where("product_id IN ?", productIDs).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "批量查询库存失败")
	}
	for i := range models {
		result[models[i].ProductID] = toInventoryEntity(&models[i])
	}
	return result, nil
}

func (r *inventoryRepository) Create(ctx context.Context, inv *inventory.Inventory) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	model := toInventoryModel(inv)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithDetail(inventory.ErrInventoryExists, "product=%d", inv.ProductID)
		}
		return apperrors.Wrap(err, "创建库存失败")
	}
	return nil
}

// Reserve 预留
//
//	UPDATE inventory SET qty_reserved = qty_reserved + ?
//	WHERE product_id = ? AND qty_available - qty_reserved >= ?
func (r *inventoryRepository) Reserve(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.conditionalUpdate(ctx, productID,
		"qty_available - qty_reserved >= ?", []interface{}{qty},
		map[string]interface{}{"qty_reserved": gorm.Expr("qty_reserved + ?", qty)},
		func(*inventory.Inventory) error { return inventory.ErrInsufficientStock },
	)
}

// Release 释放预留
func (r *inventoryRepository) Release(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.conditionalUpdate(ctx, productID,
		"qty_reserved >= ?", []interface{}{qty},
		map[string]interface{}{"qty_reserved": gorm.Expr("qty_reserved - ?", qty)},
		func(inv *inventory.Inventory) error {
			return apperrors.WithDetail(inventory.ErrInvalidState,
				"release product=%d qty=%d reserved=%d", productID, qty, inv.QtyReserved)
		},
	)
}

// Commit 扣减实物并释放预留，两个字段在同一条UPDATE中变化
func (r *inventoryRepository) Commit(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.conditionalUpdate(ctx, productID,
		"qty_reserved >= ? AND qty_available >= ?", []interface{}{qty, qty},
		map[string]interface{}{
			"qty_available": gorm.Expr("qty_available - ?", qty),
			"qty_reserved":  gorm.Expr("qty_reserved - ?", qty),
		},
		func(inv *inventory.Inventory) error {
			return apperrors.WithDetail(inventory.ErrInvalidState,
				"commit product=%d qty=%d reserved=%d available=%d", productID, qty, inv.QtyReserved, inv.QtyAvailable)
		},
	)
}

func (r *inventoryRepository) AddStock(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.conditionalUpdate(ctx, productID, "1 = 1", nil,
		map[string]interface{}{"qty_available": gorm.Expr("qty_available + ?", qty)},
		nil,
	)
}

// SetStock 盘点设置，WHERE qty_reserved <= ? 保证不低于已预留
func (r *inventoryRepository) SetStock(ctx context.Context, productID uint, qty int) (*inventory.Inventory, error) {
	return r.conditionalUpdate(ctx, productID,
		"qty_reserved <= ?", []interface{}{qty},
		map[string]interface{}{"qty_available": qty},
		func(inv *inventory.Inventory) error {
			if inv.QtyReserved > qty {
				return apperrors.WithDetail(inventory.ErrStockBelowReserved,
					"product=%d qty=%d reserved=%d", productID, qty, inv.QtyReserved)
			}
			return nil
		},
	)
}

func (r *inventoryRepository) UpdateReorderLevel(ctx context.Context, productID uint, level int) (*inventory.Inventory, error) {
	return r.conditionalUpdate(ctx, productID, "1 = 1", nil,
		map[string]interface{}{"reorder_level": level},
		nil,
	)
}

func (r *inventoryRepository) ListLowStock(ctx context.Context) ([]*inventory.Inventory, error) {
	return r.list(ctx, "qty_available <= reorder_level")
}

func (r *inventoryRepository) ListOutOfStock(ctx context.Context) ([]*inventory.Inventory, error) {
	return r.list(ctx, "qty_available - qty_reserved <= 0")
}

func (r *inventoryRepository) ListWithReserved(ctx context.Context) ([]*inventory.Inventory, error) {
	return r.list(ctx, "qty_reserved > 0")
}

func (r *inventoryRepository) Totals(ctx context.Context) (*inventory.Totals, error) {
	var row struct {
		Products      int64
		TotalUnits    int64
		ReservedUnits int64
		LowStock      int64
		OutOfStock    int64
	}
	err := getDB(ctx, r.db).Model(&InventoryModel{}).Select(`
		COUNT(*) AS products,
		COALESCE(SUM(qty_available), 0) AS total_units,
		COALESCE(SUM(qty_reserved), 0) AS reserved_units,
		COALESCE(SUM(CASE WHEN qty_available <= reorder_level THEN 1 ELSE 0 END), 0) AS low_stock,
		COALESCE(SUM(CASE WHEN qty_available - qty_reserved <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock`).
		Scan(&row).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "统计库存失败")
	}
	return &inventory.Totals{
		Products:      row.Products,
		TotalUnits:    row.TotalUnits,
		ReservedUnits: row.ReservedUnits,
		LowStock:      row.LowStock,
		OutOfStock:    row.OutOfStock,
	}, nil
}

// conditionalUpdate 执行一条带条件的UPDATE并返回最新记录
//
// 影响行数为0时重新读取记录：
//   - 记录不存在 → ErrInventoryNotFound
//   - 否则交给onMiss判断（条件不满足，或MySQL对"值未变化"的行也报告0行）
func (r *inventoryRepository) conditionalUpdate(
	ctx context.Context,
	productID uint,
	cond string,
	args []interface{},
	updates map[string]interface{},
	onMiss func(inv *inventory.Inventory) error,
) (*inventory.Inventory, error) {
	db := getDB(ctx, r.db)
	updates["updated_at"] = time.Now()

	result := db.Model(&InventoryModel{}).
		Where("product_id = ?", productID).
		Where(cond, args...).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, "更新库存失败")
	}

	inv, err := r.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 && onMiss != nil {
		if err := onMiss(inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func (r *inventoryRepository) list(ctx context.Context, cond string) ([]*inventory.Inventory, error) {
	var models []InventoryModel
	if err := getDB(ctx, r.db).Where(cond).Order("product_id").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询库存列表失败")
	}
	result := make([]*inventory.Inventory, len(models))
	for i := range models {
		result[i] = toInventoryEntity(&models[i])
	}
	return result, nil
}

func toInventoryModel(inv *inventory.Inventory) *InventoryModel {
	return &InventoryModel{
		ProductID:         inv.ProductID,
		QtyAvailable:      inv.QtyAvailable,
		QtyReserved:       inv.QtyReserved,
		ReorderLevel:      inv.ReorderLevel,
		WarehouseLocation: inv.WarehouseLocation,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

func toInventoryEntity(m *InventoryModel) *inventory.Inventory {
	return &inventory.Inventory{
		ProductID:         m.ProductID,
		QtyAvailable:      m.QtyAvailable,
		QtyReserved:       m.QtyReserved,
		ReorderLevel:      m.ReorderLevel,
		WarehouseLocation: m.WarehouseLocation,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// =========================================
// 库存日志
// =========================================

type inventoryLogRepository struct {
	db *gorm.DB
}

// NewInventoryLogRepository 创建库存日志仓储
func NewInventoryLogRepository(db *gorm.DB) inventory.LogRepository {
	return &inventoryLogRepository{db: db}
}

func (r *inventoryLogRepository) Create(ctx context.Context, log *inventory.ChangeLog) error {
	model := &InventoryLogModel{
		ProductID:      log.ProductID,
		OrderID:        log.OrderID,
		ChangeType:     string(log.ChangeType),
		Quantity:       log.Quantity,
		AvailableAfter: log.AvailableAfter,
		ReservedAfter:  log.ReservedAfter,
		Remark:         log.Remark,
		CreatedAt:      log.CreatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入库存日志失败")
	}
	log.ID = model.ID
	return nil
}

func (r *inventoryLogRepository) ListByProduct(ctx context.Context, productID uint, page, pageSize int) ([]*inventory.ChangeLog, int64, error) {
	var models []InventoryLogModel
	var total int64

	query := getDB(ctx, r.db).Model(&InventoryLogModel{}).Where("product_id = ?", productID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存日志总数失败")
	}

	offset := (page - 1) * pageSize
	err := query.Order("id DESC").Limit(pageSize).Offset(offset).Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存日志失败")
	}
	return toChangeLogs(models), total, nil
}

func (r *inventoryLogRepository) ListByOrder(ctx context.Context, orderID uint) ([]*inventory.ChangeLog, error) {
	var models []InventoryLogModel
	if err := getDB(ctx, r.db).Where("order_id = ?", orderID).Order("id").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询订单库存日志失败")
	}
	return toChangeLogs(models), nil
}

func toChangeLogs(models []InventoryLogModel) []*inventory.ChangeLog {
	logs := make([]*inventory.ChangeLog, len(models))
	for i, m := range models {
		logs[i] = &inventory.ChangeLog{
			ID:             m.ID,
			ProductID:      m.ProductID,
			OrderID:        m.OrderID,
			ChangeType:     inventory.ChangeType(m.ChangeType),
			Quantity:       m.Quantity,
			AvailableAfter: m.AvailableAfter,
			ReservedAfter:  m.ReservedAfter,
			Remark:         m.Remark,
			CreatedAt:      m.CreatedAt,
		}
	}
	return logs
}
