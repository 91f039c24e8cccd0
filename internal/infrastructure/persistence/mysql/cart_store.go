package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/storefront/internal/domain/cart"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// cartStore 购物车存储(MySQL)
type cartStore struct {
	db *gorm.DB
}

// NewCartStore 创建购物车存储
func NewCartStore(db *gorm.DB) cart.Store {
	return &cartStore{db: db}
}

func (s *cartStore) ListByUser(ctx context.Context, userID uint) ([]*cart.Item, error) {
	var models []CartItemModel
	if err := getDB(ctx, s.db).Where("user_id = ?", userID).Order("id").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询购物车失败")
	}
	items := make([]*cart.Item, len(models))
	for i, m := range models {
		items[i] = &cart.Item{
			ID:        m.ID,
			UserID:    m.UserID,
			ProductID: m.ProductID,
			Quantity:  m.Quantity,
			CreatedAt: m.CreatedAt,
		}
	}
	return items, nil
}

// Add 加入购物车
// 教学要点:INSERT ... ON DUPLICATE KEY UPDATE quantity = quantity + ?
// 依赖(user_id, product_id)唯一索引,并发加购不会产生重复行
func (s *cartStore) Add(ctx context.Context, userID, productID uint, qty int) (*cart.Item, error) {
	if qty <= 0 {
		return nil, cart.ErrInvalidQuantity
	}

	db := getDB(ctx, s.db)
	model := &CartItemModel{UserID: userID, ProductID: productID, Quantity: qty, CreatedAt: time.Now()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("quantity + ?", qty)}),
	}).Create(model).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "加入购物车失败")
	}

	var stored CartItemModel
	if err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&stored).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询购物车失败")
	}
	return &cart.Item{
		ID:        stored.ID,
		UserID:    stored.UserID,
		ProductID: stored.ProductID,
		Quantity:  stored.Quantity,
		CreatedAt: stored.CreatedAt,
	}, nil
}

func (s *cartStore) UpdateQuantity(ctx context.Context, itemID uint, qty int) error {
	if qty <= 0 {
		return cart.ErrInvalidQuantity
	}
	result := getDB(ctx, s.db).Model(&CartItemModel{}).Where("id = ?", itemID).Update("quantity", qty)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新购物车失败")
	}
	if result.RowsAffected == 0 {
		var count int64
		getDB(ctx, s.db).Model(&CartItemModel{}).Where("id = ?", itemID).Count(&count)
		if count == 0 {
			return cart.ErrItemNotFound
		}
	}
	return nil
}

func (s *cartStore) Remove(ctx context.Context, itemID uint) error {
	result := getDB(ctx, s.db).Delete(&CartItemModel{}, itemID)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除购物车条目失败")
	}
	if result.RowsAffected == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context, userID uint) error {
	if err := getDB(ctx, s.db).Where("user_id = ?", userID).Delete(&CartItemModel{}).Error; err != nil {
		return apperrors.Wrap(err, "清空购物车失败")
	}
	return nil
}

func (s *cartStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := getDB(ctx, s.db).Where("created_at < ?", cutoff).Delete(&CartItemModel{})
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "清理过期购物车失败")
	}
	return result.RowsAffected, nil
}
