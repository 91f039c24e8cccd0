package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/user"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// productCatalog 商品目录只读实现(读products表)
type productCatalog struct {
	db *gorm.DB
}

// NewCatalog 创建商品目录
func NewCatalog(db *gorm.DB) catalog.Catalog {
	return &productCatalog{db: db}
}

func (c *productCatalog) GetByID(ctx context.Context, id uint) (*catalog.Product, error) {
	var model ProductModel
	if err := getDB(ctx, c.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品失败")
	}
	return toProduct(&model), nil
}

func (c *productCatalog) GetByIDs(ctx context.Context, ids []uint) (map[uint]*catalog.Product, error) {
	result := make(map[uint]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var models []ProductModel
	if err := getDB(ctx, c.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "批量查询商品失败")
	}
	for i := range models {
		result[models[i].ID] = toProduct(&models[i])
	}
	return result, nil
}

func toProduct(m *ProductModel) *catalog.Product {
	return &catalog.Product{
		ID:       m.ID,
		Title:    m.Title,
		SKU:      m.SKU,
		Price:    m.Price,
		Weight:   m.Weight,
		IsActive: m.IsActive,
	}
}

// userDirectory 用户目录只读实现(读users表)
type userDirectory struct {
	db *gorm.DB
}

// NewDirectory 创建用户目录
func NewDirectory(db *gorm.DB) user.Directory {
	return &userDirectory{db: db}
}

func (d *userDirectory) GetByID(ctx context.Context, id uint) (*user.User, error) {
	var model UserModel
	if err := getDB(ctx, d.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "查询用户失败")
	}
	return &user.User{
		ID:       model.ID,
		Email:    model.Email,
		Nickname: model.Nickname,
		IsActive: model.IsActive,
	}, nil
}
