package mysql

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/storefront/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 按配置自动迁移表结构（AutoMigrate）
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	// 1. 配置GORM日志
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	// 2. 连接数据库
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 3. 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// 4. 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	log.Info("数据库连接成功", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	// 5. 自动迁移表结构（开发环境）
	// 注意：生产环境应使用专门的迁移工具（如golang-migrate）
	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构
// 学习要点：
// 1. AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
// 2. 生产环境应使用版本化的迁移脚本，不要依赖AutoMigrate
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProductModel{},
		&UserModel{},
		&InventoryModel{},
		&InventoryLogModel{},
		&CartItemModel{},
		&OrderModel{},
		&OrderItemModel{},
	)
}

// =========================================
// GORM模型
// =========================================
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain层实体不依赖GORM，Repository负责两者之间的转换
// 3. 金额使用DECIMAL列 + shopspring/decimal（实现了Scanner/Valuer）

// ProductModel 商品表（目录服务维护，本服务只读）
type ProductModel struct {
	ID        uint            `gorm:"primaryKey"`
	Title     string          `gorm:"size:200;not null;comment:商品名"`
	SKU       string          `gorm:"uniqueIndex;size:64;not null;comment:SKU"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:售价"`
	Weight    decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0;comment:单件重量(kg)"`
	IsActive  bool            `gorm:"index;not null;default:true;comment:是否上架"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

// UserModel 用户表（用户服务维护，本服务只读）
type UserModel struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Nickname  string `gorm:"size:50;not null;comment:昵称"`
	IsActive  bool   `gorm:"not null;default:true;comment:是否可用"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// InventoryModel 库存表（与商品1:1）
// 教学要点：CHECK约束是数据库层面的最后一道防线，应用层的条件更新才是主要手段
type InventoryModel struct {
	ProductID         uint   `gorm:"primaryKey;autoIncrement:false;comment:商品ID"`
	QtyAvailable      int    `gorm:"not null;default:0;check:chk_qty_available,qty_available >= 0;comment:实物库存"`
	QtyReserved       int    `gorm:"not null;default:0;check:chk_qty_reserved,qty_reserved >= 0 AND qty_reserved <= qty_available;comment:已预留"`
	ReorderLevel      int    `gorm:"not null;default:10;comment:补货阈值"`
	WarehouseLocation string `gorm:"size:100;comment:库位"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (InventoryModel) TableName() string {
	return "inventory"
}

// InventoryLogModel 库存变更日志（只增不改）
type InventoryLogModel struct {
	ID             uint      `gorm:"primaryKey"`
	ProductID      uint      `gorm:"index:idx_product_id;not null"`
	OrderID        uint      `gorm:"index:idx_order_id;not null;default:0"`
	ChangeType     string    `gorm:"type:varchar(20);not null"`
	Quantity       int       `gorm:"not null"`
	AvailableAfter int       `gorm:"not null"`
	ReservedAfter  int       `gorm:"not null"`
	Remark         string    `gorm:"type:varchar(255)"`
	CreatedAt      time.Time `gorm:"index:idx_created_at"`
}

func (InventoryLogModel) TableName() string {
	return "inventory_logs"
}

// CartItemModel 购物车条目，(user_id, product_id)唯一
type CartItemModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex:uk_user_product;not null"`
	ProductID uint      `gorm:"uniqueIndex:uk_user_product;not null"`
	Quantity  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (CartItemModel) TableName() string {
	return "cart_items"
}

// OrderModel 订单表
// 教学要点:
// 1. 与OrderItemModel是一对多关系
// 2. OrderNo有唯一索引(业务主键)
// 3. (status, created_at)联合索引支撑超时订单扫描
type OrderModel struct {
	ID              uint             `gorm:"primaryKey"`
	OrderNo         string           `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID          uint             `gorm:"index;not null;comment:买家用户ID"`
	Status          int              `gorm:"index:idx_status_created;type:tinyint;not null;default:1;comment:订单状态"`
	PaymentStatus   int              `gorm:"type:tinyint;not null;default:1;comment:支付状态"`
	TotalPrice      decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	TaxAmount       decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	ShippingCost    decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	DiscountAmount  decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	ShippingAddress string           `gorm:"type:text"`
	PaymentMethod   string           `gorm:"size:50"`
	Notes           string           `gorm:"type:text"`
	Items           []OrderItemModel `gorm:"foreignKey:OrderID"` // 一对多关联
	CreatedAt       time.Time        `gorm:"index:idx_status_created"`
	UpdatedAt       time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 订单明细（价格、名称、SKU快照）
type OrderItemModel struct {
	ID           uint            `gorm:"primaryKey"`
	OrderID      uint            `gorm:"index;not null;comment:订单ID"`
	ProductID    uint            `gorm:"index;not null;comment:商品ID"`
	ProductTitle string          `gorm:"size:200;not null;comment:下单时商品名"`
	ProductSKU   string          `gorm:"size:64;not null;comment:下单时SKU"`
	Quantity     int             `gorm:"not null;comment:购买数量"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:下单时单价"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}
