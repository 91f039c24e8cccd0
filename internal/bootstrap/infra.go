// Package bootstrap 组装依赖图
//
// 基础设施按配置选择实现:
//   - database.driver=memory  内存仓储(开发、演示、测试),启动时写入演示数据
//   - database.driver=mysql   GORM + MySQL
//   - redis.enabled           订单号序列、支付消息去重
//   - rabbitmq.enabled        领域事件发布、支付结果消费
package bootstrap

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/domain/user"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/storefront/internal/interface/consumer"
	"github.com/xiebiao/storefront/pkg/mq"
)

// paymentRoutingKey 支付网关发布结果使用的路由键
const paymentRoutingKey = "payment.*"

// Infrastructure 基础设施(按配置选出的具体实现)
type Infrastructure struct {
	Catalog       catalog.Catalog
	Users         user.Directory
	Carts         cart.Store
	Inventory     inventory.Repository
	InventoryLogs inventory.LogRepository
	Tx            inventory.TxManager
	Orders        order.Repository
	Numbers       order.NumberGenerator
	Publisher     order.EventPublisher
	Deduper       consumer.Deduper // 未启用Redis时为nil
	Consumer      *mq.Consumer     // 未启用RabbitMQ时为nil

	// Demo 内存模式下的演示数据,由NewApp写入库存
	Demo []DemoProduct
}

// DemoProduct 演示商品及初始库存
type DemoProduct struct {
	Product      catalog.Product
	Stock        int
	ReorderLevel int
}

// NewInfrastructure 创建基础设施
// 返回的cleanup按创建的逆序关闭连接
func NewInfrastructure(cfg *config.Config, logger *zap.Logger) (*Infrastructure, func(), error) {
	infra := &Infrastructure{
		Numbers:   order.NewLocalNumberGenerator(),
		Publisher: order.NopPublisher{},
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Infrastructure, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// 1. 仓储
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysql.NewDB(cfg, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		infra.Catalog = mysql.NewCatalog(db)
		infra.Users = mysql.NewDirectory(db)
		infra.Carts = mysql.NewCartStore(db)
		infra.Inventory = mysql.NewInventoryRepository(db)
		infra.InventoryLogs = mysql.NewInventoryLogRepository(db)
		infra.Tx = mysql.NewTxManager(db)
		infra.Orders = mysql.NewOrderRepository(db)
	default:
		cat := memory.NewCatalog()
		users := memory.NewDirectory()
		infra.Demo = seedDemo(cat, users)
		infra.Catalog = cat
		infra.Users = users
		infra.Carts = memory.NewCartStore()
		infra.Inventory = memory.NewInventoryRepository()
		infra.InventoryLogs = memory.NewInventoryLogRepository()
		infra.Tx = memory.NewTxManager()
		infra.Orders = memory.NewOrderRepository()
		logger.Warn("使用内存仓储,重启后数据丢失", zap.Int("demo_products", len(infra.Demo)))
	}

	// 2. Redis(可选)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = client.Close() })
		infra.Numbers = redis.NewOrderNumberGenerator(client)
		infra.Deduper = redis.NewIdempotencyStore(client)
	}

	// 3. RabbitMQ(可选)
	if cfg.RabbitMQ.Enabled {
		publisher, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, "topic", logger)
		if err != nil {
			return fail(fmt.Errorf("连接RabbitMQ失败: %w", err))
		}
		closers = append(closers, func() { _ = publisher.Close() })
		infra.Publisher = publisher

		c, err := mq.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, "topic",
			cfg.RabbitMQ.PaymentQueue, []string{paymentRoutingKey}, logger)
		if err != nil {
			return fail(fmt.Errorf("创建支付消费者失败: %w", err))
		}
		closers = append(closers, func() { _ = c.Close() })
		infra.Consumer = c
	}

	return infra, cleanup, nil
}

// seedDemo 内存模式的演示数据
// 用户1是普通买家,用户2已停用;Token用 storefrontctl token 签发
func seedDemo(cat *memory.Catalog, users *memory.Directory) []DemoProduct {
	users.Put(user.User{ID: 1, Email: "buyer@example.com", Nickname: "buyer", IsActive: true})
	users.Put(user.User{ID: 2, Email: "inactive@example.com", Nickname: "inactive", IsActive: false})

	demo := []DemoProduct{
		{Product: catalog.Product{ID: 1, Title: "Go语言实战", SKU: "BK-0001",
			Price: decimal.RequireFromString("59.00"), Weight: decimal.RequireFromString("0.6"), IsActive: true},
			Stock: 100, ReorderLevel: 10},
		{Product: catalog.Product{ID: 2, Title: "Go并发编程", SKU: "BK-0002",
			Price: decimal.RequireFromString("79.90"), Weight: decimal.RequireFromString("0.8"), IsActive: true},
			Stock: 5, ReorderLevel: 10},
		{Product: catalog.Product{ID: 3, Title: "绝版书", SKU: "BK-0003",
			Price: decimal.RequireFromString("39.00"), Weight: decimal.RequireFromString("0.4"), IsActive: false},
			Stock: 0, ReorderLevel: 0},
	}
	for _, d := range demo {
		cat.Put(d.Product)
	}
	return demo
}
