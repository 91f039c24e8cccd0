package bootstrap

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	appcart "github.com/xiebiao/storefront/internal/application/cart"
	"github.com/xiebiao/storefront/internal/application/maintenance"
	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/domain/user"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/internal/infrastructure/guard"
	"github.com/xiebiao/storefront/internal/interface/consumer"
	"github.com/xiebiao/storefront/internal/interface/http/handler"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/internal/interface/http/router"
	"github.com/xiebiao/storefront/pkg/jwt"
)

// ========================================
// Wire Provider Sets
// ========================================

// infrastructureSet 从Infrastructure中取出各个端口
// 外部协作方(目录、用户)在这里套上熔断器
var infrastructureSet = wire.NewSet(
	ProvideCatalog,
	ProvideDirectory,
	ProvideCarts,
	ProvideTx,
	ProvideOrders,
	ProvideNumbers,
	ProvidePublisher,
	ProvideDeduper,
	ProvideLedger,
)

// applicationSet 应用层
var applicationSet = wire.NewSet(
	ProvideCheckoutConfig,
	ProvideMaintenanceConfig,
	ProvideRefundHook,
	ProvideValidator,
	appcart.NewAddItemUseCase,
	apporder.NewCreateOrderUseCase,
	apporder.NewLifecycleService,
	apporder.NewQueryService,
	maintenance.NewJobs,
	consumer.NewPaymentHandler,
	wire.Bind(new(consumer.PaymentUpdater), new(*apporder.LifecycleService)),
)

// interfaceSet 接口层
var interfaceSet = wire.NewSet(
	ProvideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewOrderHandler,
	handler.NewCartHandler,
	handler.NewInventoryHandler,
	handler.NewPaymentHandler,
	wire.Struct(new(router.Handlers), "*"),
	ProvideEngine,
)

// ProviderSet 完整的依赖图
var ProviderSet = wire.NewSet(
	infrastructureSet,
	applicationSet,
	interfaceSet,
	NewApp,
)

// ========================================
// Custom Providers
// ========================================

// ProvideCatalog 商品目录(带熔断)
func ProvideCatalog(infra *Infrastructure, logger *zap.Logger) catalog.Catalog {
	return guard.NewCatalog(infra.Catalog, guard.DefaultConfig(), logger)
}

// ProvideDirectory 用户目录(带熔断)
func ProvideDirectory(infra *Infrastructure, logger *zap.Logger) user.Directory {
	return guard.NewDirectory(infra.Users, guard.DefaultConfig(), logger)
}

// ProvideCarts 购物车存储
func ProvideCarts(infra *Infrastructure) cart.Store { return infra.Carts }

func ProvideTx(infra *Infrastructure) inventory.TxManager { return infra.Tx }

func ProvideOrders(infra *Infrastructure) order.Repository { return infra.Orders }

func ProvideNumbers(infra *Infrastructure) order.NumberGenerator { return infra.Numbers }

func ProvidePublisher(infra *Infrastructure) order.EventPublisher { return infra.Publisher }

func ProvideDeduper(infra *Infrastructure) consumer.Deduper { return infra.Deduper }

// ProvideLedger 库存账本
func ProvideLedger(infra *Infrastructure, logger *zap.Logger) *inventory.Ledger {
	return inventory.NewLedger(infra.Inventory, infra.InventoryLogs, infra.Tx, logger)
}

// ProvideCheckoutConfig 计价参数来自配置(字符串→decimal,格式错误在启动时暴露)
func ProvideCheckoutConfig(cfg *config.Config) (apporder.CheckoutConfig, error) {
	taxRate, shippingBase, shippingPerKg, err := cfg.Checkout.Decimals()
	if err != nil {
		return apporder.CheckoutConfig{}, err
	}
	return apporder.CheckoutConfig{
		Pricing: order.PricingPolicy{
			TaxRate:       taxRate,
			ShippingBase:  shippingBase,
			ShippingPerKg: shippingPerKg,
		},
		SagaTimeout: cfg.Checkout.SagaTimeout,
	}, nil
}

func ProvideMaintenanceConfig(cfg *config.Config) maintenance.Config {
	return maintenance.Config{
		PendingTimeout: cfg.Checkout.PendingTimeout,
		CartMaxAge:     cfg.Checkout.CartMaxAge,
		BatchSize:      cfg.Jobs.BatchSize,
	}
}

// ProvideRefundHook 退款由支付服务处理,这里只是扩展点
func ProvideRefundHook() apporder.RefundHook {
	return apporder.NopRefundHook{}
}

func ProvideValidator(carts cart.Store, cat catalog.Catalog, ledger *inventory.Ledger, logger *zap.Logger) *appcart.Validator {
	return appcart.NewValidator(carts, cat, ledger, logger)
}

func ProvideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpire)
}

func ProvideEngine(cfg *config.Config, h router.Handlers, auth *middleware.AuthMiddleware, logger *zap.Logger) *gin.Engine {
	return router.New(h, auth, logger, router.Options{
		Mode:          cfg.Server.Mode,
		EnableSwagger: cfg.Server.Mode != gin.ReleaseMode,
	})
}
