// Package router 路由注册
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/xiebiao/storefront/docs" // 注册Swagger文档
	"github.com/xiebiao/storefront/internal/interface/http/handler"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/response"
)

// Handlers 所有HTTP处理器
type Handlers struct {
	Order     *handler.OrderHandler
	Cart      *handler.CartHandler
	Inventory *handler.InventoryHandler
	Payment   *handler.PaymentHandler
}

// Options 路由选项
type Options struct {
	Mode          string // debug | release | test
	EnableSwagger bool   // 生产环境建议关闭
}

// New 创建Gin引擎并注册所有路由
//
// 路由一览:
//
//	GET  /ping                                   健康检查
//	GET  /metrics                                Prometheus指标
//	GET  /swagger/*any                           接口文档
//	POST /api/v1/checkout                        结账
//	GET  /api/v1/cart                            查看购物车
//	POST /api/v1/cart/items                      加入购物车
//	GET  /api/v1/cart/validate                   结账前校验
//	POST /api/v1/cart/sync                       按库存修正购物车
//	GET  /api/v1/orders                          我的订单
//	GET  /api/v1/orders/:id                      订单详情
//	POST /api/v1/orders/:id/cancel               取消订单
//	POST /api/v1/payments/callback               支付回调(管理员Token)
//	/api/v1/admin/...                            管理后台(订单状态、库存)
func New(h Handlers, auth *middleware.AuthMiddleware, logger *zap.Logger, opts Options) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Metrics(),
		gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
			logger.Error("请求处理panic",
				zap.Any("panic", recovered),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString("request_id")),
			)
			response.Error(c, apperrors.ErrInternal)
			c.Abort()
		}),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.EnableSwagger {
		// 访问 http://localhost:8080/swagger/index.html
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		v1.POST("/checkout", h.Order.Checkout)

		cart := v1.Group("/cart")
		{
			cart.GET("", h.Cart.GetCart)
			cart.POST("/items", h.Cart.AddItem)
			cart.GET("/validate", h.Cart.ValidateCart)
			cart.POST("/sync", h.Cart.SyncCart)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", h.Order.ListOrders)
			orders.GET("/:id", h.Order.GetOrder)
			orders.POST("/:id/cancel", h.Order.CancelOrder)
		}

		// 支付网关用服务账号(管理员角色)回调
		v1.POST("/payments/callback", auth.RequireAdmin(), h.Payment.Callback)

		admin := v1.Group("/admin")
		admin.Use(auth.RequireAdmin())
		{
			admin.GET("/orders", h.Order.AdminListOrders)
			admin.GET("/orders/no/:order_no", h.Order.AdminGetOrderByNo)
			admin.GET("/orders/:id", h.Order.AdminGetOrder)
			admin.PUT("/orders/:id/status", h.Order.UpdateOrderStatus)

			inv := admin.Group("/inventory")
			{
				// 静态路径放在参数路径前面,便于阅读;gin本身能区分
				inv.GET("/low-stock", h.Inventory.LowStock)
				inv.GET("/out-of-stock", h.Inventory.OutOfStock)
				inv.GET("/totals", h.Inventory.Totals)
				inv.GET("/:product_id", h.Inventory.GetInventory)
				inv.POST("/:product_id", h.Inventory.CreateInventory)
				inv.POST("/:product_id/stock", h.Inventory.AddStock)
				inv.PUT("/:product_id/stock", h.Inventory.SetStock)
				inv.PUT("/:product_id/reorder-level", h.Inventory.UpdateReorderLevel)
				inv.GET("/:product_id/history", h.Inventory.History)
			}
		}
	}

	return r
}
