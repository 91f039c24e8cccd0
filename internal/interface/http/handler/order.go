package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/interface/http/dto"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/pkg/response"
)

// OrderHandler 订单HTTP处理器(买家)
type OrderHandler struct {
	checkout  *apporder.CreateOrderUseCase
	lifecycle *apporder.LifecycleService
	query     *apporder.QueryService
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	checkout *apporder.CreateOrderUseCase,
	lifecycle *apporder.LifecycleService,
	query *apporder.QueryService,
) *OrderHandler {
	return &OrderHandler{
		checkout:  checkout,
		lifecycle: lifecycle,
		query:     query,
	}
}

// Checkout 结账
// @Summary      结账
// @Description  把当前购物车转成订单:校验购物车、冻结价格、逐行预留库存,任何一步失败全部回滚
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CheckoutRequest true "收货信息"
// @Success      201 {object} response.Response{data=dto.OrderResponse} "下单成功"
// @Failure      400 {object} response.Response "参数错误或购物车为空"
// @Failure      401 {object} response.Response "未登录"
// @Failure      409 {object} response.Response "库存不足或购物车校验失败"
// @Router       /checkout [post]
//
// 教学说明:防超卖
// 购物车校验只是提前告知,真正的保证在库存预留的条件更新:
//
//	UPDATE inventory SET qty_reserved = qty_reserved + ?
//	WHERE product_id = ? AND qty_available - qty_reserved >= ?
//
// 影响行数为0就是库存不足,两个并发结账不可能同时抢到最后一件
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.checkout.Execute(c.Request.Context(), apporder.CreateOrderRequest{
		UserID:          middleware.MustGetUserID(c),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToOrderResponse(o))
}

// ListOrders 我的订单
// @Summary      我的订单列表
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码"     default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.OrderListItem}}
// @Failure      401 {object} response.Response "未登录"
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := pageParams(c)
	orders, total, err := h.query.ListForUser(c.Request.Context(), middleware.MustGetUserID(c), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToOrderListItems(orders), total, page, pageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.query.GetForUser(c.Request.Context(), id, middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// CancelOrder 取消订单
// @Summary      取消订单
// @Description  只有PENDING和CONFIRMED状态可以由买家取消,取消后预留的库存立即释放
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "当前状态不可取消"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// 先确认订单归属,别人的订单按不存在处理
	if _, err := h.query.GetForUser(ctx, id, middleware.MustGetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.lifecycle.Cancel(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// AdminGetOrder 订单详情(管理员,不校验归属)
// @Summary      订单详情(管理员)
// @Tags         管理后台
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /admin/orders/{id} [get]
func (h *OrderHandler) AdminGetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.query.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// AdminListOrders 按状态查询订单(管理员)
// @Summary      按状态查询订单
// @Description  运营盯PENDING积压或待发货订单用,新订单在前
// @Tags         管理后台
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string true  "订单状态,如PENDING"
// @Param        page      query int    false "页码"     default(1)
// @Param        page_size query int    false "每页数量" default(20)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.OrderListItem}}
// @Failure      400 {object} response.Response "未知的订单状态"
// @Failure      403 {object} response.Response "无权限"
// @Router       /admin/orders [get]
func (h *OrderHandler) AdminListOrders(c *gin.Context) {
	status, err := order.ParseStatus(c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := pageParams(c)
	orders, total, err := h.query.ListByStatus(c.Request.Context(), status, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToOrderListItems(orders), total, page, pageSize)
}

// AdminGetOrderByNo 按订单号查询(管理员)
// @Summary      按订单号查询订单
// @Tags         管理后台
// @Produce      json
// @Security     BearerAuth
// @Param        order_no path string true "订单号"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /admin/orders/no/{order_no} [get]
func (h *OrderHandler) AdminGetOrderByNo(c *gin.Context) {
	o, err := h.query.GetByOrderNo(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// UpdateOrderStatus 修改订单状态(管理员)
// @Summary      修改订单状态
// @Description  按状态机流转:CANCELLED释放预留,DELIVERED扣减库存,REFUNDED触发退款钩子
// @Tags         管理后台
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                          true "订单ID"
// @Param        request body dto.UpdateOrderStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "非法的状态流转"
// @Failure      409 {object} response.Response "订单已被并发修改"
// @Router       /admin/orders/{id}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := order.ParseStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.lifecycle.UpdateStatus(c.Request.Context(), id, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}
