package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/interface/consumer"
	"github.com/xiebiao/storefront/internal/interface/http/dto"
	"github.com/xiebiao/storefront/pkg/response"
)

// PaymentHandler 支付结果回调
// 和MQ消费者走同一个PaymentHandler.Apply,两个入口的语义一致
type PaymentHandler struct {
	payments *consumer.PaymentHandler
	query    *apporder.QueryService
}

// NewPaymentHandler 创建支付回调处理器
func NewPaymentHandler(payments *consumer.PaymentHandler, query *apporder.QueryService) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		query:    query,
	}
}

// Callback 支付结果回调
// @Summary      支付结果回调
// @Description  PAID会把PENDING订单推进到CONFIRMED;重复回调是幂等的
// @Tags         支付
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PaymentCallbackRequest true "支付结果"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "非法的支付状态流转"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /payments/callback [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req dto.PaymentCallbackRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := order.ParsePaymentStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.payments.Apply(ctx, req.OrderID, status); err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.query.Get(ctx, req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}
