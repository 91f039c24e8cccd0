package handler

import (
	"github.com/gin-gonic/gin"

	appcart "github.com/xiebiao/storefront/internal/application/cart"
	"github.com/xiebiao/storefront/internal/interface/http/dto"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/pkg/response"
)

// CartHandler 购物车HTTP处理器
type CartHandler struct {
	validator *appcart.Validator
	addItem   *appcart.AddItemUseCase
}

// NewCartHandler 创建购物车处理器
func NewCartHandler(validator *appcart.Validator, addItem *appcart.AddItemUseCase) *CartHandler {
	return &CartHandler{
		validator: validator,
		addItem:   addItem,
	}
}

// GetCart 查看购物车
// @Summary      查看购物车
// @Description  每行附带实时价格、可售数量和问题标记
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.CartResponse}
// @Router       /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	snap, err := h.validator.Snapshot(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToCartResponse(snap))
}

// AddItem 加入购物车
// @Summary      加入购物车
// @Description  同一商品重复加入时数量累加;已下架的商品不能加入
// @Tags         购物车
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AddCartItemRequest true "商品和数量"
// @Success      201 {object} response.Response
// @Failure      400 {object} response.Response "参数错误或商品已下架"
// @Failure      404 {object} response.Response "商品不存在"
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.addItem.Execute(c.Request.Context(), appcart.AddItemRequest{
		UserID:    middleware.MustGetUserID(c),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"item_id":    item.ID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
}

// ValidateCart 结账前校验
// @Summary      结账前校验购物车
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.CartValidationResponse}
// @Router       /cart/validate [get]
func (h *CartHandler) ValidateCart(c *gin.Context) {
	snap, err := h.validator.Snapshot(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToCartValidationResponse(snap))
}

// SyncCart 按当前库存修正购物车
// @Summary      同步购物车
// @Description  无货或下架的条目删除,数量超过可售的条目改为可售数量
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.CartSyncResponse}
// @Router       /cart/sync [post]
func (h *CartHandler) SyncCart(c *gin.Context) {
	adjustments, err := h.validator.SyncWithInventory(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if adjustments == nil {
		adjustments = []appcart.Adjustment{}
	}
	response.Success(c, dto.CartSyncResponse{Adjustments: adjustments})
}
