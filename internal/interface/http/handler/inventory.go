package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/interface/http/dto"
	"github.com/xiebiao/storefront/pkg/response"
)

// InventoryHandler 库存管理(管理员)
// 所有写操作都经过Ledger,和结账共用同一套原子更新与变更日志
type InventoryHandler struct {
	ledger *inventory.Ledger
}

// NewInventoryHandler 创建库存处理器
func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// GetInventory 查询库存
// @Summary      查询商品库存
// @Tags         库存管理
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path int true "商品ID"
// @Success      200 {object} response.Response{data=dto.InventoryResponse}
// @Failure      404 {object} response.Response "库存记录不存在"
// @Router       /admin/inventory/{product_id} [get]
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	inv, err := h.ledger.Get(c.Request.Context(), productID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToInventoryResponse(inv))
}

// CreateInventory 建立库存记录
// @Summary      为商品建立库存记录
// @Tags         库存管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path int                        true "商品ID"
// @Param        request    body dto.CreateInventoryRequest true "初始库存"
// @Success      201 {object} response.Response{data=dto.InventoryResponse}
// @Failure      409 {object} response.Response "库存记录已存在"
// @Router       /admin/inventory/{product_id} [post]
func (h *InventoryHandler) CreateInventory(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	var req dto.CreateInventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.ledger.CreateForProduct(c.Request.Context(), productID, req.Quantity, req.ReorderLevel, req.Location)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToInventoryResponse(inv))
}

// AddStock 补货
// @Summary      补货
// @Tags         库存管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path int                    true "商品ID"
// @Param        request    body dto.StockChangeRequest true "补货数量"
// @Success      200 {object} response.Response{data=dto.InventoryResponse}
// @Failure      400 {object} response.Response "数量必须大于0"
// @Router       /admin/inventory/{product_id}/stock [post]
func (h *InventoryHandler) AddStock(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	var req dto.StockChangeRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.ledger.AddStock(c.Request.Context(), productID, req.Quantity, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToInventoryResponse(inv))
}

// SetStock 盘点
// @Summary      盘点(设置实物库存)
// @Description  新库存不能低于已预留数量
// @Tags         库存管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path int                    true "商品ID"
// @Param        request    body dto.StockChangeRequest true "新的实物库存"
// @Success      200 {object} response.Response{data=dto.InventoryResponse}
// @Failure      400 {object} response.Response "低于已预留数量"
// @Router       /admin/inventory/{product_id}/stock [put]
func (h *InventoryHandler) SetStock(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	var req dto.StockChangeRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.ledger.SetStock(c.Request.Context(), productID, req.Quantity, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToInventoryResponse(inv))
}

// UpdateReorderLevel 修改补货阈值
// @Summary      修改补货阈值
// @Tags         库存管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path int                     true "商品ID"
// @Param        request    body dto.ReorderLevelRequest true "补货阈值"
// @Success      200 {object} response.Response{data=dto.InventoryResponse}
// @Router       /admin/inventory/{product_id}/reorder-level [put]
func (h *InventoryHandler) UpdateReorderLevel(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	var req dto.ReorderLevelRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.ledger.UpdateReorderLevel(c.Request.Context(), productID, *req.ReorderLevel)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToInventoryResponse(inv))
}

// History 库存变更记录
// @Summary      库存变更记录
// @Tags         库存管理
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path  int true  "商品ID"
// @Param        page       query int false "页码"     default(1)
// @Param        page_size  query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.ChangeLogResponse}}
// @Router       /admin/inventory/{product_id}/history [get]
func (h *InventoryHandler) History(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	logs, total, err := h.ledger.History(c.Request.Context(), productID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToChangeLogList(logs), total, page, pageSize)
}

// LowStock 低库存列表
// @Summary      低库存商品
// @Tags         库存管理
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]dto.InventoryResponse}
// @Router       /admin/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	list, err := h.ledger.LowStock(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToInventoryList(list))
}

// OutOfStock 无货列表
// @Summary      无货商品
// @Tags         库存管理
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]dto.InventoryResponse}
// @Router       /admin/inventory/out-of-stock [get]
func (h *InventoryHandler) OutOfStock(c *gin.Context) {
	list, err := h.ledger.OutOfStock(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToInventoryList(list))
}

// Totals 库存汇总
// @Summary      库存汇总
// @Tags         库存管理
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.InventoryTotalsResponse}
// @Router       /admin/inventory/totals [get]
func (h *InventoryHandler) Totals(c *gin.Context) {
	totals, err := h.ledger.Totals(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToInventoryTotals(totals))
}
