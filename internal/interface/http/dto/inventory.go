package dto

import (
	"github.com/xiebiao/storefront/internal/domain/inventory"
)

// CreateInventoryRequest 为商品建立库存记录
type CreateInventoryRequest struct {
	Quantity     int    `json:"quantity" binding:"min=0" example:"100"`
	ReorderLevel int    `json:"reorder_level" binding:"min=0" example:"10"`
	Location     string `json:"warehouse_location" binding:"max=100" example:"A-01-03"`
}

// StockChangeRequest 补货或盘点
// 补货时quantity是增量,盘点时quantity是新的实物库存
type StockChangeRequest struct {
	Quantity int    `json:"quantity" binding:"min=0" example:"20"`
	Remark   string `json:"remark" binding:"max=200" example:"供应商到货"`
}

// ReorderLevelRequest 修改补货阈值
// 用指针区分"没传"和"传了0"
type ReorderLevelRequest struct {
	ReorderLevel *int `json:"reorder_level" binding:"required,min=0" example:"10"`
}

// InventoryResponse 库存详情
type InventoryResponse struct {
	ProductID         uint   `json:"product_id" example:"1"`
	QtyAvailable      int    `json:"qty_available" example:"100"`
	QtyReserved       int    `json:"qty_reserved" example:"5"`
	AvailableForSale  int    `json:"available_for_sale" example:"95"`
	ReorderLevel      int    `json:"reorder_level" example:"10"`
	WarehouseLocation string `json:"warehouse_location" example:"A-01-03"`
	IsLowStock        bool   `json:"is_low_stock" example:"false"`
	UpdatedAt         string `json:"updated_at" example:"2024-01-15 10:30:00"`
}

// ChangeLogResponse 库存变更记录
type ChangeLogResponse struct {
	ID             uint   `json:"id" example:"1"`
	OrderID        uint   `json:"order_id,omitempty" example:"1"`
	ChangeType     string `json:"change_type" example:"RESERVE"`
	Quantity       int    `json:"quantity" example:"2"`
	AvailableAfter int    `json:"available_after" example:"100"`
	ReservedAfter  int    `json:"reserved_after" example:"7"`
	Remark         string `json:"remark,omitempty"`
	CreatedAt      string `json:"created_at" example:"2024-01-15 10:30:00"`
}

// InventoryTotalsResponse 库存汇总
type InventoryTotalsResponse struct {
	Products      int64 `json:"products" example:"120"`
	TotalUnits    int64 `json:"total_units" example:"5400"`
	ReservedUnits int64 `json:"reserved_units" example:"37"`
	LowStock      int64 `json:"low_stock" example:"3"`
	OutOfStock    int64 `json:"out_of_stock" example:"1"`
}

// ToInventoryResponse 领域对象转HTTP响应
func ToInventoryResponse(inv *inventory.Inventory) *InventoryResponse {
	return &InventoryResponse{
		ProductID:         inv.ProductID,
		QtyAvailable:      inv.QtyAvailable,
		QtyReserved:       inv.QtyReserved,
		AvailableForSale:  inv.AvailableForSale(),
		ReorderLevel:      inv.ReorderLevel,
		WarehouseLocation: inv.WarehouseLocation,
		IsLowStock:        inv.IsLowStock(),
		UpdatedAt:         inv.UpdatedAt.Format(timeLayout),
	}
}

// ToInventoryList 列表转换
func ToInventoryList(list []*inventory.Inventory) []*InventoryResponse {
	out := make([]*InventoryResponse, len(list))
	for i, inv := range list {
		out[i] = ToInventoryResponse(inv)
	}
	return out
}

// ToChangeLogList 变更记录列表转换
func ToChangeLogList(logs []*inventory.ChangeLog) []ChangeLogResponse {
	out := make([]ChangeLogResponse, len(logs))
	for i, l := range logs {
		out[i] = ChangeLogResponse{
			ID:             l.ID,
			OrderID:        l.OrderID,
			ChangeType:     string(l.ChangeType),
			Quantity:       l.Quantity,
			AvailableAfter: l.AvailableAfter,
			ReservedAfter:  l.ReservedAfter,
			Remark:         l.Remark,
			CreatedAt:      l.CreatedAt.Format(timeLayout),
		}
	}
	return out
}

// ToInventoryTotals 汇总转换
func ToInventoryTotals(t *inventory.Totals) *InventoryTotalsResponse {
	return &InventoryTotalsResponse{
		Products:      t.Products,
		TotalUnits:    t.TotalUnits,
		ReservedUnits: t.ReservedUnits,
		LowStock:      t.LowStock,
		OutOfStock:    t.OutOfStock,
	}
}
