package inventory

import (
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// 库存领域错误定义
//
// 教学要点：
// 1. ErrInsufficientStock是可恢复的业务错误（并发下单抢库存），返回给调用方重试
// 2. ErrInvalidState表示账本不变量被破坏（释放超过预留），只可能是程序缺陷，
//    Ledger会以Error级别记录并计数告警，不做任何自动修正
var (
	ErrInventoryNotFound  = apperrors.New(apperrors.ErrCodeInventoryNotFound, "库存记录不存在")
	ErrInventoryExists    = apperrors.New(apperrors.ErrCodeInventoryAlreadyExists, "库存记录已存在")
	ErrInsufficientStock  = apperrors.New(apperrors.ErrCodeInsufficientStock, "库存不足")
	ErrInvalidState       = apperrors.New(apperrors.ErrCodeInvalidState, "库存账本状态异常")
	ErrStockBelowReserved = apperrors.New(apperrors.ErrCodeStockBelowReserved, "库存不能低于已预留数量")

	// 参数错误
	ErrInvalidProductID = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的商品ID")
	ErrInvalidQuantity  = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)
