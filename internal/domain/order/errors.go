package order

import (
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.New(apperrors.ErrCodeOrderNotFound, "订单不存在")

	// ErrInvalidTransition 非法的状态流转(调用方可纠正的错误,不是系统故障)
	ErrInvalidTransition = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "订单状态不允许此操作")

	// ErrInvalidPaymentTransition 非法的支付状态流转
	ErrInvalidPaymentTransition = apperrors.New(apperrors.ErrCodeInvalidPaymentStatus, "支付状态不允许此操作")

	// ErrOrderNotCancellable 只有待确认/已确认的订单可以取消
	ErrOrderNotCancellable = apperrors.New(apperrors.ErrCodeOrderNotCancellable, "订单当前状态不可取消")

	// ErrStatusConflict 状态已被并发请求修改(CAS失败)
	ErrStatusConflict = apperrors.New(apperrors.ErrCodeOrderStatusConflict, "订单状态已变化,请刷新后重试")

	// ErrUnknownStatus 无法识别的状态名
	ErrUnknownStatus = apperrors.New(apperrors.ErrCodeInvalidParams, "未知的订单状态")

	// ErrOrderNoGenerate 订单号生成失败
	ErrOrderNoGenerate = apperrors.New(apperrors.ErrCodeInternal, "订单号生成失败")

	// ErrInvalidOrderItems 订单明细不合法
	ErrInvalidOrderItems = apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空")
)
