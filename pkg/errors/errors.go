package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误或细节，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较
// 带细节的错误（WithDetail）与预定义哨兵错误码相同，errors.Is仍然成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithDetail 在预定义错误上附加细节
//
//	return apperrors.WithDetail(inventory.ErrInsufficientStock, "product=%d want=%d", id, qty)
func WithDetail(base *AppError, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    base.Code,
		Message: base.Message,
		Err:     fmt.Errorf(format, args...),
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败、账本不变量被破坏）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeInvalidState  = 50003 // 库存账本状态异常（程序缺陷）
	ErrCodeUnavailable   = 50004 // 依赖服务不可用（熔断）

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized = 40100 // 未登录
	ErrCodeInvalidToken = 40101 // Token无效
	ErrCodeTokenExpired = 40102 // Token过期
	ErrCodeForbidden    = 40104 // 无权限

	// 资源错误（40400-40499）
	ErrCodeNotFound          = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound      = 40401 // 用户不存在
	ErrCodeProductNotFound   = 40402 // 商品不存在
	ErrCodeOrderNotFound     = 40403 // 订单不存在
	ErrCodeInventoryNotFound = 40404 // 库存记录不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError          = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock      = 40001 // 库存不足
	ErrCodeInvalidOrderStatus     = 40002 // 订单状态流转非法
	ErrCodeInvalidPaymentStatus   = 40003 // 支付状态流转非法
	ErrCodeOrderNotCancellable    = 40004 // 订单当前状态不可取消
	ErrCodeOrderStatusConflict    = 40005 // 订单状态已被并发修改
	ErrCodeCartEmpty              = 40006 // 购物车为空
	ErrCodeCartValidationFailed   = 40007 // 购物车校验失败
	ErrCodeUserInactive           = 40008 // 用户已停用
	ErrCodeDuplicateEntry         = 40009 // 重复记录(通用)
	ErrCodeProductInactive        = 40010 // 商品已下架
	ErrCodeStockBelowReserved     = 40011 // 库存不能低于已预留数量
	ErrCodeInventoryAlreadyExists = 40012 // 库存记录已存在

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")
	ErrUnavailable   = New(ErrCodeUnavailable, "依赖服务暂不可用，请稍后重试")

	// 认证授权
	ErrUnauthorized = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "Token已过期")
	ErrForbidden    = New(ErrCodeForbidden, "无权限访问")

	// 资源不存在
	ErrNotFound = New(ErrCodeNotFound, "资源不存在")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// HTTPStatus 业务错误码 → HTTP状态码
func HTTPStatus(code int) int {
	switch {
	case code == ErrCodeInsufficientStock,
		code == ErrCodeCartValidationFailed,
		code == ErrCodeOrderStatusConflict,
		code == ErrCodeDuplicateEntry,
		code == ErrCodeInventoryAlreadyExists:
		return http.StatusConflict
	case code == ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case code >= 50000:
		return http.StatusInternalServerError
	case code == ErrCodeForbidden:
		return http.StatusForbidden
	case code >= 40100 && code < 40200:
		return http.StatusUnauthorized
	case code >= 40400 && code < 40500:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
