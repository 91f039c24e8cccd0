package order

import (
	"context"
	"strings"

	"github.com/xiebiao/storefront/internal/domain/order"
)

// QueryService 订单查询
type QueryService struct {
	orders order.Repository
}

// NewQueryService 创建订单查询服务
func NewQueryService(orders order.Repository) *QueryService {
	return &QueryService{orders: orders}
}

// Get 按ID查询(管理员)
func (q *QueryService) Get(ctx context.Context, orderID uint) (*order.Order, error) {
	return q.orders.FindByID(ctx, orderID)
}

// GetForUser 查询用户自己的订单
// 别人的订单同样返回ErrOrderNotFound,不暴露订单是否存在
func (q *QueryService) GetForUser(ctx context.Context, orderID, userID uint) (*order.Order, error) {
	o, err := q.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// ListForUser 用户的订单列表(分页)
func (q *QueryService) ListForUser(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	return q.orders.ListByUserID(ctx, userID, page, pageSize)
}

// GetByOrderNo 按订单号查询(管理员,客服按买家报的订单号查单)
func (q *QueryService) GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, order.ErrOrderNotFound
	}
	return q.orders.FindByOrderNo(ctx, orderNo)
}

// ListByStatus 按状态列出订单(管理员,分页,新订单在前)
func (q *QueryService) ListByStatus(ctx context.Context, status order.Status, page, pageSize int) ([]*order.Order, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	return q.orders.ListByStatus(ctx, status, page, pageSize)
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
