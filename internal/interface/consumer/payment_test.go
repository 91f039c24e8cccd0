package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/mq"
)

type fakeUpdater struct {
	calls []order.PaymentStatus
	err   error
}

func (f *fakeUpdater) UpdatePaymentStatus(ctx context.Context, orderID uint, status order.PaymentStatus) (*order.Order, error) {
	f.calls = append(f.calls, status)
	if f.err != nil {
		return nil, f.err
	}
	return &order.Order{ID: orderID, Status: order.StatusConfirmed, PaymentStatus: status}, nil
}

type memoryDeduper struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (d *memoryDeduper) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memoryDeduper) Release(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

func message(body string) mq.Message {
	return mq.Message{ID: "m-1", RoutingKey: "payment.succeeded", Body: []byte(body)}
}

func TestHandle_AppliesPayment(t *testing.T) {
	updater := &fakeUpdater{}
	h := NewPaymentHandler(updater, nil, zaptest.NewLogger(t))

	err := h.Handle(context.Background(), message(`{"order_id": 42, "status": "paid"}`))
	require.NoError(t, err)
	assert.Equal(t, []order.PaymentStatus{order.PaymentPaid}, updater.calls)
}

func TestHandle_MalformedIsPermanent(t *testing.T) {
	h := NewPaymentHandler(&fakeUpdater{}, nil, zaptest.NewLogger(t))

	tests := []string{
		`not json`,
		`{"order_id": 42, "status": "SETTLED"}`,
		`{"status": "PAID"}`,
	}
	for _, body := range tests {
		err := h.Handle(context.Background(), message(body))
		assert.ErrorIs(t, err, mq.ErrPermanent, body)
	}
}

func TestHandle_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"订单不存在", order.ErrOrderNotFound, true},
		{"非法支付流转", order.ErrInvalidPaymentTransition, true},
		{"并发冲突可重试", order.ErrStatusConflict, false},
		{"数据库故障可重试", apperrors.Wrap(errors.New("connection reset"), "查询订单失败"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentHandler(&fakeUpdater{err: tt.err}, nil, zaptest.NewLogger(t))
			err := h.Handle(context.Background(), message(`{"order_id": 1, "status": "PAID"}`))
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.Is(err, mq.ErrPermanent))
		})
	}
}

func TestHandle_Dedup(t *testing.T) {
	updater := &fakeUpdater{}
	dedup := &memoryDeduper{keys: make(map[string]bool)}
	h := NewPaymentHandler(updater, dedup, zaptest.NewLogger(t))
	body := `{"order_id": 1, "status": "PAID", "transaction_id": "tx-1"}`

	require.NoError(t, h.Handle(context.Background(), message(body)))
	require.NoError(t, h.Handle(context.Background(), message(body)))
	assert.Len(t, updater.calls, 1)

	// 可重试的失败会释放去重标记,重新投递时再处理一次
	updater.err = order.ErrStatusConflict
	body2 := `{"order_id": 2, "status": "PAID", "transaction_id": "tx-2"}`
	require.Error(t, h.Handle(context.Background(), message(body2)))
	updater.err = nil
	require.NoError(t, h.Handle(context.Background(), message(body2)))
	assert.Len(t, updater.calls, 3)
}

func TestApply_PermanentKeepsAppError(t *testing.T) {
	h := NewPaymentHandler(&fakeUpdater{err: order.ErrOrderNotFound}, nil, zaptest.NewLogger(t))

	err := h.Apply(context.Background(), 9, order.PaymentPaid)
	require.Error(t, err)
	assert.ErrorIs(t, err, mq.ErrPermanent)
	// HTTP回调入口需要拿到原始业务错误码
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, apperrors.GetAppError(err).Code)
}
