package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/storefront/pkg/metrics"
)

var (
	errDown     = errors.New("catalog unavailable")
	errNotFound = errors.New("product not found")
)

// tripAfterTwo 连续2次失败打开,OPEN持续20ms,半开只放行1个请求
func tripAfterTwo(name string) *CircuitBreaker {
	return NewCircuitBreaker(name, Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
	})
}

// TestIsSuccessful_BusinessErrorsDoNotTrip 业务错误原样返回,但不计入失败
func TestIsSuccessful_BusinessErrorsDoNotTrip(t *testing.T) {
	cb := tripAfterTwo("catalog-business")

	for i := 0; i < 5; i++ {
		err := cb.Execute(func() error { return errNotFound })
		assert.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.EqualValues(t, 5, cb.Counts().TotalSuccesses)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errDown })
	}
	assert.Equal(t, StateOpen, cb.State())
}

// TestOpen_RejectsWithoutCalling OPEN时不调用下游,状态回调和指标同步更新
func TestOpen_RejectsWithoutCalling(t *testing.T) {
	cb := tripAfterTwo("catalog-open")

	var mu sync.Mutex
	var changes []string
	cb.SetStateChangeCallback(func(name string, from, to State) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, name+":"+from.String()+"->"+to.String())
	})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errDown })
	}

	called := false
	_, err := Do(cb, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called)

	mu.Lock()
	assert.Equal(t, []string{"catalog-open:CLOSED->OPEN"}, changes)
	mu.Unlock()

	state := metrics.CircuitBreakerState.With(map[string]string{"name": "catalog-open"})
	assert.Equal(t, float64(StateOpen), testutil.ToFloat64(state))
	rejected := metrics.CircuitBreakerRequests.With(map[string]string{"name": "catalog-open", "result": "rejected"})
	assert.Equal(t, float64(1), testutil.ToFloat64(rejected))
}

// TestHalfOpen_SingleTrialRequest 超时后只放行一个试探请求:成功则关闭,失败则重新打开
func TestHalfOpen_SingleTrialRequest(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		cb := tripAfterTwo("catalog-recover")
		for i := 0; i < 2; i++ {
			_ = cb.Execute(func() error { return errDown })
		}
		time.Sleep(30 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		// 第一个请求还没返回时,第二个请求被拒绝
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- cb.Execute(func() error {
				<-release
				return nil
			})
		}()
		require.Eventually(t, func() bool { return cb.Counts().Requests == 1 }, time.Second, time.Millisecond)
		assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrOpenState)

		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("failure reopens", func(t *testing.T) {
		cb := tripAfterTwo("catalog-relapse")
		for i := 0; i < 2; i++ {
			_ = cb.Execute(func() error { return errDown })
		}
		time.Sleep(30 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		assert.ErrorIs(t, cb.Execute(func() error { return errDown }), errDown)
		assert.Equal(t, StateOpen, cb.State())
	})
}
