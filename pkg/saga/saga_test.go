package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestSaga_Execute_Success 测试所有步骤成功的场景
func TestSaga_Execute_Success(t *testing.T) {
	executed := make([]string, 0)

	s := NewSaga(5*time.Second, WithLogger(zaptest.NewLogger(t)))
	s.AddStep("创建订单",
		func(ctx context.Context) error {
			executed = append(executed, "创建订单")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "删除订单")
			return nil
		},
	)
	s.AddStep("预留库存",
		func(ctx context.Context) error {
			executed = append(executed, "预留库存")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "释放库存")
			return nil
		},
	)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"创建订单", "预留库存"}, executed)
}

// TestSaga_Execute_FailureAndCompensate 测试步骤失败后逆序补偿
func TestSaga_Execute_FailureAndCompensate(t *testing.T) {
	executed := make([]string, 0)
	errOutOfStock := errors.New("库存不足")

	s := NewSaga(5*time.Second, WithName("checkout"))
	s.AddStep("创建订单",
		func(ctx context.Context) error {
			executed = append(executed, "创建订单")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "删除订单")
			return nil
		},
	)
	s.AddStep("预留A",
		func(ctx context.Context) error {
			executed = append(executed, "预留A")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "释放A")
			return nil
		},
	)
	s.AddStep("预留B",
		func(ctx context.Context) error {
			executed = append(executed, "预留B")
			return errOutOfStock
		},
		func(ctx context.Context) error {
			executed = append(executed, "释放B")
			return nil
		},
	)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errOutOfStock)

	// 失败的步骤本身不补偿
	assert.Equal(t, []string{"创建订单", "预留A", "预留B", "释放A", "删除订单"}, executed)
}

// TestSaga_Execute_CompensationFailureContinues 补偿失败也继续执行剩余补偿
func TestSaga_Execute_CompensationFailureContinues(t *testing.T) {
	executed := make([]string, 0)
	errBoom := errors.New("数据库连接断开")
	errStep := errors.New("步骤失败")

	s := NewSaga(0, WithLogger(zaptest.NewLogger(t)))
	s.AddStep("第一步", func(ctx context.Context) error { return nil }, func(ctx context.Context) error {
		executed = append(executed, "补偿第一步")
		return nil
	})
	s.AddStep("第二步", func(ctx context.Context) error { return nil }, func(ctx context.Context) error {
		return errBoom
	})
	s.AddStep("第三步", func(ctx context.Context) error { return errStep }, nil)

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, errStep)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"补偿第一步"}, executed)
}

// TestSaga_Execute_Timeout 测试超时触发补偿
func TestSaga_Execute_Timeout(t *testing.T) {
	executed := make([]string, 0)

	s := NewSaga(100 * time.Millisecond)
	s.AddStep("快速步骤",
		func(ctx context.Context) error {
			executed = append(executed, "快速步骤")
			return nil
		},
		func(ctx context.Context) error {
			// 补偿不受原Context超时影响
			if ctx.Err() != nil {
				return ctx.Err()
			}
			executed = append(executed, "快速步骤补偿")
			return nil
		},
	)
	s.AddStep("慢速步骤",
		func(ctx context.Context) error {
			select {
			case <-time.After(200 * time.Millisecond):
				executed = append(executed, "慢速步骤")
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		nil,
	)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"快速步骤", "快速步骤补偿"}, executed)
}

// TestSaga_NilActionAndCompensate 允许只有补偿或只有动作的步骤
func TestSaga_NilActionAndCompensate(t *testing.T) {
	s := NewSaga(time.Second)
	s.AddStep("只有动作", func(ctx context.Context) error { return nil }, nil)
	s.AddStep("空步骤", nil, nil)

	assert.NoError(t, s.Execute(context.Background()))
}

// BenchmarkSaga_Execute 性能基准测试
func BenchmarkSaga_Execute(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := NewSaga(5 * time.Second)
		s.AddStep("步骤1", func(ctx context.Context) error { return nil }, nil)
		s.AddStep("步骤2", func(ctx context.Context) error { return nil }, nil)
		s.AddStep("步骤3", func(ctx context.Context) error { return nil }, nil)
		_ = s.Execute(context.Background())
	}
}
