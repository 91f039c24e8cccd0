package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegister_InvalidSpec(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	err := s.Register("bad", "not a cron spec", func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestRegister_ValidSpecs(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	noop := func(ctx context.Context) error { return nil }
	assert.NoError(t, s.Register("reconcile", "@every 5m", noop))
	assert.NoError(t, s.Register("cart_sweep", "0 30 3 * * *", noop))
}

func TestRun_PassesDeadline(t *testing.T) {
	s := New(zap.NewNop(), 50*time.Millisecond)
	var hasDeadline bool
	s.Run("job", func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})
	assert.True(t, hasDeadline)
}

func TestRun_RecoversPanicAndError(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	assert.NotPanics(t, func() {
		s.Run("panic", func(ctx context.Context) error { panic("boom") })
	})
	assert.NotPanics(t, func() {
		s.Run("fail", func(ctx context.Context) error { return errors.New("failed") })
	})

	// panic之后running标记已释放
	var ran bool
	s.Run("panic", func(ctx context.Context) error { ran = true; return nil })
	assert.True(t, ran)
}

func TestRun_SkipsOverlapping(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	var count atomic.Int32
	started := make(chan struct{})
	finish := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run("reconcile", func(ctx context.Context) error {
			count.Add(1)
			close(started)
			<-finish
			return nil
		})
	}()

	<-started
	s.Run("reconcile", func(ctx context.Context) error {
		count.Add(1)
		return nil
	})
	close(finish)
	wg.Wait()

	assert.Equal(t, int32(1), count.Load())
}
