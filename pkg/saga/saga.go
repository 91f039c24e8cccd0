// Package saga 实现通用的Saga事务编排
//
// Saga模式核心思想：
// 1. 将长事务拆分为多个本地短事务
// 2. 每个短事务有对应的补偿操作
// 3. 如果某步失败，按逆序执行已完成步骤的补偿操作
//
// 下单流程中每个库存预留都是独立的原子操作，整个购物车不放进一个大事务，
// 失败时由Saga逆序释放已预留的库存。
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/storefront/pkg/metrics"
)

// Step 表示Saga中的一个步骤
//
// 设计要点：
// 1. Action是正向操作（如创建订单、预留库存）
// 2. Compensate是补偿操作（如删除订单、释放库存）
// 3. 补偿只依赖自己的Action结果（闭包捕获）
type Step struct {
	Name       string                          // 步骤名称（用于日志和调试）
	Action     func(ctx context.Context) error // 正向操作
	Compensate func(ctx context.Context) error // 补偿操作
}

// Saga 表示一个Saga事务
// 一个Saga实例只执行一次，不要在并发请求之间共享
type Saga struct {
	name     string
	steps    []Step        // 所有步骤
	executed []Step        // 已执行的步骤（用于补偿）
	timeout  time.Duration // 整体超时时间
	logger   *zap.Logger
}

// Option Saga可选配置
type Option func(*Saga)

// WithLogger 设置日志（默认zap.NewNop）
func WithLogger(l *zap.Logger) Option {
	return func(s *Saga) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithName 设置Saga名称（出现在日志里）
func WithName(name string) Option {
	return func(s *Saga) {
		s.name = name
	}
}

// NewSaga 创建一个新的Saga事务
//
// 示例：
//
//	s := saga.NewSaga(30*time.Second, saga.WithLogger(logger))
//	s.AddStep("创建订单", createOrder, deleteOrder)
//	s.AddStep("预留库存:SKU-1", reserve, release)
//	err := s.Execute(ctx)
func NewSaga(timeout time.Duration, opts ...Option) *Saga {
	s := &Saga{
		name:    "saga",
		steps:   make([]Step, 0),
		timeout: timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddStep 添加一个Saga步骤
// Action和Compensate都可以为nil（如最后一步通常无需补偿）
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行Saga事务
//
// 执行流程：
// 1. 按顺序执行每个步骤的Action
// 2. 如果某步失败或超时，逆序执行已完成步骤的Compensate
// 3. 返回的错误包裹了失败步骤的原始错误，errors.Is可以识别业务错误
//
// 补偿失败不会中断后续补偿，所有补偿错误与原始错误一起返回
func (s *Saga) Execute(ctx context.Context) error {
	metrics.InitMetrics()
	start := time.Now()
	defer func() {
		metrics.ObserveHistogram(metrics.SagaExecutionDuration, time.Since(start).Seconds())
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			// 补偿使用新Context，避免补偿也因超时失败
			return s.fail(fmt.Errorf("saga超时: %w", err))
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				return s.fail(fmt.Errorf("步骤[%d:%s]执行失败: %w", i, step.Name, err))
			}
		}

		s.executed = append(s.executed, step)
	}

	metrics.IncCounterVec(metrics.SagaExecutionsTotal, map[string]string{"result": "success"})
	return nil
}

func (s *Saga) fail(cause error) error {
	metrics.IncCounterVec(metrics.SagaExecutionsTotal, map[string]string{"result": "failure"})
	s.logger.Warn("saga失败，开始补偿",
		zap.String("saga", s.name),
		zap.Int("executed_steps", len(s.executed)),
		zap.Error(cause),
	)

	if compErr := s.compensate(context.Background()); compErr != nil {
		return errors.Join(cause, compErr)
	}
	return cause
}

// compensate 逆序执行已完成步骤的补偿
// 即使某个Compensate失败，也继续执行后续补偿（尽最大努力）
func (s *Saga) compensate(ctx context.Context) error {
	var errs []error
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}

		metrics.IncCounter(metrics.SagaCompensationsTotal)
		if err := step.Compensate(ctx); err != nil {
			// 补偿失败需要人工介入，记录到ERROR级别日志
			s.logger.Error("补偿失败",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("补偿[%s]失败: %w", step.Name, err))
		}
	}

	s.executed = nil
	return errors.Join(errs...)
}
