// Package scheduler 后台定时任务
//
// 基于robfig/cron（6段表达式，第一段是秒）：
//
//	@every 5m        每5分钟
//	0 30 3 * * *     每天03:30:00
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// Job 定时任务函数
type Job func(ctx context.Context) error

// Scheduler 定时任务调度器
// 设计说明：
// 1. 每次执行都带超时context，任务卡死不会无限占用goroutine
// 2. 同一个任务上一次还没跑完时跳过本次（避免两次对账并发）
// 3. panic被recover并记日志，不影响其他任务
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// New 创建调度器，timeout是单次任务的最长执行时间
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		timeout: timeout,
		running: make(map[string]bool),
	}
}

// Register 注册任务
func (s *Scheduler) Register(name, spec string, job Job) error {
	if err := s.cron.AddFunc(spec, func() { s.Run(name, job) }); err != nil {
		return fmt.Errorf("注册定时任务%s失败(spec=%q): %w", name, spec, err)
	}
	s.logger.Info("定时任务已注册", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Run 立即执行一次任务（cron触发和手动触发都走这里）
func (s *Scheduler) Run(name string, job Job) {
	if !s.acquire(name) {
		s.logger.Warn("上一次执行尚未结束，跳过", zap.String("job", name))
		return
	}
	defer s.release(name)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("定时任务panic", zap.String("job", name), zap.Any("panic", r))
		}
	}()

	if err := job(ctx); err != nil {
		s.logger.Error("定时任务执行失败",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("定时任务执行完成", zap.String("job", name), zap.Duration("duration", time.Since(start)))
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度，已经在执行的任务不会被打断
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}
