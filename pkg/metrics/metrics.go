// Package metrics 提供基于Prometheus的指标收集
//
// 指标类型：
//   - Counter：只增不减（结账次数、预留失败次数）
//   - Gauge：可增可减（正在处理的请求数、低库存商品数）
//   - Histogram：观测值分布（结账耗时、Saga耗时）
//
// 命名规范：Counter以_total结尾，Histogram以单位结尾（_seconds），
// 标签只用有限取值的维度（result、method），不要用user_id、order_id。
//
// 使用示例：
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	metrics.IncCounterVec(metrics.CheckoutsTotal, map[string]string{"result": "success"})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initOnce 防止重复注册（并发测试中也可能多处调用InitMetrics）
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板，不是原始URL）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 结账业务指标

	// CheckoutsTotal 结账总数
	// 标签：result（success/cart_empty/validation_failed/insufficient_stock/user_not_found/user_inactive/error）
	CheckoutsTotal *prometheus.CounterVec

	// CheckoutDuration 结账耗时
	CheckoutDuration prometheus.Histogram

	// CheckoutsInProgress 正在处理的结账数
	CheckoutsInProgress prometheus.Gauge

	// OrderTransitionsTotal 订单状态流转次数
	// 标签：from、to、result（success/rejected）
	OrderTransitionsTotal *prometheus.CounterVec

	// 库存账本指标

	// ReservationsTotal 库存操作次数
	// 标签：op（reserve/release/commit/restock/adjust）、result（success/insufficient/invalid_state/error）
	ReservationsTotal *prometheus.CounterVec

	// InvariantViolationsTotal 账本不变量被破坏次数（正常情况下永远为0）
	InvariantViolationsTotal prometheus.Counter

	// LowStockItems 当前低库存商品数
	LowStockItems prometheus.Gauge

	// StalePendingCancelledTotal 超时未支付被回收的订单数
	StalePendingCancelledTotal prometheus.Counter

	// 熔断器指标

	// CircuitBreakerState 熔断器状态
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// Saga指标

	// SagaExecutionsTotal Saga执行总数
	// 标签：result（success/failure）
	SagaExecutionsTotal *prometheus.CounterVec

	// SagaExecutionDuration Saga执行耗时
	SagaExecutionDuration prometheus.Histogram

	// SagaCompensationsTotal Saga补偿执行总数
	SagaCompensationsTotal prometheus.Counter

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数
	// 标签：exchange、routing_key
	MessagesPublishedTotal *prometheus.CounterVec

	// MessagesConsumedTotal 消息消费总数
	// 标签：queue、result（success/failure）
	MessagesConsumedTotal *prometheus.CounterVec

	// MessageProcessingDuration 消息处理耗时
	MessageProcessingDuration prometheus.Histogram
)

// InitMetrics 初始化所有Prometheus指标
//
// 可以重复调用，只有第一次生效。
// 应用层构造函数里都会调用一次，保证单元测试里不需要额外初始化。
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	// HTTP请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	// 结账业务指标
	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "结账总数",
		},
		[]string{"result"},
	)

	CheckoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "checkout_duration_seconds",
			Help: "结账耗时（秒）",
			// 结账包含多次库存预留，比普通请求慢
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	CheckoutsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkouts_in_progress",
			Help: "正在处理的结账数",
		},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "订单状态流转次数",
		},
		[]string{"from", "to", "result"},
	)

	// 库存账本指标
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_operations_total",
			Help: "库存账本操作次数",
		},
		[]string{"op", "result"},
	)

	InvariantViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_invariant_violations_total",
			Help: "库存账本不变量被破坏次数",
		},
	)

	LowStockItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_low_stock_items",
			Help: "当前低库存商品数",
		},
	)

	StalePendingCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_stale_pending_cancelled_total",
			Help: "超时未支付被自动取消的订单数",
		},
	)

	// 熔断器指标
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	// Saga指标
	SagaExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_executions_total",
			Help: "Saga执行总数",
		},
		[]string{"result"},
	)

	SagaExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "saga_execution_duration_seconds",
			Help:    "Saga执行耗时（秒）",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	SagaCompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Saga补偿执行总数",
		},
	)

	// 消息队列指标
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key"},
	)

	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		},
		[]string{"queue", "result"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "消息处理耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)
}

// IncCounter 递增Counter（便捷函数）
func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGauge 设置Gauge值
func SetGauge(gauge prometheus.Gauge, value float64) {
	gauge.Set(value)
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
