package order

import "strings"

// Status 订单状态
// 教学要点:
// 1. 使用int存储(节省空间,便于索引),String()输出大写英文便于日志和接口
// 2. 合法流转定义为数据(transitions表),不要散落在if-else里
type Status int

const (
	StatusPending    Status = 1 // 待确认(初始状态)
	StatusConfirmed  Status = 2 // 已确认(已支付)
	StatusProcessing Status = 3 // 备货中
	StatusShipped    Status = 4 // 已发货
	StatusDelivered  Status = 5 // 已送达
	StatusCancelled  Status = 6 // 已取消(终态)
	StatusRefunded   Status = 7 // 已退款(终态)
)

var statusNames = map[Status]string{
	StatusPending:    "PENDING",
	StatusConfirmed:  "CONFIRMED",
	StatusProcessing: "PROCESSING",
	StatusShipped:    "SHIPPED",
	StatusDelivered:  "DELIVERED",
	StatusCancelled:  "CANCELLED",
	StatusRefunded:   "REFUNDED",
}

// String 实现Stringer接口
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseStatus 解析状态名(大小写不敏感)
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == upper {
			return s, nil
		}
	}
	return 0, ErrUnknownStatus
}

// transitions 订单状态流转表
// 不在表中的目标(包括自己到自己)一律非法
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// CanTransition 检查from→to是否合法
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions 当前状态可流转到的目标
func AllowedTransitions(from Status) []Status {
	out := make([]Status, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// IsTerminal 是否终态
func (s Status) IsTerminal() bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

// IsCancellable 只有待确认和已确认的订单可以由用户取消
func (s Status) IsCancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// PaymentStatus 支付状态
type PaymentStatus int

const (
	PaymentPending           PaymentStatus = 1
	PaymentPaid              PaymentStatus = 2
	PaymentFailed            PaymentStatus = 3
	PaymentRefunded          PaymentStatus = 4
	PaymentPartiallyRefunded PaymentStatus = 5
)

var paymentNames = map[PaymentStatus]string{
	PaymentPending:           "PENDING",
	PaymentPaid:              "PAID",
	PaymentFailed:            "FAILED",
	PaymentRefunded:          "REFUNDED",
	PaymentPartiallyRefunded: "PARTIALLY_REFUNDED",
}

func (s PaymentStatus) String() string {
	if name, ok := paymentNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParsePaymentStatus 解析支付状态名(大小写不敏感)
func ParsePaymentStatus(name string) (PaymentStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range paymentNames {
		if n == upper {
			return s, nil
		}
	}
	return 0, ErrUnknownStatus
}

// paymentTransitions 支付状态流转表
// 失败后允许重新支付;部分退款可以多次发生
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:           {PaymentPaid, PaymentFailed},
	PaymentFailed:            {PaymentPaid, PaymentPending},
	PaymentPaid:              {PaymentRefunded, PaymentPartiallyRefunded},
	PaymentPartiallyRefunded: {PaymentRefunded, PaymentPartiallyRefunded},
	PaymentRefunded:          {},
}

// CanTransitionPayment 检查支付状态from→to是否合法
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
