package order

// OrderStatus 订单状态
// 教学要点:
// 1. 使用int类型而非string(节省存储空间,便于索引)
// 2. 状态值1-5递增,正向流转方向与数值方向一致
// 3. String()返回对外的稳定编码(pending/processing/...),用于JSON和日志
type OrderStatus int

const (
	OrderStatusPending    OrderStatus = 1 // 待处理
	OrderStatusProcessing OrderStatus = 2 // 处理中
	OrderStatusShipped    OrderStatus = 3 // 已发货
	OrderStatusDelivered  OrderStatus = 4 // 已送达(终态)
	OrderStatusCancelled  OrderStatus = 5 // 已取消(终态)
)

var orderStatusCodes = map[OrderStatus]string{
	OrderStatusPending:    "pending",
	OrderStatusProcessing: "processing",
	OrderStatusShipped:    "shipped",
	OrderStatusDelivered:  "delivered",
	OrderStatusCancelled:  "cancelled",
}

// String 实现Stringer接口
func (s OrderStatus) String() string {
	if code, ok := orderStatusCodes[s]; ok {
		return code
	}
	return "unknown"
}

// IsValid 是否为已定义的状态
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusCodes[s]
	return ok
}

// IsTerminal 终态不允许再变更
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ParseOrderStatus 解析状态编码
func ParseOrderStatus(code string) (OrderStatus, error) {
	for s, c := range orderStatusCodes {
		if c == code {
			return s, nil
		}
	}
	return 0, ErrInvalidStatus.WithMessagef("未知的订单状态: %q", code)
}

// transitions 合法的状态转换
// 正向可以跳级(管理员可直接把待处理订单标记为已发货),但不能回退;
// 只有待处理、处理中的订单可以取消;已送达、已取消是终态
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionTo 检查是否可以从s转换到target
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// PaymentStatus 支付状态
type PaymentStatus int

const (
	PaymentStatusPending   PaymentStatus = 1 // 待支付
	PaymentStatusCompleted PaymentStatus = 2 // 已支付
	PaymentStatusFailed    PaymentStatus = 3 // 支付失败
	PaymentStatusRefunded  PaymentStatus = 4 // 已退款(只由取消订单产生)
)

var paymentStatusCodes = map[PaymentStatus]string{
	PaymentStatusPending:   "pending",
	PaymentStatusCompleted: "completed",
	PaymentStatusFailed:    "failed",
	PaymentStatusRefunded:  "refunded",
}

func (s PaymentStatus) String() string {
	if code, ok := paymentStatusCodes[s]; ok {
		return code
	}
	return "unknown"
}

// ParsePaymentStatus 解析支付状态编码
func ParsePaymentStatus(code string) (PaymentStatus, error) {
	for s, c := range paymentStatusCodes {
		if c == code {
			return s, nil
		}
	}
	return 0, ErrInvalidStatus.WithMessagef("未知的支付状态: %q", code)
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
)

// IsValid 是否为支持的支付方式
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal:
		return true
	}
	return false
}
