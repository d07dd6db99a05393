package order

import (
	"time"

	"github.com/google/uuid"
)

// 订单事件类型,同时作为消息的routing key
const (
	EventCreated        = "order.created"
	EventCancelled      = "order.cancelled"
	EventStatusChanged  = "order.status_changed"
	EventPaymentUpdated = "order.payment_updated"
)

// Event 订单领域事件
// 事务提交后发布,消费方用EventID去重
type Event struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	OrderID       uint      `json:"order_id"`
	OrderNo       string    `json:"order_no"`
	UserID        uint      `json:"user_id"`
	Status        string    `json:"status"`
	PreviousState string    `json:"previous_status,omitempty"`
	PaymentStatus string    `json:"payment_status"`
	Total         int64     `json:"total"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewEvent 由订单当前状态生成事件
func NewEvent(eventType string, o *Order) Event {
	return Event{
		EventID:       uuid.NewString(),
		Type:          eventType,
		OrderID:       o.ID,
		OrderNo:       o.OrderNo,
		UserID:        o.UserID,
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		Total:         o.Total,
		OccurredAt:    time.Now(),
	}
}

// WithPrevious 记录变更前的订单状态
func (e Event) WithPrevious(from OrderStatus) Event {
	e.PreviousState = from.String()
	return e
}
