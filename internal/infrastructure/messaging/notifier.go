package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/pkg/metrics"
	"github.com/xiebiao/bookmall/pkg/money"
	"github.com/xiebiao/bookmall/pkg/mq"
)

// Notifier 把订单事件转换为给买家的通知
// 目前只写日志,接入邮件/短信网关时替换send即可
type Notifier struct {
	queue  string
	logger *zap.Logger
	send   func(ctx context.Context, userID uint, text string) error
}

// NewNotifier 创建通知处理器
func NewNotifier(queue string, logger *zap.Logger) *Notifier {
	n := &Notifier{queue: queue, logger: logger}
	n.send = n.logNotification
	return n
}

// Handle 实现mq.Handler
// 反序列化失败的消息重投也不会成功,直接Ack丢弃并记录
func (n *Notifier) Handle(ctx context.Context, d mq.Delivery) error {
	var event order.Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		n.logger.Error("订单事件格式错误,丢弃", zap.String("message_id", d.MessageID), zap.Error(err))
		metrics.MessagesConsumedTotal.WithLabelValues(n.queue, "malformed").Inc()
		return nil
	}

	text, ok := notificationText(event)
	if !ok {
		metrics.MessagesConsumedTotal.WithLabelValues(n.queue, "ignored").Inc()
		return nil
	}

	if err := n.send(ctx, event.UserID, text); err != nil {
		metrics.MessagesConsumedTotal.WithLabelValues(n.queue, "failure").Inc()
		return fmt.Errorf("发送通知失败: %w", err)
	}
	metrics.MessagesConsumedTotal.WithLabelValues(n.queue, "success").Inc()
	return nil
}

func (n *Notifier) logNotification(_ context.Context, userID uint, text string) error {
	n.logger.Info("发送订单通知", zap.Uint("user_id", userID), zap.String("text", text))
	return nil
}

// notificationText 生成通知文案,不需要通知的事件返回false
func notificationText(e order.Event) (string, bool) {
	switch e.Type {
	case order.EventCreated:
		return fmt.Sprintf("订单%s已创建,金额%s元", e.OrderNo, money.FormatYuan(e.Total)), true
	case order.EventCancelled:
		if e.PaymentStatus == order.PaymentStatusRefunded.String() {
			return fmt.Sprintf("订单%s已取消,货款将原路退回", e.OrderNo), true
		}
		return fmt.Sprintf("订单%s已取消", e.OrderNo), true
	case order.EventStatusChanged:
		switch e.Status {
		case order.OrderStatusShipped.String():
			return fmt.Sprintf("订单%s已发货", e.OrderNo), true
		case order.OrderStatusDelivered.String():
			return fmt.Sprintf("订单%s已送达,欢迎评价", e.OrderNo), true
		}
		return "", false
	case order.EventPaymentUpdated:
		if e.PaymentStatus == order.PaymentStatusFailed.String() {
			return fmt.Sprintf("订单%s支付失败,请重新支付", e.OrderNo), true
		}
		return "", false
	}
	return "", false
}
