// Package messaging 把订单领域事件投递到消息队列
//
// 事件在事务提交之后发布(尽力而为):发布失败只记日志和指标,不影响已经提交的订单。
// 消息队列故障时熔断器打开,后续请求直接跳过发布,不会因为等待超时拖慢下单接口。
package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/infrastructure/config"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/metrics"
)

// Broker 消息发布能力,*mq.Publisher实现了它
type Broker interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

const breakerName = "order-events"

// OrderEventPublisher 带熔断的订单事件发布者
type OrderEventPublisher struct {
	broker  Broker
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewOrderEventPublisher 创建事件发布者
// 熔断条件:统计周期内请求数>=MinRequests且失败率>=FailureRatio
func NewOrderEventPublisher(broker Broker, cfg config.BreakerConfig, timeout time.Duration, logger *zap.Logger) *OrderEventPublisher {
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.EventBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("事件发布熔断器状态变化",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	metrics.EventBreakerState.WithLabelValues(breakerName).Set(float64(gobreaker.StateClosed))

	return &OrderEventPublisher{
		broker:  broker,
		breaker: gobreaker.NewCircuitBreaker(settings),
		timeout: timeout,
		logger:  logger,
	}
}

// Publish 发布订单事件,routing key即事件类型
func (p *OrderEventPublisher) Publish(ctx context.Context, event order.Event) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return nil, p.broker.Publish(pubCtx, event.Type, event)
	})

	switch {
	case err == nil:
		metrics.EventsPublishedTotal.WithLabelValues(event.Type, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EventsPublishedTotal.WithLabelValues(event.Type, "rejected").Inc()
	default:
		metrics.EventsPublishedTotal.WithLabelValues(event.Type, "failure").Inc()
	}
	return apperrors.WrapCode(err, apperrors.ErrCodeMQError, "发布订单事件失败")
}

// State 熔断器当前状态
func (p *OrderEventPublisher) State() gobreaker.State {
	return p.breaker.State()
}

// NopPublisher 未启用消息队列时使用,只打印调试日志
type NopPublisher struct {
	logger *zap.Logger
}

// NewNopPublisher 创建空发布者
func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(_ context.Context, event order.Event) error {
	p.logger.Debug("消息队列未启用,跳过事件",
		zap.String("type", event.Type),
		zap.String("order_no", event.OrderNo),
	)
	return nil
}
