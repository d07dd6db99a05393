// Package metrics 基于Prometheus的业务与HTTP指标
//
// 指标类型速记：
//   - Counter：只增不减（订单创建总数、补偿次数），命名以_total结尾
//   - Gauge：可增可减的瞬时值（正在处理的下单请求数）
//   - Histogram：分布（下单耗时），命名以单位结尾（_seconds）
//
// 所有指标在包初始化时通过promauto注册到默认Registry，
// 由 /metrics 端点（promhttp.Handler）暴露给Prometheus抓取。
//
// 标签只使用有限取值（status、reason、routing_key），不要用user_id、order_no做标签。
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

var (
	// =========================================
	// HTTP请求指标
	// =========================================

	// HTTPRequestsTotal HTTP请求总数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	// =========================================
	// 订单生命周期指标
	// =========================================

	// OrdersCreatedTotal 订单创建成功总数
	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "订单创建成功总数",
		},
	)

	// OrdersFailedTotal 订单创建失败总数，reason见FailureReason
	OrdersFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "订单创建失败总数",
		},
		[]string{"reason"},
	)

	// OrderCreationDuration 订单创建耗时
	OrderCreationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_creation_duration_seconds",
			Help:    "订单创建耗时（秒）",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	// OrdersInProgress 正在处理的下单请求数
	OrdersInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orders_in_progress",
			Help: "正在处理的下单请求数",
		},
	)

	// OrdersCancelledTotal 订单取消总数，by取值 owner | admin
	OrdersCancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "订单取消总数",
		},
		[]string{"by"},
	)

	// OrderStatusTransitionsTotal 订单状态流转次数
	OrderStatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "订单状态流转次数",
		},
		[]string{"from", "to"},
	)

	// PaymentUpdatesTotal 支付回调处理次数，result取值 applied | duplicate | rejected
	PaymentUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_updates_total",
			Help: "支付回调处理次数",
		},
		[]string{"status", "result"},
	)

	// StockCompensationsTotal 下单失败后回补库存的次数（按明细计）
	StockCompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_compensations_total",
			Help: "库存补偿执行总数",
		},
	)

	// StockCompensationFailuresTotal 库存补偿失败次数（需要人工介入）
	StockCompensationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_compensation_failures_total",
			Help: "库存补偿失败总数",
		},
	)

	// RatingRecomputesTotal 图书评分重算次数
	RatingRecomputesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "book_rating_recomputes_total",
			Help: "图书评分重算次数",
		},
	)

	// =========================================
	// 消息事件指标
	// =========================================

	// EventsPublishedTotal 事件发布次数，result取值 success | failure | rejected
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "领域事件发布次数",
		},
		[]string{"routing_key", "result"},
	)

	// EventBreakerState 事件发布熔断器状态（0=CLOSED, 1=HALF_OPEN, 2=OPEN）
	EventBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_breaker_state",
			Help: "事件发布熔断器状态",
		},
		[]string{"name"},
	)

	// MessagesConsumedTotal 消息消费次数
	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费次数",
		},
		[]string{"queue", "result"},
	)
)

// FailureReason 把错误归类为有限的标签值
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperrors.ErrBookNotFound), errors.Is(err, apperrors.ErrOrderNotFound),
		errors.Is(err, apperrors.ErrUserNotFound), errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInvalidParams):
		return "validation"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrInvalidOrderStatus):
		return "invalid_transition"
	default:
		return "internal"
	}
}
