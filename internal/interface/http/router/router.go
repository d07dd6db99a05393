// Package router 组装Gin路由
//
// 路由分组：
//   - 公开：注册、登录、图书浏览、评论列表、支付回调（靠签名而不是Token认证）
//   - 登录：下单、我的订单、取消、评论、调价
//   - 管理员：订单管理、评论审核、评分重算
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/interface/http/handler"
	"github.com/xiebiao/bookmall/internal/interface/http/middleware"
	"github.com/xiebiao/bookmall/pkg/response"
)

// Handlers 各业务处理器；Payment为nil时不注册支付回调
type Handlers struct {
	User    *handler.UserHandler
	Book    *handler.BookHandler
	Order   *handler.OrderHandler
	Review  *handler.ReviewHandler
	Payment *handler.PaymentHandler
}

// Options 可选能力开关
type Options struct {
	Mode        string // debug | release | test
	ServiceName string // 启用追踪时作为Tracer名
	Tracing     bool
	Metrics     bool
	MetricsPath string
	Swagger     bool
	// Limiter 保护注册、登录和支付回调，nil表示不限流
	Limiter *middleware.RateLimiter
}

// New 创建Gin引擎并注册全部路由
//
// 中间件顺序：
//  1. Recovery：最外层，任何panic都能被捕获
//  2. RequestID：后面的日志、追踪都需要它
//  3. Tracing：创建Server Span，用例中的Span挂在它下面
//  4. Metrics、AccessLog：在c.Next()之后读取状态码和耗时
func New(h Handlers, auth *middleware.AuthMiddleware, opts Options, log *zap.Logger) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestID())
	if opts.Tracing {
		r.Use(middleware.Tracing(opts.ServiceName))
	}
	if opts.Metrics {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.AccessLog(log))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})
	if opts.Metrics {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	requireAuth := auth.RequireAuth()
	requireAdmin := auth.RequireAdmin()
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.Limiter != nil {
		limit = opts.Limiter.Middleware()
	}

	users := v1.Group("/users")
	{
		users.POST("/register", limit, h.User.Register)
		users.POST("/login", limit, h.User.Login)
		users.POST("/logout", requireAuth, h.User.Logout)
	}

	books := v1.Group("/books")
	{
		books.GET("", h.Book.ListBooks)
		books.GET("/:id", h.Book.GetBook)
		books.POST("", requireAuth, h.Book.PublishBook)
		books.PUT("/:id", requireAuth, h.Book.UpdateInfo)
		books.DELETE("/:id", requireAuth, h.Book.DeleteBook)
		books.PUT("/:id/price", requireAuth, h.Book.UpdatePrice)

		books.GET("/:id/reviews", auth.OptionalAuth(), h.Review.ListReviews)
		books.POST("/:id/reviews", requireAuth, h.Review.CreateReview)
		books.POST("/:id/ratings/recompute", requireAuth, requireAdmin, h.Review.RecomputeRatings)
	}

	reviews := v1.Group("/reviews", requireAuth)
	{
		reviews.PUT("/:id", h.Review.UpdateReview)
		reviews.DELETE("/:id", h.Review.DeleteReview)
		reviews.POST("/:id/like", h.Review.ToggleLike)
		reviews.PATCH("/:id/visibility", requireAdmin, h.Review.SetVisibility)
	}

	orders := v1.Group("/orders", requireAuth)
	{
		orders.POST("", h.Order.CreateOrder)
		orders.GET("", h.Order.ListMyOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
	}

	admin := v1.Group("/admin", requireAuth, requireAdmin)
	{
		admin.GET("/orders", h.Order.ListAllOrders)
		admin.PATCH("/orders/:id/status", h.Order.UpdateOrderStatus)
	}

	if h.Payment != nil {
		v1.POST("/payments/webhook", limit, h.Payment.Webhook)
	}

	return r
}
