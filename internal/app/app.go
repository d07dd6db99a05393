// Package app 组装整个API进程的依赖图
//
// 依赖注入链：Repository ← Service ← UseCase ← Handler ← Router
//
// cmd/api 调用 New 启动服务；集成测试用同一个 New 连接容器里的MySQL和Redis，
// 保证测试的对象图与线上一致。cmd/api/wire.go 用Wire声明了同样的图。
package app

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appbook "github.com/xiebiao/bookmall/internal/application/book"
	apporder "github.com/xiebiao/bookmall/internal/application/order"
	appreview "github.com/xiebiao/bookmall/internal/application/review"
	appuser "github.com/xiebiao/bookmall/internal/application/user"
	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/user"
	"github.com/xiebiao/bookmall/internal/infrastructure/config"
	"github.com/xiebiao/bookmall/internal/infrastructure/messaging"
	"github.com/xiebiao/bookmall/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookmall/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookmall/internal/interface/http/handler"
	"github.com/xiebiao/bookmall/internal/interface/http/middleware"
	"github.com/xiebiao/bookmall/internal/interface/http/router"
	"github.com/xiebiao/bookmall/pkg/jwt"
	"github.com/xiebiao/bookmall/pkg/mq"
)

// PublishTimeout 单条事件的发布超时，超时计入熔断器失败
const PublishTimeout = 3 * time.Second

// App 一个完整的API进程
type App struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Redis  *goredis.Client

	closers []func() error
}

// New 连接存储、消息队列并组装路由
// 任何一步失败都会关闭已经打开的资源
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{DB: db}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	client, err := redis.NewClient(ctx, cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Redis = client
	a.closers = append(a.closers, client.Close)

	publisher := a.newEventPublisher(cfg, log)
	a.Engine = NewEngine(cfg, db, client, publisher, log)
	return a, nil
}

// Close 逆序关闭资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newEventPublisher 消息队列未启用或连接失败时退化为只记日志的发布者
// 订单事件是提交后尽力而为的通知，不应该因为RabbitMQ不可用而拒绝启动
func (a *App) newEventPublisher(cfg *config.Config, log *zap.Logger) apporder.EventPublisher {
	if !cfg.MQ.Enabled {
		return messaging.NewNopPublisher(log)
	}

	broker, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		log.Warn("连接RabbitMQ失败，订单事件只记录日志", zap.Error(err))
		return messaging.NewNopPublisher(log)
	}
	a.closers = append(a.closers, broker.Close)
	return messaging.NewOrderEventPublisher(broker, cfg.MQ.Breaker, PublishTimeout, log)
}

// NewEngine 在已打开的存储之上组装用例、Handler和路由
func NewEngine(cfg *config.Config, db *gorm.DB, client *goredis.Client, publisher apporder.EventPublisher, log *zap.Logger) *gin.Engine {
	// 基础设施层
	userRepo := mysql.NewUserRepository(db)
	bookRepo := mysql.NewBookRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	reviewRepo := mysql.NewReviewRepository(db)
	tx := mysql.NewTxManager(db)

	sessions := redis.NewSessionStore(client)
	orderCache := redis.NewOrderCache(client, cfg.Order.CacheTTL)
	paymentEvents := redis.NewPaymentEventStore(client, cfg.Payment.EventTTL)
	jwtManager := NewJWTManager(cfg)

	// 领域层
	userService := user.NewService(userRepo, user.WithBcryptCost(cfg.Auth.BcryptCost))
	bookService := book.NewService(bookRepo)

	// 应用层
	pagination := apporder.Pagination{
		DefaultPageSize: cfg.Order.DefaultPageSize,
		MaxPageSize:     cfg.Order.MaxPageSize,
	}
	ratings := appreview.NewRecomputeBookRatingUseCase(reviewRepo, bookRepo, log)

	handlers := router.Handlers{
		User: handler.NewUserHandler(
			appuser.NewRegisterUseCase(userService, cfg.Auth, log),
			appuser.NewLoginUseCase(userService, jwtManager, sessions, cfg.JWT.RefreshTokenExpire, log),
			appuser.NewLogoutUseCase(jwtManager, sessions),
		),
		Book: handler.NewBookHandler(
			appbook.NewPublishBookUseCase(bookService, log),
			appbook.NewGetBookUseCase(bookService),
			appbook.NewListBooksUseCase(bookService),
			appbook.NewUpdatePriceUseCase(bookService, log),
			appbook.NewManageBookUseCase(bookService, log),
		),
		Order: handler.NewOrderHandler(
			apporder.NewCreateOrderUseCase(orderRepo, bookRepo, tx, orderCache, publisher, cfg.Order.MaxItems, log),
			apporder.NewCancelOrderUseCase(orderRepo, bookRepo, tx, orderCache, publisher, log),
			apporder.NewUpdateOrderStatusUseCase(orderRepo, bookRepo, tx, orderCache, publisher, log),
			apporder.NewQueryOrderUseCase(orderRepo, orderCache, pagination, log),
		),
		Review: handler.NewReviewHandler(
			appreview.NewCreateReviewUseCase(reviewRepo, bookRepo, orderRepo, tx, ratings, log),
			appreview.NewManageReviewUseCase(reviewRepo, tx, ratings, log),
			appreview.NewListReviewsUseCase(reviewRepo, bookRepo),
			ratings,
		),
	}
	if cfg.Payment.WebhookEnabled {
		handlers.Payment = handler.NewPaymentHandler(
			apporder.NewUpdatePaymentStatusUseCase(orderRepo, tx, paymentEvents, orderCache, publisher, log),
			cfg.Payment.WebhookSecret,
		)
	}

	opts := router.Options{
		Mode:        cfg.Server.Mode,
		ServiceName: cfg.Tracing.ServiceName,
		Tracing:     cfg.Tracing.Enabled,
		Metrics:     cfg.Metrics.Enabled,
		MetricsPath: cfg.Metrics.Path,
		Swagger:     cfg.Server.Mode != gin.ReleaseMode,
	}
	if cfg.Limit.Enabled {
		opts.Limiter = middleware.NewRateLimiter(cfg.Limit.RPS, cfg.Limit.Burst)
	}
	return router.New(handlers, middleware.NewAuthMiddleware(jwtManager, sessions), opts, log)
}

// NewJWTManager 从配置创建JWT管理器
func NewJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}
