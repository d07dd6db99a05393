//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 教学说明：
// 1. internal/app.NewEngine 是手写的依赖组装，本文件用Wire声明同一张依赖图
// 2. 运行 `wire gen ./cmd/api` 生成 wire_gen.go，可以替换手写版本
// 3. 同类型的参数（多个time.Duration、int）Wire无法区分，所以包一层provideXxx从配置读取
// 4. 一个实现满足多个接口时用wire.Bind逐个声明（SessionStore同时是黑名单）

package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/bookmall/internal/app"
	appbook "github.com/xiebiao/bookmall/internal/application/book"
	apporder "github.com/xiebiao/bookmall/internal/application/order"
	appreview "github.com/xiebiao/bookmall/internal/application/review"
	appuser "github.com/xiebiao/bookmall/internal/application/user"
	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
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

// InitializeEngine 组装HTTP引擎，cleanup按逆序关闭MQ、Redis、MySQL
func InitializeEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		handlerSet,
		provideRouterOptions,
		router.New,
	)
	return nil, nil, nil
}

// infrastructureSet 数据库、缓存、消息队列、JWT
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideEventPublisher,
	app.NewJWTManager,
	mysql.NewTxManager,
	redis.NewSessionStore,
	provideOrderCache,
	providePaymentEventStore,
	wire.Bind(new(apporder.Transactor), new(*mysql.TxManager)),
	wire.Bind(new(appreview.Transactor), new(*mysql.TxManager)),
	wire.Bind(new(appuser.SessionStore), new(*redis.SessionStore)),
	wire.Bind(new(middleware.TokenBlacklist), new(*redis.SessionStore)),
	wire.Bind(new(apporder.OrderCache), new(*redis.OrderCache)),
	wire.Bind(new(apporder.PaymentEventStore), new(*redis.PaymentEventStore)),
)

// repositorySet 仓储层
var repositorySet = wire.NewSet(
	mysql.NewUserRepository,
	mysql.NewBookRepository,
	mysql.NewOrderRepository,
	mysql.NewReviewRepository,
	providePurchaseChecker,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	provideUserService,
	book.NewService,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	provideAdminPolicy,
	appuser.NewRegisterUseCase,
	provideLoginUseCase,
	appuser.NewLogoutUseCase,

	appbook.NewPublishBookUseCase,
	appbook.NewGetBookUseCase,
	appbook.NewListBooksUseCase,
	appbook.NewUpdatePriceUseCase,
	appbook.NewManageBookUseCase,

	provideCreateOrderUseCase,
	apporder.NewCancelOrderUseCase,
	apporder.NewUpdateOrderStatusUseCase,
	apporder.NewUpdatePaymentStatusUseCase,
	provideQueryOrderUseCase,

	appreview.NewRecomputeBookRatingUseCase,
	appreview.NewCreateReviewUseCase,
	appreview.NewManageReviewUseCase,
	appreview.NewListReviewsUseCase,
)

// handlerSet HTTP处理器和中间件
var handlerSet = wire.NewSet(
	middleware.NewAuthMiddleware,
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewOrderHandler,
	handler.NewReviewHandler,
	providePaymentHandler,
	wire.Struct(new(router.Handlers), "*"),
)

// =========================================
// Providers
// =========================================

func provideDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideEventPublisher(cfg *config.Config, log *zap.Logger) (apporder.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		return messaging.NewNopPublisher(log), func() {}, nil
	}
	broker, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		return nil, nil, err
	}
	publisher := messaging.NewOrderEventPublisher(broker, cfg.MQ.Breaker, app.PublishTimeout, log)
	return publisher, func() { _ = broker.Close() }, nil
}

func provideOrderCache(client *goredis.Client, cfg *config.Config) *redis.OrderCache {
	return redis.NewOrderCache(client, cfg.Order.CacheTTL)
}

func providePaymentEventStore(client *goredis.Client, cfg *config.Config) *redis.PaymentEventStore {
	return redis.NewPaymentEventStore(client, cfg.Payment.EventTTL)
}

// providePurchaseChecker 购买记录来自订单仓储
func providePurchaseChecker(repo order.Repository) appreview.PurchaseChecker {
	return repo
}

func provideUserService(repo user.Repository, cfg *config.Config) user.Service {
	return user.NewService(repo, user.WithBcryptCost(cfg.Auth.BcryptCost))
}

func provideAdminPolicy(cfg *config.Config) appuser.AdminPolicy {
	return cfg.Auth
}

func provideLoginUseCase(svc user.Service, jwtManager *jwt.Manager, sessions appuser.SessionStore, cfg *config.Config, log *zap.Logger) *appuser.LoginUseCase {
	return appuser.NewLoginUseCase(svc, jwtManager, sessions, cfg.JWT.RefreshTokenExpire, log)
}

func provideCreateOrderUseCase(
	orders order.Repository,
	books book.Repository,
	tx apporder.Transactor,
	cache apporder.OrderCache,
	publisher apporder.EventPublisher,
	cfg *config.Config,
	log *zap.Logger,
) *apporder.CreateOrderUseCase {
	return apporder.NewCreateOrderUseCase(orders, books, tx, cache, publisher, cfg.Order.MaxItems, log)
}

func provideQueryOrderUseCase(orders order.Repository, cache apporder.OrderCache, cfg *config.Config, log *zap.Logger) *apporder.QueryOrderUseCase {
	return apporder.NewQueryOrderUseCase(orders, cache, apporder.Pagination{
		DefaultPageSize: cfg.Order.DefaultPageSize,
		MaxPageSize:     cfg.Order.MaxPageSize,
	}, log)
}

// providePaymentHandler 未启用支付回调时返回nil，路由不注册该接口
func providePaymentHandler(uc *apporder.UpdatePaymentStatusUseCase, cfg *config.Config) *handler.PaymentHandler {
	if !cfg.Payment.WebhookEnabled {
		return nil
	}
	return handler.NewPaymentHandler(uc, cfg.Payment.WebhookSecret)
}

func provideRouterOptions(cfg *config.Config) router.Options {
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
	return opts
}
