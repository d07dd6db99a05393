package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/pkg/logger"
	"github.com/xiebiao/bookmall/pkg/metrics"
	"github.com/xiebiao/bookmall/pkg/saga"
	"github.com/xiebiao/bookmall/pkg/tracing"
)

// CreateOrderUseCase 创建订单用例
// 教学要点:这是整个项目最核心的用例
// 涉及:下单前的完整校验、原子条件扣减库存、失败补偿、事务、事件
type CreateOrderUseCase struct {
	orderRepo order.Repository
	bookRepo  book.Repository
	tx        Transactor
	after     afterCommit
	maxItems  int
	log       *zap.Logger
}

// NewCreateOrderUseCase 创建下单用例,maxItems<=0表示不限制明细条数
func NewCreateOrderUseCase(
	orderRepo order.Repository,
	bookRepo book.Repository,
	tx Transactor,
	cache OrderCache,
	publisher EventPublisher,
	maxItems int,
	log *zap.Logger,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo: orderRepo,
		bookRepo:  bookRepo,
		tx:        tx,
		after:     afterCommit{cache: cache, publisher: publisher, log: log},
		maxItems:  maxItems,
		log:       log,
	}
}

// CreateOrderRequest 下单请求DTO
type CreateOrderRequest struct {
	UserID          uint // 买家用户ID(从JWT中提取)
	Items           []CreateOrderItem
	ShippingAddress order.ShippingAddress
	PaymentMethod   string
	Notes           string
	IsGift          bool
	GiftMessage     string
}

// CreateOrderItem 订单明细项,单价由服务端按图书当前价格确定
type CreateOrderItem struct {
	BookID   uint
	Quantity int
}

// Execute 执行下单用例
//
// 核心问题:库存超卖
// 场景:商品库存10个,100人同时下单
// 错误实现:查询库存 → 判断够不够 → stock = 查到的值 - 1,100个请求都能通过判断
//
// 本实现:
//  1. 事务外完成全部校验(数量、图书存在、库存充足、地址、支付方式),任何一项失败都不改动数据
//  2. 价格快照:折扣价优先,否则原价
//  3. 事务内逐本 UPDATE ... WHERE stock >= ? 原子扣减,库存在校验后被别人买走时这里失败
//  4. 扣减由Saga编排,某一步失败时逆序归还已扣减的库存,再由事务回滚兜底
//  5. 提交后发布order.created事件
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*OrderView, error) {
	start := time.Now()
	metrics.OrdersInProgress.Inc()
	defer metrics.OrdersInProgress.Dec()

	ctx, span := tracing.StartSpan(ctx, "order", "CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", int64(req.UserID)),
		attribute.Int("item_count", len(req.Items)),
	)
	log := logger.WithContext(ctx, uc.log)

	o, err := uc.create(ctx, req)
	if err != nil {
		metrics.OrdersFailedTotal.WithLabelValues(metrics.FailureReason(err)).Inc()
		tracing.RecordError(span, err)
		log.Info("下单失败", zap.Uint("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	metrics.OrdersCreatedTotal.Inc()
	metrics.OrderCreationDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("order_no", o.OrderNo))
	log.Info("订单创建成功",
		zap.String("order_no", o.OrderNo),
		zap.Uint("user_id", o.UserID),
		zap.Int64("total", o.Total),
	)

	uc.after.run(ctx, o, order.NewEvent(order.EventCreated, o))
	return NewOrderView(o), nil
}

func (uc *CreateOrderUseCase) create(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	// ========================================
	// 步骤1:明细校验与合并
	// ========================================
	lines, err := uc.mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	// ========================================
	// 步骤2:图书存在性、库存预检、价格快照
	// ========================================
	ids := make([]uint, len(lines))
	for i, l := range lines {
		ids[i] = l.BookID
	}
	books, err := uc.bookRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]order.OrderItem, len(lines))
	for i, l := range lines {
		b, ok := books[l.BookID]
		if !ok {
			return nil, book.ErrBookNotFound.WithMessagef("图书(ID=%d)不存在", l.BookID)
		}
		if b.Stock < l.Quantity {
			return nil, book.ErrInsufficientStock.WithMessagef("《%s》库存不足,当前库存%d,需要%d", b.Title, b.Stock, l.Quantity)
		}
		// 使用服务端价格而非前端传递的价格,防止改价攻击
		items[i] = order.OrderItem{
			BookID:   b.ID,
			Title:    b.Title,
			Quantity: l.Quantity,
			Price:    b.EffectivePrice(),
		}
	}

	o, err := order.NewOrder(order.GenerateOrderNo(), req.UserID, items, req.ShippingAddress, order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		return nil, err
	}
	o.Notes = req.Notes
	if req.IsGift {
		o.SetGift(req.GiftMessage)
	}

	// ========================================
	// 步骤3:事务内扣减库存并保存订单
	// ========================================
	err = uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		s := saga.NewSaga("create-order", saga.WithLogger(logger.WithContext(ctx, uc.log)))
		for _, item := range o.Items {
			bookID, title, qty := item.BookID, item.Title, item.Quantity
			s.AddStep(fmt.Sprintf("decrement-stock-%d", bookID),
				func(ctx context.Context) error {
					return decrementError(uc.bookRepo.DecrementStock(ctx, bookID, qty), bookID, title, qty)
				},
				func(ctx context.Context) error {
					if err := uc.bookRepo.IncrementStock(ctx, bookID, qty); err != nil {
						return err
					}
					metrics.StockCompensationsTotal.Inc()
					return nil
				},
			)
		}
		s.AddStep("save-order",
			func(ctx context.Context) error { return uc.orderRepo.Create(ctx, o) },
			nil,
		)
		return s.Execute(txCtx)
	})
	if err != nil {
		return nil, uc.unwrapSagaError(ctx, err)
	}
	return o, nil
}

// mergeItems 校验数量,并把同一本书的多行合并(保持首次出现的顺序)
func (uc *CreateOrderUseCase) mergeItems(items []CreateOrderItem) ([]CreateOrderItem, error) {
	if len(items) == 0 {
		return nil, order.ErrInvalidOrderItems
	}

	merged := make([]CreateOrderItem, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, order.ErrInvalidQuantity
		}
		if i, ok := index[item.BookID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.BookID] = len(merged)
		merged = append(merged, item)
	}

	if uc.maxItems > 0 && len(merged) > uc.maxItems {
		return nil, order.ErrTooManyItems.WithMessagef("每个订单最多%d种图书", uc.maxItems)
	}
	return merged, nil
}

// decrementError 预检之后库存被别的订单买走,错误里同样带上书名和ID
// 其他错误(数据库故障等)原样返回,不会被当成库存不足
func decrementError(err error, bookID uint, title string, qty int) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, book.ErrInsufficientStock):
		return book.ErrInsufficientStock.WithMessagef("《%s》(ID=%d)库存不足,需要%d", title, bookID, qty)
	case errors.Is(err, book.ErrBookNotFound):
		return book.ErrBookNotFound.WithMessagef("《%s》(ID=%d)已下架", title, bookID)
	default:
		return err
	}
}

// unwrapSagaError 对外返回步骤的原始业务错误(库存不足等),补偿失败单独告警
func (uc *CreateOrderUseCase) unwrapSagaError(ctx context.Context, err error) error {
	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) {
		return err
	}
	if stepErr.Compensation != nil {
		metrics.StockCompensationFailuresTotal.Inc()
		logger.WithContext(ctx, uc.log).Error("库存补偿失败",
			zap.String("step", stepErr.Step),
			zap.Error(stepErr.Compensation),
		)
	}
	return stepErr.Err
}
