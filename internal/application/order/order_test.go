package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/domain/user"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

var (
	buyer    = user.Actor{UserID: 100, Role: user.RoleUser}
	stranger = user.Actor{UserID: 200, Role: user.RoleUser}
	admin    = user.Actor{UserID: 1, Role: user.RoleAdmin}
)

func testAddress() order.ShippingAddress {
	return order.ShippingAddress{
		Street:  "中关村大街1号",
		City:    "北京",
		State:   "北京",
		Country: "中国",
		ZipCode: "100080",
	}
}

// env 一组共享内存存储的用例
type env struct {
	books     *memBooks
	orders    *memOrders
	tx        Transactor
	cache     *memCache
	publisher *memPublisher
	payments  *memPaymentEvents

	create  *CreateOrderUseCase
	cancel  *CancelOrderUseCase
	status  *UpdateOrderStatusUseCase
	payment *UpdatePaymentStatusUseCase
	query   *QueryOrderUseCase
}

func newEnv() *env {
	books, orders := newMemBooks(), newMemOrders()
	return newEnvWithTx(books, orders, &memTx{books: books, orders: orders})
}

func newEnvWithTx(books *memBooks, orders *memOrders, tx Transactor) *env {
	e := &env{
		books:     books,
		orders:    orders,
		tx:        tx,
		cache:     newMemCache(),
		publisher: &memPublisher{},
		payments:  newMemPaymentEvents(),
	}
	log := zap.NewNop()
	e.create = NewCreateOrderUseCase(orders, books, tx, e.cache, e.publisher, 3, log)
	e.cancel = NewCancelOrderUseCase(orders, books, tx, e.cache, e.publisher, log)
	e.status = NewUpdateOrderStatusUseCase(orders, books, tx, e.cache, e.publisher, log)
	e.payment = NewUpdatePaymentStatusUseCase(orders, tx, e.payments, e.cache, e.publisher, log)
	e.query = NewQueryOrderUseCase(orders, e.cache, Pagination{DefaultPageSize: 20, MaxPageSize: 50}, log)
	return e
}

func (e *env) request(items ...CreateOrderItem) CreateOrderRequest {
	return CreateOrderRequest{
		UserID:          buyer.UserID,
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   string(order.PaymentMethodCreditCard),
	}
}

func (e *env) placeOrder(t *testing.T, items ...CreateOrderItem) *OrderView {
	t.Helper()
	view, err := e.create.Execute(context.Background(), e.request(items...))
	require.NoError(t, err)
	return view
}

func TestCreateOrder_UsesDiscountPrice(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 800, 5)

	view, err := e.create.Execute(context.Background(), e.request(CreateOrderItem{BookID: b.ID, Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, int64(1600), view.Total)
	assert.Equal(t, "16.00", view.TotalYuan)
	assert.Equal(t, "pending", view.Status)
	assert.Equal(t, "pending", view.PaymentStatus)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(800), view.Items[0].Price)
	assert.Equal(t, 3, e.books.stock(b.ID))

	assert.Equal(t, []string{order.EventCreated}, e.publisher.types())
	assert.Equal(t, []uint{view.ID}, e.cache.invalidated)
}

func TestCreateOrder_TotalIsSumOfSnapshots(t *testing.T) {
	e := newEnv()
	a := e.books.add(3999, 0, 10)
	b := e.books.add(5000, 4250, 10)

	view := e.placeOrder(t,
		CreateOrderItem{BookID: a.ID, Quantity: 3},
		CreateOrderItem{BookID: b.ID, Quantity: 1},
	)

	assert.Equal(t, int64(3999*3+4250), view.Total)
	assert.Equal(t, 7, e.books.stock(a.ID))
	assert.Equal(t, 9, e.books.stock(b.ID))
}

func TestCreateOrder_MergesRepeatedBook(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)

	view := e.placeOrder(t,
		CreateOrderItem{BookID: b.ID, Quantity: 2},
		CreateOrderItem{BookID: b.ID, Quantity: 1},
	)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, 2, e.books.stock(b.ID))
}

func TestCreateOrder_InsufficientStockChangesNothing(t *testing.T) {
	e := newEnv()
	a := e.books.add(1000, 0, 5)
	b := e.books.add(2000, 0, 1)

	_, err := e.create.Execute(context.Background(), e.request(
		CreateOrderItem{BookID: a.ID, Quantity: 2},
		CreateOrderItem{BookID: b.ID, Quantity: 2},
	))

	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 5, e.books.stock(a.ID))
	assert.Equal(t, 1, e.books.stock(b.ID))
	assert.Zero(t, e.orders.count())
	assert.Empty(t, e.publisher.types())
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(req *CreateOrderRequest, bookID uint)
		wantErr error
	}{
		{
			name:    "没有明细",
			mutate:  func(req *CreateOrderRequest, _ uint) { req.Items = nil },
			wantErr: apperrors.ErrInvalidParams,
		},
		{
			name: "数量为0",
			mutate: func(req *CreateOrderRequest, id uint) {
				req.Items = []CreateOrderItem{{BookID: id, Quantity: 0}}
			},
			wantErr: apperrors.ErrInvalidParams,
		},
		{
			name: "图书不存在",
			mutate: func(req *CreateOrderRequest, id uint) {
				req.Items = append(req.Items, CreateOrderItem{BookID: 999, Quantity: 1})
			},
			wantErr: apperrors.ErrBookNotFound,
		},
		{
			name:    "地址不完整",
			mutate:  func(req *CreateOrderRequest, _ uint) { req.ShippingAddress.City = " " },
			wantErr: apperrors.ErrInvalidParams,
		},
		{
			name:    "不支持的支付方式",
			mutate:  func(req *CreateOrderRequest, _ uint) { req.PaymentMethod = "cash" },
			wantErr: apperrors.ErrInvalidParams,
		},
		{
			name: "明细过多",
			mutate: func(req *CreateOrderRequest, id uint) {
				req.Items = []CreateOrderItem{{BookID: id, Quantity: 1}, {BookID: 2, Quantity: 1}, {BookID: 3, Quantity: 1}, {BookID: 4, Quantity: 1}}
			},
			wantErr: apperrors.ErrInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			b := e.books.add(1000, 0, 5)
			req := e.request(CreateOrderItem{BookID: b.ID, Quantity: 1})
			tt.mutate(&req, b.ID)

			_, err := e.create.Execute(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 5, e.books.stock(b.ID))
			assert.Zero(t, e.orders.count())
		})
	}
}

func TestCreateOrder_SaveFailureCompensatesStock(t *testing.T) {
	books, orders := newMemBooks(), newMemOrders()
	e := newEnvWithTx(books, orders, noRollbackTx{})
	a := books.add(1000, 0, 5)
	b := books.add(1000, 0, 5)
	orders.createErr = apperrors.ErrDatabaseError

	_, err := e.create.Execute(context.Background(), e.request(
		CreateOrderItem{BookID: a.ID, Quantity: 2},
		CreateOrderItem{BookID: b.ID, Quantity: 3},
	))

	assert.ErrorIs(t, err, apperrors.ErrDatabaseError)
	assert.Equal(t, 5, books.stock(a.ID), "没有事务回滚时由补偿归还")
	assert.Equal(t, 5, books.stock(b.ID))
}

func TestCreateOrder_StockTakenAfterValidation(t *testing.T) {
	books, orders := newMemBooks(), newMemOrders()
	a := books.add(1000, 0, 5)
	b := books.add(2000, 0, 5)
	racing := &racingBooks{memBooks: books, victim: b.ID}

	e := newEnvWithTx(books, orders, noRollbackTx{})
	e.create = NewCreateOrderUseCase(orders, racing, noRollbackTx{}, e.cache, e.publisher, 3, zap.NewNop())

	_, err := e.create.Execute(context.Background(), e.request(
		CreateOrderItem{BookID: a.ID, Quantity: 2},
		CreateOrderItem{BookID: b.ID, Quantity: 1},
	))

	require.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	msg := apperrors.GetAppError(err).Message
	assert.Contains(t, msg, "测试图书")
	assert.Contains(t, msg, fmt.Sprintf("ID=%d", b.ID))
	assert.Equal(t, 5, books.stock(a.ID), "前面已扣减的库存被归还")
	assert.Zero(t, orders.count())
	assert.Empty(t, e.publisher.types())

	t.Run("数据库故障不算库存不足", func(t *testing.T) {
		racing.decrementErr = apperrors.ErrDatabaseError

		_, err := e.create.Execute(context.Background(), e.request(
			CreateOrderItem{BookID: a.ID, Quantity: 2},
			CreateOrderItem{BookID: b.ID, Quantity: 1},
		))

		assert.ErrorIs(t, err, apperrors.ErrDatabaseError)
		assert.False(t, errors.Is(err, apperrors.ErrInsufficientStock))
		assert.Equal(t, 5, books.stock(a.ID))
		assert.Zero(t, orders.count())
	})
}

func TestCreateOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	e := newEnv()
	e.publisher.err = apperrors.ErrMQError
	b := e.books.add(1000, 0, 5)

	view, err := e.create.Execute(context.Background(), e.request(CreateOrderItem{BookID: b.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.NotZero(t, view.ID)
	assert.Equal(t, 4, e.books.stock(b.ID))
}

func TestCreateOrder_ConcurrentBuyersNeverOversell(t *testing.T) {
	defer goleak.VerifyNone(t)

	const buyers = 10
	e := newEnv()
	b := e.books.add(1000, 0, buyers-1)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
		others       []error
	)
	start := make(chan struct{})
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.create.Execute(context.Background(), e.request(CreateOrderItem{BookID: b.ID, Quantity: 1}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrInsufficientStock):
				insufficient++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, buyers-1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, e.books.stock(b.ID))
	assert.Equal(t, buyers-1, e.orders.count())
}

func TestCancelOrder_RestoresStockOnce(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 2})
	require.Equal(t, 3, e.books.stock(b.ID))

	cancelled, err := e.cancel.Execute(context.Background(), view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.NotEmpty(t, cancelled.CancelledAt)
	assert.Equal(t, 5, e.books.stock(b.ID))

	_, err = e.cancel.Execute(context.Background(), view.ID, buyer)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus)
	assert.Equal(t, 5, e.books.stock(b.ID), "重复取消不能再次归还库存")

	assert.Equal(t, []string{order.EventCreated, order.EventCancelled}, e.publisher.types())
	assert.Equal(t, "pending", e.publisher.events[1].PreviousState)
}

func TestCancelOrder_Authorization(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})

	_, err := e.cancel.Execute(context.Background(), view.ID, stranger)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, 4, e.books.stock(b.ID))

	_, err = e.cancel.Execute(context.Background(), view.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, 5, e.books.stock(b.ID))

	_, err = e.cancel.Execute(context.Background(), 999, buyer)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestCancelOrder_RefundsCompletedPayment(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	e.orders.setPayment(view.ID, order.PaymentStatusCompleted)

	cancelled, err := e.cancel.Execute(context.Background(), view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "refunded", cancelled.PaymentStatus)
}

func TestCancelOrder_ShippedIsRejected(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	_, err := e.status.Execute(context.Background(), admin, UpdateOrderStatusRequest{OrderID: view.ID, Status: "shipped"})
	require.NoError(t, err)

	_, err = e.cancel.Execute(context.Background(), view.ID, buyer)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus)
	assert.Equal(t, 4, e.books.stock(b.ID))
}

func TestCreateThenCancel_RoundTrip(t *testing.T) {
	e := newEnv()
	a := e.books.add(1000, 0, 7)
	b := e.books.add(2500, 1999, 3)

	view := e.placeOrder(t,
		CreateOrderItem{BookID: a.ID, Quantity: 4},
		CreateOrderItem{BookID: b.ID, Quantity: 3},
	)
	_, err := e.cancel.Execute(context.Background(), view.ID, buyer)
	require.NoError(t, err)

	assert.Equal(t, 7, e.books.stock(a.ID))
	assert.Equal(t, 3, e.books.stock(b.ID))
}

func TestUpdateOrderStatus(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	ctx := context.Background()

	_, err := e.status.Execute(ctx, buyer, UpdateOrderStatusRequest{OrderID: view.ID, Status: "processing"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = e.status.Execute(ctx, admin, UpdateOrderStatusRequest{OrderID: view.ID, Status: "lost"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	eta := time.Date(2026, 11, 1, 0, 0, 0, 0, time.Local)
	shipped, err := e.status.Execute(ctx, admin, UpdateOrderStatusRequest{
		OrderID:               view.ID,
		Status:                "shipped",
		TrackingNumber:        "SF1234567890",
		EstimatedDeliveryDate: &eta,
	})
	require.NoError(t, err)
	assert.Equal(t, "shipped", shipped.Status)
	assert.Equal(t, "SF1234567890", shipped.TrackingNumber)
	assert.Equal(t, "2026-11-01 00:00:00", shipped.EstimatedDeliveryDate)

	_, err = e.status.Execute(ctx, admin, UpdateOrderStatusRequest{OrderID: view.ID, Status: "processing"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus, "不能回退")

	delivered, err := e.status.Execute(ctx, admin, UpdateOrderStatusRequest{OrderID: view.ID, Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, "delivered", delivered.Status)

	for _, target := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		_, err = e.status.Execute(ctx, admin, UpdateOrderStatusRequest{OrderID: view.ID, Status: target})
		assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus, "已送达后不能变为%s", target)
	}
	assert.Equal(t, 4, e.books.stock(b.ID))

	assert.Equal(t,
		[]string{order.EventCreated, order.EventStatusChanged, order.EventStatusChanged},
		e.publisher.types(),
	)
}

func TestUpdateOrderStatus_CancelRestoresStock(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 2})

	cancelled, err := e.status.Execute(context.Background(), admin, UpdateOrderStatusRequest{OrderID: view.ID, Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, 5, e.books.stock(b.ID))
	assert.Equal(t, []string{order.EventCreated, order.EventCancelled}, e.publisher.types())
}

func TestUpdatePaymentStatus(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	ctx := context.Background()

	res, err := e.payment.Execute(ctx, PaymentNotification{EventID: "evt-1", OrderNo: view.OrderNo, Status: "completed"})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, "completed", res.Order.PaymentStatus)

	res, err = e.payment.Execute(ctx, PaymentNotification{EventID: "evt-1", OrderNo: view.OrderNo, Status: "completed"})
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Nil(t, res.Order)

	_, err = e.payment.Execute(ctx, PaymentNotification{EventID: "evt-2", OrderNo: view.OrderNo, Status: "failed"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus, "已支付不能再变为失败")

	_, err = e.payment.Execute(ctx, PaymentNotification{EventID: "evt-3", OrderNo: view.OrderNo, Status: "refunded"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus, "退款只能由取消产生")

	_, err = e.payment.Execute(ctx, PaymentNotification{EventID: "evt-4", OrderNo: view.OrderNo, Status: "paid"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	assert.Equal(t, []string{order.EventCreated, order.EventPaymentUpdated}, e.publisher.types())
}

func TestUpdatePaymentStatus_FailedThenCompleted(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	ctx := context.Background()

	_, err := e.payment.Execute(ctx, PaymentNotification{EventID: "evt-1", OrderNo: view.OrderNo, Status: "failed"})
	require.NoError(t, err)
	res, err := e.payment.Execute(ctx, PaymentNotification{EventID: "evt-2", OrderNo: view.OrderNo, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Order.PaymentStatus)
}

func TestUpdatePaymentStatus_CancelledOrderRejected(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	_, err := e.cancel.Execute(context.Background(), view.ID, buyer)
	require.NoError(t, err)

	_, err = e.payment.Execute(context.Background(), PaymentNotification{EventID: "evt-1", OrderNo: view.OrderNo, Status: "completed"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus)
	assert.Empty(t, e.payments.released, "业务拒绝保留去重标记")
}

func TestUpdatePaymentStatus_ServerErrorReleasesEvent(t *testing.T) {
	e := newEnv()
	e.orders.findErr = apperrors.ErrDatabaseError

	_, err := e.payment.Execute(context.Background(), PaymentNotification{EventID: "evt-9", OrderNo: "BM1", Status: "completed"})
	assert.ErrorIs(t, err, apperrors.ErrDatabaseError)
	assert.Equal(t, []string{"evt-9"}, e.payments.released)

	// 数据库恢复后网关重试仍能处理
	e.orders.findErr = nil
	_, err = e.payment.Execute(context.Background(), PaymentNotification{EventID: "evt-9", OrderNo: "BM1", Status: "completed"})
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestGetOrder(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	ctx := context.Background()

	got, err := e.query.GetOrder(ctx, view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, view.OrderNo, got.OrderNo)
	assert.Zero(t, e.cache.hits)

	_, err = e.query.GetOrder(ctx, view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.hits)

	_, err = e.query.GetOrder(ctx, view.ID, stranger)
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "命中缓存也要校验所有权")

	_, err = e.query.GetOrder(ctx, view.ID, admin)
	assert.NoError(t, err)

	_, err = e.query.GetOrder(ctx, 999, admin)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestGetOrder_CacheErrorFallsBackToDatabase(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	e.cache.getErr = apperrors.ErrRedisError

	got, err := e.query.GetOrder(context.Background(), view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)
}

func TestCancelOrder_InvalidatesCachedView(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	ctx := context.Background()

	_, err := e.query.GetOrder(ctx, view.ID, buyer)
	require.NoError(t, err)
	_, err = e.cancel.Execute(ctx, view.ID, buyer)
	require.NoError(t, err)

	got, err := e.query.GetOrder(ctx, view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
}

func TestStatusChange_CacheDeleteFailureOverwritesEntry(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	ctx := context.Background()

	// 先把pending状态读进缓存
	_, err := e.query.GetOrder(ctx, view.ID, buyer)
	require.NoError(t, err)

	e.cache.invalidateErr = apperrors.ErrRedisError
	_, err = e.status.Execute(ctx, admin, UpdateOrderStatusRequest{OrderID: view.ID, Status: "processing"})
	require.NoError(t, err)

	got, err := e.query.GetOrder(ctx, view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "processing", got.Status)
	assert.Equal(t, 1, e.cache.hits, "读到的是覆盖后的缓存")

	_, err = e.cancel.Execute(ctx, view.ID, buyer)
	require.NoError(t, err)
	got, err = e.query.GetOrder(ctx, view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
}

func TestStatusChange_CacheUnavailableStillCommits(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	e.cache.invalidateErr = apperrors.ErrRedisError
	e.cache.setErr = apperrors.ErrRedisError

	got, err := e.cancel.Execute(context.Background(), view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
	assert.Equal(t, 5, e.books.stock(b.ID))
}

func TestListOrders(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 50)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})
	}
	other := e.request(CreateOrderItem{BookID: b.ID, Quantity: 1})
	other.UserID = stranger.UserID
	otherView, err := e.create.Execute(ctx, other)
	require.NoError(t, err)
	_, err = e.cancel.Execute(ctx, otherView.ID, stranger)
	require.NoError(t, err)

	mine, err := e.query.ListMyOrders(ctx, buyer.UserID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	assert.Equal(t, 1, mine.Page)
	assert.Equal(t, 20, mine.PageSize)

	paged, err := e.query.ListMyOrders(ctx, buyer.UserID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, paged.List, 1)

	capped, err := e.query.ListMyOrders(ctx, buyer.UserID, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, capped.PageSize)

	_, err = e.query.ListAllOrders(ctx, buyer, ListAllOrdersRequest{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	all, err := e.query.ListAllOrders(ctx, admin, ListAllOrdersRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)

	cancelled, err := e.query.ListAllOrders(ctx, admin, ListAllOrdersRequest{Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, cancelled.List, 1)
	assert.Equal(t, otherView.OrderNo, cancelled.List[0].OrderNo)

	_, err = e.query.ListAllOrders(ctx, admin, ListAllOrdersRequest{Status: "archived"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}

func TestEffectivePriceSnapshotSurvivesRepricing(t *testing.T) {
	e := newEnv()
	b := e.books.add(1000, 0, 5)
	view := e.placeOrder(t, CreateOrderItem{BookID: b.ID, Quantity: 1})

	stored, err := e.books.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, stored.UpdatePricing(2000, 1500))
	require.NoError(t, e.books.Update(context.Background(), stored))

	got, err := e.query.GetOrder(context.Background(), view.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Total)
}

var _ book.Repository = (*memBooks)(nil)
var _ order.Repository = (*memOrders)(nil)
