//go:build integration

package integration

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apporder "github.com/xiebiao/bookmall/internal/application/order"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

// 教学说明：订单模块集成测试
//
// 订单模块是本项目的核心，这里在真实MySQL上验证：
// 1. 数据库事务与库存补偿
// 2. 条件更新防超卖（UPDATE ... WHERE stock >= ?）
// 3. 并发控制
// 4. 订单状态机与支付状态

func TestOrderCreate(t *testing.T) {
	_, token := RegisterTestUser(t, "order_creator")

	t.Run("折扣价下单", func(t *testing.T) {
		book := PublishTestBook(t, token, "《订单测试图书》", 1000, 800, 5)

		placed := PlaceOrder(t, token, OrderItem{BookID: book.ID, Quantity: 2})

		assert.NotEmpty(t, placed.OrderNo)
		assert.Equal(t, int64(1600), placed.Total)
		assert.Equal(t, "16.00", placed.TotalYuan)
		assert.Equal(t, "pending", placed.Status)
		assert.Equal(t, "pending", placed.PaymentStatus)
		require.Len(t, placed.Items, 1)
		assert.Equal(t, int64(800), placed.Items[0].Price)
		assert.Equal(t, 3, BookStock(t, book.ID))
	})

	t.Run("未登录不能下单", func(t *testing.T) {
		book := PublishTestBook(t, token, "《测试图书》", 1000, 0, 10)
		resp := PostJSON(t, BaseURL+"/orders", OrderRequest(OrderItem{BookID: book.ID, Quantity: 1}), "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("图书不存在应失败", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/orders", OrderRequest(OrderItem{BookID: 999999, Quantity: 1}), token)
		assert.Equal(t, apperrors.ErrCodeBookNotFound, resp.Code)
	})

	t.Run("购买数量非法应失败", func(t *testing.T) {
		book := PublishTestBook(t, token, "《数量》", 1000, 0, 10)
		for _, qty := range []int{0, 1000} {
			resp := PostJSON(t, BaseURL+"/orders", OrderRequest(OrderItem{BookID: book.ID, Quantity: qty}), token)
			assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code, "quantity=%d", qty)
		}
		assert.Equal(t, 10, BookStock(t, book.ID))
	})

	t.Run("多商品订单总价等于明细之和", func(t *testing.T) {
		a := PublishTestBook(t, token, "《A》", 3990, 0, 10)
		b := PublishTestBook(t, token, "《B》", 2550, 1999, 10)

		placed := PlaceOrder(t, token, OrderItem{BookID: a.ID, Quantity: 3}, OrderItem{BookID: b.ID, Quantity: 2})

		var sum int64
		for _, item := range placed.Items {
			sum += item.Subtotal
		}
		assert.Equal(t, sum, placed.Total)
		assert.Equal(t, int64(3990*3+1999*2), placed.Total)
		assert.Equal(t, 7, BookStock(t, a.ID))
		assert.Equal(t, 8, BookStock(t, b.ID))
	})

	t.Run("同一本书多行合并", func(t *testing.T) {
		book := PublishTestBook(t, token, "《合并》", 1000, 0, 10)
		placed := PlaceOrder(t, token, OrderItem{BookID: book.ID, Quantity: 1}, OrderItem{BookID: book.ID, Quantity: 2})

		require.Len(t, placed.Items, 1)
		assert.Equal(t, 3, placed.Items[0].Quantity)
		assert.Equal(t, 7, BookStock(t, book.ID))
	})
}

func TestOrderStockControl(t *testing.T) {
	_, token := RegisterTestUser(t, "stock_user")

	t.Run("库存不足应失败", func(t *testing.T) {
		book := PublishTestBook(t, token, "《少量库存》", 1000, 0, 2)
		resp := PostJSON(t, BaseURL+"/orders", OrderRequest(OrderItem{BookID: book.ID, Quantity: 3}), token)
		assert.Equal(t, apperrors.ErrCodeInsufficientStock, resp.Code)
		assert.Equal(t, 2, BookStock(t, book.ID))
	})

	t.Run("任一明细库存不足整单回滚", func(t *testing.T) {
		plenty := PublishTestBook(t, token, "《充足》", 1000, 0, 10)
		scarce := PublishTestBook(t, token, "《紧缺》", 1000, 0, 1)

		resp := PostJSON(t, BaseURL+"/orders", OrderRequest(
			OrderItem{BookID: plenty.ID, Quantity: 5},
			OrderItem{BookID: scarce.ID, Quantity: 2},
		), token)
		assert.Equal(t, apperrors.ErrCodeInsufficientStock, resp.Code)
		assert.Equal(t, 10, BookStock(t, plenty.ID))
		assert.Equal(t, 1, BookStock(t, scarce.ID))
	})

	t.Run("库存恰好足够", func(t *testing.T) {
		book := PublishTestBook(t, token, "《恰好》", 1000, 0, 3)
		PlaceOrder(t, token, OrderItem{BookID: book.ID, Quantity: 3})
		assert.Equal(t, 0, BookStock(t, book.ID))

		resp := PostJSON(t, BaseURL+"/orders", OrderRequest(OrderItem{BookID: book.ID, Quantity: 1}), token)
		assert.Equal(t, apperrors.ErrCodeInsufficientStock, resp.Code)
	})
}

func TestOrderConcurrency(t *testing.T) {
	_, seller := RegisterTestUser(t, "flash_seller")

	// N个买家同时抢购N-1本：恰好N-1人成功，库存归零且不为负
	const buyers = 10
	book := PublishTestBook(t, seller, "《秒杀》", 1000, 0, buyers-1)

	tokens := make([]string, buyers)
	for i := range tokens {
		_, tokens[i] = RegisterTestUser(t, fmt.Sprintf("flash_buyer_%d", i))
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		soldOut   atomic.Int32
		start     = make(chan struct{})
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			<-start
			resp := PostJSON(t, BaseURL+"/orders", OrderRequest(OrderItem{BookID: book.ID, Quantity: 1}), token)
			switch resp.Code {
			case 0:
				succeeded.Add(1)
			case apperrors.ErrCodeInsufficientStock:
				soldOut.Add(1)
			default:
				t.Errorf("unexpected code %d: %s", resp.Code, resp.Message)
			}
		}(token)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(buyers-1), succeeded.Load())
	assert.Equal(t, int32(1), soldOut.Load())
	assert.Equal(t, 0, BookStock(t, book.ID))
}

func TestOrderCancel(t *testing.T) {
	_, buyer := RegisterTestUser(t, "cancel_buyer")
	_, stranger := RegisterTestUser(t, "cancel_stranger")
	admin := AdminToken(t)

	t.Run("取消恢复库存且只恢复一次", func(t *testing.T) {
		book := PublishTestBook(t, buyer, "《取消》", 1000, 0, 5)
		placed := PlaceOrder(t, buyer, OrderItem{BookID: book.ID, Quantity: 2})
		cancelPath := fmt.Sprintf("%s/orders/%d/cancel", BaseURL, placed.ID)

		assert.Equal(t, apperrors.ErrCodeForbidden, PostJSON(t, cancelPath, nil, stranger).Code)

		var cancelled apporder.OrderView
		MustData(t, PostJSON(t, cancelPath, nil, buyer), &cancelled)
		assert.Equal(t, "cancelled", cancelled.Status)
		assert.NotEmpty(t, cancelled.CancelledAt)
		assert.Equal(t, 5, BookStock(t, book.ID))

		assert.Equal(t, apperrors.ErrCodeInvalidOrderStatus, PostJSON(t, cancelPath, nil, buyer).Code)
		assert.Equal(t, 5, BookStock(t, book.ID))
	})

	t.Run("已支付订单取消后退款", func(t *testing.T) {
		book := PublishTestBook(t, buyer, "《退款》", 1000, 0, 5)
		placed := PlaceOrder(t, buyer, OrderItem{BookID: book.ID, Quantity: 1})

		var paid apporder.PaymentResult
		MustData(t, SendWebhook(t, "evt-refund-"+placed.OrderNo, "payment.completed", placed.OrderNo), &paid)
		require.NotNil(t, paid.Order)
		assert.Equal(t, "completed", paid.Order.PaymentStatus)

		// 管理员也可以取消处理中的订单
		MustData(t, SetOrderStatus(t, admin, placed.ID, "processing"), nil)

		var cancelled apporder.OrderView
		MustData(t, PostJSON(t, fmt.Sprintf("%s/orders/%d/cancel", BaseURL, placed.ID), nil, admin), &cancelled)
		assert.Equal(t, "refunded", cancelled.PaymentStatus)
		assert.Equal(t, 5, BookStock(t, book.ID))
	})

	t.Run("已发货不能取消", func(t *testing.T) {
		book := PublishTestBook(t, buyer, "《发货》", 1000, 0, 5)
		placed := PlaceOrder(t, buyer, OrderItem{BookID: book.ID, Quantity: 1})
		MustData(t, SetOrderStatus(t, admin, placed.ID, "shipped"), nil)

		resp := PostJSON(t, fmt.Sprintf("%s/orders/%d/cancel", BaseURL, placed.ID), nil, buyer)
		assert.Equal(t, apperrors.ErrCodeInvalidOrderStatus, resp.Code)
		assert.Equal(t, 4, BookStock(t, book.ID))
	})
}

// TestOrderCompleteFlow 下单 → 支付 → 处理 → 发货 → 送达，终态后不能再变更
func TestOrderCompleteFlow(t *testing.T) {
	_, buyer := RegisterTestUser(t, "flow_buyer")
	admin := AdminToken(t)

	book := PublishTestBook(t, buyer, "《完整流程》", 5900, 0, 10)
	placed := PlaceOrder(t, buyer, OrderItem{BookID: book.ID, Quantity: 1})

	t.Run("普通用户不能改状态", func(t *testing.T) {
		resp := SetOrderStatus(t, buyer, placed.ID, "processing")
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("支付回调幂等", func(t *testing.T) {
		eventID := "evt-flow-" + placed.OrderNo
		var first, again apporder.PaymentResult
		MustData(t, SendWebhook(t, eventID, "payment.completed", placed.OrderNo), &first)
		MustData(t, SendWebhook(t, eventID, "payment.completed", placed.OrderNo), &again)
		assert.False(t, first.Duplicate)
		assert.True(t, again.Duplicate)
	})

	t.Run("状态推进到送达", func(t *testing.T) {
		for _, status := range []string{"processing", "shipped", "delivered"} {
			var view apporder.OrderView
			MustData(t, SetOrderStatus(t, admin, placed.ID, status), &view)
			assert.Equal(t, status, view.Status)
		}
	})

	t.Run("送达后不能再变更", func(t *testing.T) {
		resp := SetOrderStatus(t, admin, placed.ID, "cancelled")
		assert.Equal(t, apperrors.ErrCodeInvalidOrderStatus, resp.Code)
		assert.Equal(t, 9, BookStock(t, book.ID))
	})

	t.Run("买家可以查看自己的订单", func(t *testing.T) {
		var view apporder.OrderView
		MustData(t, GetJSON(t, fmt.Sprintf("%s/orders/%d", BaseURL, placed.ID), buyer), &view)
		assert.Equal(t, "delivered", view.Status)
		assert.Equal(t, "completed", view.PaymentStatus)

		var page apporder.OrderPage
		MustData(t, GetJSON(t, BaseURL+"/orders", buyer), &page)
		require.Len(t, page.List, 1)
		assert.Equal(t, placed.ID, page.List[0].ID)
	})
}
