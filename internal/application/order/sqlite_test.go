package order

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/infrastructure/messaging"
	"github.com/xiebiao/bookmall/internal/infrastructure/persistence/mysql"
	rediscache "github.com/xiebiao/bookmall/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

// 用真实的GORM仓储(SQLite)和Redis缓存(miniredis)串起下单、取消、查询
func TestOrderLifecycle_WithRealStores(t *testing.T) {
	db, err := mysql.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")+"?_pragma=busy_timeout(5000)"), mysql.PoolOptions{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zap.NewNop()
	books := mysql.NewBookRepository(db)
	orders := mysql.NewOrderRepository(db)
	tx := mysql.NewTxManager(db)
	cache := rediscache.NewOrderCache(client, time.Minute)
	publisher := messaging.NewNopPublisher(log)

	create := NewCreateOrderUseCase(orders, books, tx, cache, publisher, 0, log)
	cancel := NewCancelOrderUseCase(orders, books, tx, cache, publisher, log)
	query := NewQueryOrderUseCase(orders, cache, Pagination{DefaultPageSize: 20, MaxPageSize: 100}, log)
	ctx := context.Background()

	b := book.NewBook("9787115428028", "Go程序设计语言", "Alan Donovan", "机械工业出版社", 1000, 800, 5, "", "", 1)
	require.NoError(t, books.Create(ctx, b))

	req := CreateOrderRequest{
		UserID:          buyer.UserID,
		Items:           []CreateOrderItem{{BookID: b.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		PaymentMethod:   string(order.PaymentMethodPayPal),
	}

	// 并发下单:库存5,每单2本,只有2单能成功
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []*OrderView
		rejected  int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := create.Execute(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded = append(succeeded, view)
				return
			}
			if errors.Is(err, apperrors.ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()
	require.Len(t, succeeded, 2)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int64(1600), succeeded[0].Total)

	stored, err := books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)

	// 查询回填缓存,取消后缓存失效
	first := succeeded[0]
	got, err := query.GetOrder(ctx, first.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)

	_, err = cancel.Execute(ctx, first.ID, buyer)
	require.NoError(t, err)
	_, err = cancel.Execute(ctx, first.ID, buyer)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus)

	got, err = query.GetOrder(ctx, first.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)

	stored, err = books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)
}
