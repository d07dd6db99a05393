package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
)

// 内存版仓储,语义与MySQL实现保持一致(条件更新、未找到错误)

type memBooks struct {
	mu    sync.Mutex
	books map[uint]*book.Book
	next  uint
}

func newMemBooks() *memBooks {
	return &memBooks{books: make(map[uint]*book.Book)}
}

func (m *memBooks) add(price, discount int64, stock int) *book.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	b := book.NewBook(fmt.Sprintf("97871154%05d", m.next), "测试图书", "作者", "出版社", price, discount, stock, "", "", 1)
	b.ID = m.next
	m.books[b.ID] = b
	cp := *b
	return &cp
}

func (m *memBooks) stock(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id].Stock
}

func (m *memBooks) snapshot() map[uint]book.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[uint]book.Book, len(m.books))
	for id, b := range m.books {
		snap[id] = *b
	}
	return snap
}

func (m *memBooks) restore(snap map[uint]book.Book) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books = make(map[uint]*book.Book, len(snap))
	for id, b := range snap {
		b := b
		m.books[id] = &b
	}
}

func (m *memBooks) Create(_ context.Context, b *book.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	b.ID = m.next
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memBooks) FindByID(_ context.Context, id uint) (*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBooks) FindByIDs(_ context.Context, ids []uint) (map[uint]*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint]*book.Book, len(ids))
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			cp := *b
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *memBooks) FindByISBN(_ context.Context, isbn string) (*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ISBN == isbn {
			cp := *b
			return &cp, nil
		}
	}
	return nil, book.ErrBookNotFound
}

func (m *memBooks) Update(_ context.Context, b *book.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.books[b.ID]
	if !ok {
		return book.ErrBookNotFound
	}
	stock, ratings := stored.Stock, stored.Ratings
	cp := *b
	cp.Stock, cp.Ratings = stock, ratings
	m.books[b.ID] = &cp
	return nil
}

func (m *memBooks) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	return nil
}

func (m *memBooks) List(_ context.Context, _ book.ListParams) ([]*book.Book, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*book.Book, 0, len(m.books))
	for _, b := range m.books {
		cp := *b
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (m *memBooks) DecrementStock(_ context.Context, id uint, quantity int) error {
	if quantity <= 0 {
		return book.ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	if b.Stock < quantity {
		return book.ErrInsufficientStock
	}
	b.Stock -= quantity
	return nil
}

// racingBooks 在扣减某本书之前先把它的库存清空,模拟预检之后被其他订单抢走
// decrementErr非空时直接返回该错误,模拟数据库故障
type racingBooks struct {
	*memBooks
	victim       uint
	decrementErr error
}

func (r *racingBooks) DecrementStock(ctx context.Context, id uint, quantity int) error {
	if id == r.victim {
		if r.decrementErr != nil {
			return r.decrementErr
		}
		r.mu.Lock()
		r.books[id].Stock = 0
		r.mu.Unlock()
	}
	return r.memBooks.DecrementStock(ctx, id, quantity)
}

func (m *memBooks) IncrementStock(_ context.Context, id uint, quantity int) error {
	if quantity <= 0 {
		return book.ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	b.Stock += quantity
	return nil
}

func (m *memBooks) UpdateRatings(_ context.Context, id uint, ratings book.Ratings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	b.Ratings = ratings
	return nil
}

type memOrders struct {
	mu        sync.Mutex
	orders    map[uint]*order.Order
	next      uint
	createErr error
	findErr   error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uint]*order.Order)}
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = append([]order.OrderItem(nil), o.Items...)
	return &cp
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memOrders) snapshot() map[uint]*order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[uint]*order.Order, len(m.orders))
	for id, o := range m.orders {
		snap[id] = cloneOrder(o)
	}
	return snap
}

func (m *memOrders) restore(snap map[uint]*order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = snap
}

// setPayment 直接修改存储中的支付状态,模拟支付已完成
func (m *memOrders) setPayment(id uint, status order.PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].PaymentStatus = status
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.next++
	o.ID = m.next
	for i := range o.Items {
		o.Items[i].ID = uint(i + 1)
		o.Items[i].OrderID = o.ID
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id uint) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *memOrders) FindByOrderNo(_ context.Context, orderNo string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, o := range m.orders {
		if o.OrderNo == orderNo {
			return cloneOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m *memOrders) MarkCancelled(_ context.Context, id uint, from order.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return order.ErrInvalidStatusTransition
	}
	o.Status = order.OrderStatusCancelled
	o.CancelledAt = &at
	if o.PaymentStatus == order.PaymentStatusCompleted {
		o.PaymentStatus = order.PaymentStatusRefunded
	}
	return nil
}

func (m *memOrders) UpdateStatus(_ context.Context, updated *order.Order, from order.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[updated.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from || updated.Status == order.OrderStatusCancelled {
		return order.ErrInvalidStatusTransition
	}
	o.Status = updated.Status
	o.TrackingNumber = updated.TrackingNumber
	o.EstimatedDeliveryDate = updated.EstimatedDeliveryDate
	return nil
}

func (m *memOrders) UpdatePaymentStatus(_ context.Context, id uint, from, to order.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.PaymentStatus != from || o.Status == order.OrderStatusCancelled {
		return order.ErrInvalidPaymentTransition
	}
	o.PaymentStatus = to
	return nil
}

func (m *memOrders) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	return m.List(ctx, order.ListParams{UserID: userID, Page: page, PageSize: pageSize})
}

func (m *memOrders) List(_ context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*order.Order
	for _, o := range m.orders {
		if params.UserID != 0 && o.UserID != params.UserID {
			continue
		}
		if params.Status != 0 && o.Status != params.Status {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return []*order.Order{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memOrders) HasPurchased(_ context.Context, userID, bookID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID != userID || o.Status != order.OrderStatusDelivered {
			continue
		}
		for _, item := range o.Items {
			if item.BookID == bookID {
				return true, nil
			}
		}
	}
	return false, nil
}

// memTx 串行执行事务,fn返回错误时恢复快照(模拟ROLLBACK)
type memTx struct {
	mu     sync.Mutex
	books  *memBooks
	orders *memOrders
}

func (t *memTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bookSnap, orderSnap := t.books.snapshot(), t.orders.snapshot()
	if err := fn(ctx); err != nil {
		t.books.restore(bookSnap)
		t.orders.restore(orderSnap)
		return err
	}
	return nil
}

// noRollbackTx 不回滚的事务,用来单独验证Saga补偿
type noRollbackTx struct{}

func (noRollbackTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memCache struct {
	mu          sync.Mutex
	entries     map[uint]*order.Order
	hits        int
	invalidated   []uint
	getErr        error
	invalidateErr error
	setErr        error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[uint]*order.Order)}
}

func (c *memCache) Get(_ context.Context, id uint) (*order.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	o, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return cloneOrder(o), true, nil
}

func (c *memCache) Set(_ context.Context, o *order.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[o.ID] = cloneOrder(o)
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []order.Event
	err    error
}

func (p *memPublisher) Publish(_ context.Context, e order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *memPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memPaymentEvents struct {
	mu       sync.Mutex
	seen     map[string]bool
	released []string
}

func newMemPaymentEvents() *memPaymentEvents {
	return &memPaymentEvents{seen: make(map[string]bool)}
}

func (s *memPaymentEvents) MarkProcessing(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *memPaymentEvents) Release(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	s.released = append(s.released, eventID)
	return nil
}
