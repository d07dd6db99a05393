package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/domain/user"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// QueryOrderUseCase 订单查询(详情、我的订单、管理员列表)
type QueryOrderUseCase struct {
	orderRepo order.Repository
	cache     OrderCache
	page      Pagination
	log       *zap.Logger
}

// NewQueryOrderUseCase 创建订单查询用例
func NewQueryOrderUseCase(orderRepo order.Repository, cache OrderCache, page Pagination, log *zap.Logger) *QueryOrderUseCase {
	return &QueryOrderUseCase{orderRepo: orderRepo, cache: cache, page: page, log: log}
}

// GetOrder 查询订单详情
// Cache-Aside:先读缓存,未命中再查库并回填;缓存出错时降级为直接查库
// 所有权在缓存命中后同样校验,不能因为走了缓存就绕过权限
func (uc *QueryOrderUseCase) GetOrder(ctx context.Context, orderID uint, actor user.Actor) (*OrderView, error) {
	log := logger.WithContext(ctx, uc.log)

	o, hit, err := uc.cache.Get(ctx, orderID)
	if err != nil {
		log.Warn("读取订单缓存失败,回源数据库", zap.Uint("order_id", orderID), zap.Error(err))
		hit = false
	}
	if !hit {
		o, err = uc.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := uc.cache.Set(ctx, o); err != nil {
			log.Warn("写入订单缓存失败", zap.Uint("order_id", orderID), zap.Error(err))
		}
	}

	if !o.IsOwnedBy(actor.UserID) && !actor.IsAdmin() {
		return nil, order.ErrForbidden
	}
	return NewOrderView(o), nil
}

// ListMyOrders 当前用户的订单,按创建时间倒序
func (uc *QueryOrderUseCase) ListMyOrders(ctx context.Context, userID uint, page, pageSize int) (*OrderPage, error) {
	page, pageSize = uc.page.normalize(page, pageSize)
	orders, total, err := uc.orderRepo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return newOrderPage(orders, total, page, pageSize), nil
}

// ListAllOrdersRequest 管理员订单列表查询条件
type ListAllOrdersRequest struct {
	Page     int
	PageSize int
	Status   string // 为空表示不过滤
	UserID   uint
}

// ListAllOrders 管理员查询全部订单
func (uc *QueryOrderUseCase) ListAllOrders(ctx context.Context, actor user.Actor, req ListAllOrdersRequest) (*OrderPage, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}

	params := order.ListParams{UserID: req.UserID}
	if req.Status != "" {
		status, err := order.ParseOrderStatus(req.Status)
		if err != nil {
			return nil, err
		}
		params.Status = status
	}
	params.Page, params.PageSize = uc.page.normalize(req.Page, req.PageSize)

	orders, total, err := uc.orderRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return newOrderPage(orders, total, params.Page, params.PageSize), nil
}

func newOrderPage(orders []*order.Order, total int64, page, pageSize int) *OrderPage {
	list := make([]*OrderView, len(orders))
	for i, o := range orders {
		list[i] = NewOrderView(o)
	}
	return &OrderPage{List: list, Total: total, Page: page, PageSize: pageSize}
}
