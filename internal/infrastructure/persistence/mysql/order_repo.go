package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/bookmall/internal/domain/order"
)

// orderRepository 订单仓储实现
// 教学要点:
// 1. Order和OrderItem是聚合关系,必须一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 状态变更都是条件UPDATE(比较并交换),影响行数为0说明状态已被别人改掉
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
// GORM在Create时会一并插入Items(通过foreignKey关联)
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return dbError(err, "创建订单失败")
	}

	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	o.UpdatedAt = model.UpdatedAt
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

// FindByID 根据ID查找订单
// Preload("Items")会执行:
// 1. SELECT * FROM orders WHERE id = ?
// 2. SELECT * FROM order_items WHERE order_id IN (?)
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := dbFrom(ctx, r.db).Preload("Items").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, dbError(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var model OrderModel
	err := dbFrom(ctx, r.db).Preload("Items").Where("order_no = ?", orderNo).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, dbError(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// MarkCancelled 取消订单
//
//	UPDATE orders SET status = 5, cancelled_at = ?,
//	    payment_status = CASE WHEN payment_status = 2 THEN 4 ELSE payment_status END
//	WHERE id = ? AND status = ?
//
// 退款标记以数据库当前值为准:取消和支付回调并发时,已支付的订单一定被标记为已退款
func (r *orderRepository) MarkCancelled(ctx context.Context, id uint, from order.OrderStatus, at time.Time) error {
	db := dbFrom(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, int(from)).
		Updates(map[string]interface{}{
			"status":       int(order.OrderStatusCancelled),
			"cancelled_at": at,
			"payment_status": gorm.Expr("CASE WHEN payment_status = ? THEN ? ELSE payment_status END",
				int(order.PaymentStatusCompleted), int(order.PaymentStatusRefunded)),
			"updated_at": at,
		})
	if result.Error != nil {
		return dbError(result.Error, "取消订单失败")
	}
	if result.RowsAffected == 0 {
		return r.conflict(db, id, order.ErrInvalidStatusTransition)
	}
	return nil
}

// UpdateStatus 正向推进订单状态并写入物流信息
func (r *orderRepository) UpdateStatus(ctx context.Context, o *order.Order, from order.OrderStatus) error {
	if o.Status == order.OrderStatusCancelled {
		// 取消必须走MarkCancelled,保证退款标记与库存归还在同一流程里
		return order.ErrInvalidStatusTransition
	}

	db := dbFrom(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("id = ? AND status = ?", o.ID, int(from)).
		Updates(map[string]interface{}{
			"status":                  int(o.Status),
			"tracking_number":         o.TrackingNumber,
			"estimated_delivery_date": o.EstimatedDeliveryDate,
			"updated_at":              o.UpdatedAt,
		})
	if result.Error != nil {
		return dbError(result.Error, "更新订单状态失败")
	}
	if result.RowsAffected == 0 {
		return r.conflict(db, o.ID, order.ErrInvalidStatusTransition)
	}
	return nil
}

// UpdatePaymentStatus 更新支付状态,已取消的订单不会被修改
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uint, from, to order.PaymentStatus) error {
	db := dbFrom(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("id = ? AND payment_status = ? AND status <> ?", id, int(from), int(order.OrderStatusCancelled)).
		Updates(map[string]interface{}{
			"payment_status": int(to),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return dbError(result.Error, "更新支付状态失败")
	}
	if result.RowsAffected == 0 {
		return r.conflict(db, id, order.ErrInvalidPaymentTransition)
	}
	return nil
}

// conflict 条件UPDATE没有命中时区分"订单不存在"和"状态已变化"
func (r *orderRepository) conflict(db *gorm.DB, id uint, stateErr error) error {
	var count int64
	if err := db.Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return dbError(err, "查询订单失败")
	}
	if count == 0 {
		return order.ErrOrderNotFound
	}
	return stateErr
}

// ListByUserID 查询用户的订单列表
func (r *orderRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(ctx, order.ListParams{Page: page, PageSize: pageSize, UserID: userID})
}

// List 管理员查询订单列表
func (r *orderRepository) List(ctx context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	return r.list(ctx, params)
}

func (r *orderRepository) list(ctx context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	query := dbFrom(ctx, r.db).Model(&OrderModel{})
	if params.UserID != 0 {
		query = query.Where("user_id = ?", params.UserID)
	}
	if params.Status != 0 {
		query = query.Where("status = ?", int(params.Status))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "查询订单总数失败")
	}

	offset, limit := normalizePage(params.Page, params.PageSize)
	err := query.Preload("Items").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, dbError(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// HasPurchased 用户是否有包含该图书的已送达订单
func (r *orderRepository) HasPurchased(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&OrderModel{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.book_id = ?",
			userID, int(order.OrderStatusDelivered), bookID).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "查询购买记录失败")
	}
	return count > 0, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:       item.ID,
			OrderID:  item.OrderID,
			BookID:   item.BookID,
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}

	return &OrderModel{
		ID:            o.ID,
		OrderNo:       o.OrderNo,
		UserID:        o.UserID,
		Total:         o.Total,
		Status:        int(o.Status),
		PaymentStatus: int(o.PaymentStatus),
		PaymentMethod: string(o.PaymentMethod),
		Shipping: ShippingAddressColumns{
			Street:  o.ShippingAddress.Street,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			Country: o.ShippingAddress.Country,
			ZipCode: o.ShippingAddress.ZipCode,
		},
		TrackingNumber:        o.TrackingNumber,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		Notes:                 o.Notes,
		IsGift:                o.IsGift,
		GiftMessage:           o.GiftMessage,
		CancelledAt:           o.CancelledAt,
		Items:                 items,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func toOrderEntity(model *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(model.Items))
	for i, item := range model.Items {
		items[i] = order.OrderItem{
			ID:       item.ID,
			OrderID:  item.OrderID,
			BookID:   item.BookID,
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}

	return &order.Order{
		ID:            model.ID,
		OrderNo:       model.OrderNo,
		UserID:        model.UserID,
		Items:         items,
		Total:         model.Total,
		Status:        order.OrderStatus(model.Status),
		PaymentStatus: order.PaymentStatus(model.PaymentStatus),
		PaymentMethod: order.PaymentMethod(model.PaymentMethod),
		ShippingAddress: order.ShippingAddress{
			Street:  model.Shipping.Street,
			City:    model.Shipping.City,
			State:   model.Shipping.State,
			Country: model.Shipping.Country,
			ZipCode: model.Shipping.ZipCode,
		},
		TrackingNumber:        model.TrackingNumber,
		EstimatedDeliveryDate: model.EstimatedDeliveryDate,
		Notes:                 model.Notes,
		IsGift:                model.IsGift,
		GiftMessage:           model.GiftMessage,
		CancelledAt:           model.CancelledAt,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}
