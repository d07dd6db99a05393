package order

import (
	"context"
	"time"
)

// Repository 订单仓储接口(依赖倒置原则)
// 教学要点:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 支持事务操作(通过context传递事务)
// 3. 状态变更都是"比较并交换":UPDATE ... WHERE id = ? AND order_status = ?,
//    并发的两次取消只有一次能成功
type Repository interface {
	// Create 创建订单(包含订单明细),回填ID
	Create(ctx context.Context, order *Order) error

	// FindByID 根据ID查找订单(包含订单明细)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByOrderNo 根据订单号查找订单
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// MarkCancelled 把订单从from状态改为cancelled
	// 支付状态在同一条UPDATE里由completed改为refunded,不依赖调用方读到的旧值
	// 订单状态已不是from时返回ErrInvalidStatusTransition
	MarkCancelled(ctx context.Context, id uint, from OrderStatus, at time.Time) error

	// UpdateStatus 把订单从from状态改为order.Status(非取消),同时写入物流信息
	UpdateStatus(ctx context.Context, order *Order, from OrderStatus) error

	// UpdatePaymentStatus 把支付状态从from改为to,已取消的订单不会被修改
	UpdatePaymentStatus(ctx context.Context, id uint, from, to PaymentStatus) error

	// ListByUserID 查询用户的订单列表(按创建时间倒序)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Order, int64, error)

	// List 管理员查询订单列表
	List(ctx context.Context, params ListParams) ([]*Order, int64, error)

	// HasPurchased 用户是否有包含该图书的已送达订单(评论的"已购"标记)
	HasPurchased(ctx context.Context, userID, bookID uint) (bool, error)
}

// ListParams 管理员订单查询参数
type ListParams struct {
	Page     int
	PageSize int
	Status   OrderStatus // 0表示不过滤
	UserID   uint        // 0表示不过滤
}
