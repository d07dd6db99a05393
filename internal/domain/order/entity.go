package order

import (
	"strings"
	"time"
)

// Order 订单实体(聚合根)
// 教学要点:
// 1. Order是聚合根,OrderItem是子实体,不能单独寻址
// 2. Total在创建时由明细计算并冗余存储,之后不再按图书实时价格重算(防止改价影响历史订单)
// 3. UserID创建后不可变,订单从不物理删除
type Order struct {
	ID                    uint
	OrderNo               string // 订单号(业务主键,全局唯一)
	UserID                uint   // 买家用户ID
	Items                 []OrderItem
	Total                 int64 // 订单总金额(分)
	ShippingAddress       ShippingAddress
	PaymentMethod         PaymentMethod
	PaymentStatus         PaymentStatus
	Status                OrderStatus
	TrackingNumber        string
	EstimatedDeliveryDate *time.Time
	Notes                 string
	IsGift                bool
	GiftMessage           string
	CancelledAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// OrderItem 订单明细项
// 教学要点:
// 1. Price字段记录"下单时的单价"(价格快照),之后图书改价不影响它
// 2. 不直接关联Book对象,只保存BookID(避免跨聚合引用);Title同样是快照,便于展示
type OrderItem struct {
	ID       uint
	OrderID  uint
	BookID   uint
	Title    string
	Quantity int
	Price    int64 // 下单时的单价(分)
}

// Subtotal 明细小计
func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// ShippingAddress 收货地址(值对象),所有字段必填
type ShippingAddress struct {
	Street  string
	City    string
	State   string
	Country string
	ZipCode string
}

// Validate 校验地址完整性,错误信息指出缺失的字段
func (a ShippingAddress) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"country", a.Country},
		{"zip_code", a.ZipCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return ErrInvalidAddress.WithMessagef("收货地址缺少%s", f.name)
		}
	}
	return nil
}

// NewOrder 创建新订单(工厂方法)
// 教学要点:
// 1. 工厂方法保证实体创建即有效:明细非空、数量>=1、地址完整、支付方式合法
// 2. Total由明细计算,调用方无法单独指定
// 3. 初始状态:订单pending,支付pending
func NewOrder(orderNo string, userID uint, items []OrderItem, addr ShippingAddress, method PaymentMethod) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrInvalidOrderItems
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if item.Price < 0 {
			return nil, ErrInvalidPrice
		}
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, ErrInvalidPaymentMethod
	}

	now := time.Now()
	o := &Order{
		OrderNo:         orderNo,
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   method,
		PaymentStatus:   PaymentStatusPending,
		Status:          OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Total = o.CalculateTotal()
	return o, nil
}

// CalculateTotal 按明细快照价计算总金额
func (o *Order) CalculateTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// SetGift 标记为礼品订单
func (o *Order) SetGift(message string) {
	o.IsGift = true
	o.GiftMessage = message
}

// CanTransitionTo 检查是否可以转换到目标状态
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	return o.Status.CanTransitionTo(target)
}

// CanCancel 只有待处理、处理中的订单可以取消
func (o *Order) CanCancel() bool {
	return o.CanTransitionTo(OrderStatusCancelled)
}

// TransitionTo 状态转换
// 教学要点:
// 1. 先检查是否可以转换(业务规则校验)
// 2. 目标为cancelled时走Cancel,保证退款标记等副作用一致
func (o *Order) TransitionTo(target OrderStatus) error {
	if target == OrderStatusCancelled {
		return o.Cancel()
	}
	if !o.CanTransitionTo(target) {
		return ErrInvalidStatusTransition.WithMessagef("订单状态不能从%s变更为%s", o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Ship 发货,可附带物流单号和预计送达时间
func (o *Order) Ship(trackingNumber string, eta *time.Time) error {
	if err := o.TransitionTo(OrderStatusShipped); err != nil {
		return err
	}
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	if eta != nil {
		o.EstimatedDeliveryDate = eta
	}
	return nil
}

// Cancel 取消订单(领域行为)
// 业务规则:
// 1. 只能从pending/processing取消,重复取消返回ErrInvalidStatusTransition
// 2. 已支付的订单支付状态标记为refunded(实际退款由支付服务完成)
// 3. 库存回补由应用层在同一事务中完成(见RestockItems)
func (o *Order) Cancel() error {
	if !o.CanCancel() {
		return ErrInvalidStatusTransition.WithMessagef("%s状态的订单不能取消", o.Status)
	}
	now := time.Now()
	o.Status = OrderStatusCancelled
	if o.PaymentStatus == PaymentStatusCompleted {
		o.PaymentStatus = PaymentStatusRefunded
	}
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}

// RestockItems 取消时需要回补的库存(按图书合并数量)
func (o *Order) RestockItems() map[uint]int {
	restock := make(map[uint]int, len(o.Items))
	for _, item := range o.Items {
		restock[item.BookID] += item.Quantity
	}
	return restock
}

// CanApplyPayment 支付回调是否可以把支付状态改为target
// 规则:只接受completed/failed;订单未取消;当前支付状态为pending或failed(失败后允许重新支付)
func (o *Order) CanApplyPayment(target PaymentStatus) bool {
	if target != PaymentStatusCompleted && target != PaymentStatusFailed {
		return false
	}
	if o.Status == OrderStatusCancelled {
		return false
	}
	return o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusFailed
}

// ApplyPayment 记录支付结果
func (o *Order) ApplyPayment(target PaymentStatus) error {
	if !o.CanApplyPayment(target) {
		return ErrInvalidPaymentTransition.WithMessagef("订单(%s)支付状态不能从%s变更为%s", o.Status, o.PaymentStatus, target)
	}
	o.PaymentStatus = target
	o.UpdatedAt = time.Now()
	return nil
}

// IsOwnedBy 检查订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}
