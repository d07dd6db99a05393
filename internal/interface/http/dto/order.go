package dto

import "time"

// CreateOrderRequest HTTP下单请求
// 明细里不接受价格字段,单价由服务端按图书当前价格快照
type CreateOrderRequest struct {
	Items           []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress AddressRequest           `json:"shipping_address" binding:"required"`
	PaymentMethod   string                   `json:"payment_method" binding:"required,oneof=credit_card debit_card paypal" example:"credit_card"`
	Notes           string                   `json:"notes" binding:"max=500"`
	IsGift          bool                     `json:"is_gift"`
	GiftMessage     string                   `json:"gift_message" binding:"max=200"`
}

// CreateOrderItemRequest 订单明细项
type CreateOrderItemRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// AddressRequest 收货地址
type AddressRequest struct {
	Street  string `json:"street" binding:"required,max=200" example:"中关村大街1号"`
	City    string `json:"city" binding:"required,max=100" example:"北京"`
	State   string `json:"state" binding:"max=100" example:"北京"`
	Country string `json:"country" binding:"required,max=100" example:"中国"`
	ZipCode string `json:"zip_code" binding:"required,max=20" example:"100080"`
}

// ListOrdersRequest 管理员订单列表查询
type ListOrdersRequest struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending processing shipped delivered cancelled"`
	UserID uint   `form:"user_id"`
}

// UpdateOrderStatusRequest 管理员推进订单状态
type UpdateOrderStatusRequest struct {
	Status                string     `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled" example:"shipped"`
	TrackingNumber        string     `json:"tracking_number" binding:"max=64" example:"SF1234567890"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date" example:"2024-11-10T00:00:00+08:00"`
}

// PaymentWebhookRequest 支付回调
// type取值:payment.completed / payment.failed
type PaymentWebhookRequest struct {
	EventID string `json:"event_id" binding:"required,max=64" example:"evt_20241106_0001"`
	Type    string `json:"type" binding:"required,oneof=payment.completed payment.failed" example:"payment.completed"`
	OrderNo string `json:"order_no" binding:"required" example:"ORD1699248000123456"`
}
