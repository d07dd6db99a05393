package order

import (
	"time"

	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/pkg/money"
)

const timeLayout = "2006-01-02 15:04:05"

// OrderView 订单详情响应DTO
type OrderView struct {
	ID                    uint            `json:"id"`
	OrderNo               string          `json:"order_no"`
	UserID                uint            `json:"user_id"`
	Items                 []OrderItemView `json:"items"`
	Total                 int64           `json:"total"`      // 分
	TotalYuan             string          `json:"total_yuan"` // 元,方便前端展示
	Status                string          `json:"status"`
	PaymentStatus         string          `json:"payment_status"`
	PaymentMethod         string          `json:"payment_method"`
	ShippingAddress       AddressView     `json:"shipping_address"`
	TrackingNumber        string          `json:"tracking_number,omitempty"`
	EstimatedDeliveryDate string          `json:"estimated_delivery_date,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	IsGift                bool            `json:"is_gift"`
	GiftMessage           string          `json:"gift_message,omitempty"`
	CancelledAt           string          `json:"cancelled_at,omitempty"`
	CreatedAt             string          `json:"created_at"`
	UpdatedAt             string          `json:"updated_at"`
}

// OrderItemView 订单明细
type OrderItemView struct {
	BookID    uint   `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	PriceYuan string `json:"price_yuan"`
	Subtotal  int64  `json:"subtotal"`
}

// AddressView 收货地址
type AddressView struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
}

// OrderPage 订单分页结果
type OrderPage struct {
	List     []*OrderView `json:"list"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// Pagination 分页默认值与上限
type Pagination struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (p Pagination) normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = p.DefaultPageSize
	}
	if p.MaxPageSize > 0 && pageSize > p.MaxPageSize {
		pageSize = p.MaxPageSize
	}
	return page, pageSize
}

// NewOrderView 领域实体 → 响应DTO
func NewOrderView(o *order.Order) *OrderView {
	items := make([]OrderItemView, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemView{
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
			PriceYuan: money.FormatYuan(item.Price),
			Subtotal:  item.Subtotal(),
		}
	}

	return &OrderView{
		ID:            o.ID,
		OrderNo:       o.OrderNo,
		UserID:        o.UserID,
		Items:         items,
		Total:         o.Total,
		TotalYuan:     money.FormatYuan(o.Total),
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		PaymentMethod: string(o.PaymentMethod),
		ShippingAddress: AddressView{
			Street:  o.ShippingAddress.Street,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			Country: o.ShippingAddress.Country,
			ZipCode: o.ShippingAddress.ZipCode,
		},
		TrackingNumber:        o.TrackingNumber,
		EstimatedDeliveryDate: formatOptional(o.EstimatedDeliveryDate),
		Notes:                 o.Notes,
		IsGift:                o.IsGift,
		GiftMessage:           o.GiftMessage,
		CancelledAt:           formatOptional(o.CancelledAt),
		CreatedAt:             o.CreatedAt.Format(timeLayout),
		UpdatedAt:             o.UpdatedAt.Format(timeLayout),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
