package mysql

import (
	"time"

	"gorm.io/gorm"
)

// UserModel GORM用户模型
// 设计说明:
// 1. 这是infrastructure层的数据模型,包含GORM tag
// 2. domain/user/entity.go是领域实体,不依赖GORM
// 3. Repository负责两者之间的转换
type UserModel struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string         `gorm:"size:255;not null;comment:密码(bcrypt加密)"`
	Nickname  string         `gorm:"size:50;not null;comment:昵称"`
	Role      string         `gorm:"size:20;not null;default:user;comment:角色(user/admin)"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (UserModel) TableName() string {
	return "users"
}

// BookModel GORM图书模型
// 设计说明:
// 1. 价格使用int64存储"分"为单位(避免浮点数精度问题)
// 2. stock只通过条件UPDATE修改,数据库层面保证不会出现负数
// 3. rating_average/rating_count是评论的冗余聚合,只由评分重算写入
type BookModel struct {
	ID            uint           `gorm:"primaryKey"`
	ISBN          string         `gorm:"uniqueIndex;size:20;not null;comment:ISBN号"`
	Title         string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author        string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Publisher     string         `gorm:"size:100;not null;comment:出版社"`
	Price         int64          `gorm:"index:idx_list;not null;comment:价格(分)"`
	DiscountPrice int64          `gorm:"not null;default:0;comment:折扣价(分),0表示无折扣"`
	Stock         int            `gorm:"not null;default:0;comment:库存数量"`
	RatingAverage float64        `gorm:"not null;default:0;comment:平均评分"`
	RatingCount   int            `gorm:"not null;default:0;comment:有效评论数"`
	CoverURL      string         `gorm:"size:500;comment:封面图片URL"`
	Description   string         `gorm:"type:text;comment:图书描述"`
	PublisherID   uint           `gorm:"index;not null;comment:发布者用户ID"`
	CreatedAt     time.Time      `gorm:"index:idx_list;comment:创建时间"`
	UpdatedAt     time.Time      `gorm:"comment:更新时间"`
	DeletedAt     gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (BookModel) TableName() string {
	return "books"
}

// ShippingAddressColumns 收货地址列,以ship_前缀嵌入orders表
type ShippingAddressColumns struct {
	Street  string `gorm:"size:200"`
	City    string `gorm:"size:100"`
	State   string `gorm:"size:100"`
	Country string `gorm:"size:100"`
	ZipCode string `gorm:"size:20"`
}

// OrderModel GORM订单模型
// 教学要点:
// 1. 与OrderItemModel是一对多关系
// 2. OrderNo有唯一索引(业务主键)
// 3. 订单状态、支付状态使用tinyint存储,状态变更都带"WHERE 旧状态"条件
type OrderModel struct {
	ID                    uint                   `gorm:"primaryKey"`
	OrderNo               string                 `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID                uint                   `gorm:"index;not null;comment:买家用户ID"`
	Total                 int64                  `gorm:"not null;comment:订单总金额(分)"`
	Status                int                    `gorm:"index;type:tinyint;not null;default:1;comment:订单状态(1待处理2处理中3已发货4已送达5已取消)"`
	PaymentStatus         int                    `gorm:"type:tinyint;not null;default:1;comment:支付状态(1待支付2已支付3失败4已退款)"`
	PaymentMethod         string                 `gorm:"size:20;not null;comment:支付方式"`
	Shipping              ShippingAddressColumns `gorm:"embedded;embeddedPrefix:ship_"`
	TrackingNumber        string                 `gorm:"size:64;comment:物流单号"`
	EstimatedDeliveryDate *time.Time             `gorm:"comment:预计送达时间"`
	Notes                 string                 `gorm:"size:500;comment:备注"`
	IsGift                bool                   `gorm:"not null;default:false"`
	GiftMessage           string                 `gorm:"size:200"`
	CancelledAt           *time.Time             `gorm:"comment:取消时间"`
	Items                 []OrderItemModel       `gorm:"foreignKey:OrderID"`
	CreatedAt             time.Time              `gorm:"index;comment:创建时间"`
	UpdatedAt             time.Time              `gorm:"comment:更新时间"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel GORM订单明细模型
// 教学要点:记录下单时的单价、书名快照
type OrderItemModel struct {
	ID       uint   `gorm:"primaryKey"`
	OrderID  uint   `gorm:"index;not null;comment:订单ID"`
	BookID   uint   `gorm:"index;not null;comment:图书ID"`
	Title    string `gorm:"size:200;comment:下单时书名"`
	Quantity int    `gorm:"not null;comment:购买数量"`
	Price    int64  `gorm:"not null;comment:下单时单价(分)"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// ReviewModel GORM评论模型
// (user_id, book_id)唯一,一个用户对一本书只能评论一次
type ReviewModel struct {
	ID                 uint      `gorm:"primaryKey"`
	UserID             uint      `gorm:"uniqueIndex:idx_review_user_book;not null"`
	BookID             uint      `gorm:"uniqueIndex:idx_review_user_book;index:idx_review_book_active;not null"`
	Rating             int       `gorm:"type:tinyint;not null;comment:评分1-5"`
	Title              string    `gorm:"size:100"`
	Comment            string    `gorm:"size:2000;not null"`
	Likes              int       `gorm:"not null;default:0"`
	IsVerifiedPurchase bool      `gorm:"not null;default:false"`
	IsEdited           bool      `gorm:"not null;default:false"`
	IsActive           bool      `gorm:"index:idx_review_book_active;not null"`
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time
}

func (ReviewModel) TableName() string {
	return "reviews"
}

// ReviewLikeModel 点赞关系,(review_id, user_id)唯一
type ReviewLikeModel struct {
	ID        uint `gorm:"primaryKey"`
	ReviewID  uint `gorm:"uniqueIndex:idx_review_like;not null"`
	UserID    uint `gorm:"uniqueIndex:idx_review_like;not null"`
	CreatedAt time.Time
}

func (ReviewLikeModel) TableName() string {
	return "review_likes"
}
