package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book 图书实体(聚合根)
// DDD设计说明:
// 1. Book是图书聚合的根实体,包含图书的核心属性
// 2. 价格使用int64存储"分"为单位(避免浮点数精度问题)
// 3. DiscountPrice为0表示没有折扣,非0时必须满足 0 < DiscountPrice <= Price
// 4. Ratings是评论聚合的冗余结果,只由评分重算写入
type Book struct {
	ID            uint
	ISBN          string // ISBN号(国际标准书号)
	Title         string
	Author        string
	Publisher     string // 出版社
	Price         int64  // 原价(分)
	DiscountPrice int64  // 折扣价(分),0表示无折扣
	Stock         int    // 库存数量,始终>=0
	Ratings       Ratings
	CoverURL      string
	Description   string
	PublisherID   uint // 发布者用户ID(关联User表)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ratings 评分聚合
type Ratings struct {
	Average float64 // [0,5],保留一位小数
	Count   int     // 有效评论数
}

// NewRatings 由评分总和与评论数计算评分聚合
// 教学要点:
// 1. 平均值用decimal计算再四舍五入到一位小数(4.25 → 4.3),避免float64的二进制误差
// 2. 没有有效评论时归零
func NewRatings(sum int64, count int) Ratings {
	if count <= 0 {
		return Ratings{}
	}
	avg := decimal.NewFromInt(sum).
		Div(decimal.NewFromInt(int64(count))).
		Round(1)
	return Ratings{Average: avg.InexactFloat64(), Count: count}
}

// NewBook 创建新图书(工厂方法)
func NewBook(isbn, title, author, publisher string, price, discountPrice int64, stock int, coverURL, description string, publisherID uint) *Book {
	now := time.Now()
	return &Book{
		ISBN:          isbn,
		Title:         title,
		Author:        author,
		Publisher:     publisher,
		Price:         price,
		DiscountPrice: discountPrice,
		Stock:         stock,
		CoverURL:      coverURL,
		Description:   description,
		PublisherID:   publisherID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// EffectivePrice 下单时使用的单价:有折扣用折扣价,否则用原价
func (b *Book) EffectivePrice() int64 {
	if b.DiscountPrice > 0 {
		return b.DiscountPrice
	}
	return b.Price
}

// HasDiscount 是否设置了折扣价
func (b *Book) HasDiscount() bool {
	return b.DiscountPrice > 0
}

// UpdatePricing 同时更新原价和折扣价(领域行为)
// 业务规则:价格必须>0;折扣价为0(取消折扣)或不超过原价
func (b *Book) UpdatePricing(price, discountPrice int64) error {
	if price <= 0 {
		return ErrInvalidPrice
	}
	if err := validateDiscount(price, discountPrice); err != nil {
		return err
	}
	b.Price = price
	b.DiscountPrice = discountPrice
	b.UpdatedAt = time.Now()
	return nil
}

// DecrStock 扣减内存中的库存(持久化层使用条件UPDATE,见Repository.DecrementStock)
func (b *Book) DecrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if b.Stock < quantity {
		return ErrInsufficientStock
	}
	b.Stock -= quantity
	b.UpdatedAt = time.Now()
	return nil
}

// IncrStock 增加库存(用于订单取消、补货)
func (b *Book) IncrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	b.Stock += quantity
	b.UpdatedAt = time.Now()
	return nil
}

// UpdateInfo 更新图书基本信息,空字符串表示不修改
func (b *Book) UpdateInfo(title, author, publisher, description string) {
	if title != "" {
		b.Title = title
	}
	if author != "" {
		b.Author = author
	}
	if publisher != "" {
		b.Publisher = publisher
	}
	if description != "" {
		b.Description = description
	}
	b.UpdatedAt = time.Now()
}

// IsOwnedBy 检查图书是否由指定用户发布
func (b *Book) IsOwnedBy(userID uint) bool {
	return b.PublisherID == userID
}

func validateDiscount(price, discountPrice int64) error {
	if discountPrice < 0 || discountPrice > price {
		return ErrInvalidDiscount
	}
	return nil
}
