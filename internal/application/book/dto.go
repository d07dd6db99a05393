package book

import (
	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/pkg/money"
)

const timeLayout = "2006-01-02 15:04:05"

// BookView 图书详情响应DTO
// 金额同时给出"分"和格式化后的"元",前端展示不需要自己换算
type BookView struct {
	ID                 uint    `json:"id"`
	ISBN               string  `json:"isbn"`
	Title              string  `json:"title"`
	Author             string  `json:"author"`
	Publisher          string  `json:"publisher"`
	Price              int64   `json:"price"`
	PriceYuan          string  `json:"price_yuan"`
	DiscountPrice      int64   `json:"discount_price,omitempty"`
	EffectivePrice     int64   `json:"effective_price"`
	EffectivePriceYuan string  `json:"effective_price_yuan"`
	Stock              int     `json:"stock"`
	RatingAverage      float64 `json:"rating_average"`
	RatingCount        int     `json:"rating_count"`
	CoverURL           string  `json:"cover_url"`
	Description        string  `json:"description,omitempty"`
	PublisherID        uint    `json:"publisher_id"`
	CreatedAt          string  `json:"created_at"`
}

func newBookView(b *book.Book, withDescription bool) *BookView {
	v := &BookView{
		ID:                 b.ID,
		ISBN:               b.ISBN,
		Title:              b.Title,
		Author:             b.Author,
		Publisher:          b.Publisher,
		Price:              b.Price,
		PriceYuan:          money.FormatYuan(b.Price),
		DiscountPrice:      b.DiscountPrice,
		EffectivePrice:     b.EffectivePrice(),
		EffectivePriceYuan: money.FormatYuan(b.EffectivePrice()),
		Stock:              b.Stock,
		RatingAverage:      b.Ratings.Average,
		RatingCount:        b.Ratings.Count,
		CoverURL:           b.CoverURL,
		PublisherID:        b.PublisherID,
		CreatedAt:          b.CreatedAt.Format(timeLayout),
	}
	if withDescription {
		v.Description = b.Description
	}
	return v
}
