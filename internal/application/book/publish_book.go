package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// PublishBookUseCase 图书上架用例
// 设计说明:
// 1. 应用层负责用例编排,业务规则校验(ISBN格式、价格范围、折扣价)由领域服务负责
// 2. 输入输出使用DTO,与HTTP层解耦
type PublishBookUseCase struct {
	bookService book.Service
	log         *zap.Logger
}

// NewPublishBookUseCase 创建上架用例
func NewPublishBookUseCase(bookService book.Service, log *zap.Logger) *PublishBookUseCase {
	return &PublishBookUseCase{bookService: bookService, log: log}
}

// PublishBookRequest 上架请求DTO
type PublishBookRequest struct {
	ISBN          string
	Title         string
	Author        string
	Publisher     string
	Price         int64 // 原价(分)
	DiscountPrice int64 // 折扣价(分),0表示无折扣
	Stock         int   // 初始库存
	CoverURL      string
	Description   string
	PublisherID   uint // 发布者用户ID(从认证中间件获取)
}

// Execute 执行上架用例
func (uc *PublishBookUseCase) Execute(ctx context.Context, req PublishBookRequest) (*BookView, error) {
	b, err := uc.bookService.PublishBook(ctx, book.PublishInput{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Stock:         req.Stock,
		CoverURL:      req.CoverURL,
		Description:   req.Description,
		PublisherID:   req.PublisherID,
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, uc.log).Info("图书已上架",
		zap.Uint("book_id", b.ID),
		zap.String("isbn", b.ISBN),
		zap.Uint("publisher_id", b.PublisherID),
	)
	return newBookView(b, true), nil
}
