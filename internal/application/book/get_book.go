package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// GetBookUseCase 图书详情
type GetBookUseCase struct {
	bookService book.Service
}

// NewGetBookUseCase 创建详情查询用例
func NewGetBookUseCase(bookService book.Service) *GetBookUseCase {
	return &GetBookUseCase{bookService: bookService}
}

// Execute 查询图书详情(含描述和评分)
func (uc *GetBookUseCase) Execute(ctx context.Context, id uint) (*BookView, error) {
	b, err := uc.bookService.GetBookByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newBookView(b, true), nil
}

// UpdatePriceUseCase 发布者调整价格和折扣
// 已有订单保存的是下单时的价格快照,调价不影响它们
type UpdatePriceUseCase struct {
	bookService book.Service
	log         *zap.Logger
}

// NewUpdatePriceUseCase 创建调价用例
func NewUpdatePriceUseCase(bookService book.Service, log *zap.Logger) *UpdatePriceUseCase {
	return &UpdatePriceUseCase{bookService: bookService, log: log}
}

// UpdatePriceRequest 调价请求
type UpdatePriceRequest struct {
	BookID        uint
	UserID        uint
	Price         int64
	DiscountPrice int64 // 0表示取消折扣
}

// Execute 执行调价
func (uc *UpdatePriceUseCase) Execute(ctx context.Context, req UpdatePriceRequest) (*BookView, error) {
	b, err := uc.bookService.UpdateBookPrice(ctx, req.BookID, req.UserID, req.Price, req.DiscountPrice)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx, uc.log).Info("图书价格已调整",
		zap.Uint("book_id", b.ID),
		zap.Int64("price", b.Price),
		zap.Int64("discount_price", b.DiscountPrice),
	)
	return newBookView(b, true), nil
}
