package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// ManageBookUseCase 发布者修改图书信息、下架图书
//
// 教学要点:
// 1. 权限校验在领域服务(ownedBook)里完成,用例只负责编排和日志
// 2. 下架是软删除,历史订单里的书名、价格是快照,不受影响
type ManageBookUseCase struct {
	bookService book.Service
	log         *zap.Logger
}

// NewManageBookUseCase 创建图书管理用例
func NewManageBookUseCase(bookService book.Service, log *zap.Logger) *ManageBookUseCase {
	return &ManageBookUseCase{bookService: bookService, log: log}
}

// UpdateInfoRequest 修改图书信息,空字符串表示不修改
type UpdateInfoRequest struct {
	BookID      uint
	UserID      uint
	Title       string
	Author      string
	Publisher   string
	Description string
}

// UpdateInfo 修改基本信息并返回最新详情
func (uc *ManageBookUseCase) UpdateInfo(ctx context.Context, req UpdateInfoRequest) (*BookView, error) {
	if err := uc.bookService.UpdateBookInfo(ctx, req.BookID, req.UserID, req.Title, req.Author, req.Publisher, req.Description); err != nil {
		return nil, err
	}
	b, err := uc.bookService.GetBookByID(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	return newBookView(b, true), nil
}

// Delete 下架图书
func (uc *ManageBookUseCase) Delete(ctx context.Context, bookID, userID uint) error {
	if err := uc.bookService.DeleteBook(ctx, bookID, userID); err != nil {
		return err
	}
	logger.WithContext(ctx, uc.log).Info("图书已下架", zap.Uint("book_id", bookID), zap.Uint("operator", userID))
	return nil
}
