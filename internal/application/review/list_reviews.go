package review

import (
	"context"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/review"
	"github.com/xiebiao/bookmall/internal/domain/user"
)

// ListReviewsUseCase 图书评论列表
type ListReviewsUseCase struct {
	reviewRepo review.Repository
	bookRepo   book.Repository
}

// NewListReviewsUseCase 创建评论列表用例
func NewListReviewsUseCase(reviewRepo review.Repository, bookRepo book.Repository) *ListReviewsUseCase {
	return &ListReviewsUseCase{reviewRepo: reviewRepo, bookRepo: bookRepo}
}

// Execute 按点赞数、时间倒序分页;管理员可以看到被隐藏的评论
func (uc *ListReviewsUseCase) Execute(ctx context.Context, actor user.Actor, bookID uint, page, pageSize int) (*ReviewPage, error) {
	if _, err := uc.bookRepo.FindByID(ctx, bookID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	reviews, total, err := uc.reviewRepo.ListByBook(ctx, bookID, page, pageSize, actor.IsAdmin())
	if err != nil {
		return nil, err
	}

	list := make([]*ReviewView, len(reviews))
	for i, r := range reviews {
		list[i] = newReviewView(r)
	}
	return &ReviewPage{List: list, Total: total, Page: page, PageSize: pageSize}, nil
}
