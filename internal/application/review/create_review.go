package review

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/domain/review"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// PurchaseChecker 判断用户是否买过某本书(订单仓储实现)
type PurchaseChecker interface {
	HasPurchased(ctx context.Context, userID, bookID uint) (bool, error)
}

var _ PurchaseChecker = (order.Repository)(nil)

// CreateReviewUseCase 发表评论
type CreateReviewUseCase struct {
	reviewRepo review.Repository
	bookRepo   book.Repository
	purchases  PurchaseChecker
	tx         Transactor
	ratings    *RecomputeBookRatingUseCase
	log        *zap.Logger
}

// NewCreateReviewUseCase 创建发表评论用例
func NewCreateReviewUseCase(
	reviewRepo review.Repository,
	bookRepo book.Repository,
	purchases PurchaseChecker,
	tx Transactor,
	ratings *RecomputeBookRatingUseCase,
	log *zap.Logger,
) *CreateReviewUseCase {
	return &CreateReviewUseCase{
		reviewRepo: reviewRepo,
		bookRepo:   bookRepo,
		purchases:  purchases,
		tx:         tx,
		ratings:    ratings,
		log:        log,
	}
}

// CreateReviewRequest 发表评论请求
type CreateReviewRequest struct {
	UserID  uint
	BookID  uint
	Rating  int
	Title   string
	Comment string
}

// Execute 发表评论
// 业务规则:
// 1. 图书必须存在
// 2. 每个用户对每本书只能评论一次(唯一索引兜底,返回ErrReviewDuplicate)
// 3. 有包含该书的已送达订单时标记为"已购"
// 4. 评论与评分重算在同一事务内
func (uc *CreateReviewUseCase) Execute(ctx context.Context, req CreateReviewRequest) (*ReviewView, error) {
	rv, err := review.NewReview(req.UserID, req.BookID, req.Rating, req.Title, req.Comment)
	if err != nil {
		return nil, err
	}
	if _, err := uc.bookRepo.FindByID(ctx, req.BookID); err != nil {
		return nil, err
	}

	verified, err := uc.purchases.HasPurchased(ctx, req.UserID, req.BookID)
	if err != nil {
		return nil, err
	}
	rv.IsVerifiedPurchase = verified

	err = uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		if err := uc.reviewRepo.Create(txCtx, rv); err != nil {
			return err
		}
		_, err := uc.ratings.Execute(txCtx, rv.BookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, uc.log).Info("评论已发表",
		zap.Uint("review_id", rv.ID),
		zap.Uint("book_id", rv.BookID),
		zap.Bool("verified", rv.IsVerifiedPurchase),
	)
	return newReviewView(rv), nil
}
