package review

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/review"
	"github.com/xiebiao/bookmall/internal/domain/user"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// ErrAdminOnly 评论审核只允许管理员
var ErrAdminOnly = apperrors.ErrForbidden.WithMessage("仅管理员可以审核评论")

// ManageReviewUseCase 修改、删除、审核、点赞
// 除点赞外,每个变更都在同一事务内重算评分
type ManageReviewUseCase struct {
	reviewRepo review.Repository
	tx         Transactor
	ratings    *RecomputeBookRatingUseCase
	log        *zap.Logger
}

// NewManageReviewUseCase 创建评论管理用例
func NewManageReviewUseCase(reviewRepo review.Repository, tx Transactor, ratings *RecomputeBookRatingUseCase, log *zap.Logger) *ManageReviewUseCase {
	return &ManageReviewUseCase{reviewRepo: reviewRepo, tx: tx, ratings: ratings, log: log}
}

// UpdateReviewRequest 修改评论请求
type UpdateReviewRequest struct {
	ReviewID uint
	Rating   int
	Title    string
	Comment  string
}

// Update 作者或管理员修改评论,标记为已编辑
func (uc *ManageReviewUseCase) Update(ctx context.Context, actor user.Actor, req UpdateReviewRequest) (*ReviewView, error) {
	var updated *review.Review
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		rv, err := uc.modifiable(txCtx, req.ReviewID, actor)
		if err != nil {
			return err
		}
		if err := rv.Edit(req.Rating, req.Title, req.Comment); err != nil {
			return err
		}
		if err := uc.reviewRepo.Update(txCtx, rv); err != nil {
			return err
		}
		updated = rv
		_, err = uc.ratings.Execute(txCtx, rv.BookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newReviewView(updated), nil
}

// Delete 作者或管理员删除评论
func (uc *ManageReviewUseCase) Delete(ctx context.Context, actor user.Actor, reviewID uint) error {
	return uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		rv, err := uc.modifiable(txCtx, reviewID, actor)
		if err != nil {
			return err
		}
		if err := uc.reviewRepo.Delete(txCtx, rv.ID); err != nil {
			return err
		}
		if _, err := uc.ratings.Execute(txCtx, rv.BookID); err != nil {
			return err
		}
		logger.WithContext(ctx, uc.log).Info("评论已删除",
			zap.Uint("review_id", rv.ID),
			zap.Uint("operator", actor.UserID),
		)
		return nil
	})
}

// SetVisibility 管理员隐藏/恢复评论,隐藏的评论不参与评分
func (uc *ManageReviewUseCase) SetVisibility(ctx context.Context, actor user.Actor, reviewID uint, active bool) (*ReviewView, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}

	var updated *review.Review
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		rv, err := uc.reviewRepo.FindByID(txCtx, reviewID)
		if err != nil {
			return err
		}
		rv.SetActive(active)
		if err := uc.reviewRepo.Update(txCtx, rv); err != nil {
			return err
		}
		updated = rv
		_, err = uc.ratings.Execute(txCtx, rv.BookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newReviewView(updated), nil
}

// ToggleLike 点赞/取消点赞,不影响评分
func (uc *ManageReviewUseCase) ToggleLike(ctx context.Context, actor user.Actor, reviewID uint) (*LikeView, error) {
	if _, err := uc.reviewRepo.FindByID(ctx, reviewID); err != nil {
		return nil, err
	}
	liked, likes, err := uc.reviewRepo.ToggleLike(ctx, reviewID, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &LikeView{Liked: liked, Likes: likes}, nil
}

func (uc *ManageReviewUseCase) modifiable(ctx context.Context, reviewID uint, actor user.Actor) (*review.Review, error) {
	rv, err := uc.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !rv.CanModify(actor.UserID, actor.IsAdmin()) {
		return nil, review.ErrForbidden
	}
	return rv, nil
}
