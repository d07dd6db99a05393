package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookmall/internal/domain/review"
)

// reviewRepository 评论仓储实现
type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建评论仓储
func NewReviewRepository(db *gorm.DB) review.Repository {
	return &reviewRepository{db: db}
}

// Create 创建评论
// 一人一书一评由(user_id, book_id)唯一索引保证,冲突时返回ErrReviewDuplicate
func (r *reviewRepository) Create(ctx context.Context, rv *review.Review) error {
	model := toReviewModel(rv)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return review.ErrReviewDuplicate
		}
		return dbError(err, "创建评论失败")
	}

	rv.ID = model.ID
	rv.CreatedAt = model.CreatedAt
	rv.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id uint) (*review.Review, error) {
	var model ReviewModel
	if err := dbFrom(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrReviewNotFound
		}
		return nil, dbError(err, "查询评论失败")
	}
	return toReviewEntity(&model), nil
}

// Update 更新可编辑字段,likes只由ToggleLike维护
func (r *reviewRepository) Update(ctx context.Context, rv *review.Review) error {
	result := dbFrom(ctx, r.db).Model(&ReviewModel{ID: rv.ID}).
		Select("rating", "title", "comment", "is_edited", "is_active", "updated_at").
		Updates(toReviewModel(rv))
	if result.Error != nil {
		return dbError(result.Error, "更新评论失败")
	}
	if result.RowsAffected == 0 {
		found, err := exists(dbFrom(ctx, r.db), &ReviewModel{}, rv.ID)
		if err != nil {
			return err
		}
		if !found {
			return review.ErrReviewNotFound
		}
	}
	return nil
}

// Delete 删除评论及其点赞记录
func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	return dbFrom(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&ReviewLikeModel{}).Error; err != nil {
			return dbError(err, "删除点赞记录失败")
		}
		result := tx.Delete(&ReviewModel{}, id)
		if result.Error != nil {
			return dbError(result.Error, "删除评论失败")
		}
		if result.RowsAffected == 0 {
			return review.ErrReviewNotFound
		}
		return nil
	})
}

// ListByBook 查询图书评论,点赞多的排在前面
func (r *reviewRepository) ListByBook(ctx context.Context, bookID uint, page, pageSize int, includeHidden bool) ([]*review.Review, int64, error) {
	var models []ReviewModel
	var total int64

	query := dbFrom(ctx, r.db).Model(&ReviewModel{}).Where("book_id = ?", bookID)
	if !includeHidden {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "查询评论总数失败")
	}

	offset, limit := normalizePage(page, pageSize)
	err := query.Order("likes DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, dbError(err, "查询评论列表失败")
	}

	reviews := make([]*review.Review, len(models))
	for i := range models {
		reviews[i] = toReviewEntity(&models[i])
	}
	return reviews, total, nil
}

// AggregateRatings 聚合有效评论的评分
//
//	SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM reviews WHERE book_id = ? AND is_active = true
//
// 求平均和取整交给领域层(book.NewRatings),这里只返回整数总和
func (r *reviewRepository) AggregateRatings(ctx context.Context, bookID uint) (int64, int, error) {
	var agg struct {
		Total int64
		Cnt   int64
	}
	err := dbFrom(ctx, r.db).Model(&ReviewModel{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS cnt").
		Where("book_id = ? AND is_active = ?", bookID, true).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, dbError(err, "聚合评分失败")
	}
	return agg.Total, int(agg.Cnt), nil
}

// ToggleLike 点赞/取消点赞
// 点赞关系和likes计数在同一个事务里变更
func (r *reviewRepository) ToggleLike(ctx context.Context, reviewID, userID uint) (bool, int, error) {
	var liked bool
	var likes int

	err := dbFrom(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var rv ReviewModel
		if err := tx.Select("id").First(&rv, reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return review.ErrReviewNotFound
			}
			return dbError(err, "查询评论失败")
		}

		removed := tx.Where("review_id = ? AND user_id = ?", reviewID, userID).Delete(&ReviewLikeModel{})
		if removed.Error != nil {
			return dbError(removed.Error, "取消点赞失败")
		}

		delta := -1
		if removed.RowsAffected == 0 {
			if err := tx.Create(&ReviewLikeModel{ReviewID: reviewID, UserID: userID}).Error; err != nil {
				return dbError(err, "点赞失败")
			}
			delta = 1
			liked = true
		}

		if err := tx.Model(&ReviewModel{}).Where("id = ?", reviewID).
			UpdateColumn("likes", gorm.Expr("likes + ?", delta)).Error; err != nil {
			return dbError(err, "更新点赞数失败")
		}
		return tx.Model(&ReviewModel{}).Where("id = ?", reviewID).Select("likes").Scan(&likes).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likes, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toReviewModel(rv *review.Review) *ReviewModel {
	return &ReviewModel{
		ID:                 rv.ID,
		UserID:             rv.UserID,
		BookID:             rv.BookID,
		Rating:             rv.Rating,
		Title:              rv.Title,
		Comment:            rv.Comment,
		Likes:              rv.Likes,
		IsVerifiedPurchase: rv.IsVerifiedPurchase,
		IsEdited:           rv.IsEdited,
		IsActive:           rv.IsActive,
		CreatedAt:          rv.CreatedAt,
		UpdatedAt:          rv.UpdatedAt,
	}
}

func toReviewEntity(model *ReviewModel) *review.Review {
	return &review.Review{
		ID:                 model.ID,
		UserID:             model.UserID,
		BookID:             model.BookID,
		Rating:             model.Rating,
		Title:              model.Title,
		Comment:            model.Comment,
		Likes:              model.Likes,
		IsVerifiedPurchase: model.IsVerifiedPurchase,
		IsEdited:           model.IsEdited,
		IsActive:           model.IsActive,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}
