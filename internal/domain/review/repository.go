package review

import (
	"context"
)

// Repository 评论仓储接口
type Repository interface {
	// Create 创建评论,同一用户重复评论同一本书返回ErrReviewDuplicate
	Create(ctx context.Context, review *Review) error

	// FindByID 不存在时返回ErrReviewNotFound
	FindByID(ctx context.Context, id uint) (*Review, error)

	// Update 更新评分、标题、内容、编辑标记和可见性
	Update(ctx context.Context, review *Review) error

	// Delete 物理删除评论及其点赞记录
	Delete(ctx context.Context, id uint) error

	// ListByBook 查询图书的评论(按点赞数、时间倒序),includeHidden为false时只返回有效评论
	ListByBook(ctx context.Context, bookID uint, page, pageSize int, includeHidden bool) ([]*Review, int64, error)

	// AggregateRatings 只扫描该图书的有效评论,返回评分总和与条数
	AggregateRatings(ctx context.Context, bookID uint) (sum int64, count int, err error)

	// ToggleLike 点赞/取消点赞,返回操作后的点赞状态和点赞数
	ToggleLike(ctx context.Context, reviewID, userID uint) (liked bool, likes int, err error)
}
