package review

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/review"
	"github.com/xiebiao/bookmall/pkg/logger"
	"github.com/xiebiao/bookmall/pkg/metrics"
	"github.com/xiebiao/bookmall/pkg/tracing"
)

// Transactor 事务执行器,*mysql.TxManager实现了它
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecomputeBookRatingUseCase 重算图书评分
//
// 教学要点:
// 1. 聚合在数据库完成(SUM/COUNT只扫描该书的有效评论),不把评论全部读到内存
// 2. 平均值由book.NewRatings用decimal计算并保留一位小数,没有有效评论时归零
// 3. 每次评论变更后在同一事务里调用,评分与评论始终一致
type RecomputeBookRatingUseCase struct {
	reviewRepo review.Repository
	bookRepo   book.Repository
	log        *zap.Logger
}

// NewRecomputeBookRatingUseCase 创建评分重算用例
func NewRecomputeBookRatingUseCase(reviewRepo review.Repository, bookRepo book.Repository, log *zap.Logger) *RecomputeBookRatingUseCase {
	return &RecomputeBookRatingUseCase{reviewRepo: reviewRepo, bookRepo: bookRepo, log: log}
}

// RatingsView 评分聚合响应
type RatingsView struct {
	BookID  uint    `json:"book_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Execute 重算并写入图书评分
func (uc *RecomputeBookRatingUseCase) Execute(ctx context.Context, bookID uint) (*RatingsView, error) {
	ctx, span := tracing.StartSpan(ctx, "review", "RecomputeBookRating")
	defer span.End()
	span.SetAttributes(attribute.Int64("book_id", int64(bookID)))

	sum, count, err := uc.reviewRepo.AggregateRatings(ctx, bookID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	ratings := book.NewRatings(sum, count)
	if err := uc.bookRepo.UpdateRatings(ctx, bookID, ratings); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	metrics.RatingRecomputesTotal.Inc()
	logger.WithContext(ctx, uc.log).Debug("图书评分已重算",
		zap.Uint("book_id", bookID),
		zap.Float64("average", ratings.Average),
		zap.Int("count", ratings.Count),
	)
	return &RatingsView{BookID: bookID, Average: ratings.Average, Count: ratings.Count}, nil
}
