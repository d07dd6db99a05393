package review

import (
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

var (
	ErrReviewNotFound  = apperrors.ErrReviewNotFound
	ErrReviewDuplicate = apperrors.ErrReviewDuplicate
	ErrForbidden       = apperrors.ErrForbidden.WithMessage("无权操作此评论")

	ErrInvalidRating  = apperrors.ErrInvalidParams.WithMessage("评分必须在1-5之间")
	ErrInvalidTitle   = apperrors.ErrInvalidParams.WithMessage("标题不能超过100个字符")
	ErrInvalidComment = apperrors.ErrInvalidParams.WithMessage("评论内容需要10-500个字符")
)
