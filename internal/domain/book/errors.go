package book

import (
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

// 图书领域错误定义
// 错误码来自pkg/errors,errors.Is按错误码判断类别
var (
	ErrBookNotFound      = apperrors.ErrBookNotFound
	ErrISBNDuplicate     = apperrors.ErrISBNDuplicate
	ErrInsufficientStock = apperrors.ErrInsufficientStock

	ErrInvalidPrice    = apperrors.ErrInvalidParams.WithMessage("价格必须在0.01-9999.99元之间")
	ErrInvalidDiscount = apperrors.ErrInvalidParams.WithMessage("折扣价不能为负数且不能高于原价")
	ErrInvalidStock    = apperrors.ErrInvalidParams.WithMessage("库存不能为负数")
	ErrInvalidQuantity = apperrors.ErrInvalidParams.WithMessage("数量必须大于0")
	ErrInvalidISBN     = apperrors.ErrInvalidParams.WithMessage("ISBN格式不正确")

	// ErrUnauthorized 非发布者操作图书
	ErrUnauthorized = apperrors.ErrForbidden.WithMessage("无权操作此图书")
)
