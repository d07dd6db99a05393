package order

import (
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

// 订单领域错误定义
var (
	ErrOrderNotFound = apperrors.ErrOrderNotFound

	// ErrInvalidStatusTransition 状态变更违反状态机(包括重复取消、终态变更)
	ErrInvalidStatusTransition = apperrors.ErrInvalidOrderStatus

	// ErrInvalidPaymentTransition 支付状态变更不合法
	ErrInvalidPaymentTransition = apperrors.ErrInvalidOrderStatus.WithMessage("支付状态不允许此变更")

	// ErrForbidden 既不是订单所有者也不是管理员
	ErrForbidden = apperrors.ErrForbidden.WithMessage("无权操作此订单")

	ErrInvalidOrderItems    = apperrors.ErrInvalidParams.WithMessage("订单明细不能为空")
	ErrInvalidQuantity      = apperrors.ErrInvalidParams.WithMessage("购买数量必须大于0")
	ErrInvalidPrice         = apperrors.ErrInvalidParams.WithMessage("明细单价不能为负数")
	ErrInvalidAddress       = apperrors.ErrInvalidParams.WithMessage("收货地址不完整")
	ErrInvalidPaymentMethod = apperrors.ErrInvalidParams.WithMessage("不支持的支付方式")
	ErrInvalidStatus        = apperrors.ErrInvalidParams.WithMessage("无效的状态")
	ErrTooManyItems         = apperrors.ErrInvalidParams.WithMessage("订单明细过多")
)
