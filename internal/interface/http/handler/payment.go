package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	apporder "github.com/xiebiao/bookmall/internal/application/order"
	"github.com/xiebiao/bookmall/internal/interface/http/dto"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/response"
)

// SignatureHeader 回调签名头：hex(HMAC-SHA256(secret, 原始请求体))
const SignatureHeader = "X-Payment-Signature"

// PaymentHandler 支付网关回调
type PaymentHandler struct {
	updatePayment *apporder.UpdatePaymentStatusUseCase
	secret        []byte
}

// NewPaymentHandler 创建支付回调处理器
func NewPaymentHandler(updatePayment *apporder.UpdatePaymentStatusUseCase, secret string) *PaymentHandler {
	return &PaymentHandler{updatePayment: updatePayment, secret: []byte(secret)}
}

// Webhook 支付结果回调
// @Summary      支付回调
// @Description  网关投递支付结果；同一event_id重复投递时返回duplicate=true且不修改订单
// @Tags         支付
// @Accept       json
// @Produce      json
// @Param        X-Payment-Signature header string                    true "hex(HMAC-SHA256(secret, body))"
// @Param        request             body   dto.PaymentWebhookRequest true "回调内容"
// @Success      200 {object} response.Response{data=apporder.PaymentResult}
// @Failure      200 {object} response.Response "40902签名校验失败"
// @Router       /api/v1/payments/webhook [post]
//
// 教学要点：
// 1. 签名必须基于原始字节计算，先读Body再反序列化，不能对重新序列化的JSON验签
// 2. hmac.Equal做常量时间比较，避免时序攻击
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		bindFailed(c, err)
		return
	}

	if !h.verify(body, c.GetHeader(SignatureHeader)) {
		response.Error(c, apperrors.ErrInvalidSignature)
		return
	}

	var req dto.PaymentWebhookRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.updatePayment.Execute(c.Request.Context(), apporder.PaymentNotification{
		EventID: req.EventID,
		OrderNo: req.OrderNo,
		Status:  strings.TrimPrefix(req.Type, "payment."),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (h *PaymentHandler) verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(h.secret, body))
}

// Sign 计算回调签名（测试和联调脚本使用同一算法）
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
