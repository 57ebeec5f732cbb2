package handler

import (
	"io"

	"controltower/internal/payment"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// HandlePaymentWebhook 支付渠道回调入口
// POST /api/v1/webhooks/payment
//
// 签名覆盖原始报文，必须在任何解析之前先读原始 body
func (h *Handler) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Fail(c, 400, "failed to read request body")
		return
	}

	signature := c.GetHeader(payment.SignatureHeader)
	if err := h.webhookService.HandleEvent(c.Request.Context(), body, signature); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "event processed", nil)
}
