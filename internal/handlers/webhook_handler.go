package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/payments"
)

type WebhookHandler struct {
	engine        *payments.Engine
	webhookSecret string
}

func NewWebhookHandler(engine *payments.Engine, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{engine: engine, webhookSecret: webhookSecret}
}

// curlecEvent is the slice of the gateway payload we act on.
type curlecEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// POST /webhooks/curlec
//
// The signature covers the raw body, so the body is read before any JSON
// work. Unknown events are acknowledged so the gateway stops retrying them.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httperr.BadRequest(c, "unreadable_body", "could not read webhook body")
		return
	}

	signature := c.GetHeader("x-razorpay-signature")
	if !payments.VerifyWebhookSignature(body, signature, h.webhookSecret) {
		httperr.Unauthorized(c, "invalid_signature", "webhook signature mismatch")
		return
	}

	var ev curlecEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		httperr.BadRequest(c, "invalid_payload", "could not parse webhook payload")
		return
	}

	paymentID := ev.Payload.Payment.Entity.ID
	refundID := ""
	if ev.Event == "refund.processed" {
		paymentID = ev.Payload.Refund.Entity.PaymentID
		refundID = ev.Payload.Refund.Entity.ID
	}
	if paymentID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.engine.ApplyGatewayEvent(c.Request.Context(), ev.Event, paymentID, refundID); err != nil {
		// 500 makes the gateway redeliver; the apply path is idempotent.
		log.Println("webhook apply:", err)
		httperr.Internal(c, "webhook_apply_failed", "could not apply event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
