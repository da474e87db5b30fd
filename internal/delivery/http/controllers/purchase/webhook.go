package purchase

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/payment"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	signatureHeader     = "Stripe-Signature"
	maxWebhookBodyBytes = 64 << 10
)

type EventParser interface {
	ParseEvent(payload []byte, signature string) (*payment.Event, error)
}

type EventDispatcher interface {
	Dispatch(ctx context.Context, ev *payment.Event) error
}

type WebhookHandler struct {
	log        logger.Log
	parser     EventParser
	dispatcher EventDispatcher
}

func NewWebhookHandler(l logger.Log, p EventParser, d EventDispatcher) *WebhookHandler {
	return &WebhookHandler{
		log:        l.With("handler", "payment-webhook"),
		parser:     p,
		dispatcher: d,
	}
}

// Handle verifies the signed payload and routes the event. Once the signature checks out the
// processor always gets a 200, so handler failures are logged instead of triggering retries.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		common.Fail(c, http.StatusBadRequest, "cannot read body")
		return
	}
	if len(payload) > maxWebhookBodyBytes {
		common.Fail(c, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	ev, err := h.parser.ParseEvent(payload, c.GetHeader(signatureHeader))
	if err != nil {
		if errors.Is(err, app_errors.ErrInvalidSignature) {
			h.log.Warn("webhook signature rejected", "error", err.Error(), "client_ip", c.ClientIP())
			common.Fail(c, http.StatusBadRequest, app_errors.ErrInvalidSignature.Error())
			return
		}
		h.log.ErrorErr("verified webhook event undecodable", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.dispatcher.Dispatch(c.Request.Context(), ev); err != nil {
		h.log.ErrorErr("webhook event handling failed", err, "event_id", ev.ID, "type", ev.Type)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
