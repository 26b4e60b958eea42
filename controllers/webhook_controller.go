package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/storefront-api/services"
	"go.uber.org/zap"
)

// WebhookParser verifies an incoming payment webhook and returns the
// decoded event.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

// WebhookController receives Stripe webhook callbacks and settles
// orders accordingly.
type WebhookController struct {
	parser WebhookParser
	orders services.PaymentCallbackAPI
}

func NewWebhookController(parser WebhookParser, orders services.PaymentCallbackAPI) *WebhookController {
	return &WebhookController{parser: parser, orders: orders}
}

// HandleStripeEvent dispatches verified Stripe events. Unknown event
// types are acknowledged so Stripe stops retrying them.
func (ctl *WebhookController) HandleStripeEvent(c *gin.Context) {
	event, err := ctl.parser.ParseWebhook(c.Request)
	if err != nil {
		zap.L().Warn("Webhook signature verification failed", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	var apply func(ctx context.Context, orderID string) error
	switch event.Type {
	case "checkout.session.completed":
		apply = ctl.orders.ConfirmPayment
	case "checkout.session.expired", "checkout.session.async_payment_failed", "payment_intent.payment_failed":
		apply = ctl.orders.FailPayment
	default:
		zap.L().Debug("Ignoring webhook event", zap.String("type", string(event.Type)))
		respondOK(c, http.StatusOK, gin.H{"received": true})
		return
	}

	orderID, err := orderIDFromEvent(event)
	if err != nil {
		zap.L().Error("Webhook event missing order correlation",
			zap.String("type", string(event.Type)), zap.Error(err))
		respondError(c, http.StatusBadRequest, "Event is missing order metadata")
		return
	}

	if err := apply(c.Request.Context(), orderID); err != nil {
		zap.L().Error("Failed to settle order from webhook",
			zap.String("order_id", orderID), zap.String("type", string(event.Type)), zap.Error(err))
		// Non-200 makes Stripe retry, which is what we want for
		// transient store failures.
		respondError(c, http.StatusInternalServerError, "Failed to process event")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"received": true, "order_id": orderID})
}

// orderIDFromEvent pulls the order id out of the event object's
// metadata, set at session creation. Checkout sessions and payment
// intents both carry it at the top level.
func orderIDFromEvent(event stripe.Event) (string, error) {
	var obj struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return "", err
	}
	orderID := obj.Metadata["order_id"]
	if orderID == "" {
		return "", errMissingOrderID
	}
	return orderID, nil
}

var errMissingOrderID = errors.New("no order_id in session metadata")
