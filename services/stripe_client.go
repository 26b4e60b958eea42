package services

import (
	"bytes"
	"io"
	"math"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/storefront-api/models"
)

// PaymentClient abstracts the payment collaborator for the order flow.
type PaymentClient interface {
	CreateCheckoutSession(order *models.Order) (sessionID, checkoutURL string, err error)
}

// StripeService wraps the Stripe checkout and webhook APIs.
type StripeService struct {
	SecretKey  string
	WebhookKey string
	SuccessURL string
	CancelURL  string
}

func NewStripeService(secretKey, webhookKey, successURL, cancelURL string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		SecretKey:  secretKey,
		WebhookKey: webhookKey,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
}

// unitAmountCents converts a dollar price to Stripe's integer cents.
// Rounded, not truncated: float prices like 4.35 sit just below the
// exact cent value and would otherwise charge a cent short.
func unitAmountCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// CreateCheckoutSession creates a Stripe checkout session carrying the
// order id in metadata so the webhook can correlate it back.
func (s *StripeService) CreateCheckoutSession(order *models.Order) (string, string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String("usd"),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(unitAmountCents(item.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:     lineItems,
		SuccessURL:    stripe.String(s.SuccessURL),
		CancelURL:     stripe.String(s.CancelURL),
		CustomerEmail: stripe.String(order.CustomerEmail),
		// Mirror the order id onto the payment intent so
		// payment_intent.* events can be correlated too.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"order_id": order.ID},
		},
	}
	params.AddMetadata("order_id", order.ID)

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.ID, sess.URL, nil
}

// ParseWebhook verifies the Stripe signature and returns the event.
func (s *StripeService) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, s.WebhookKey)
}
