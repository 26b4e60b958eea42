package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-api/models"
	pkgaws "github.com/yashrajoria/storefront-api/pkg/aws"
	"github.com/yashrajoria/storefront-api/repository"
	"go.uber.org/zap"
)

// OrderAPI is the surface the order controller depends on.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, string, *ServiceError)
	GetOrder(ctx context.Context, orderID, email string) (*models.Order, *ServiceError)
	ListOrders(ctx context.Context, email string, limit int, cursor string) (*models.OrderPage, *ServiceError)
	ListOrdersByStatus(ctx context.Context, status string, limit int) ([]models.Order, *ServiceError)
}

// PaymentCallbackAPI is the surface the payment webhook depends on.
type PaymentCallbackAPI interface {
	ConfirmPayment(ctx context.Context, orderID string) error
	FailPayment(ctx context.Context, orderID string) error
}

// OrderService implements order intake: validate, reserve, persist,
// hand off to the payment collaborator, and settle on its callbacks.
type OrderService struct {
	orders         repository.OrderRepository
	customers      repository.CustomerRepository
	products       repository.ProductRepository
	inventory      *InventoryService
	payments       PaymentClient
	events         pkgaws.SNSPublisher
	eventsTopicArn string
	reservationTTL time.Duration
	logger         *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	inventory *InventoryService,
	payments PaymentClient,
	events pkgaws.SNSPublisher,
	eventsTopicArn string,
	reservationTTL time.Duration,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:         orders,
		customers:      customers,
		products:       products,
		inventory:      inventory,
		payments:       payments,
		events:         events,
		eventsTopicArn: eventsTopicArn,
		reservationTTL: reservationTTL,
		logger:         logger,
	}
}

// CreateOrder validates the cart, reserves every line (all or
// nothing), persists the order with price snapshots and forwards it to
// the payment collaborator. Returns the order and checkout URL.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, string, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, "", validationErr("At least one item is required")
	}

	// Price snapshots come from the live catalog at reservation time
	// and are immutable afterwards.
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		pid, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, "", validationErr(fmt.Sprintf("Invalid product id: %s", line.ProductID))
		}
		product, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, "", validationErr(fmt.Sprintf("Unknown product: %s", line.ProductID))
			}
			s.logger.Error("failed to fetch product for intake", zap.String("product_id", line.ProductID), zap.Error(err))
			return nil, "", internalErr("Failed to create order")
		}
		if product.Status != models.ProductStatusActive {
			return nil, "", validationErr(fmt.Sprintf("Product is unavailable: %s", line.ProductID))
		}
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}

	orderID := uuid.NewString()

	if failedID, err := s.inventory.ReserveItems(ctx, orderID, items); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, "", conflictErr(fmt.Sprintf("Insufficient stock for product: %s", failedID))
		}
		s.logger.Error("reservation failed", zap.String("order_id", orderID), zap.String("product_id", failedID), zap.Error(err))
		return nil, "", internalErr("Failed to create order")
	}

	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:                   orderID,
		CustomerEmail:        strings.ToLower(req.CustomerEmail),
		Items:                items,
		Subtotal:             subtotal,
		Total:                subtotal,
		Status:               models.OrderStatusReserved,
		ShippingAddress:      req.ShippingAddress,
		BillingAddress:       req.BillingAddress,
		ReservationExpiresAt: now.Add(s.reservationTTL),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("failed to persist order", zap.String("order_id", orderID), zap.Error(err))
		s.inventory.ReleaseItems(ctx, orderID, items)
		return nil, "", internalErr("Failed to create order")
	}

	sessionID, checkoutURL, err := s.payments.CreateCheckoutSession(order)
	if err != nil {
		s.logger.Error("checkout session creation failed", zap.String("order_id", orderID), zap.Error(err))
		s.cancelAndRelease(ctx, order)
		return nil, "", internalErr("Failed to create order")
	}

	if err := s.orders.SetStripeSession(ctx, orderID, sessionID); err != nil {
		// Correlation still works through session metadata.
		s.logger.Warn("failed to record stripe session id", zap.String("order_id", orderID), zap.Error(err))
	}
	order.StripeSessionID = sessionID

	s.logger.Info("order created",
		zap.String("order_id", orderID),
		zap.String("customer_email", order.CustomerEmail),
		zap.Int("items", len(items)),
		zap.Float64("total", order.Total),
	)
	return order, checkoutURL, nil
}

// GetOrder returns a single order; the caller must present the email
// the order was placed with.
func (s *OrderService) GetOrder(ctx context.Context, orderID, email string) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundErr("Order not found")
		}
		s.logger.Error("failed to fetch order", zap.String("order_id", orderID), zap.Error(err))
		return nil, internalErr("Failed to fetch order")
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		return nil, forbiddenErr("Email does not match order")
	}
	return order, nil
}

// ListOrders returns a cursor-paginated page of a customer's orders.
func (s *OrderService) ListOrders(ctx context.Context, email string, limit int, cursor string) (*models.OrderPage, *ServiceError) {
	orders, next, err := s.orders.FindByEmail(ctx, strings.ToLower(email), limit, cursor)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, validationErr("Invalid pagination cursor")
		}
		s.logger.Error("failed to list orders", zap.String("customer_email", email), zap.Error(err))
		return nil, internalErr("Failed to fetch orders")
	}
	return &models.OrderPage{Orders: orders, NextCursor: next}, nil
}

// ListOrdersByStatus is the admin listing.
func (s *OrderService) ListOrdersByStatus(ctx context.Context, status string, limit int) ([]models.Order, *ServiceError) {
	switch status {
	case models.OrderStatusReserved, models.OrderStatusPaid, models.OrderStatusCompleted, models.OrderStatusCancelled:
	default:
		return nil, validationErr("Invalid order status")
	}
	orders, err := s.orders.FindByStatus(ctx, status, limit)
	if err != nil {
		s.logger.Error("failed to list orders by status", zap.String("status", status), zap.Error(err))
		return nil, internalErr("Failed to fetch orders")
	}
	return orders, nil
}

// ConfirmPayment settles a paid order. The status transition happens
// first so a duplicate webhook or a concurrent expiry sweep can never
// double-settle: whoever wins the conditional update proceeds.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}

	switch order.Status {
	case models.OrderStatusPaid, models.OrderStatusCompleted:
		s.logger.Info("duplicate payment confirmation ignored", zap.String("order_id", orderID))
		return nil
	case models.OrderStatusCancelled:
		// Reservation already released; needs manual reconciliation.
		s.logger.Error("payment confirmed for cancelled order", zap.String("order_id", orderID))
		return fmt.Errorf("order %s already cancelled", orderID)
	}

	err = s.orders.TransitionStatus(ctx, orderID, []string{models.OrderStatusReserved}, models.OrderStatusPaid)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Re-read to tell a duplicate confirm from an expiry race.
			current, readErr := s.orders.FindByID(ctx, orderID)
			if readErr == nil && (current.Status == models.OrderStatusPaid || current.Status == models.OrderStatusCompleted) {
				return nil
			}
			s.logger.Error("payment confirmation lost status race", zap.String("order_id", orderID))
			return fmt.Errorf("order %s not in reserved state", orderID)
		}
		return fmt.Errorf("transition order %s to paid: %w", orderID, err)
	}

	if err := s.inventory.CommitItems(ctx, orderID, order.Items); err != nil {
		return fmt.Errorf("commit inventory for order %s: %w", orderID, err)
	}

	// Customer aggregates and events are best-effort.
	if err := s.customers.RecordOrder(ctx, order.CustomerEmail, order.Total); err != nil {
		s.logger.Warn("failed to update customer aggregates",
			zap.String("order_id", orderID), zap.String("customer_email", order.CustomerEmail), zap.Error(err))
	}
	s.publishEvent(ctx, models.EventOrderPaid, order)

	s.logger.Info("payment confirmed", zap.String("order_id", orderID))
	return nil
}

// FailPayment cancels a reserved order after a failed or abandoned
// payment and releases its holds. Idempotent on repeat delivery.
func (s *OrderService) FailPayment(ctx context.Context, orderID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}

	switch order.Status {
	case models.OrderStatusCancelled:
		return nil
	case models.OrderStatusPaid, models.OrderStatusCompleted:
		s.logger.Error("payment failure reported for settled order", zap.String("order_id", orderID))
		return fmt.Errorf("order %s already settled", orderID)
	}

	if err := s.cancelAndRelease(ctx, order); err != nil {
		return err
	}
	s.logger.Info("payment failed, order cancelled", zap.String("order_id", orderID))
	return nil
}

// ExpireOverdueReservations cancels orders whose reservation window
// lapsed without payment and releases their holds. Returns how many
// orders were expired.
func (s *OrderService) ExpireOverdueReservations(ctx context.Context) (int, error) {
	overdue, err := s.orders.FindExpiredReservations(ctx, time.Now().UTC(), 0)
	if err != nil {
		return 0, fmt.Errorf("find expired reservations: %w", err)
	}

	expired := 0
	for i := range overdue {
		order := &overdue[i]
		if err := s.cancelAndRelease(ctx, order); err != nil {
			// A concurrent confirm won the race; leave the order alone.
			if errors.Is(err, repository.ErrStatusConflict) {
				continue
			}
			s.logger.Error("failed to expire reservation", zap.String("order_id", order.ID), zap.Error(err))
			continue
		}
		expired++
		s.logger.Info("reservation expired",
			zap.String("order_id", order.ID),
			zap.Time("reservation_expires_at", order.ReservationExpiresAt),
		)
	}
	return expired, nil
}

// cancelAndRelease transitions reserved -> cancelled and, only when it
// wins that transition, releases the held units. Releasing after the
// transition means a concurrent confirm can never commit units this
// path has already returned to available.
func (s *OrderService) cancelAndRelease(ctx context.Context, order *models.Order) error {
	err := s.orders.TransitionStatus(ctx, order.ID, []string{models.OrderStatusReserved}, models.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return err
		}
		return fmt.Errorf("transition order %s to cancelled: %w", order.ID, err)
	}

	s.inventory.ReleaseItems(ctx, order.ID, order.Items)
	s.publishEvent(ctx, models.EventOrderCancelled, order)
	return nil
}

func (s *OrderService) publishEvent(ctx context.Context, eventType string, order *models.Order) {
	if s.events == nil || s.eventsTopicArn == "" {
		return
	}
	payload, _ := json.Marshal(models.OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		Total:         order.Total,
		Timestamp:     time.Now().UTC(),
	})
	if err := s.events.Publish(ctx, s.eventsTopicArn, payload); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("order_id", order.ID), zap.String("type", eventType), zap.Error(err))
	}
}
