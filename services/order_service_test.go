package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-api/models"
	"go.uber.org/zap"
)

type orderFixture struct {
	orders    *fakeOrderRepo
	customers *fakeCustomerRepo
	products  *fakeProductRepo
	inventory *fakeInventoryRepo
	payments  *fakePaymentClient
	sns       *fakeSNS
	svc       *OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:    newFakeOrderRepo(),
		customers: newFakeCustomerRepo(),
		products:  newFakeProductRepo(),
		inventory: newFakeInventoryRepo(),
		payments:  &fakePaymentClient{},
		sns:       &fakeSNS{},
	}
	invSvc := NewInventoryService(f.inventory, zap.NewNop())
	f.svc = NewOrderService(
		f.orders, f.customers, f.products,
		invSvc, f.payments,
		f.sns, "arn:aws:sns:us-east-1:000000000000:order-events",
		30*time.Minute, zap.NewNop(),
	)
	return f
}

func (f *orderFixture) seedProduct(t *testing.T, name string, price float64, stock int) string {
	t.Helper()
	id := uuid.New()
	f.products.seed(&models.Product{
		ID:     id,
		Name:   name,
		Price:  price,
		Status: models.ProductStatusActive,
	})
	f.inventory.seed(id.String(), stock, 0)
	return id.String()
}

func testAddress() models.Address {
	return models.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

func TestCreateOrderReservesAndSnapshotsPrices(t *testing.T) {
	f := newOrderFixture()
	pid := f.seedProduct(t, "Widget", 19.99, 10)

	req := &models.CreateOrderRequest{
		CustomerEmail:   "Jane@Example.com",
		Items:           []models.CreateOrderItem{{ProductID: pid, Quantity: 3}},
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
	}

	order, checkoutURL, serr := f.svc.CreateOrder(context.Background(), req)
	if serr != nil {
		t.Fatalf("CreateOrder returned error: %v", serr)
	}
	if checkoutURL == "" {
		t.Fatal("expected a checkout URL")
	}
	if order.Status != models.OrderStatusReserved {
		t.Fatalf("expected status reserved, got %s", order.Status)
	}
	if order.CustomerEmail != "jane@example.com" {
		t.Fatalf("email not normalized: %s", order.CustomerEmail)
	}
	if order.Items[0].UnitPrice != 19.99 || order.Items[0].Name != "Widget" {
		t.Fatalf("price snapshot missing: %+v", order.Items[0])
	}
	if order.Total != 3*19.99 {
		t.Fatalf("expected total %.2f, got %.2f", 3*19.99, order.Total)
	}
	if order.ReservationExpiresAt.Before(time.Now().Add(29 * time.Minute)) {
		t.Fatalf("reservation expiry too soon: %v", order.ReservationExpiresAt)
	}

	inv, _ := f.inventory.Get(context.Background(), pid)
	if inv.Reserved != 3 || inv.Available != 7 {
		t.Fatalf("inventory not reserved: reserved=%d available=%d", inv.Reserved, inv.Available)
	}

	// A later catalog price change must not affect the stored order.
	_ = f.products.Update(context.Background(), uuid.MustParse(pid), map[string]interface{}{"price": 99.0})
	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	if stored.Items[0].UnitPrice != 19.99 {
		t.Fatalf("snapshot changed after price update: %.2f", stored.Items[0].UnitPrice)
	}
}

func TestCreateOrderInsufficientStockReleasesEarlierLines(t *testing.T) {
	f := newOrderFixture()
	p1 := f.seedProduct(t, "Widget", 5, 10)
	p2 := f.seedProduct(t, "Gadget", 7, 1)

	req := &models.CreateOrderRequest{
		CustomerEmail:   "jane@example.com",
		Items:           []models.CreateOrderItem{{ProductID: p1, Quantity: 2}, {ProductID: p2, Quantity: 5}},
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
	}

	_, _, serr := f.svc.CreateOrder(context.Background(), req)
	if serr == nil {
		t.Fatal("expected error")
	}
	if serr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", serr.StatusCode, serr.Message)
	}

	inv1, _ := f.inventory.Get(context.Background(), p1)
	if inv1.Reserved != 0 || inv1.Available != 10 {
		t.Fatalf("first line not released: reserved=%d available=%d", inv1.Reserved, inv1.Available)
	}
	if f.payments.sessions != 0 {
		t.Fatal("no checkout session should be created on failed reserve")
	}
}

func TestCreateOrderUnknownProductRejected(t *testing.T) {
	f := newOrderFixture()

	req := &models.CreateOrderRequest{
		CustomerEmail:   "jane@example.com",
		Items:           []models.CreateOrderItem{{ProductID: uuid.NewString(), Quantity: 1}},
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
	}

	_, _, serr := f.svc.CreateOrder(context.Background(), req)
	if serr == nil || serr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown product, got %v", serr)
	}
}

func TestCreateOrderPaymentFailureCancelsAndReleases(t *testing.T) {
	f := newOrderFixture()
	pid := f.seedProduct(t, "Widget", 5, 10)
	f.payments.fail = errors.New("stripe down")

	req := &models.CreateOrderRequest{
		CustomerEmail:   "jane@example.com",
		Items:           []models.CreateOrderItem{{ProductID: pid, Quantity: 2}},
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
	}

	_, _, serr := f.svc.CreateOrder(context.Background(), req)
	if serr == nil || serr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on payment provider failure, got %v", serr)
	}

	inv, _ := f.inventory.Get(context.Background(), pid)
	if inv.Reserved != 0 || inv.Available != 10 {
		t.Fatalf("reservation not released: reserved=%d available=%d", inv.Reserved, inv.Available)
	}
}

func createTestOrder(t *testing.T, f *orderFixture, qty int) *models.Order {
	t.Helper()
	pid := f.seedProduct(t, "Widget", 10, 20)
	req := &models.CreateOrderRequest{
		CustomerEmail:   "jane@example.com",
		Items:           []models.CreateOrderItem{{ProductID: pid, Quantity: qty}},
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
	}
	order, _, serr := f.svc.CreateOrder(context.Background(), req)
	if serr != nil {
		t.Fatalf("CreateOrder returned error: %v", serr)
	}
	return order
}

func TestConfirmPaymentCommitsAndIsIdempotent(t *testing.T) {
	f := newOrderFixture()
	order := createTestOrder(t, f, 4)
	pid := order.Items[0].ProductID

	if err := f.svc.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}

	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	if stored.Status != models.OrderStatusPaid {
		t.Fatalf("expected status paid, got %s", stored.Status)
	}
	inv, _ := f.inventory.Get(context.Background(), pid)
	if inv.Stock != 16 || inv.Reserved != 0 {
		t.Fatalf("commit not applied: stock=%d reserved=%d", inv.Stock, inv.Reserved)
	}
	if f.customers.count["jane@example.com"] != 1 {
		t.Fatal("customer aggregate not recorded")
	}
	if len(f.sns.published) != 1 {
		t.Fatalf("expected 1 order event, got %d", len(f.sns.published))
	}
	var event models.OrderEvent
	if err := json.Unmarshal(f.sns.published[0], &event); err != nil {
		t.Fatalf("invalid event payload: %v", err)
	}
	if event.Type != models.EventOrderPaid || event.OrderID != order.ID {
		t.Fatalf("unexpected event: %+v", event)
	}

	// Duplicate webhook delivery is a no-op.
	if err := f.svc.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("duplicate ConfirmPayment returned error: %v", err)
	}
	inv, _ = f.inventory.Get(context.Background(), pid)
	if inv.Stock != 16 {
		t.Fatalf("duplicate confirm double-committed: stock=%d", inv.Stock)
	}
	if f.customers.count["jane@example.com"] != 1 {
		t.Fatal("duplicate confirm recorded customer twice")
	}
}

func TestConfirmPaymentAfterCancellationFails(t *testing.T) {
	f := newOrderFixture()
	order := createTestOrder(t, f, 2)

	if err := f.svc.FailPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("FailPayment returned error: %v", err)
	}
	if err := f.svc.ConfirmPayment(context.Background(), order.ID); err == nil {
		t.Fatal("expected error confirming a cancelled order")
	}

	// Inventory must not have been committed.
	inv, _ := f.inventory.Get(context.Background(), order.Items[0].ProductID)
	if inv.Stock != 20 || inv.Reserved != 0 || inv.Available != 20 {
		t.Fatalf("ledger wrong after cancel+confirm: stock=%d reserved=%d available=%d", inv.Stock, inv.Reserved, inv.Available)
	}
}

func TestFailPaymentReleasesAndIsIdempotent(t *testing.T) {
	f := newOrderFixture()
	order := createTestOrder(t, f, 3)
	pid := order.Items[0].ProductID

	if err := f.svc.FailPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("FailPayment returned error: %v", err)
	}
	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	if stored.Status != models.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}
	inv, _ := f.inventory.Get(context.Background(), pid)
	if inv.Reserved != 0 || inv.Available != 20 {
		t.Fatalf("holds not released: reserved=%d available=%d", inv.Reserved, inv.Available)
	}

	if err := f.svc.FailPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("repeat FailPayment returned error: %v", err)
	}
	inv, _ = f.inventory.Get(context.Background(), pid)
	if inv.Available != 20 {
		t.Fatalf("repeat cancel double-released: available=%d", inv.Available)
	}
}

func TestExpireOverdueReservations(t *testing.T) {
	f := newOrderFixture()
	order := createTestOrder(t, f, 5)
	pid := order.Items[0].ProductID

	// Force the reservation window into the past.
	f.orders.mu.Lock()
	f.orders.orders[order.ID].ReservationExpiresAt = time.Now().Add(-time.Minute)
	f.orders.mu.Unlock()

	expired, err := f.svc.ExpireOverdueReservations(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdueReservations returned error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired order, got %d", expired)
	}

	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	if stored.Status != models.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}
	inv, _ := f.inventory.Get(context.Background(), pid)
	if inv.Reserved != 0 || inv.Available != 20 {
		t.Fatalf("holds not released: reserved=%d available=%d", inv.Reserved, inv.Available)
	}

	// A second sweep finds nothing.
	expired, err = f.svc.ExpireOverdueReservations(context.Background())
	if err != nil || expired != 0 {
		t.Fatalf("second sweep: expired=%d err=%v", expired, err)
	}
}

func TestExpirySweepSkipsOrderConfirmedMeanwhile(t *testing.T) {
	f := newOrderFixture()
	order := createTestOrder(t, f, 2)
	pid := order.Items[0].ProductID

	f.orders.mu.Lock()
	f.orders.orders[order.ID].ReservationExpiresAt = time.Now().Add(-time.Minute)
	f.orders.mu.Unlock()

	// Payment lands before the sweep runs.
	if err := f.svc.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}

	expired, err := f.svc.ExpireOverdueReservations(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdueReservations returned error: %v", err)
	}
	if expired != 0 {
		t.Fatalf("sweep expired a paid order: %d", expired)
	}

	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	if stored.Status != models.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", stored.Status)
	}
	inv, _ := f.inventory.Get(context.Background(), pid)
	if inv.Stock != 18 || inv.Available != 18 || inv.Reserved != 0 {
		t.Fatalf("ledger wrong after confirm+sweep: stock=%d reserved=%d available=%d", inv.Stock, inv.Reserved, inv.Available)
	}
}

func TestGetOrderRequiresMatchingEmail(t *testing.T) {
	f := newOrderFixture()
	order := createTestOrder(t, f, 1)

	if _, serr := f.svc.GetOrder(context.Background(), order.ID, "other@example.com"); serr == nil || serr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", serr)
	}

	got, serr := f.svc.GetOrder(context.Background(), order.ID, "JANE@example.com")
	if serr != nil {
		t.Fatalf("GetOrder returned error: %v", serr)
	}
	if got.ID != order.ID {
		t.Fatalf("wrong order returned: %s", got.ID)
	}
}

func TestOrderSurvivesProductSoftDelete(t *testing.T) {
	f := newOrderFixture()
	order := createTestOrder(t, f, 2)
	pid := order.Items[0].ProductID

	productSvc := NewProductService(f.products, f.inventory, NewCacheManager(nil), zap.NewNop())
	if serr := productSvc.SoftDeleteProduct(context.Background(), uuid.MustParse(pid)); serr != nil {
		t.Fatalf("SoftDeleteProduct returned error: %v", serr)
	}

	got, serr := f.svc.GetOrder(context.Background(), order.ID, "jane@example.com")
	if serr != nil {
		t.Fatalf("order unreadable after product delete: %v", serr)
	}
	if got.Items[0].ProductID != pid || got.Items[0].UnitPrice != 10 {
		t.Fatalf("order line changed: %+v", got.Items[0])
	}
}

func TestGetOrderNotFound(t *testing.T) {
	f := newOrderFixture()
	if _, serr := f.svc.GetOrder(context.Background(), "missing", "jane@example.com"); serr == nil || serr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", serr)
	}
}

func TestListOrdersByStatusRejectsUnknownStatus(t *testing.T) {
	f := newOrderFixture()
	if _, serr := f.svc.ListOrdersByStatus(context.Background(), "shipped", 10); serr == nil || serr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", serr)
	}
}
