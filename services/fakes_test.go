package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-api/models"
	"github.com/yashrajoria/storefront-api/repository"
)

// fakeInventoryRepo mirrors the store's conditional-update semantics in
// memory: every mutation checks its guard and fails the same way the
// real table would.
type fakeInventoryRepo struct {
	mu      sync.Mutex
	records map[string]*models.Inventory

	failReserve map[string]error // productID -> forced error
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{
		records:     make(map[string]*models.Inventory),
		failReserve: make(map[string]error),
	}
}

func (f *fakeInventoryRepo) seed(productID string, stock, reserved int) {
	f.records[productID] = &models.Inventory{
		ProductID: productID,
		Stock:     stock,
		Reserved:  reserved,
		Available: stock - reserved,
		Status:    models.ProductStatusActive,
	}
}

func (f *fakeInventoryRepo) Get(ctx context.Context, productID string) (*models.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.records[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInventoryRepo) Create(ctx context.Context, inv *models.Inventory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[inv.ProductID]; ok {
		return repository.ErrAlreadyExists
	}
	cp := *inv
	f.records[inv.ProductID] = &cp
	return nil
}

func (f *fakeInventoryRepo) Reserve(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failReserve[productID]; ok {
		return err
	}
	inv, ok := f.records[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Available < quantity || inv.Status != models.ProductStatusActive {
		return repository.ErrInsufficientStock
	}
	inv.Available -= quantity
	inv.Reserved += quantity
	return nil
}

func (f *fakeInventoryRepo) Release(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.records[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Reserved < quantity {
		return repository.ErrInvariantViolation
	}
	inv.Available += quantity
	inv.Reserved -= quantity
	return nil
}

func (f *fakeInventoryRepo) Commit(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.records[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Reserved < quantity {
		return repository.ErrInvariantViolation
	}
	inv.Stock -= quantity
	inv.Reserved -= quantity
	return nil
}

func (f *fakeInventoryRepo) Adjust(ctx context.Context, productID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.records[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if delta < 0 && inv.Available < -delta {
		return repository.ErrInsufficientStock
	}
	inv.Stock += delta
	inv.Available += delta
	return nil
}

func (f *fakeInventoryRepo) SetStatus(ctx context.Context, productID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.records[productID]
	if !ok {
		return repository.ErrNotFound
	}
	inv.Status = status
	return nil
}

// fakeOrderRepo is an in-memory order table with the same forward-only
// conditional transitions as the real one.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[order.ID]; ok {
		return repository.ErrAlreadyExists
	}
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderRepo) FindByEmail(ctx context.Context, email string, limit int, cursor string) ([]models.Order, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.CustomerEmail == email {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, "", nil
}

func (f *fakeOrderRepo) FindByStatus(ctx context.Context, status string, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.Status == models.OrderStatusReserved && o.ReservationExpiresAt.Before(now) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) TransitionStatus(ctx context.Context, orderID string, from []string, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, s := range from {
		if order.Status == s {
			order.Status = to
			order.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrStatusConflict
}

func (f *fakeOrderRepo) SetStripeSession(ctx context.Context, orderID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	order.StripeSessionID = sessionID
	return nil
}

type fakeCustomerRepo struct {
	mu       sync.Mutex
	recorded map[string]float64
	count    map[string]int
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{recorded: make(map[string]float64), count: make(map[string]int)}
}

func (f *fakeCustomerRepo) Get(ctx context.Context, email string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.count[email]; !ok {
		return nil, repository.ErrNotFound
	}
	return &models.Customer{Email: email, TotalOrders: f.count[email], TotalSpent: f.recorded[email]}, nil
}

func (f *fakeCustomerRepo) RecordOrder(ctx context.Context, email string, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded[email] += amount
	f.count[email]++
	return nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[uuid.UUID]*models.Product)}
}

func (f *fakeProductRepo) seed(p *models.Product) {
	f.products[p.ID] = p
}

func (f *fakeProductRepo) Create(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[product.ID]; ok {
		return repository.ErrAlreadyExists
	}
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) Find(ctx context.Context, filters models.ProductFilters, limit, skip int) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Product
	for _, p := range f.products {
		if p.Status != models.ProductStatusActive {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeProductRepo) Count(ctx context.Context, filters models.ProductFilters) (int64, error) {
	items, _ := f.Find(ctx, filters, 0, 0)
	return int64(len(items)), nil
}

func (f *fakeProductRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if name, ok := updates["name"].(string); ok {
		p.Name = name
	}
	if price, ok := updates["price"].(float64); ok {
		p.Price = price
	}
	if status, ok := updates["status"].(string); ok {
		p.Status = status
	}
	return nil
}

func (f *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

// fakePaymentClient stands in for Stripe.
type fakePaymentClient struct {
	sessions int
	fail     error
}

func (f *fakePaymentClient) CreateCheckoutSession(order *models.Order) (string, string, error) {
	if f.fail != nil {
		return "", "", f.fail
	}
	f.sessions++
	return "cs_test_" + order.ID, "https://checkout.example.com/" + order.ID, nil
}

type fakeSNS struct {
	mu        sync.Mutex
	published [][]byte
	arns      []string
}

func (f *fakeSNS) Publish(ctx context.Context, topicArn string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arns = append(f.arns, topicArn)
	f.published = append(f.published, append([]byte(nil), message...))
	return nil
}
