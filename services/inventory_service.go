package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/storefront-api/models"
	"github.com/yashrajoria/storefront-api/repository"
	"go.uber.org/zap"
)

// InventoryService owns the stock ledger business logic. Per-product
// atomicity comes from the repository's conditional updates; this layer
// adds the multi-item all-or-nothing policy on top.
type InventoryService struct {
	repo   repository.InventoryRepository
	logger *zap.Logger
}

func NewInventoryService(repo repository.InventoryRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, logger: logger}
}

// GetStock returns the current ledger record for a product.
func (s *InventoryService) GetStock(ctx context.Context, productID string) (*models.Inventory, error) {
	return s.repo.Get(ctx, productID)
}

// InitStock creates the ledger record paired with a new product.
func (s *InventoryService) InitStock(ctx context.Context, productID string, stock, lowStock, reorderPoint int) (*models.Inventory, error) {
	inv := &models.Inventory{
		ProductID:    productID,
		Stock:        stock,
		Reserved:     0,
		Available:    stock,
		LowStock:     lowStock,
		ReorderPoint: reorderPoint,
		Status:       models.ProductStatusActive,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create inventory record: %w", err)
	}
	return inv, nil
}

// ReserveItems places a hold on every line or none. On any failure the
// lines already reserved in this call are released best-effort, and the
// id of the offending product is returned.
func (s *InventoryService) ReserveItems(ctx context.Context, orderID string, items []models.OrderItem) (failedProductID string, err error) {
	reserved := make([]models.OrderItem, 0, len(items))

	for _, item := range items {
		if err := s.repo.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			for _, held := range reserved {
				if relErr := s.repo.Release(ctx, held.ProductID, held.Quantity); relErr != nil {
					s.logger.Error("rollback release failed",
						zap.String("order_id", orderID),
						zap.String("product_id", held.ProductID),
						zap.Int("quantity", held.Quantity),
						zap.Error(relErr),
					)
				}
			}
			return item.ProductID, err
		}
		reserved = append(reserved, item)
	}

	s.logger.Info("stock reserved",
		zap.String("order_id", orderID),
		zap.Int("items", len(reserved)),
	)
	return "", nil
}

// ReleaseItems returns held units to available. Best-effort: a failed
// line is logged and the rest are still released.
func (s *InventoryService) ReleaseItems(ctx context.Context, orderID string, items []models.OrderItem) {
	for _, item := range items {
		if err := s.repo.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("release failed",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			continue
		}
	}
	s.logger.Info("stock released",
		zap.String("order_id", orderID),
		zap.Int("items", len(items)),
	)
}

// CommitItems converts reservations into permanent deductions after
// payment. A condition failure here means reserved < quantity, which
// indicates a prior bug; it is surfaced, not swallowed.
func (s *InventoryService) CommitItems(ctx context.Context, orderID string, items []models.OrderItem) error {
	for _, item := range items {
		if err := s.repo.Commit(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInvariantViolation) {
				s.logger.Error("ledger invariant violated on commit",
					zap.String("order_id", orderID),
					zap.String("product_id", item.ProductID),
					zap.Int("quantity", item.Quantity),
				)
			}
			return fmt.Errorf("commit for product=%s: %w", item.ProductID, err)
		}
	}
	s.logger.Info("stock committed",
		zap.String("order_id", orderID),
		zap.Int("items", len(items)),
	)
	return nil
}

// Adjust applies an admin restock or correction and returns the
// updated record.
func (s *InventoryService) Adjust(ctx context.Context, productID string, delta int) (*models.Inventory, error) {
	if delta == 0 {
		return nil, fmt.Errorf("delta must be non-zero")
	}
	if err := s.repo.Adjust(ctx, productID, delta); err != nil {
		return nil, err
	}

	inv, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if inv.Available <= inv.LowStock {
		s.logger.Warn("stock at or below threshold",
			zap.String("product_id", productID),
			zap.Int("available", inv.Available),
			zap.Int("low_stock_threshold", inv.LowStock),
		)
	}
	return inv, nil
}
