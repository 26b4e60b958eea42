package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-api/models"
	"github.com/yashrajoria/storefront-api/repository"
	"go.uber.org/zap"
)

// ProductAPI is the surface the product controller depends on.
type ProductAPI interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, *ServiceError)
	ListProducts(ctx context.Context, page, perPage int, filters models.ProductFilters) (map[string]interface{}, *ServiceError)
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, *ServiceError)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, *ServiceError)
	SoftDeleteProduct(ctx context.Context, id uuid.UUID) *ServiceError
}

// ProductService implements the admin product lifecycle and catalog
// reads on top of the product and inventory repositories.
type ProductService struct {
	products  repository.ProductRepository
	inventory repository.InventoryRepository
	cache     *CacheManager
	logger    *zap.Logger
}

func NewProductService(products repository.ProductRepository, inventory repository.InventoryRepository, cache *CacheManager, logger *zap.Logger) *ProductService {
	return &ProductService{products: products, inventory: inventory, cache: cache, logger: logger}
}

// GetProduct returns an active product by id, cache first.
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, *ServiceError) {
	if p, ok := s.cache.GetProduct(ctx, id.String()); ok && p.Status == models.ProductStatusActive {
		return p, nil
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundErr("Product not found")
		}
		s.logger.Error("failed to fetch product", zap.String("product_id", id.String()), zap.Error(err))
		return nil, internalErr("Failed to fetch product")
	}
	if p.Status != models.ProductStatusActive {
		return nil, notFoundErr("Product not found")
	}

	s.cache.SetProductAsync(p)
	return p, nil
}

// ListProducts returns a paginated catalog page, cache first.
func (s *ProductService) ListProducts(ctx context.Context, page, perPage int, filters models.ProductFilters) (map[string]interface{}, *ServiceError) {
	if cached, ok := s.cache.GetProductList(ctx, page, perPage, filters); ok {
		return cached, nil
	}

	skip := (page - 1) * perPage
	products, err := s.products.Find(ctx, filters, perPage, skip)
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		return nil, internalErr("Failed to fetch products")
	}
	total, err := s.products.Count(ctx, filters)
	if err != nil {
		s.logger.Error("failed to count products", zap.Error(err))
		return nil, internalErr("Failed to fetch products")
	}

	totalPages := (total + int64(perPage) - 1) / int64(perPage)
	response := map[string]interface{}{
		"products": products,
		"meta": map[string]interface{}{
			"page":       page,
			"perPage":    perPage,
			"total":      total,
			"totalPages": totalPages,
		},
	}

	s.cache.SetProductListAsync(page, perPage, filters, response)
	return response, nil
}

// CreateProduct writes the product and its paired inventory record.
// If the inventory write fails the product row is compensating-deleted
// so the two tables never diverge.
func (s *ProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, *ServiceError) {
	id := uuid.New()
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			return nil, validationErr("Invalid product id")
		}
		id = parsed
	}

	now := time.Now().UTC()
	product := &models.Product{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Category:       req.Category,
		Brand:          req.Brand,
		Specifications: req.Specifications,
		Images:         req.Images,
		Status:         models.ProductStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, conflictErr("Product already exists")
		}
		s.logger.Error("failed to create product", zap.String("product_id", id.String()), zap.Error(err))
		return nil, internalErr("Failed to create product")
	}

	inv := &models.Inventory{
		ProductID:    id.String(),
		Stock:        req.InitialStock,
		Reserved:     0,
		Available:    req.InitialStock,
		LowStock:     req.LowStock,
		ReorderPoint: req.ReorderPoint,
		Status:       models.ProductStatusActive,
		UpdatedAt:    now,
	}
	if err := s.inventory.Create(ctx, inv); err != nil {
		s.logger.Error("inventory create failed, compensating product delete",
			zap.String("product_id", id.String()), zap.Error(err))
		if delErr := s.products.Delete(ctx, id); delErr != nil {
			s.logger.Error("compensating delete failed, product orphaned",
				zap.String("product_id", id.String()), zap.Error(delErr))
		}
		return nil, internalErr("Failed to create product")
	}

	s.cache.Invalidate(ctx, id.String())
	s.logger.Info("product created",
		zap.String("product_id", id.String()),
		zap.String("name", product.Name),
		zap.Int("initial_stock", req.InitialStock),
	)
	return product, nil
}

// UpdateProduct applies partial field updates. Price changes never
// touch existing orders; they carry their own snapshots.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, *ServiceError) {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.Specifications != nil {
		updates["specifications"] = *req.Specifications
	}
	if req.Images != nil {
		updates["images"] = *req.Images
	}
	if len(updates) == 1 {
		return nil, validationErr("No fields to update")
	}

	if err := s.products.Update(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundErr("Product not found")
		}
		s.logger.Error("failed to update product", zap.String("product_id", id.String()), zap.Error(err))
		return nil, internalErr("Failed to update product")
	}

	s.cache.Invalidate(ctx, id.String())
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to re-read product after update", zap.String("product_id", id.String()), zap.Error(err))
		return nil, internalErr("Failed to update product")
	}
	return p, nil
}

// SoftDeleteProduct marks the product and its ledger record deleted.
// Rows are kept so historical orders stay readable.
func (s *ProductService) SoftDeleteProduct(ctx context.Context, id uuid.UUID) *ServiceError {
	updates := map[string]interface{}{
		"status":     models.ProductStatusDeleted,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.products.Update(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundErr("Product not found")
		}
		s.logger.Error("failed to soft-delete product", zap.String("product_id", id.String()), zap.Error(err))
		return internalErr("Failed to delete product")
	}

	if err := s.inventory.SetStatus(ctx, id.String(), models.ProductStatusDeleted); err != nil {
		s.logger.Error("failed to soft-delete inventory record",
			zap.String("product_id", id.String()), zap.Error(err))
		return internalErr("Failed to delete product")
	}

	s.cache.Invalidate(ctx, id.String())
	s.logger.Info("product soft-deleted", zap.String("product_id", id.String()))
	return nil
}
