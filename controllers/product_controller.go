package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-api/models"
	"github.com/yashrajoria/storefront-api/services"
	"go.uber.org/zap"
)

// ProductController serves the public catalog reads and the admin
// product lifecycle endpoints.
type ProductController struct {
	products services.ProductAPI
}

func NewProductController(products services.ProductAPI) *ProductController {
	return &ProductController{products: products}
}

// GetProducts returns a paginated catalog page with optional
// category/brand filters.
func (ctl *ProductController) GetProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("perPage", "20"))
	if err != nil || perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	filters := models.ProductFilters{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
	}

	result, serr := ctl.products.ListProducts(c.Request.Context(), page, perPage, filters)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// GetProductByID returns a single active product.
func (ctl *ProductController) GetProductByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	product, serr := ctl.products.GetProduct(c.Request.Context(), id)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// CreateProduct creates a product together with its inventory record.
func (ctl *ProductController) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Warn("Invalid create product payload", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	product, serr := ctl.products.CreateProduct(c.Request.Context(), &req)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusCreated, product)
}

// UpdateProduct applies partial field updates to a product.
func (ctl *ProductController) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Warn("Invalid update product payload", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	product, serr := ctl.products.UpdateProduct(c.Request.Context(), id, &req)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// DeleteProduct soft-deletes a product and its ledger record.
func (ctl *ProductController) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	if serr := ctl.products.SoftDeleteProduct(c.Request.Context(), id); serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id.String(), "status": models.ProductStatusDeleted})
}
