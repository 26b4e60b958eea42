package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-api/models"
	"github.com/yashrajoria/storefront-api/repository"
	"github.com/yashrajoria/storefront-api/services"
	"go.uber.org/zap"
)

// InventoryController exposes the stock ledger: public reads and the
// admin adjust endpoint.
type InventoryController struct {
	inventory *services.InventoryService
}

func NewInventoryController(inventory *services.InventoryService) *InventoryController {
	return &InventoryController{inventory: inventory}
}

// GetStock returns the ledger record for a product.
func (ctl *InventoryController) GetStock(c *gin.Context) {
	productID := c.Param("productId")
	if _, err := uuid.Parse(productID); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	inv, err := ctl.inventory.GetStock(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Inventory record not found")
			return
		}
		zap.L().Error("Failed to fetch inventory", zap.String("product_id", productID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch inventory")
		return
	}
	respondOK(c, http.StatusOK, inv)
}

// AdjustStock applies an admin restock or correction delta.
func (ctl *InventoryController) AdjustStock(c *gin.Context) {
	productID := c.Param("productId")
	if _, err := uuid.Parse(productID); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	var req models.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Delta == 0 {
		respondError(c, http.StatusBadRequest, "Delta must be non-zero")
		return
	}

	inv, err := ctl.inventory.Adjust(c.Request.Context(), productID, req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			respondError(c, http.StatusNotFound, "Inventory record not found")
		case errors.Is(err, repository.ErrInsufficientStock):
			respondError(c, http.StatusConflict, "Adjustment would drop available below zero")
		default:
			zap.L().Error("Failed to adjust stock", zap.String("product_id", productID), zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Failed to adjust stock")
		}
		return
	}
	respondOK(c, http.StatusOK, inv)
}
