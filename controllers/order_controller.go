package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-api/models"
	"github.com/yashrajoria/storefront-api/services"
	"go.uber.org/zap"
)

// OrderController serves order intake and order reads.
type OrderController struct {
	orders services.OrderAPI
}

func NewOrderController(orders services.OrderAPI) *OrderController {
	return &OrderController{orders: orders}
}

// CreateOrder validates the cart, reserves stock and returns the order
// alongside the payment checkout URL.
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Warn("Invalid create order payload", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, checkoutURL, serr := ctl.orders.CreateOrder(c.Request.Context(), &req)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"order":        order,
		"checkout_url": checkoutURL,
	})
}

// GetOrder returns a single order. The email query parameter must
// match the email the order was placed with.
func (ctl *OrderController) GetOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	email := c.Query("email")
	if email == "" {
		respondError(c, http.StatusBadRequest, "email query parameter is required")
		return
	}

	order, serr := ctl.orders.GetOrder(c.Request.Context(), orderID, email)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// ListOrders returns a customer's orders, newest first, with cursor
// pagination.
func (ctl *OrderController) ListOrders(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		respondError(c, http.StatusBadRequest, "email query parameter is required")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	page, serr := ctl.orders.ListOrders(c.Request.Context(), email, limit, c.Query("cursor"))
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusOK, page)
}

// ListOrdersByStatus is the admin listing across customers.
func (ctl *OrderController) ListOrdersByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", models.OrderStatusReserved)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	orders, serr := ctl.orders.ListOrdersByStatus(c.Request.Context(), status, limit)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}
	respondOK(c, http.StatusOK, orders)
}
