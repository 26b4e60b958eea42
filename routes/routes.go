package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-api/controllers"
	"github.com/yashrajoria/storefront-api/middleware"
)

// Controllers bundles everything RegisterRoutes wires up.
type Controllers struct {
	Products  *controllers.ProductController
	Inventory *controllers.InventoryController
	Orders    *controllers.OrderController
	Webhooks  *controllers.WebhookController
}

// RegisterRoutes attaches all API routes to the engine. Admin routes
// sit behind the JWT guard. The per-IP rate limiter covers the public
// and admin groups only; /health and the Stripe webhook are exempt so
// probes and payment retries are never throttled.
func RegisterRoutes(r *gin.Engine, ctl Controllers, jwtSecret string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rateLimit := middleware.RateLimitMiddleware()

	productRoutes := r.Group("/products", rateLimit)
	{
		productRoutes.GET("", ctl.Products.GetProducts)
		productRoutes.GET("/:productId", ctl.Products.GetProductByID)
	}

	inventoryRoutes := r.Group("/inventory", rateLimit)
	{
		inventoryRoutes.GET("/:productId", ctl.Inventory.GetStock)
	}

	orderRoutes := r.Group("/orders", rateLimit)
	{
		orderRoutes.POST("", ctl.Orders.CreateOrder)
		orderRoutes.GET("", ctl.Orders.ListOrders)
		orderRoutes.GET("/:orderId", ctl.Orders.GetOrder)
	}

	adminRoutes := r.Group("/admin", rateLimit, middleware.AdminAuth(jwtSecret))
	{
		adminRoutes.POST("/products", ctl.Products.CreateProduct)
		adminRoutes.PATCH("/products/:productId", ctl.Products.UpdateProduct)
		adminRoutes.DELETE("/products/:productId", ctl.Products.DeleteProduct)
		adminRoutes.POST("/inventory/:productId/adjust", ctl.Inventory.AdjustStock)
		adminRoutes.GET("/orders", ctl.Orders.ListOrdersByStatus)
	}

	r.POST("/webhooks/stripe", ctl.Webhooks.HandleStripeEvent)
}
