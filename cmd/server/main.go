package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/yashrajoria/storefront-api/config"
	"github.com/yashrajoria/storefront-api/controllers"
	"github.com/yashrajoria/storefront-api/logger"
	"github.com/yashrajoria/storefront-api/middleware"
	pkgaws "github.com/yashrajoria/storefront-api/pkg/aws"
	"github.com/yashrajoria/storefront-api/repository"
	"github.com/yashrajoria/storefront-api/routes"
	"github.com/yashrajoria/storefront-api/services"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()
	log := logger.Log

	log.Info("Starting storefront API", zap.String("env", cfg.Env))

	// --- AWS / DynamoDB setup ---
	awsCfg, err := pkgaws.LoadConfig(context.Background(), pkgaws.Options{
		Region:    cfg.AWSRegion,
		Endpoint:  cfg.AWSEndpoint,
		AccessKey: cfg.AWSAccessKey,
		Secret:    cfg.AWSSecret,
	})
	if err != nil {
		log.Fatal("Failed to load AWS config", zap.Error(err))
	}
	ddbClient := repository.NewDynamoClient(awsCfg, cfg.AWSEndpoint)

	// --- Redis (product cache) ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unavailable, product cache disabled", zap.Error(err))
		rdb = nil
	}

	// --- SNS (order events, optional) ---
	var events pkgaws.SNSPublisher
	if cfg.SNSOrderEventsArn != "" {
		events = pkgaws.NewSNSClient(awsCfg)
	}

	// --- Repositories ---
	productRepo := repository.NewDynamoProductRepository(ddbClient, cfg.DDBProductsTable)
	inventoryRepo := repository.NewDynamoInventoryRepository(ddbClient, cfg.DDBInventoryTable)
	orderRepo := repository.NewDynamoOrderRepository(ddbClient, cfg.DDBOrdersTable)
	customerRepo := repository.NewDynamoCustomerRepository(ddbClient, cfg.DDBCustomersTable)

	// --- Services ---
	cache := services.NewCacheManager(rdb)
	inventoryService := services.NewInventoryService(inventoryRepo, log)
	productService := services.NewProductService(productRepo, inventoryRepo, cache, log)
	stripeService := services.NewStripeService(
		cfg.StripeSecretKey,
		cfg.StripeWebhookSecret,
		cfg.FrontendURL+"/checkout/success",
		cfg.FrontendURL+"/checkout/cancel",
	)
	orderService := services.NewOrderService(
		orderRepo, customerRepo, productRepo,
		inventoryService, stripeService,
		events, cfg.SNSOrderEventsArn,
		cfg.ReservationTTL, log,
	)

	// --- Controllers ---
	ctl := routes.Controllers{
		Products:  controllers.NewProductController(productService),
		Inventory: controllers.NewInventoryController(inventoryService),
		Orders:    controllers.NewOrderController(orderService),
		Webhooks:  controllers.NewWebhookController(stripeService, orderService),
	}

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware([]string{cfg.FrontendURL}))

	// Per-request deadline so slow store calls cannot pile up.
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, ctl, cfg.JWTSecret)

	// --- Reservation expiry worker ---
	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := services.NewExpiryWorker(orderService, cfg.ExpirySweepInterval, log)
	go worker.Run(workerCtx)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Storefront API listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down storefront API...")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Storefront API stopped gracefully")
}
