package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Port string
	Env  string

	AWSRegion    string
	AWSEndpoint  string // optional, for local DynamoDB
	AWSAccessKey string
	AWSSecret    string

	DDBProductsTable  string
	DDBInventoryTable string
	DDBOrdersTable    string
	DDBCustomersTable string

	RedisAddr     string
	RedisPassword string

	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURL         string

	SNSOrderEventsArn string // optional, best-effort order events

	JWTSecret string

	ReservationTTL      time.Duration
	ExpirySweepInterval time.Duration
}

// LoadConfig loads environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getenv("PORT", "8080"),
		Env:  getenv("APP_ENV", "development"),

		AWSRegion:    getenv("AWS_REGION", "us-east-1"),
		AWSEndpoint:  os.Getenv("AWS_ENDPOINT"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecret:    os.Getenv("AWS_SECRET_ACCESS_KEY"),

		DDBProductsTable:  getenv("DDB_TABLE_PRODUCTS", "Products"),
		DDBInventoryTable: getenv("DDB_TABLE_INVENTORY", "Inventory"),
		DDBOrdersTable:    getenv("DDB_TABLE_ORDERS", "Orders"),
		DDBCustomersTable: getenv("DDB_TABLE_CUSTOMERS", "Customers"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FrontendURL:         getenv("FRONTEND_URL", "http://localhost:3000"),

		SNSOrderEventsArn: os.Getenv("SNS_ORDER_EVENTS_ARN"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		ReservationTTL:      getenvDuration("RESERVATION_TTL_MINUTES", 30) * time.Minute,
		ExpirySweepInterval: getenvDuration("EXPIRY_SWEEP_MINUTES", 5) * time.Minute,
	}

	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def int64) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(def)
}
