package main

import (
	"context" // context package is needed for Redis operations
	"time"    // CORS preflight cache

	"miracle_store/internal/api"     // Custom package for API handlers
	"miracle_store/internal/catalog" // Catalog reconciliation
	"miracle_store/internal/config"  // Custom package for configuration
	"miracle_store/internal/db"      // Database connection
	"miracle_store/internal/orders"  // Order lifecycle
	"miracle_store/internal/paypal"  // PayPal REST client
	"miracle_store/internal/stripe"  // Stripe Checkout client
	"miracle_store/internal/upload"  // Image storage

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// PayPal client, left out entirely when credentials are missing
	var (
		mirror   catalog.Mirror
		gateway  orders.Gateway
		products api.ProductAPI
	)
	pp := paypal.NewClient(paypal.Config{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		HomeURL:      cfg.PayPalHomeURL,
	})
	if pp.Configured() {
		mirror, gateway, products = pp, pp, pp
		logrus.WithFields(logrus.Fields{"mode": cfg.PayPalMode, "base_url": cfg.PayPalBaseURL}).Info("PayPal enabled")
	} else {
		logrus.Warn("PayPal credentials missing, catalog mirroring and checkout disabled")
	}

	// Stripe client, optional
	var sessions orders.Sessions
	sc := stripe.NewClient(stripe.Config{
		BaseURL:    cfg.StripeBaseURL,
		SecretKey:  cfg.StripeSecretKey,
		SuccessURL: cfg.StripeSuccessURL,
		CancelURL:  cfg.StripeCancelURL,
	})
	if sc.Configured() {
		sessions = sc
	}

	// Image storage: S3 when a bucket is configured, the local upload dir otherwise
	var images upload.Store
	uploadDir := ""
	if cfg.S3Bucket != "" {
		s3Store, err := upload.NewS3Store(context.Background(), cfg.S3Bucket)
		if err != nil {
			logrus.Fatalf("failed to configure S3: %v", err)
		}
		images = s3Store
	} else {
		local, err := upload.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			logrus.Fatalf("failed to prepare upload dir: %v", err)
		}
		images = local
		uploadDir = cfg.UploadDir
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Storefront origins may send the session cookie
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", api.SetupTokenHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.RegisterRoutes(r, api.Deps{
		DB:           gdb,
		Redis:        redisClient,
		Catalog:      catalog.NewService(gdb, redisClient, mirror),
		Orders:       orders.NewService(gdb, redisClient, gateway, sessions, cfg.PayPalCurrency),
		Products:     products,
		Images:       images,
		JWTSecret:    cfg.JWTSecret,
		SecureCookie: cfg.IsProd,
		SiteURL:      cfg.SiteURL,
		SetupToken:   cfg.SetupToken,
		UploadDir:    uploadDir,
	})

	logrus.Info("Server running on " + cfg.AppPort) // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
