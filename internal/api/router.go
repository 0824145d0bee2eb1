package api

import (
	"miracle_store/internal/catalog"    // Catalog service
	"miracle_store/internal/middleware" // Auth middlewares
	"miracle_store/internal/orders"     // Order service
	"miracle_store/internal/upload"     // Image storage

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Deps carries everything the HTTP handlers need
type Deps struct {
	DB           *gorm.DB         // Database handle
	Redis        *redis.Client    // Optional cache
	Catalog      *catalog.Service // Item service
	Orders       *orders.Service  // Order and checkout service
	Products     ProductAPI       // Nil when PayPal is not configured
	Images       upload.Store     // Nil disables image uploads
	JWTSecret    string           // JWT signing secret
	SecureCookie bool             // Secure flag on the session cookie
	SiteURL      string           // Storefront URL for reset links
	SetupToken   string           // Guards the users table bootstrap
	UploadDir    string           // Served under /uploads when set
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	auth := middleware.JWTAuthMiddleware(d.DB, d.JWTSecret)          // Required session
	optional := middleware.OptionalAuthMiddleware(d.DB, d.JWTSecret) // Guest or user

	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir) // Locally stored item images
	}

	// Auth routes
	authGroup := r.Group("/auth")
	authGroup.POST("/signup", SignupHandler(d.DB, d.Redis))                    // Registration endpoint
	authGroup.POST("/login", LoginHandler(d.DB, d.JWTSecret, d.SecureCookie))  // Login endpoint
	authGroup.POST("/forgot-password", ForgotPasswordHandler(d.DB, d.SiteURL)) // Reset request endpoint
	authGroup.POST("/reset-password", ResetPasswordHandler(d.DB))              // Reset endpoint
	authGroup.POST("/logout", auth, LogoutHandler(d.DB, d.SecureCookie))       // Logout endpoint
	authGroup.GET("/me", auth, MeHandler())                                    // Current user endpoint
	r.PUT("/user/wallet", auth, UpdateWalletHandler(d.DB))                     // Wallet link endpoint
	r.POST("/setup/users-table", BootstrapUsersHandler(d.DB, d.SetupToken))    // Raw SQL bootstrap

	// Storefront routes
	r.GET("/items", ListItemsHandler(d.Catalog))      // Public catalog
	r.GET("/items/:id", GetItemHandler(d.Catalog))    // Public item
	r.GET("/orders", auth, MyOrdersHandler(d.Orders)) // Own orders

	// Checkout routes, guests allowed
	r.POST("/paypal/orders", optional, CreatePayPalOrderHandler(d.Orders))              // Create PayPal order
	r.POST("/paypal/orders/:id/capture", optional, CapturePayPalOrderHandler(d.Orders)) // Capture and record
	r.POST("/stripe/checkout", optional, CreateStripeCheckoutHandler(d.Orders))         // Create Stripe session
	r.GET("/stripe/checkout/:id", optional, GetStripeCheckoutHandler(d.Orders))         // Stripe session status

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(auth, middleware.AdminOnlyMiddleware(d.DB))
	adminGroup.GET("/users", ListUsersHandler(d.DB, d.Redis))                       // List users
	adminGroup.GET("/items", AdminItemsHandler(d.Catalog))                          // Items beside PayPal products
	adminGroup.POST("/items", CreateItemHandler(d.Catalog, d.Images))               // Create item
	adminGroup.POST("/items/sync", SyncItemsHandler(d.Catalog))                     // Reconcile catalog
	adminGroup.PUT("/items/:id", UpdateItemHandler(d.Catalog, d.Images))            // Update item
	adminGroup.DELETE("/items/:id", DeleteItemHandler(d.Catalog))                   // Delete item
	adminGroup.GET("/paypal/products", ListProductsHandler(d.Products))             // PayPal catalog page
	adminGroup.GET("/paypal/products/:id", GetProductHandler(d.Products))           // PayPal product
	adminGroup.PATCH("/paypal/products/:id", UpdateProductHandler(d.Products))      // Patch PayPal product
	adminGroup.GET("/orders", ListOrdersHandler(d.Orders))                          // List orders
	adminGroup.PATCH("/orders/:id/fulfillment", UpdateFulfillmentHandler(d.Orders)) // Fulfillment update
	adminGroup.PATCH("/orders/:id/payment", UpdatePaymentHandler(d.Orders))         // Payment override
}
