package api

import (
	"context"  // Context for provider calls
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"miracle_store/internal/middleware" // Context helpers
	"miracle_store/internal/orders"     // Checkout service
	"miracle_store/internal/paypal"     // PayPal types

	"github.com/gin-gonic/gin" // Gin web framework
)

// ProductAPI is the slice of the PayPal client behind the admin product endpoints
type ProductAPI interface {
	GetProduct(ctx context.Context, id string) (*paypal.Product, error)
	ListProducts(ctx context.Context, page, size int) (*paypal.ProductPage, error)
	UpdateProduct(ctx context.Context, id string, u paypal.ProductUpdate) error
}

// ProductPatchRequest lists the product fields PayPal allows to change
type ProductPatchRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	HomeURL     string `json:"home_url"`
}

func requirePayPal(c *gin.Context, api ProductAPI) bool {
	if api == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PayPal is not configured"})
		return false
	}
	return true
}

// ListProductsHandler proxies one page of the PayPal catalog
func ListProductsHandler(api ProductAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePayPal(c, api) {
			return
		}
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		res, err := api.ListProducts(c.Request.Context(), page, size)
		if err != nil {
			respondError(c, err, "Failed to list PayPal products")
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// GetProductHandler returns one PayPal product
func GetProductHandler(api ProductAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePayPal(c, api) {
			return
		}
		p, err := api.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch PayPal product")
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": p})
	}
}

// UpdateProductHandler patches a PayPal product and returns its new state
func UpdateProductHandler(api ProductAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePayPal(c, api) {
			return
		}
		var req ProductPatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		ctx := c.Request.Context()
		id := c.Param("id")
		err := api.UpdateProduct(ctx, id, paypal.ProductUpdate{
			Description: req.Description,
			Category:    req.Category,
			ImageURL:    req.ImageURL,
			HomeURL:     req.HomeURL,
		})
		if err != nil {
			respondError(c, err, "Failed to update PayPal product")
			return
		}
		p, err := api.GetProduct(ctx, id)
		if err != nil {
			respondError(c, err, "Failed to fetch PayPal product")
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": p})
	}
}

// CartRequest is a client cart
type CartRequest struct {
	Items []orders.CartLine `json:"items" binding:"required,min=1,dive"`
}

// CreatePayPalOrderHandler prices the cart and opens a PayPal order
func CreatePayPalOrderHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart must list items with item_id and quantity"})
			return
		}
		order, err := svc.CheckoutPayPal(c.Request.Context(), req.Items)
		if err != nil {
			respondError(c, err, "Failed to create PayPal order")
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":          order.ID,           // PayPal order id for the JS SDK
			"status":      order.Status,       // CREATED
			"approve_url": order.ApproveURL(), // Redirect flow
		})
	}
}

// CapturePayPalOrderHandler captures an approved order and records it. Guests get an order with no user.
func CapturePayPalOrderHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, created, err := svc.CaptureAndRecord(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
		if err != nil {
			respondError(c, err, "Failed to capture PayPal order")
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"order": order, "created": created})
	}
}
