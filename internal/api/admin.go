package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"miracle_store/internal/domain" // Importing domain models
	"miracle_store/internal/orders" // Order service
	"miracle_store/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// adminUsersPrefix keys cached user listings
const adminUsersPrefix = "admin:users:"

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID            uint      `json:"id"`             // User ID
	Name          string    `json:"name"`           // Display name
	Email         string    `json:"email"`          // Email
	Role          string    `json:"role"`           // User role
	WalletAddress string    `json:"wallet_address"` // Linked wallet
	CreatedAt     time.Time `json:"created_at"`     // Signup time
}

// pagination reads page and page_size query params with the usual defaults and limits
func pagination(c *gin.Context) (int, int) {
	page := 1      // Default page number
	pageSize := 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}

// ListUsersHandler returns a page of users
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := adminUsersPrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		var total int64 // Total user count
		if err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"}) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		if err := db.WithContext(ctx).Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		// Map users to response format
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:            u.ID,
				Name:          u.Name,
				Email:         u.Email,
				Role:          u.Role,
				WalletAddress: u.WalletAddress,
				CreatedAt:     u.CreatedAt,
			}
		}
		respData := gin.H{
			"users":       resp,                                   // List of users
			"page":        page,                                   // Current page
			"page_size":   pageSize,                               // Page size
			"total":       total,                                  // Total number of users
			"total_pages": (int(total) + pageSize - 1) / pageSize, // Total pages
			"cached":      false,                                  // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates
func parseDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// ListOrdersHandler returns all orders, with optional filtering by status, email, or date
func ListOrdersHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, okFrom := parseDate(c.Query("from"))
		to, okTo := parseDate(c.Query("to"))
		if !okFrom || !okTo {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, use YYYY-MM-DD or RFC 3339"})
			return
		}
		if to != nil && len(c.Query("to")) == len(time.DateOnly) {
			end := to.Add(24*time.Hour - time.Nanosecond) // Whole day inclusive
			to = &end
		}
		f := orders.Filter{
			PaymentStatus:     strings.TrimSpace(c.Query("payment_status")),     // Filter by payment status
			FulfillmentStatus: strings.TrimSpace(c.Query("fulfillment_status")), // Filter by fulfillment status
			Email:             strings.TrimSpace(c.Query("email")),              // Filter by payer email
			From:              from,                                             // Filter by start date
			To:                to,                                               // Filter by end date
		}
		page, pageSize := pagination(c)
		res, err := svc.List(c.Request.Context(), f, page, pageSize)
		if err != nil {
			respondError(c, err, "Failed to fetch orders")
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// UpdateFulfillmentHandler sets fulfillment status and shipping details
func UpdateFulfillmentHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req orders.FulfillmentPatch
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		order, err := svc.UpdateFulfillment(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err, "Failed to update order")
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// PaymentStatusRequest is the body for a manual payment status change
type PaymentStatusRequest struct {
	Status string `json:"payment_status" binding:"required"` // PENDING, COMPLETED or FAILED
}

// UpdatePaymentHandler overrides the payment status of an order
func UpdatePaymentHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req PaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_status is required"})
			return
		}
		order, err := svc.UpdatePayment(c.Request.Context(), id, req.Status)
		if err != nil {
			respondError(c, err, "Failed to update order")
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}
