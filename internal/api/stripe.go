package api

import (
	"net/http" // HTTP status codes

	"miracle_store/internal/middleware" // Context helpers
	"miracle_store/internal/orders"     // Checkout service

	"github.com/gin-gonic/gin" // Gin web framework
)

// StripeCheckoutRequest is a cart plus an optional receipt email
type StripeCheckoutRequest struct {
	Items []orders.CartLine `json:"items" binding:"required,min=1,dive"`
	Email string            `json:"email" binding:"omitempty,email"`
}

// CreateStripeCheckoutHandler opens a hosted Stripe Checkout session
func CreateStripeCheckoutHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StripeCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart must list items with item_id and quantity"})
			return
		}
		email := req.Email
		if user, ok := middleware.CurrentUser(c); ok && email == "" {
			email = user.Email // Prefill for signed-in buyers
		}
		sess, err := svc.CheckoutStripe(c.Request.Context(), req.Items, email, middleware.CurrentUserID(c))
		if err != nil {
			respondError(c, err, "Failed to create checkout session")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": sess.ID, "url": sess.URL})
	}
}

// GetStripeCheckoutHandler reports the state of a checkout session
func GetStripeCheckoutHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svc.StripeSession(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch checkout session")
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": sess})
	}
}
