package api

import (
	"net/http" // HTTP status codes

	"miracle_store/internal/middleware" // Context helpers
	"miracle_store/internal/orders"     // Order service

	"github.com/gin-gonic/gin" // Gin web framework
)

// MyOrdersHandler lists the signed-in user's orders
func MyOrdersHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.CurrentUserID(c)
		if userID == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		list, err := svc.ListForUser(c.Request.Context(), *userID)
		if err != nil {
			respondError(c, err, "Failed to fetch orders")
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	}
}
