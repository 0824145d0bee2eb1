package api

import (
	"net/http" // HTTP status codes
	"regexp"   // Address validation

	"miracle_store/internal/domain"     // Importing domain models
	"miracle_store/internal/middleware" // Context helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// solanaAddress matches a base58 encoded 32 byte public key
var solanaAddress = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// WalletRequest links a wallet to the account
type WalletRequest struct {
	WalletAddress string `json:"wallet_address"` // Empty string unlinks
}

// UpdateWalletHandler stores or clears the user's Solana wallet address
func UpdateWalletHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(middleware.CtxUserID) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req WalletRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Validate address unless unlinking
		if req.WalletAddress != "" && !solanaAddress.MatchString(req.WalletAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Solana wallet address"})
			return
		}
		// Update the user row
		if err := db.WithContext(c.Request.Context()).Model(&domain.User{}).Where("id = ?", userID).
			Update("wallet_address", req.WalletAddress).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update wallet"})
			return
		}
		// Log the change
		logrus.WithFields(logrus.Fields{
			"user_id": userID,                  // User ID
			"linked":  req.WalletAddress != "", // Linked or unlinked
		}).Info("Wallet address updated")
		c.JSON(http.StatusOK, gin.H{"wallet_address": req.WalletAddress}) // Return the stored address
	}
}
