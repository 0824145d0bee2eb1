package api

import (
	"crypto/subtle" // Constant time comparison
	"net/http"      // HTTP status codes

	"miracle_store/internal/db" // Raw SQL bootstrap

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// SetupTokenHeader carries the operator's setup token
const SetupTokenHeader = "X-Setup-Token"

// BootstrapUsersHandler creates the users table with raw SQL. Disabled when no token is configured.
func BootstrapUsersHandler(gdb *gorm.DB, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		got := c.GetHeader(SetupTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid setup token"})
			return
		}
		if err := db.BootstrapUsersTable(gdb.WithContext(c.Request.Context())); err != nil {
			logrus.WithError(err).Error("Users table bootstrap failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create users table"})
			return
		}
		logrus.Info("Users table bootstrapped")
		c.JSON(http.StatusOK, gin.H{"message": "Users table ready"})
	}
}
