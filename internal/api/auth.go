package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Reset token expiry

	"miracle_store/internal/db"         // Error helpers
	"miracle_store/internal/domain"     // Importing domain models
	"miracle_store/internal/middleware" // Session cookie and context helpers
	"miracle_store/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// resetTokenTTL is how long a password reset link stays valid
const resetTokenTTL = time.Hour

// Request struct for signup
type SignupRequest struct {
	Name     string `json:"name" binding:"max=255"`                   // Display name, optional
	Email    string `json:"email" binding:"required,email,max=255"`   // Email must be provided
	Password string `json:"password" binding:"required,min=8,max=72"` // bcrypt reads at most 72 bytes
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Request struct for forgot password
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"` // Account email
}

// Request struct for reset password
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`                 // Token from the reset link
	Password string `json:"password" binding:"required,min=8,max=72"` // New password
}

// Response struct for authentication
type AuthResponse struct {
	Token string       `json:"token"` // JWT token
	User  *domain.User `json:"user"`  // Logged in user
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupHandler registers a new user
func SignupHandler(gdb *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: name, valid email and an 8-72 character password required"})
			return
		}
		// Hash the password and create the user
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Emails are stored lowercase to keep them unique
		user := domain.User{Name: strings.TrimSpace(req.Name), Email: normalizeEmail(req.Email), Password: hash, Role: domain.RoleUser}
		if err := gdb.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			if db.IsDuplicateKey(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			logrus.WithError(err).Error("Failed to create user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("User registered")
		// Cached admin user pages no longer hold the full list
		if err := utils.DeleteCachePrefix(c.Request.Context(), rdb, adminUsersPrefix); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate user list cache")
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	}
}

// LoginHandler authenticates a user, stores the session token and sets the session cookie
func LoginHandler(gdb *gorm.DB, jwtSecret string, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		ctx := c.Request.Context()
		var user domain.User // Fetch user from database
		if err := gdb.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
			// If user not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if !utils.CheckPassword(user.Password, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// One active session per user
		if err := gdb.WithContext(ctx).Model(&user).Update("session_token", token).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, token, int(utils.SessionTTL.Seconds()), "/", "", secureCookie, true)
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("User logged in")
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: &user}) // Return the token in the response
	}
}

// LogoutHandler revokes the current session
func LogoutHandler(gdb *gorm.DB, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(middleware.CtxUserID) // Set by the auth middleware
		if err := gdb.WithContext(c.Request.Context()).Model(&domain.User{}).Where("id = ?", userID).Update("session_token", "").Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", secureCookie, true) // Expire the cookie
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// MeHandler returns the authenticated user
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// ForgotPasswordHandler issues a reset token. The reply is the same whether or not the email exists.
func ForgotPasswordHandler(gdb *gorm.DB, siteURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		reply := gin.H{"message": "If that email is registered, a reset link has been sent"}
		ctx := c.Request.Context()
		var user domain.User
		if err := gdb.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
			c.JSON(http.StatusOK, reply)
			return
		}
		token, err := utils.RandomToken(32)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reset token"})
			return
		}
		expiry := time.Now().Add(resetTokenTTL)
		if err := gdb.WithContext(ctx).Model(&user).Updates(map[string]any{
			"reset_token":        token,
			"reset_token_expiry": expiry,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store reset token"})
			return
		}
		// No mail transport is configured; operators relay the link
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"link":    siteURL + "/reset-password?token=" + token,
			"expires": expiry.Format(time.RFC3339),
		}).Info("Password reset requested")
		c.JSON(http.StatusOK, reply)
	}
}

// ResetPasswordHandler sets a new password for a valid, unexpired reset token and ends existing sessions
func ResetPasswordHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: token and an 8-72 character password required"})
			return
		}
		ctx := c.Request.Context()
		var user domain.User
		err := gdb.WithContext(ctx).
			Where("reset_token = ? AND reset_token_expiry > ?", req.Token, time.Now()).
			First(&user).Error
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
			return
		}
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		if err := gdb.WithContext(ctx).Model(&user).Updates(map[string]any{
			"password":           hash,
			"reset_token":        "",
			"reset_token_expiry": nil,
			"session_token":      "",
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("Password reset")
		c.JSON(http.StatusOK, gin.H{"message": "Password updated, please log in again"})
	}
}
