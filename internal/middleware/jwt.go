package middleware

import (
	"errors"   // Error sentinels
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"miracle_store/internal/domain" // Importing domain models
	"miracle_store/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Context keys set by the auth middlewares
const (
	CtxUserID = "userID" // uint
	CtxUser   = "user"   // *domain.User
)

// SessionCookie is the cookie carrying the session token
const SessionCookie = "session"

var errNoToken = errors.New("no session token")

// tokenFromRequest reads a bearer header first, then the session cookie
func tokenFromRequest(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", errors.New("malformed Authorization header")
		}
		return strings.TrimPrefix(authHeader, "Bearer "), nil // Extract the token string
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", errNoToken
}

// authenticate resolves the session to a user. The token must be valid and still be the user's current session.
func authenticate(c *gin.Context, db *gorm.DB, secret string) (*domain.User, error) {
	tokenStr, err := tokenFromRequest(c)
	if err != nil {
		return nil, err
	}
	claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		return nil, err
	}
	// Logout or a newer login invalidates the token
	if user.SessionToken == "" || user.SessionToken != tokenStr {
		return nil, errors.New("session revoked")
	}
	return &user, nil
}

// JWTAuthMiddleware requires a valid session and stores the user in the context
func JWTAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, db, secret)
		if errors.Is(err, errNoToken) {
			// No header and no cookie
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		if err != nil {
			// If parsing or lookup fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(CtxUserID, user.ID) // Store userID in context
		c.Set(CtxUser, user)      // Store user in context
		c.Next()                  // Proceed to the next handler
	}
}

// OptionalAuthMiddleware attaches the user when a valid session is present and lets guests through otherwise
func OptionalAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := authenticate(c, db, secret); err == nil {
			c.Set(CtxUserID, user.ID)
			c.Set(CtxUser, user)
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

// CurrentUserID returns the authenticated user id, or nil for guests
func CurrentUserID(c *gin.Context) *uint {
	if user, ok := CurrentUser(c); ok {
		id := user.ID
		return &id
	}
	return nil
}
