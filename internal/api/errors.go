package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"miracle_store/internal/catalog" // Catalog errors
	"miracle_store/internal/orders"  // Order errors
	"miracle_store/internal/paypal"  // PayPal errors
	"miracle_store/internal/stripe"  // Stripe errors
	"miracle_store/internal/upload"  // Upload errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var stripeErr *stripe.Error
	switch {
	case errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrUserNotFound),
		errors.Is(err, paypal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidItem),
		errors.Is(err, orders.ErrInvalidOrder),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, upload.ErrUnsupportedImage),
		errors.Is(err, paypal.ErrNothingToUpdate):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, orders.ErrNotConfigured),
		errors.Is(err, stripe.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, paypal.ErrForbidden),
		errors.Is(err, paypal.ErrUnauthorized),
		errors.As(err, &stripeErr):
		return http.StatusBadGateway
	}
	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError replies with the mapped status. Internal errors are logged and hidden behind fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error(fallback)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
