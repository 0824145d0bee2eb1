package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payment status values
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// Fulfillment status values, meaningful once payment is COMPLETED
const (
	FulfillmentPending    = "PENDING"
	FulfillmentProcessing = "PROCESSING"
	FulfillmentShipped    = "SHIPPED"
	FulfillmentDelivered  = "DELIVERED"
	FulfillmentCancelled  = "CANCELLED"
)

// ValidPaymentStatus reports whether s is a known payment status
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// ValidFulfillmentStatus reports whether s is a known fulfillment status
func ValidFulfillmentStatus(s string) bool {
	switch s {
	case FulfillmentPending, FulfillmentProcessing, FulfillmentShipped, FulfillmentDelivered, FulfillmentCancelled:
		return true
	}
	return false
}

// Order Model
type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`                                                       // Primary key
	PayPalOrderID     string          `gorm:"column:paypal_order_id;size:64;uniqueIndex;not null" json:"paypal_order_id"` // Provider order id, unique
	PayerID           string          `gorm:"size:64" json:"payer_id"`                                                    // Provider payer id
	PayerEmail        string          `gorm:"size:255;index" json:"payer_email"`                                          // Payer email
	PayerName         string          `gorm:"size:255" json:"payer_name"`                                                 // Payer full name
	TotalAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`                            // Order total
	Currency          string          `gorm:"size:8;not null" json:"currency"`                                            // ISO currency code
	PaymentStatus     string          `gorm:"size:16;not null;default:PENDING;index" json:"payment_status"`               // PENDING, COMPLETED, FAILED
	FulfillmentStatus string          `gorm:"size:16;not null;default:PENDING;index" json:"fulfillment_status"`
	TrackingNumber    string          `gorm:"size:128" json:"tracking_number"`
	Carrier           string          `gorm:"size:64" json:"carrier"`
	FulfillmentNotes  string          `gorm:"type:text" json:"fulfillment_notes"`
	ShippingName      string          `gorm:"size:255" json:"shipping_name"`
	ShippingAddress   datatypes.JSON  `json:"shipping_address"`                          // Address snapshot from the provider
	ProviderPayload   datatypes.JSON  `json:"-"`                                         // Raw capture response
	UserID            *uint           `gorm:"index" json:"user_id"`                      // Nil for guest checkout
	User              *User           `gorm:"constraint:OnDelete:SET NULL;" json:"-"`    // Owning user
	Items             []OrderItem     `gorm:"constraint:OnDelete:CASCADE;" json:"items"` // Item snapshots
	CreatedAt         time.Time       `json:"created_at"`                                // Creation time
	UpdatedAt         time.Time       `json:"updated_at"`                                // Last update time
}

// OrderItem is a snapshot of an Item at purchase time
type OrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`                                      // Primary key
	OrderID         uint            `gorm:"index;not null" json:"order_id"`                            // Foreign key to Order
	ItemID          *uint           `gorm:"index" json:"item_id"`                                      // Source item, informational only
	Name            string          `gorm:"size:127;not null" json:"name"`                             // Item name at purchase time
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`                  // Unit price at purchase time
	Quantity        int             `gorm:"not null" json:"quantity"`                                  // Units bought
	PayPalProductID *string         `gorm:"column:paypal_product_id;size:64" json:"paypal_product_id"` // Mirror id at purchase time
	ImageURL        string          `gorm:"size:512" json:"image_url"`                                 // Image at purchase time
}
