package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sync status values for items mirrored into the PayPal catalog
const (
	SyncStatusSynced    = "synced"
	SyncStatusLocalOnly = "local_only"
)

// Item Model
type Item struct {
	ID              uint            `gorm:"primaryKey" json:"id"`                                                  // Primary key
	Name            string          `gorm:"size:127;not null" json:"name"`                                         // Display name, also the PayPal product name
	Description     string          `gorm:"type:text" json:"description"`                                          // Free text description
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`                              // Unit price
	Quantity        int             `gorm:"not null;default:0" json:"quantity"`                                    // Units in stock
	ImageURL        string          `gorm:"size:512" json:"image_url"`                                             // Public image URL
	PayPalProductID *string         `gorm:"column:paypal_product_id;size:64;uniqueIndex" json:"paypal_product_id"` // PayPal catalog id, nil until mirrored
	SyncStatus      string          `gorm:"size:16;not null;default:local_only" json:"sync_status"`                // synced or local_only
	Available       bool            `gorm:"not null;default:true" json:"available"`                                // False once soft-deleted
	CreatedAt       time.Time       `json:"created_at"`                                                            // Creation time
	UpdatedAt       time.Time       `json:"updated_at"`                                                            // Last update time
}

// HasMirror reports whether the item is linked to a PayPal product
func (i *Item) HasMirror() bool {
	return i.PayPalProductID != nil && *i.PayPalProductID != ""
}
