package domain

import "time"

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`                       // Primary key
	Name             string     `gorm:"size:255" json:"name"`                       // Display name
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"` // Unique email
	Password         string     `gorm:"not null" json:"-"`                          // Hashed password
	Role             string     `gorm:"size:16;default:user" json:"role"`           // Role: user or admin
	SessionToken     string     `gorm:"size:512" json:"-"`                          // Current session token
	WalletAddress    string     `gorm:"size:64" json:"wallet_address"`              // Linked Solana wallet
	ResetToken       string     `gorm:"size:128;index" json:"-"`                    // Password reset token
	ResetTokenExpiry *time.Time `json:"-"`                                          // Password reset expiry
	CreatedAt        time.Time  `json:"created_at"`                                 // Creation time
	UpdatedAt        time.Time  `json:"updated_at"`                                 // Last update time
}
