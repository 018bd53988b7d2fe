package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID primary keys
	"gorm.io/gorm"           // GORM ORM library
)

// User Model
type User struct {
	ID           uuid.UUID     `gorm:"type:char(36);primaryKey" json:"id"`                     // Primary key
	Username     string        `gorm:"size:50;uniqueIndex;not null" json:"username"`           // Unique username
	Email        string        `gorm:"size:120;uniqueIndex;not null" json:"email"`             // Unique email
	Password     string        `gorm:"size:255;not null" json:"-"`                             // Hashed password
	FirstName    string        `gorm:"size:50;not null" json:"first_name"`                     // Given name
	LastName     string        `gorm:"size:50;not null" json:"last_name"`                      // Family name
	IsActive     bool          `gorm:"not null;default:true" json:"is_active"`                 // Inactive users are refused
	IsVerified   bool          `gorm:"not null;default:false" json:"is_verified"`              // Email verification flag
	CreatedAt    time.Time     `json:"created_at"`                                             // Creation timestamp
	UpdatedAt    time.Time     `json:"updated_at"`                                             // Last update timestamp
	LastLogin    *time.Time    `json:"-"`                                                      // Set on successful login
	Calculations []Calculation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // One-to-many relationship with Calculation
}

// BeforeCreate assigns a fresh UUID when none was set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
