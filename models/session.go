package models

import (
	"time"

	"gorm.io/gorm"
)

// Session tracks one issued refresh token so logout can invalidate it.
type Session struct {
	gorm.Model
	UserID         string `gorm:"type:varchar(36);index;not null"`
	RefreshTokenID string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Revoked        bool
	ExpiresAt      time.Time
}
