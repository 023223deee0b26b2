package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	UserID    string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string // empty for OAuth-only accounts
	FullName  string
	AvatarURL string
	Provider  string `gorm:"default:email"`
	Disabled  bool
}

// UserProfile is the secondary profile row ensured after the first
// successful authentication, keyed by the auth user's id.
type UserProfile struct {
	gorm.Model
	UserID    string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Email     string
	FullName  string
	AvatarURL string
	Provider  string
}
