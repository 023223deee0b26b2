package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewTokenID returns a unique id for refresh-session rows.
func NewTokenID() string {
	return uuid.NewString()
}

// GenerateRandomToken builds a random hex string of the given length, used
// as the OAuth state parameter on authorization URLs.
func GenerateRandomToken(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)[:length]
}
