// internal/app/system/token/token.go
//
// Package token generates opaque invitation tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns a 64-character hex token from 32 random bytes.
func New() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
