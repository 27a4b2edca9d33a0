// Package password applies the member password policy and hashes secrets
// for storage.
package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt cost in production
	DefaultCost = 12

	// MinLength is the shortest password accepted, in characters
	MinLength = 8

	// MaxBytes is the bcrypt input limit; longer input is refused rather
	// than silently truncated
	MaxBytes = 72
)

var (
	ErrTooShort        = fmt.Errorf("password must be at least %d characters", MinLength)
	ErrTooLong         = fmt.Errorf("password must be at most %d bytes", MaxBytes)
	ErrMatchesUsername = errors.New("password must differ from the username")
)

// Cost is the bcrypt cost used by Hash. Tests lower it to bcrypt.MinCost.
var Cost = DefaultCost

// Check applies the password policy. An empty username skips the username rule.
func Check(password, username string) error {
	switch {
	case utf8.RuneCountInString(password) < MinLength:
		return ErrTooShort
	case len(password) > MaxBytes:
		return ErrTooLong
	case username != "" && strings.EqualFold(strings.TrimSpace(password), username):
		return ErrMatchesUsername
	}
	return nil
}

// Hash hashes a password with bcrypt at Cost
func Hash(password string) (string, error) {
	if len(password) > MaxBytes {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a password with a stored hash
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether hash was made at a cost other than Cost.
// Login upgrades such hashes once the plain password is known.
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != Cost
}

// HashToken hashes a refresh token for storage. Tokens are high-entropy, so
// a fast digest is enough.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
