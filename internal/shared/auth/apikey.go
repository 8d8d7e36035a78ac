package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned when a presented key does not match the hash.
var ErrInvalidAPIKey = errors.New("invalid API key")

// HashAPIKey hashes a plain text API key using bcrypt
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("API key must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey checks if a plain text key matches the bcrypt hash.
func VerifyAPIKey(hashedKey, key string) error {
	if key == "" {
		return ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(key)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}
