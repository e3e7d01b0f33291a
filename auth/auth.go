// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidUserKey = errors.New("invalid user key")
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrInvalidAdmin   = errors.New("invalid admin key")
	ErrAdminDisabled  = errors.New("admin endpoints disabled")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewUserID returns a random UUID string for a new user
func NewUserID() string {
	return uuid.NewString()
}

// ValidUserID reports whether id is a well-formed user UUID
func ValidUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NewSortableID returns a ULID. Lexical order matches creation order,
// which shopping lists rely on for stable listing.
func NewSortableID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUserKey creates an HMAC-based API key for a user
// This is deterministic and verifiable without storing the key
func GenerateUserKey(userID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(userID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateUserKey checks if the provided API key is valid for the user
func ValidateUserKey(userID, key, salt string) error {
	if !ValidUserID(userID) {
		return ErrInvalidUserID
	}
	expected := GenerateUserKey(userID, salt)
	if !hmac.Equal([]byte(key), []byte(expected)) {
		return ErrInvalidUserKey
	}
	return nil
}

// ValidateAdminKey compares a provided admin key against the configured one.
// An empty configured key disables admin access entirely.
func ValidateAdminKey(provided, configured string) error {
	if configured == "" {
		return ErrAdminDisabled
	}
	if !hmac.Equal([]byte(provided), []byte(configured)) {
		return ErrInvalidAdmin
	}
	return nil
}
