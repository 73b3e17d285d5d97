// Package session stores the binding between opaque session identifiers
// and authenticated user IDs.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a session identifier does not resolve,
// either because it never existed, was destroyed, or expired.
var ErrNotFound = errors.New("session not found")

// tokenBytes is the number of random bytes in a session identifier.
const tokenBytes = 32

// newID returns a hex-encoded random session identifier.
func newID() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
