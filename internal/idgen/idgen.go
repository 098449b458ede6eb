// Package idgen generates opaque ids for auto-keyed table inserts.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the number of random bytes behind each generated token,
// producing a 16-character hex string.
const TokenBytes = 8

// Token returns a random 16-character lowercase hex string, suitable as an
// auto-generated record id. Each call is independent; callers needing
// collision avoidance across a table should check for an existing key
// before relying on the result.
func Token() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idgen: read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
