package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length is what the confirmation and revoke tokens are issued with.
const Length = 32

// New returns a hex token of exactly length characters drawn from
// crypto/rand. Uniqueness is ultimately guarded by the store's unique
// constraints, not by the generator.
func New(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", length)
	}

	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf)[:length], nil
}
