package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewResetToken returns a hex-encoded opaque token with 256 bits of entropy.
func NewResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
