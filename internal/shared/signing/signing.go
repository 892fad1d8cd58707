// Package signing handles the shared secret Telegram echoes on every webhook
// call: minting new values, checking their shape and comparing them without
// leaking timing.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// MaxSecretLength is the longest secret_token the Bot API accepts.
const MaxSecretLength = 256

// Comparer checks candidate secrets against a fixed expected value.
type Comparer struct {
	key      []byte
	expected []byte
}

// NewComparer creates a comparer for expected. A random per-instance key is
// used to digest both sides, so comparisons take the same time regardless of
// length or common prefix.
func NewComparer(expected string) *Comparer {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	c := &Comparer{key: key}
	c.expected = c.digest(expected)
	return c
}

// Equal reports whether got matches the expected secret.
func (c *Comparer) Equal(got string) bool {
	return hmac.Equal(c.digest(got), c.expected)
}

func (c *Comparer) digest(s string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(s))
	return mac.Sum(nil)
}

// GenerateSecret returns a random secret of n bytes, hex encoded.
func GenerateSecret(n int) (string, error) {
	if n <= 0 || n*2 > MaxSecretLength {
		return "", fmt.Errorf("secret size %d out of range (1..%d bytes)", n, MaxSecretLength/2)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CheckSecret validates s against the Bot API rules: 1 to 256 characters
// from A-Z, a-z, 0-9, underscore and hyphen.
func CheckSecret(s string) error {
	if len(s) == 0 || len(s) > MaxSecretLength {
		return fmt.Errorf("secret length %d out of range (1..%d)", len(s), MaxSecretLength)
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_', ch == '-':
		default:
			return fmt.Errorf("secret contains invalid character %q at offset %d", ch, i)
		}
	}
	return nil
}
