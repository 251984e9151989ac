package registry

import (
	"crypto/rand"
	"encoding/base64"
)

// 128 bits of randomness, enough that guessing a token is infeasible
// and collisions are a non-event in practice
const tokenBytes = 16

// NewToken returns a fixed-length URL-safe token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
