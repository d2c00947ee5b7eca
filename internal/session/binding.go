package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// NewBindingToken returns a random token handed to the client that logged
// in. Only its hash is kept on the session.
func NewBindingToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate binding token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashBinding(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func bindingMatches(s *Session, token string) bool {
	if s == nil || s.Binding == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashBinding(token)), []byte(s.Binding)) == 1
}
