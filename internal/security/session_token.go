package security

import (
	"crypto/rand"
	"encoding/base64"
)

// sessionTokenBytes is the entropy of an opaque session token: 64 bytes (512 bits).
const sessionTokenBytes = 64

// NewSessionToken generates a cryptographically random opaque session token,
// URL-safe base64 encoded. This token is the session cookie value and is
// deliberately independent of the JWT pair, so cookie and bearer credentials
// can be revoked separately.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
