package crypt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Digester hashes passwords with a server-held secret.
type Digester struct {
	secret []byte
}

func NewDigester(secret string) *Digester {
	return &Digester{secret: []byte(secret)}
}

// Digest returns the hex HMAC-SHA256 of raw.
func (d *Digester) Digest(raw string) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func (d *Digester) Equal(raw string, digest string) bool {
	if digest == "" {
		return false
	}
	return hmac.Equal([]byte(d.Digest(raw)), []byte(digest))
}
