// Package token maps session identifiers to the opaque bearer strings handed
// to clients. A resolved token only names a session; callers must still
// confirm it against the stored record.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "authgate session token v1"

var ErrorMalformed = errors.New("malformed session token")

type Codec struct {
	aead cipher.AEAD
}

func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving token key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM cipher: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Issue encrypts sessionID into a bearer token. It returns "" if encryption
// fails.
func (c *Codec) Issue(sessionID string) string {
	if sessionID == "" {
		return ""
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return ""
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(sessionID), nil)
	return base58.Encode(sealed)
}

func (c *Codec) Resolve(token string) (string, error) {
	raw := base58.Decode(token)
	nonceSize := c.aead.NonceSize()
	if len(raw) <= nonceSize+c.aead.Overhead() {
		return "", ErrorMalformed
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrorMalformed
	}
	return string(plain), nil
}
