package crypt

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TimestampDelimiter separates the payload from its epoch-millisecond timestamp.
	TimestampDelimiter  = "@#@#@"
	DefaultReplayWindow = 60 * time.Second
	SizeOfPKCS1Overhead = 11
	// SizeOfTimestamp is the digit count of an epoch-millisecond timestamp.
	SizeOfTimestamp     = 13
)

var (
	ErrorDecrypt   = errors.New("decryption failed")
	ErrorTimestamp = errors.New("missing or malformed timestamp")
	ErrorExpired   = errors.New("payload timestamp outside replay window")
	ErrorSignature = errors.New("invalid signature")
)

// Box holds the server private key and the replay window used to open
// timestamped payloads sent by clients.
type Box struct {
	privateKey *rsa.PrivateKey
	window     time.Duration
	now        func() time.Time
}

func NewBox(privateKey *rsa.PrivateKey, window time.Duration) *Box {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &Box{
		privateKey: privateKey,
		window:     window,
		now:        time.Now,
	}
}

// WithClock returns a copy of the box reading the current time from now.
func (b *Box) WithClock(now func() time.Time) *Box {
	clone := *b
	clone.now = now
	return &clone
}

func (b *Box) PublicKey() *rsa.PublicKey {
	return &b.privateKey.PublicKey
}

// RSADecryptWithTimestamp decrypts a base64 PKCS#1 v1.5 ciphertext produced
// with the server public key and returns the payload that preceded the
// timestamp delimiter.
func (b *Box) RSADecryptWithTimestamp(cipherText string) (string, error) {
	plaintext, err := RSADecrypt(b.privateKey, cipherText)
	if err != nil {
		return "", err
	}
	return b.openTimestamped(plaintext)
}

// AESDecryptWithTimestamp is the symmetric counterpart of
// RSADecryptWithTimestamp, keyed by a client negotiated AES passphrase.
func (b *Box) AESDecryptWithTimestamp(cipherText string, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrorDecrypt)
	}
	plaintext, err := AESDecrypt(cipherText, key)
	if err != nil {
		return "", err
	}
	return b.openTimestamped(plaintext)
}

func (b *Box) openTimestamped(plaintext string) (string, error) {
	data, ts, err := splitTimestamp(plaintext)
	if err != nil {
		return "", err
	}
	now := b.now().UnixMilli()
	window := b.window.Milliseconds()
	if now-ts > window || ts-now > window {
		return "", ErrorExpired
	}
	return data, nil
}

func splitTimestamp(plaintext string) (string, int64, error) {
	idx := strings.LastIndex(plaintext, TimestampDelimiter)
	if idx < 0 {
		return "", 0, ErrorTimestamp
	}
	tsStr := plaintext[idx+len(TimestampDelimiter):]
	if len(tsStr) != SizeOfTimestamp {
		return "", 0, ErrorTimestamp
	}
	for i := 0; i < len(tsStr); i++ {
		if tsStr[i] < '0' || tsStr[i] > '9' {
			return "", 0, ErrorTimestamp
		}
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return "", 0, ErrorTimestamp
	}
	return plaintext[:idx], ts, nil
}

func withTimestamp(data string, now time.Time) string {
	return data + TimestampDelimiter + strconv.FormatInt(now.UnixMilli(), 10)
}

// RSAEncryptWithTimestamp is the client side of RSADecryptWithTimestamp.
func RSAEncryptWithTimestamp(publicKey *rsa.PublicKey, data string, now time.Time) (string, error) {
	return RSAEncrypt(publicKey, withTimestamp(data, now))
}

// AESEncryptWithTimestamp is the client side of AESDecryptWithTimestamp.
func AESEncryptWithTimestamp(data string, key string, now time.Time) (string, error) {
	return AESEncrypt(withTimestamp(data, now), key)
}

// RSAEncrypt encrypts with PKCS#1 v1.5, splitting long input into
// key-sized blocks the way node-rsa does.
func RSAEncrypt(publicKey *rsa.PublicKey, plaintext string) (string, error) {
	chunk := publicKey.Size() - SizeOfPKCS1Overhead
	data := []byte(plaintext)
	out := make([]byte, 0, (len(data)/chunk+1)*publicKey.Size())
	for len(data) > 0 || len(out) == 0 {
		n := min(chunk, len(data))
		block, err := rsa.EncryptPKCS1v15(rand.Reader, publicKey, data[:n])
		if err != nil {
			return "", fmt.Errorf("encrypting block: %w", err)
		}
		out = append(out, block...)
		data = data[n:]
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func RSADecrypt(privateKey *rsa.PrivateKey, cipherText string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrorDecrypt, err)
	}
	size := privateKey.Size()
	if len(raw) == 0 || len(raw)%size != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrorDecrypt, len(raw))
	}

	sb := strings.Builder{}
	for ; len(raw) > 0; raw = raw[size:] {
		block, err := rsa.DecryptPKCS1v15(rand.Reader, privateKey, raw[:size])
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrorDecrypt, err)
		}
		sb.Write(block)
	}
	return sb.String(), nil
}
