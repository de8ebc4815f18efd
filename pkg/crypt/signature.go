package crypt

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DecodePayload decodes a JSON object keeping numbers as json.Number so that
// re-serialising it yields the digits the client hashed.
func DecodePayload(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	payload := map[string]any{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return payload, nil
}

// Canonicalize serialises data with object keys in lexicographic order at
// every depth and without HTML escaping, matching JSON.stringify over a
// key-sorted object.
func Canonicalize(data map[string]any) ([]byte, error) {
	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("encoding canonical payload: %w", err)
	}
	return unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// unescapeLineSeparators writes U+2028 and U+2029 back as raw runes.
// encoding/json always escapes them; JSON.stringify never does.
func unescapeLineSeparators(encoded []byte) []byte {
	if !bytes.Contains(encoded, []byte(`\u202`)) {
		return encoded
	}

	out := make([]byte, 0, len(encoded))
	for i := 0; i < len(encoded); i++ {
		if encoded[i] != '\\' || i+1 >= len(encoded) {
			out = append(out, encoded[i])
			continue
		}
		if encoded[i+1] == 'u' && i+6 <= len(encoded) {
			switch string(encoded[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// any other escape, including \\, is copied as a pair
		out = append(out, encoded[i], encoded[i+1])
		i++
	}
	return out
}

func payloadHash(data map[string]any) (string, error) {
	canonical, err := Canonicalize(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Sign produces the signature a client attaches to a request body: the hex
// SHA-256 of the canonical body, AES encrypted with the session key.
func Sign(data map[string]any, key string) (string, error) {
	hash, err := payloadHash(data)
	if err != nil {
		return "", err
	}
	return AESEncrypt(hash, key)
}

// VerifySignature reports whether signature is a valid Sign output for data
// under key.
func VerifySignature(data map[string]any, signature string, key string) bool {
	if signature == "" || key == "" {
		return false
	}
	claimed, err := AESDecrypt(signature, key)
	if err != nil || claimed == "" {
		return false
	}
	actual, err := payloadHash(data)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(claimed), []byte(actual)) == 1
}
