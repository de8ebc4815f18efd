package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	saltedPrefix = "Salted__"
	SizeOfSalt   = 8
	SizeOfKey    = 32
	SizeOfIV     = aes.BlockSize
)

// AESEncrypt encrypts plaintext with a passphrase using the OpenSSL "Salted__"
// format (EVP_BytesToKey with MD5, AES-256-CBC, PKCS#7), base64 encoded.
// This is the format CryptoJS produces for AES.encrypt(text, passphrase).
func AESEncrypt(plaintext string, passphrase string) (string, error) {
	salt := make([]byte, SizeOfSalt)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("creating salt: %w", err)
	}

	key, iv := evpBytesToKey([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating AES cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, len(saltedPrefix)+SizeOfSalt+len(ciphertext))
	out = append(out, saltedPrefix...)
	out = append(out, salt...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// AESDecrypt reverses AESEncrypt. A wrong passphrase almost always shows up as
// bad padding or non UTF-8 output, both reported as ErrorDecrypt.
func AESDecrypt(cipherText string, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrorDecrypt, err)
	}

	headerLen := len(saltedPrefix) + SizeOfSalt
	if len(raw) <= headerLen || !bytes.HasPrefix(raw, []byte(saltedPrefix)) {
		return "", fmt.Errorf("%w: missing salt header", ErrorDecrypt)
	}
	salt := raw[len(saltedPrefix):headerLen]
	ciphertext := raw[headerLen:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrorDecrypt)
	}

	key, iv := evpBytesToKey([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating AES cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrorDecrypt)
	}

	return string(plaintext), nil
}

func evpBytesToKey(passphrase, salt []byte) (key []byte, iv []byte) {
	derived := make([]byte, 0, SizeOfKey+SizeOfIV)
	var prev []byte
	for len(derived) < SizeOfKey+SizeOfIV {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:SizeOfKey], derived[SizeOfKey : SizeOfKey+SizeOfIV]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padded length", ErrorDecrypt)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: invalid padding", ErrorDecrypt)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrorDecrypt)
		}
	}
	return data[:len(data)-n], nil
}
