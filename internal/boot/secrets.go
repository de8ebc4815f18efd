package boot

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.authgate/pkg/crypt"
)

// Secrets is the key material the server is started with. It is built once
// and passed to the components that need it.
type Secrets struct {
	PrivateKey     *rsa.PrivateKey
	TokenSecret    string
	PasswordSecret string
}

func LoadSecrets(config *Config) (*Secrets, error) {
	privateKey, err := loadPrivateKey(config)
	if err != nil {
		return nil, err
	}

	return &Secrets{
		PrivateKey:     privateKey,
		TokenSecret:    config.Keys.TokenSecret,
		PasswordSecret: config.Keys.PasswordSecret,
	}, nil
}

func loadPrivateKey(config *Config) (*rsa.PrivateKey, error) {
	if config.Keys.PrivateKeyPath == "" {
		if config.IsProduction() {
			return nil, errors.New("no RSA private key configured")
		}
		log.Warn("RSA_PRIVATE_KEY_PATH not set, generating an ephemeral key pair")
		return crypt.GenerateKey(crypt.DefaultKeyBits)
	}

	privateKey, err := crypt.LoadPrivateKey(config.Keys.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading RSA private key: %w", err)
	}

	if config.Keys.PublicKeyPath != "" {
		data, err := os.ReadFile(config.Keys.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading RSA public key: %w", err)
		}
		publicKey, err := crypt.ParsePublicKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("loading RSA public key: %w", err)
		}
		if !privateKey.PublicKey.Equal(publicKey) {
			return nil, errors.New("RSA public key does not match private key")
		}
	}

	return privateKey, nil
}
