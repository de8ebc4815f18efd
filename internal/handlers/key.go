package handlers

import (
	"crypto/rsa"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.authgate/internal/envelope"
	"uk.co.dudmesh.authgate/internal/metrics"
	"uk.co.dudmesh.authgate/pkg/crypt"
)

type publicKeyData struct {
	PubKey string          `json:"pubKey"`
	JWK    json.RawMessage `json:"jwk"`
}

// GetPublicKey serves the server's RSA public key so clients can encrypt
// their clientAesKey.
func GetPublicKey(publicKey *rsa.PublicKey, m *metrics.Metrics) echo.HandlerFunc {
	return func(c echo.Context) error {
		pem, err := crypt.EncodePublicKeyPEM(publicKey)
		if err != nil {
			c.Logger().Errorf("encoding public key: %v", err)
			m.Outcome(envelope.PubKeyFailed)
			return c.JSON(http.StatusOK, envelope.New(envelope.PubKeyFailed, nil))
		}
		jwk, err := crypt.EncodePublicKeyJWK(publicKey)
		if err != nil {
			c.Logger().Errorf("encoding public key jwk: %v", err)
			m.Outcome(envelope.PubKeyFailed)
			return c.JSON(http.StatusOK, envelope.New(envelope.PubKeyFailed, nil))
		}

		m.Outcome(envelope.PubKeySuccess)
		return c.JSON(http.StatusOK, envelope.New(envelope.PubKeySuccess, &publicKeyData{
			PubKey: pem,
			JWK:    jwk,
		}))
	}
}
