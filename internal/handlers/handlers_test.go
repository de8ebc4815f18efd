package handlers

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.authgate/internal/envelope"
	"uk.co.dudmesh.authgate/internal/metrics"
	"uk.co.dudmesh.authgate/internal/model"
	"uk.co.dudmesh.authgate/internal/service/session"
	"uk.co.dudmesh.authgate/internal/service/user"
	"uk.co.dudmesh.authgate/internal/store"
	"uk.co.dudmesh.authgate/pkg/crypt"
	"uk.co.dudmesh.authgate/pkg/token"
)

var testKey *rsa.PrivateKey

func init() {
	var err error
	testKey, err = crypt.GenerateKey(2048)
	if err != nil {
		panic(err)
	}
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

type fixture struct {
	server *echo.Echo
	store  store.Store
	clock  *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open("file:" + model.CreateID() + "?mode=memory&cache=shared")
	require.Nil(t, err)
	t.Cleanup(func() { st.Close() })

	codec, err := token.New("token-secret")
	require.Nil(t, err)

	m := metrics.New(nil)
	c := &clock{now: time.Now().UTC().Truncate(time.Second)}
	sessions := session.New(st, codec, session.Config{Metrics: m}).WithClock(c.Now)
	users := user.New(st, sessions, user.Config{
		Box:      crypt.NewBox(testKey, time.Minute),
		Digester: crypt.NewDigester("password-secret"),
		Metrics:  m,
	})

	server := echo.New()
	Mount(server, &Deps{
		Users:     users,
		Sessions:  sessions,
		PublicKey: &testKey.PublicKey,
		Metrics:   m,
	})
	return &fixture{server: server, store: st, clock: c}
}

type response struct {
	Message    string         `json:"message"`
	Success    bool           `json:"success"`
	StatusCode int            `json:"statusCode"`
	Data       map[string]any `json:"data"`
}

// call sends body signed with key, when key is set, and authorised by token,
// when token is set.
func (f *fixture) call(t *testing.T, method, path string, body map[string]any, key, token string) (*httptest.ResponseRecorder, *response) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		raw, err := json.Marshal(body)
		require.Nil(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

		if key != "" {
			payload, err := crypt.DecodePayload(raw)
			require.Nil(t, err)
			signature, err := crypt.Sign(payload, key)
			require.Nil(t, err)
			req.Header.Set(HeaderSignature, signature)
		}
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, token)
	}

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	res := &response{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.Nil(t, json.Unmarshal(rec.Body.Bytes(), res))
	}
	return rec, res
}

func encryptField(t *testing.T, value, key string) string {
	t.Helper()
	enc, err := crypt.AESEncryptWithTimestamp(value, key, time.Now())
	require.Nil(t, err)
	return enc
}

func exchangeKey(t *testing.T, key string) string {
	t.Helper()
	enc, err := crypt.RSAEncryptWithTimestamp(&testKey.PublicKey, key, time.Now())
	require.Nil(t, err)
	return enc
}

func (f *fixture) login(t *testing.T, userName, password, key string) string {
	t.Helper()
	_, res := f.call(t, http.MethodPost, "/api/v1/user/login", map[string]any{
		"user":         userName,
		"password":     encryptField(t, password, key),
		"clientAesKey": exchangeKey(t, key),
	}, key, "")
	require.Equal(t, int(envelope.LoginSuccess), res.StatusCode)
	token, _ := res.Data["authToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRoutes(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	t.Run("Health", func(t *testing.T) {
		rec, _ := f.call(t, http.MethodGet, "/", nil, "", "")
		assert.Equal(http.StatusOK, rec.Code)
		assert.NotEmpty(rec.Body.String())
	})

	t.Run("Public key", func(t *testing.T) {
		rec, res := f.call(t, http.MethodGet, "/api/v1/key/pubkey", nil, "", "")
		assert.Equal(http.StatusOK, rec.Code)
		assert.Equal(int(envelope.PubKeySuccess), res.StatusCode)
		assert.True(res.Success)

		pem, _ := res.Data["pubKey"].(string)
		publicKey, err := crypt.ParsePublicKeyPEM([]byte(pem))
		if assert.Nil(err) {
			assert.True(testKey.PublicKey.Equal(publicKey))
		}

		jwk, _ := res.Data["jwk"].(map[string]any)
		assert.Equal("RSA", jwk["kty"])
		assert.Equal(crypt.KeyID(&testKey.PublicKey), jwk["kid"])
	})

	t.Run("Unknown version", func(t *testing.T) {
		rec, _ := f.call(t, http.MethodGet, "/api/v2/key/pubkey", nil, "", "")
		assert.Equal(http.StatusNotFound, rec.Code)
		assert.Equal("404 Not Found", rec.Body.String())
	})

	t.Run("Unknown path", func(t *testing.T) {
		rec, _ := f.call(t, http.MethodGet, "/nowhere", nil, "", "")
		assert.Equal(http.StatusNotFound, rec.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/user/login", bytes.NewBufferString("not json"))
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		assert.Equal(http.StatusBadRequest, rec.Code)
	})
}

func TestUserFlow(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	t.Run("Register", func(t *testing.T) {
		rec, res := f.call(t, http.MethodPost, "/api/v1/user/register", map[string]any{
			"userName":     "alice",
			"password":     encryptField(t, "secret1", "k1"),
			"clientAesKey": exchangeKey(t, "k1"),
			"email":        "alice@example.com",
		}, "k1", "")
		assert.Equal(http.StatusOK, rec.Code)
		assert.Equal(int(envelope.RegisterSuccess), res.StatusCode)
		assert.Equal("alice", res.Data["userName"])
		assert.Equal("alice@example.com", res.Data["email"])
		assert.NotContains(rec.Body.String(), "secret1")
	})

	t.Run("Register without signature", func(t *testing.T) {
		_, res := f.call(t, http.MethodPost, "/api/v1/user/register", map[string]any{
			"userName":     "bob",
			"password":     encryptField(t, "secret1", "k1"),
			"clientAesKey": exchangeKey(t, "k1"),
		}, "", "")
		assert.Equal(int(envelope.RegisterSignatureFailed), res.StatusCode)
		assert.False(res.Success)
	})

	token := f.login(t, "alice", "secret1", "k2")

	t.Run("Get info", func(t *testing.T) {
		rec, res := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", token)
		assert.Equal(http.StatusOK, rec.Code)
		assert.Equal(int(envelope.GetInfoSuccess), res.StatusCode)
		assert.Equal("alice", res.Data["userName"])
	})

	t.Run("Edit info", func(t *testing.T) {
		_, res := f.call(t, http.MethodPost, "/api/v1/user/info", map[string]any{
			"nickName": "Al",
			"email":    nil,
		}, "k2", token)
		assert.Equal(int(envelope.EditInfoSuccess), res.StatusCode)
		assert.Equal("Al", res.Data["nickName"])
		assert.Nil(res.Data["email"])
	})

	t.Run("Edit info signed with another key", func(t *testing.T) {
		_, res := f.call(t, http.MethodPost, "/api/v1/user/info", map[string]any{"nickName": "Eve"}, "k1", token)
		assert.Equal(int(envelope.EditInfoSignatureFailed), res.StatusCode)
	})

	t.Run("Modify password ends the session", func(t *testing.T) {
		_, res := f.call(t, http.MethodPost, "/api/v1/user/modifypassword", map[string]any{
			"oldPassword": encryptField(t, "secret1", "k2"),
			"newPassword": encryptField(t, "secret2", "k2"),
		}, "k2", token)
		assert.Equal(int(envelope.ModifyPasswordSuccess), res.StatusCode)

		rec, res := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", token)
		assert.Equal(http.StatusForbidden, rec.Code)
		assert.Equal(int(envelope.SessionInvalidToken), res.StatusCode)
	})

	t.Run("Logout", func(t *testing.T) {
		token := f.login(t, "alice", "secret2", "k3")

		_, res := f.call(t, http.MethodGet, "/api/v1/user/logout", nil, "", token)
		assert.Equal(int(envelope.LogoutSuccess), res.StatusCode)
		assert.NotEmpty(res.Data["logoutTime"])

		rec, _ := f.call(t, http.MethodGet, "/api/v1/user/logout", nil, "", token)
		assert.Equal(http.StatusForbidden, rec.Code)
	})

	t.Run("Cancellation", func(t *testing.T) {
		token := f.login(t, "alice", "secret2", "k4")

		_, res := f.call(t, http.MethodPost, "/api/v1/user/cancellation", map[string]any{
			"password": encryptField(t, "secret2", "k4"),
		}, "k4", token)
		assert.Equal(int(envelope.CancellationSuccess), res.StatusCode)
		assert.NotEmpty(res.Data["cancellationTime"])

		_, err := f.store.Identities().FindOne(context.Background(), model.IdentityByUserName, "alice")
		assert.ErrorIs(err, model.ErrorNotFound)

		rec, _ := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", token)
		assert.Equal(http.StatusForbidden, rec.Code)
	})
}

func TestVerifySession(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	_, res := f.call(t, http.MethodPost, "/api/v1/user/register", map[string]any{
		"userName":     "alice",
		"password":     encryptField(t, "secret1", "k1"),
		"clientAesKey": exchangeKey(t, "k1"),
	}, "k1", "")
	require.Equal(t, int(envelope.RegisterSuccess), res.StatusCode)

	t.Run("Missing authorization", func(t *testing.T) {
		rec, res := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", "")
		assert.Equal(http.StatusForbidden, rec.Code)
		assert.Equal(int(envelope.SessionMissingAuthorization), res.StatusCode)
		assert.False(res.Success)
	})

	t.Run("Garbage token", func(t *testing.T) {
		rec, res := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", "not-a-token")
		assert.Equal(http.StatusForbidden, rec.Code)
		assert.Equal(int(envelope.SessionInvalidToken), res.StatusCode)
	})

	t.Run("Bearer prefix", func(t *testing.T) {
		token := f.login(t, "alice", "secret1", "k2")
		rec, res := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", "Bearer "+token)
		assert.Equal(http.StatusOK, rec.Code)
		assert.Equal(int(envelope.GetInfoSuccess), res.StatusCode)
	})

	t.Run("Requests renew the session", func(t *testing.T) {
		token := f.login(t, "alice", "secret1", "k2")

		f.clock.now = f.clock.now.Add(6 * 24 * time.Hour)
		rec, _ := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", token)
		assert.Equal(http.StatusOK, rec.Code)

		f.clock.now = f.clock.now.Add(6 * 24 * time.Hour)
		rec, _ = f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", token)
		assert.Equal(http.StatusOK, rec.Code)
	})

	t.Run("Expired token", func(t *testing.T) {
		token := f.login(t, "alice", "secret1", "k2")

		f.clock.now = f.clock.now.Add(8 * 24 * time.Hour)
		rec, res := f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", token)
		assert.Equal(http.StatusForbidden, rec.Code)
		assert.Equal(int(envelope.SessionExpiredToken), res.StatusCode)

		rec, res = f.call(t, http.MethodGet, "/api/v1/user/info", nil, "", token)
		assert.Equal(http.StatusForbidden, rec.Code)
		assert.Equal(int(envelope.SessionInvalidToken), res.StatusCode)
	})
}

func TestErrorHandler(t *testing.T) {
	assert := assert.New(t)

	server := echo.New()
	server.HTTPErrorHandler = ErrorHandler
	server.GET("/boom", func(c echo.Context) error {
		return errors.New("database is on fire")
	})
	server.GET("/teapot", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	cases := []struct {
		name           string
		acceptLanguage string
		expected       string
	}{
		{"No preference", "", "500 Internal Server Error"},
		{"English", "en-GB,en;q=0.9", "500 Internal Server Error"},
		{"Chinese", "zh-CN,zh;q=0.9,en;q=0.8", "500 服务器内部错误"},
		{"Unsupported", "fr-FR", "500 Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/boom", nil)
			if tc.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tc.acceptLanguage)
			}
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			assert.Equal(http.StatusInternalServerError, rec.Code)
			assert.Equal(tc.expected, rec.Body.String())
			assert.NotContains(rec.Body.String(), "fire")
		})
	}

	t.Run("HTTP errors keep their code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/teapot", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		assert.Equal(http.StatusTeapot, rec.Code)
		assert.Contains(rec.Body.String(), "short and stout")
	})
}
