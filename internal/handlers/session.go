package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.authgate/internal/envelope"
	"uk.co.dudmesh.authgate/internal/metrics"
	"uk.co.dudmesh.authgate/internal/model"
)

const sessionKey = "session"

type SessionService interface {
	Find(ctx context.Context, token string) (*model.Session, error)
	Renew(ctx context.Context, session *model.Session) error
}

// VerifySession rejects requests without a live session with 403 and
// renews the session of every request it lets through.
func VerifySession(sessions SessionService, m *metrics.Metrics) echo.MiddlewareFunc {
	deny := func(c echo.Context, status envelope.SessionStatus) error {
		m.Outcome(status)
		return c.JSON(http.StatusForbidden, envelope.New(status, nil))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if token == "" {
				return deny(c, envelope.SessionMissingAuthorization)
			}

			ctx := c.Request().Context()
			session, err := sessions.Find(ctx, token)
			switch {
			case errors.Is(err, model.ErrorSessionNotFound):
				return deny(c, envelope.SessionInvalidToken)
			case errors.Is(err, model.ErrorSessionExpired):
				return deny(c, envelope.SessionExpiredToken)
			case err != nil:
				return err
			}

			if err := sessions.Renew(ctx, session); err != nil {
				if errors.Is(err, model.ErrorSessionNotFound) {
					return deny(c, envelope.SessionInvalidToken)
				}
				return err
			}

			c.Set(sessionKey, session)
			return next(c)
		}
	}
}

// SessionFrom returns the session VerifySession attached to c, or an empty
// session when the route is not behind the middleware.
func SessionFrom(c echo.Context) *model.Session {
	if session, ok := c.Get(sessionKey).(*model.Session); ok {
		return session
	}
	return &model.Session{}
}
