package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.authgate/internal/envelope"
	"uk.co.dudmesh.authgate/internal/model"
	"uk.co.dudmesh.authgate/pkg/crypt"
)

// HeaderSignature carries the AES encrypted hash of the request body.
const HeaderSignature = "Signature"

type UserService interface {
	Register(ctx context.Context, params *model.RegisterParams, signed model.Signed) (*envelope.Envelope, error)
	Login(ctx context.Context, params *model.LoginParams, signed model.Signed) (*envelope.Envelope, error)
	Info(ctx context.Context, session *model.Session) (*envelope.Envelope, error)
	EditInfo(ctx context.Context, session *model.Session, patch *model.ProfilePatch, signed model.Signed) (*envelope.Envelope, error)
	Logout(ctx context.Context, session *model.Session) (*envelope.Envelope, error)
	ModifyPassword(ctx context.Context, session *model.Session, params *model.ModifyPasswordParams, signed model.Signed) (*envelope.Envelope, error)
	Cancel(ctx context.Context, session *model.Session, params *model.CancellationParams, signed model.Signed) (*envelope.Envelope, error)
}

// readSigned decodes the body twice: once into T for the service and once
// into a generic map, which is what the signature is computed over.
func readSigned[T any](c echo.Context) (*T, model.Signed, error) {
	body := c.Request().Body
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, model.Signed{}, fmt.Errorf("reading request body: %w", err)
	}

	payload, err := crypt.DecodePayload(raw)
	if err != nil {
		return nil, model.Signed{}, echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	params := new(T)
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, model.Signed{}, echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	return params, model.Signed{
		Payload:   payload,
		Signature: c.Request().Header.Get(HeaderSignature),
	}, nil
}

func reply(c echo.Context, env *envelope.Envelope, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, env)
}

func Register(users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params, signed, err := readSigned[model.RegisterParams](c)
		if err != nil {
			return err
		}
		env, err := users.Register(c.Request().Context(), params, signed)
		return reply(c, env, err)
	}
}

func Login(users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params, signed, err := readSigned[model.LoginParams](c)
		if err != nil {
			return err
		}
		env, err := users.Login(c.Request().Context(), params, signed)
		return reply(c, env, err)
	}
}

func GetInfo(users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		env, err := users.Info(c.Request().Context(), SessionFrom(c))
		return reply(c, env, err)
	}
}

func EditInfo(users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		patch, signed, err := readSigned[model.ProfilePatch](c)
		if err != nil {
			return err
		}
		env, err := users.EditInfo(c.Request().Context(), SessionFrom(c), patch, signed)
		return reply(c, env, err)
	}
}

func Logout(users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		env, err := users.Logout(c.Request().Context(), SessionFrom(c))
		return reply(c, env, err)
	}
}

func ModifyPassword(users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params, signed, err := readSigned[model.ModifyPasswordParams](c)
		if err != nil {
			return err
		}
		env, err := users.ModifyPassword(c.Request().Context(), SessionFrom(c), params, signed)
		return reply(c, env, err)
	}
}

func Cancel(users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params, signed, err := readSigned[model.CancellationParams](c)
		if err != nil {
			return err
		}
		env, err := users.Cancel(c.Request().Context(), SessionFrom(c), params, signed)
		return reply(c, env, err)
	}
}
