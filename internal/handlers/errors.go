package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
)

var (
	serverErrorLanguages = language.NewMatcher([]language.Tag{
		language.English,
		language.Chinese,
	})
	// indexed by serverErrorLanguages match
	serverErrorMessages = []string{
		"500 Internal Server Error",
		"500 服务器内部错误",
	}
)

func serverErrorMessage(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return serverErrorMessages[0]
	}
	_, index, confidence := serverErrorLanguages.Match(tags...)
	if confidence == language.No {
		return serverErrorMessages[0]
	}
	return serverErrorMessages[index]
}

// ErrorHandler is the server's echo.HTTPErrorHandler. Unexpected errors are
// logged and answered with a plain 500 in the caller's language.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code != http.StatusInternalServerError {
		var writeErr error
		if he.Code == http.StatusNotFound {
			writeErr = c.String(http.StatusNotFound, "404 Not Found")
		} else {
			writeErr = c.JSON(he.Code, map[string]any{"message": he.Message})
		}
		if writeErr != nil {
			c.Logger().Error(writeErr)
		}
		return
	}

	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	message := serverErrorMessage(c.Request().Header.Get("Accept-Language"))
	if err := c.String(http.StatusInternalServerError, message); err != nil {
		c.Logger().Error(err)
	}
}
