package handlers

import (
	"crypto/rsa"
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.authgate/internal/metrics"
)

type Deps struct {
	Users     UserService
	Sessions  SessionService
	PublicKey *rsa.PublicKey
	Metrics   *metrics.Metrics
}

type versionRoutes func(api *echo.Group, deps *Deps)

// apiVersions maps the :version path segment to its routes. Versions not
// listed here fall through to 404.
var apiVersions = map[string]versionRoutes{
	"v1": v1Routes,
}

func v1Routes(api *echo.Group, deps *Deps) {
	verify := VerifySession(deps.Sessions, deps.Metrics)

	user := api.Group("/user")
	user.POST("/register", Register(deps.Users))
	user.POST("/login", Login(deps.Users))
	user.GET("/logout", Logout(deps.Users), verify)
	user.GET("/info", GetInfo(deps.Users), verify)
	user.POST("/info", EditInfo(deps.Users), verify)
	user.POST("/modifypassword", ModifyPassword(deps.Users), verify)
	user.POST("/cancellation", Cancel(deps.Users), verify)

	key := api.Group("/key")
	key.GET("/pubkey", GetPublicKey(deps.PublicKey, deps.Metrics))
}

func Mount(server *echo.Echo, deps *Deps) {
	server.HTTPErrorHandler = ErrorHandler

	server.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "authgate is running")
	})

	for version, routes := range apiVersions {
		routes(server.Group("/api/"+version), deps)
	}
}
