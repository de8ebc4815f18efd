package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"uk.co.dudmesh.authgate/internal/boot"
	"uk.co.dudmesh.authgate/internal/handlers"
	"uk.co.dudmesh.authgate/internal/metrics"
	"uk.co.dudmesh.authgate/internal/service/session"
	"uk.co.dudmesh.authgate/internal/service/user"
	"uk.co.dudmesh.authgate/internal/store"
	"uk.co.dudmesh.authgate/pkg/crypt"
	"uk.co.dudmesh.authgate/pkg/token"
)

const redisKeyPrefix = "authgate:"

func newLogger(prefix string, config *boot.Config) *log.Logger {
	logger := log.New(prefix)
	if config.IsDevelopment() {
		logger.SetLevel(log.DEBUG)
	} else {
		logger.SetLevel(log.INFO)
	}
	return logger
}

func openStore(config *boot.Config) (store.Store, error) {
	opts := []store.Option{}
	if config.Store.RedisURL != "" {
		redisOpts, err := redis.ParseURL(config.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithSessions(store.NewRedisSessions(redis.NewClient(redisOpts), redisKeyPrefix)))
		log.Infof("sessions stored in redis at %s", redisOpts.Addr)
	}
	return store.Open(config.Store.DatabaseURL, opts...)
}

func newDeps(config *boot.Config, secrets *boot.Secrets, st store.Store) (*handlers.Deps, error) {
	codec, err := token.New(secrets.TokenSecret)
	if err != nil {
		return nil, err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	sessions := session.New(st, codec, session.Config{
		TTL:         config.Session.TTL,
		MaxAge:      config.Session.MaxAge,
		MaxAttempts: config.Session.IDMaxAttempts,
		Logger:      newLogger("session", config),
		Metrics:     m,
	})

	users := user.New(st, sessions, user.Config{
		Box:         crypt.NewBox(secrets.PrivateKey, config.Session.ReplayWindow),
		Digester:    crypt.NewDigester(secrets.PasswordSecret),
		MaxAttempts: config.Session.IDMaxAttempts,
		Logger:      newLogger("user", config),
		Metrics:     m,
	})

	return &handlers.Deps{
		Users:     users,
		Sessions:  sessions,
		PublicKey: &secrets.PrivateKey.PublicKey,
		Metrics:   m,
	}, nil
}

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	secrets, err := boot.LoadSecrets(config)
	if err != nil {
		log.Fatalf("loading secrets: %+v", err)
	}

	st, err := openStore(config)
	if err != nil {
		log.Fatalf("opening store: %+v", err)
	}
	defer st.Close()

	deps, err := newDeps(config, secrets, st)
	if err != nil {
		log.Fatalf("creating services: %+v", err)
	}

	server := echo.New()
	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("authgate"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, handlers.HeaderSignature}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowedOrigins(),
		AllowHeaders: headers,
	}))

	handlers.Mount(server, deps)

	go func() {
		metricsServer := echo.New()
		metricsServer.HideBanner = true
		metricsServer.GET("/metrics", echoprometheus.NewHandler())
		if err := metricsServer.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
}
