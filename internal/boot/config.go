package boot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	devTokenSecret    = "authgate-dev-token-secret"
	devPasswordSecret = "authgate-dev-password-secret"
)

type Config struct {
	Env    string `env:"ENV,default=dev"`
	Server struct {
		Port        string `env:"PORT,default=8080"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
	}
	Store struct {
		DatabaseURL string `env:"DATABASE_URL,default=file:authgate.db"`
		RedisURL    string `env:"REDIS_URL"`
	}
	Keys struct {
		PrivateKeyPath string `env:"RSA_PRIVATE_KEY_PATH"`
		PublicKeyPath  string `env:"RSA_PUBLIC_KEY_PATH"`
		TokenSecret    string `env:"TOKEN_SECRET,default=authgate-dev-token-secret"`
		PasswordSecret string `env:"PASSWORD_SECRET,default=authgate-dev-password-secret"`
	}
	Session struct {
		TTL           time.Duration `env:"SESSION_TTL,default=168h"`
		MaxAge        time.Duration `env:"SESSION_MAX_AGE,default=720h"`
		ReplayWindow  time.Duration `env:"REPLAY_WINDOW,default=60s"`
		IDMaxAttempts int           `env:"ID_MAX_ATTEMPTS,default=5"`
	}
}

func Load() (*Config, error) {
	return LoadWith(context.Background(), envconfig.OsLookuper())
}

func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(ctx, config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL)
	}
	if c.Session.MaxAge < 0 {
		return fmt.Errorf("SESSION_MAX_AGE must not be negative, got %s", c.Session.MaxAge)
	}
	if c.Session.ReplayWindow <= 0 {
		return fmt.Errorf("REPLAY_WINDOW must be positive, got %s", c.Session.ReplayWindow)
	}
	if c.Session.IDMaxAttempts <= 0 {
		return fmt.Errorf("ID_MAX_ATTEMPTS must be positive, got %d", c.Session.IDMaxAttempts)
	}
	if c.IsProduction() {
		if c.Keys.TokenSecret == devTokenSecret || c.Keys.PasswordSecret == devPasswordSecret {
			return fmt.Errorf("TOKEN_SECRET and PASSWORD_SECRET must be set in production")
		}
		if c.Keys.PrivateKeyPath == "" {
			return fmt.Errorf("RSA_PRIVATE_KEY_PATH must be set in production")
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.Server.Origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
