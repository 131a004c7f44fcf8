package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minSecretLength matches what auth.NewTokenService accepts.
const minSecretLength = 16

// Validate checks rules the struct tags cannot express. Load calls it.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be >= 1 (got %d)", c.Database.MaxOpenConns)
	}
	if err := c.Identity.validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	return nil
}

func (i *IdentityConfig) validate() error {
	i.Mode = strings.ToLower(strings.TrimSpace(i.Mode))

	switch i.Mode {
	case IdentityRemote:
		if i.URL == "" {
			return fmt.Errorf("url is required in %s mode", IdentityRemote)
		}
	case IdentityLocal:
		if len(i.JWTSecret) < minSecretLength {
			return fmt.Errorf("jwt_secret must be at least %d characters in %s mode (got %d)",
				minSecretLength, IdentityLocal, len(i.JWTSecret))
		}
	default:
		return fmt.Errorf("mode must be %q or %q (got %q)", IdentityRemote, IdentityLocal, i.Mode)
	}

	if i.URL != "" {
		u, err := url.Parse(i.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("url %q is not an absolute URL", i.URL)
		}
	}
	if i.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	return nil
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
