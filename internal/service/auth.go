package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/auth"
)

// Authenticator is the identity service's login surface.
// *auth.IdentityClient implements it.
type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) (json.RawMessage, error)
	Register(ctx context.Context, creds auth.Credentials) (json.RawMessage, error)
}

// AuthService relays sign-in and sign-up to the identity service. Tokens
// and passwords never live here; the upstream response body is returned
// to the client untouched.
type AuthService struct {
	identity Authenticator
	logger   *slog.Logger
}

// NewAuthService accepts a nil identity, in which case every call fails
// with auth.ErrIdentityUnavailable.
func NewAuthService(identity Authenticator, logger *slog.Logger) *AuthService {
	return &AuthService{identity: identity, logger: logger}
}

func (s *AuthService) Login(ctx context.Context, creds auth.Credentials) (json.RawMessage, error) {
	creds, err := checkCredentials(creds, false)
	if err != nil {
		return nil, err
	}
	if s.identity == nil {
		return nil, auth.ErrIdentityUnavailable
	}

	body, err := s.identity.Login(ctx, creds)
	if err != nil {
		s.logger.Warn("login failed",
			slog.String("username", creds.Username),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("username", creds.Username))
	return body, nil
}

func (s *AuthService) Register(ctx context.Context, creds auth.Credentials) (json.RawMessage, error) {
	creds, err := checkCredentials(creds, true)
	if err != nil {
		return nil, err
	}
	if s.identity == nil {
		return nil, auth.ErrIdentityUnavailable
	}

	body, err := s.identity.Register(ctx, creds)
	if err != nil {
		s.logger.Warn("registration failed",
			slog.String("username", creds.Username),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("user registered", slog.String("username", creds.Username))
	return body, nil
}

// checkCredentials catches empty fields before a round trip upstream. The
// identity service owns every other rule.
func checkCredentials(creds auth.Credentials, withEmail bool) (auth.Credentials, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	creds.Email = strings.TrimSpace(creds.Email)

	if creds.Username == "" {
		return creds, apperror.ValidationFailed("username", "username is required")
	}
	if creds.Password == "" {
		return creds, apperror.ValidationFailed("password", "password is required")
	}
	if !withEmail {
		creds.Email = ""
	}
	return creds, nil
}
