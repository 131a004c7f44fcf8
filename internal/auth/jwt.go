package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService validates HS256 tokens signed with a secret shared with the
// identity service. It is the in-process alternative to IdentityClient for
// deployments where the identity service issues self-contained JWTs.
//
// Expected claims: sub (or id) = numeric user id, username, role.
type TokenService struct {
	secret []byte
	issuer string
}

var _ TokenValidator = (*TokenService)(nil)

// NewTokenService creates a TokenService. An empty issuer disables the
// issuer check.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

type claims struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a token for caller valid for ttl.
func (s *TokenService) Generate(caller Caller, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		ID:       caller.ID,
		Username: caller.Username,
		Role:     caller.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(caller.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and verifies tokenStr. A missing role claim
// defaults to "user", matching the identity service's answers.
func (s *TokenService) ValidateToken(_ context.Context, tokenStr string) (*Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	userID := c.ID
	if userID == 0 && c.Subject != "" {
		userID, err = strconv.ParseInt(c.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: subject %q is not a user id", ErrInvalidToken, c.Subject)
		}
	}
	if userID == 0 {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	role := RoleUser
	if c.Role != "" {
		role = ParseRole(c.Role)
	}

	return &Caller{ID: userID, Username: c.Username, Role: role}, nil
}
