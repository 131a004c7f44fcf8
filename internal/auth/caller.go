// Package auth resolves bearer tokens into a Caller, either by asking the
// identity service or by verifying a shared-secret JWT locally, and relays
// login and registration to the identity service.
package auth

import "context"

// Caller is the identity attached to a request after token validation.
// It lives for the duration of one request and is never persisted.
type Caller struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the caller holds admin or above.
func (c *Caller) IsAdmin() bool {
	return c != nil && Satisfies(c.Role, RoleAdmin)
}

// TokenValidator turns a bearer token into a Caller.
// Implementations return an error wrapping ErrInvalidToken when the token
// is rejected and ErrIdentityUnavailable when no decision could be made.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Caller, error)
}

type contextKey string

const callerKey contextKey = "caller"

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the authenticated caller, or (nil, false) for
// anonymous requests.
func CallerFromContext(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerKey).(*Caller)
	return c, ok && c != nil
}
