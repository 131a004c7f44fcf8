package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/navigation/internal/middleware"
)

var (
	ErrInvalidToken        = errors.New("auth: invalid token")
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrIdentityUnavailable = errors.New("auth: identity service unavailable")
)

// DefaultIdentityTimeout bounds every call to the identity service.
const DefaultIdentityTimeout = 5 * time.Second

// maxUpstreamBody caps how much of an identity response we read.
const maxUpstreamBody = 1 << 20

// RejectedError is a 4xx answer from the identity service that is relayed
// to the client, e.g. a registration with a taken username.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("auth: identity service rejected request (%d): %s", e.Status, e.Message)
}

// IdentityClient talks to the external identity service over HTTP.
// It validates bearer tokens and proxies login and registration.
type IdentityClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ TokenValidator = (*IdentityClient)(nil)

// NewIdentityClient creates a client for the identity service rooted at
// baseURL (e.g. "http://localhost:3000/api"). A zero timeout selects
// DefaultIdentityTimeout.
func NewIdentityClient(baseURL string, timeout time.Duration, logger *slog.Logger) *IdentityClient {
	if timeout <= 0 {
		timeout = DefaultIdentityTimeout
	}
	return &IdentityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// upstreamID accepts the user id as a JSON number or a numeric string.
type upstreamID int64

func (id *upstreamID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("auth: user id %s is not an integer", data)
	}
	*id = upstreamID(n)
	return nil
}

type validateResponse struct {
	Valid bool `json:"valid"`
	User  *struct {
		ID       upstreamID `json:"id"`
		Username string     `json:"username"`
		Role     string     `json:"role"`
	} `json:"user"`
}

// ValidateToken asks the identity service whether token is valid.
//
// POST {baseURL}/auth/validate with "Authorization: Bearer <token>".
// A missing role in the answer defaults to "user".
func (c *IdentityClient) ValidateToken(ctx context.Context, token string) (*Caller, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	req, err := c.newRequest(ctx, "/auth/validate", []byte("{}"))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("identity validate call failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrIdentityUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrIdentityUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidToken, resp.StatusCode)
	}

	var out validateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrIdentityUnavailable, err)
	}
	if !out.Valid || out.User == nil || out.User.ID == 0 {
		return nil, ErrInvalidToken
	}

	role := RoleUser
	if out.User.Role != "" {
		role = ParseRole(out.User.Role)
	}

	return &Caller{
		ID:       int64(out.User.ID),
		Username: out.User.Username,
		Role:     role,
	}, nil
}

// Credentials is the body accepted by the login and register endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// Login forwards credentials to {baseURL}/auth/login and returns the
// upstream JSON body (token and user) unchanged.
func (c *IdentityClient) Login(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	return c.forward(ctx, "/auth/login", creds)
}

// Register forwards credentials to {baseURL}/auth/register and returns
// the upstream JSON body unchanged.
func (c *IdentityClient) Register(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	return c.forward(ctx, "/auth/register", creds)
}

func (c *IdentityClient) forward(ctx context.Context, path string, creds Credentials) (json.RawMessage, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("auth: encoding credentials: %w", err)
	}

	req, err := c.newRequest(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("identity call failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrIdentityUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrIdentityUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, &RejectedError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: non-JSON response", ErrIdentityUnavailable)
	}
	return json.RawMessage(body), nil
}

func (c *IdentityClient) newRequest(ctx context.Context, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth: building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}
	return req, nil
}

// upstreamMessage extracts a human-readable message from an error body.
// NestJS-style services send {"message": "..."} or {"message": ["...", ...]}.
func upstreamMessage(body []byte) string {
	var parsed struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Message) > 0 {
		var s string
		if json.Unmarshal(parsed.Message, &s) == nil && s != "" {
			return s
		}
		var list []string
		if json.Unmarshal(parsed.Message, &list) == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return "request rejected by identity service"
}
