package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidator accepts tokens listed in callers and fails every other
// token with err (ErrInvalidToken when nil).
type stubValidator struct {
	callers map[string]*Caller
	err     error
}

func (s stubValidator) ValidateToken(_ context.Context, token string) (*Caller, error) {
	if c, ok := s.callers[token]; ok {
		return c, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, ErrInvalidToken
}

func newStub() stubValidator {
	return stubValidator{callers: map[string]*Caller{
		"user-token": {ID: 1, Username: "u", Role: RoleUser},
	}}
}

// echoCaller writes the caller id, or "anonymous".
var echoCaller = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if c, ok := CallerFromContext(r.Context()); ok {
		fmt.Fprintf(w, "%d", c.ID)
		return
	}
	fmt.Fprint(w, "anonymous")
})

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(newStub())(echoCaller)

	t.Run("valid token", func(t *testing.T) {
		rr := serve(h, "Bearer user-token")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "1", rr.Body.String())
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		rr := serve(h, "bearer user-token")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := serve(h, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("wrong scheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(h, "Basic dXNlcjpwYXNz").Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer nope").Code)
	})
}

func TestRequireAuth_FailsClosedWhenIdentityUnavailable(t *testing.T) {
	stub := newStub()
	stub.err = fmt.Errorf("%w: dial tcp: refused", ErrIdentityUnavailable)
	h := RequireAuth(stub)(echoCaller)

	rr := serve(h, "Bearer other-token")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "identity service unavailable")
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(newStub())(echoCaller)

	assert.Equal(t, "1", serve(h, "Bearer user-token").Body.String())
	assert.Equal(t, "anonymous", serve(h, "").Body.String())
	assert.Equal(t, "anonymous", serve(h, "Bearer bad").Body.String())
}

func TestOptionalAuth_FailsOpenWhenIdentityUnavailable(t *testing.T) {
	stub := newStub()
	stub.err = ErrIdentityUnavailable
	h := OptionalAuth(stub)(echoCaller)

	rr := serve(h, "Bearer other-token")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anonymous", rr.Body.String())
}

func TestCallerFromContext_Anonymous(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	assert.False(t, ok)

	_, ok = CallerFromContext(WithCaller(context.Background(), nil))
	assert.False(t, ok)
}
