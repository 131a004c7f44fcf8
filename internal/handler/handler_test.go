package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/handler"
	"github.com/sakif/navigation/internal/repository/sqlite"
	"github.com/sakif/navigation/internal/service"
)

var (
	guest     = &auth.Caller{ID: 30, Username: "guest", Role: auth.RoleGuest}
	user      = &auth.Caller{ID: 1, Username: "alice", Role: auth.RoleUser}
	otherUser = &auth.Caller{ID: 2, Username: "bob", Role: auth.RoleUser}
	admin     = &auth.Caller{ID: 9, Username: "root", Role: auth.RoleAdmin}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv wires real services over an in-memory database.
type testEnv struct {
	db         *sqlite.DB
	categories *handler.CategoryHandler
	websites   *handler.WebsiteHandler
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:", sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	cats, webs, favs := db.Categories(), db.Websites(), db.Favorites()
	return testEnv{
		db: db,
		categories: handler.NewCategoryHandler(
			service.NewCategoryService(cats, webs, db, logger), logger),
		websites: handler.NewWebsiteHandler(
			service.NewWebsiteService(webs, cats, favs, db, logger),
			service.NewFavoriteService(favs, webs, logger),
			logger),
	}
}

// call runs h on a request carrying caller (nil for anonymous) and, when
// id is non-empty, the {id} path value.
func call(h http.HandlerFunc, method, target, body string, caller *auth.Caller, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if id != "" {
		req.SetPathValue("id", id)
	}
	if caller != nil {
		req = req.WithContext(auth.WithCaller(req.Context(), caller))
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }
