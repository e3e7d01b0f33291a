// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/testutil"
	"github.com/danielhkuo/prepsense/units"
)

// testEnv is a fresh schema with one registered user
type testEnv struct {
	db     *sql.DB
	cfg    cliparse.Config
	conv   *units.Converter
	cache  *cache.Manager
	userID string
	apiKey string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, apiKey := testutil.CreateTestUser(t, conn, cfg, "cook@example.com")

	return &testEnv{
		db:     conn,
		cfg:    cfg,
		conv:   units.NewConverter(),
		cache:  cache.NewManager(cache.NewMemoryStore(), cache.Options{}),
		userID: userID,
		apiKey: apiKey,
	}
}

// do runs h behind RequireUser as the env's user. pathValues are
// name/value pairs.
func (e *testEnv) do(h http.HandlerFunc, method, path string, body any, pathValues ...string) *httptest.ResponseRecorder {
	return e.doAs(e.userID, e.apiKey, h, method, path, body, pathValues...)
}

func (e *testEnv) doAs(userID, apiKey string, h http.HandlerFunc, method, path string, body any, pathValues ...string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, testutil.UserHeaders(userID, apiKey))
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	middleware.RequireUser(e.cfg.UserKeySalt, h)(w, req)
	return w
}

func (e *testEnv) countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n), "count rows")
	return n
}
