// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/testutil"
)

// Admin handlers need no database
func newAdminTest(t *testing.T) (*AdminHandler, *cache.Manager, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := cache.NewManager(cache.NewMemoryStore(), cache.Options{
		DefaultTTL: time.Hour,
		Now:        func() time.Time { return now },
	})
	return NewAdminHandler(testutil.GetTestConfig(), m), m, &now
}

func TestAdminCacheStats(t *testing.T) {
	h, m, _ := newAdminTest(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "recs:a:10:0", []int{1}, 0))
	var dst []int
	_, _ = m.Get(ctx, "recs:a:10:0", &dst)
	_, _ = m.Get(ctx, "recs:b:10:0", &dst)

	w := httptest.NewRecorder()
	h.CacheStats(w, httptest.NewRequest("GET", "/admin/cache/stats", nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var stats models.CacheStats
	testutil.AssertJSON(t, w, &stats)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.Entries)
}

func TestAdminCacheEvict(t *testing.T) {
	h, m, now := newAdminTest(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "recs:a:10:0", 1, 0))
	require.NoError(t, m.Set(ctx, "recs:a:5:0", 1, 0))
	require.NoError(t, m.Set(ctx, "recs:b:10:0", 1, 0))
	require.NoError(t, m.Set(ctx, "ext:spoonacular:abc:10", 1, time.Minute))

	evict := func(req *http.Request) models.EvictResponse {
		t.Helper()
		w := httptest.NewRecorder()
		h.CacheEvict(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.EvictResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}

	resp := evict(testutil.MakeRequest("POST", "/admin/cache/evict", models.EvictRequest{Prefix: "recs:a:"}, nil))
	assert.Equal(t, 2, resp.Evicted)

	resp = evict(testutil.MakeRequest("POST", "/admin/cache/evict?prefix=recs:", nil, nil))
	assert.Equal(t, 1, resp.Evicted)

	// Without a prefix only expired entries go
	resp = evict(testutil.MakeRequest("POST", "/admin/cache/evict", nil, nil))
	assert.Equal(t, 0, resp.Evicted)
	*now = now.Add(2 * time.Minute)
	resp = evict(testutil.MakeRequest("POST", "/admin/cache/evict", nil, nil))
	assert.Equal(t, 1, resp.Evicted)

	w := httptest.NewRecorder()
	h.CacheEvict(w, testutil.MakeRequest("POST", "/admin/cache/evict", "not an object", nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestAdminCache_Disabled(t *testing.T) {
	h := NewAdminHandler(testutil.GetTestConfig(), nil)

	w := httptest.NewRecorder()
	h.CacheStats(w, httptest.NewRequest("GET", "/admin/cache/stats", nil))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)

	w = httptest.NewRecorder()
	h.CacheEvict(w, httptest.NewRequest("POST", "/admin/cache/evict", nil))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}
