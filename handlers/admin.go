// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/models"
)

type AdminHandler struct {
	cfg   cliparse.Config
	cache *cache.Manager
}

func NewAdminHandler(cfg cliparse.Config, c *cache.Manager) *AdminHandler {
	return &AdminHandler{cfg: cfg, cache: c}
}

// CacheStats handles GET /admin/cache/stats
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "cache is disabled")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// CacheEvict handles POST /admin/cache/evict
// With {"prefix": "..."} (or ?prefix=) every matching key is removed;
// otherwise only expired entries are swept.
func (h *AdminHandler) CacheEvict(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "cache is disabled")
		return
	}

	var req models.EvictRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		prefix = strings.TrimSpace(r.URL.Query().Get("prefix"))
	}

	var (
		n   int
		err error
	)
	if prefix != "" {
		n, err = h.cache.InvalidatePrefix(r.Context(), prefix)
	} else {
		n, err = h.cache.EvictStale(r.Context())
	}
	if err != nil {
		slog.Error("failed to evict cache entries", "prefix", prefix, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Cache error")
		return
	}

	slog.Info("cache entries evicted", "prefix", prefix, "evicted", n)

	middleware.JSONResponse(w, http.StatusOK, models.EvictResponse{Evicted: n})
}
