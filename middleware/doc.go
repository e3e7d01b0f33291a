// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms).

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, PATCH, DELETE, OPTIONS with headers
Content-Type, Authorization, X-User-ID, X-User-Key, X-Admin-Key.

# Authentication

User routes require X-User-ID and X-User-Key; the key is the HMAC of the
user ID under the server salt (see auth.GenerateUserKey):

	mux.HandleFunc("GET /pantry", middleware.RequireUser(cfg.UserKeySalt, h.List))

Handlers read the caller with middleware.UserID(r.Context()).

Admin routes compare X-Admin-Key with the configured key. An empty
configured key rejects everything:

	mux.HandleFunc("GET /admin/cache/stats", middleware.RequireAdmin(cfg.AdminKey, h.CacheStats))

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.PantryItemRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used when logging failed authentication.
*/
package middleware
