// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package testutil provides database fixtures and HTTP helpers for tests.
// Database tests are skipped when Postgres is not reachable at
// TEST_DATABASE_URL.
package testutil
