// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cache stores derived artifacts such as recommendation lists and
external API responses.

# Stores

A Store holds raw entries with an expiry time:

  - MemoryStore: a map guarded by a RWMutex
  - SQLiteStore: table artifact_cache in a local SQLite file

OpenStore picks one from the CACHE_PATH setting.

# Manager

Manager adds JSON encoding, TTLs and metrics on top of a Store:

	m := cache.NewManager(store, cache.Options{DefaultTTL: 30 * time.Minute})
	cached, err := m.GetOrCompute(ctx, key, 0, &out, compute)

Concurrent GetOrCompute calls for one key share a single computation.
Store failures are counted and logged but never fail the caller.

# Alerts

After every operation the Manager compares its counters against
Thresholds. An AlertFunc runs once when an alert kind (low_hit_rate,
error_budget) becomes active, and again only after it has cleared.

# Guardrails

RunGuardrails runs a fixed set of scenarios against any Store and is used
by "prepsense-admin cache test".
*/
package cache
