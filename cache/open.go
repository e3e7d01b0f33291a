// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/prepsense/cliparse"
)

// OpenStore returns a SQLiteStore when path is set and a MemoryStore
// otherwise. The returned close func is never nil.
func OpenStore(ctx context.Context, path string) (Store, func() error, error) {
	if path == "" {
		return NewMemoryStore(), func() error { return nil }, nil
	}
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// OptionsFromConfig maps the cache section of the config onto Options
func OptionsFromConfig(cfg cliparse.CacheConfig) Options {
	return Options{
		DefaultTTL:    cfg.CacheTTL,
		SweepInterval: cfg.CacheSweepInterval,
		Thresholds: Thresholds{
			MinHitRate: cfg.CacheMinHitRate,
			MinSamples: DefaultMinSamples,
			MaxErrors:  cfg.CacheMaxErrors,
		},
	}
}

// New opens the configured store and wraps it in a Manager
func New(ctx context.Context, cfg cliparse.CacheConfig) (*Manager, func() error, error) {
	store, closeFn, err := OpenStore(ctx, cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	backend := "memory"
	if cfg.CachePath != "" {
		backend = "sqlite"
	}
	slog.Info("cache ready", "backend", backend, "path", cfg.CachePath, "ttl", cfg.CacheTTL)
	return NewManager(store, OptionsFromConfig(cfg)), closeFn, nil
}
