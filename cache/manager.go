// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/prepsense/models"
)

// Alert kinds
const (
	AlertLowHitRate  = "low_hit_rate"
	AlertErrorBudget = "error_budget"
)

const (
	DefaultTTL        = 30 * time.Minute
	DefaultMinSamples = 20
)

// Thresholds controls when alerts fire. A zero MinHitRate or MaxErrors
// disables that alert.
type Thresholds struct {
	MinHitRate float64 // alert when hit rate drops below this
	MinSamples int64   // lookups required before the hit rate is judged
	MaxErrors  int64   // alert when store errors exceed this
}

// Alert describes a threshold crossing
type Alert struct {
	Kind    string
	Message string
	Stats   models.CacheStats
}

// AlertFunc is called once when an alert becomes active
type AlertFunc func(Alert)

// Options configures a Manager
type Options struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Thresholds    Thresholds
	OnAlert       AlertFunc
	Now           func() time.Time
}

// Manager stores JSON-encoded artifacts in a Store with TTLs, counts hits
// and misses, and raises alerts. It is safe for concurrent use.
type Manager struct {
	store Store
	opts  Options
	group singleflight.Group
	inv   invalidations

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	storeErrs atomic.Int64

	mu     sync.Mutex
	active map[string]bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(store Store, opts Options) *Manager {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnAlert == nil {
		opts.OnAlert = logAlert
	}
	return &Manager{
		store:  store,
		opts:   opts,
		active: make(map[string]bool),
		inv:    invalidations{prefixes: make(map[string]uint64)},
	}
}

// invalidations remembers which prefixes were invalidated while a
// computation was running, so its now stale result is not stored.
type invalidations struct {
	mu       sync.Mutex
	epoch    uint64
	prefixes map[string]uint64 // prefix -> epoch of its last invalidation
	inflight int
}

func (iv *invalidations) begin() uint64 {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.inflight++
	return iv.epoch
}

func (iv *invalidations) end() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.inflight--
	if iv.inflight == 0 {
		clear(iv.prefixes)
	}
}

func (iv *invalidations) bump(prefix string) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.inflight == 0 {
		return
	}
	iv.epoch++
	iv.prefixes[prefix] = iv.epoch
}

// since reports whether key was invalidated after epoch start
func (iv *invalidations) since(key string, start uint64) bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	for p, e := range iv.prefixes {
		if e > start && strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func logAlert(a Alert) {
	slog.Warn("cache alert",
		"kind", a.Kind,
		"message", a.Message,
		"hit_rate", a.Stats.HitRate,
		"errors", a.Stats.Errors,
	)
}

// Store returns the underlying store
func (m *Manager) Store() Store {
	return m.store
}

// Get decodes the value under key into dst. It reports false on a miss;
// expired entries are deleted and count as a miss and an eviction.
func (m *Manager) Get(ctx context.Context, key string, dst any) (bool, error) {
	defer m.checkAlerts()

	e, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		m.misses.Add(1)
		return false, nil
	}
	if err != nil {
		m.storeErrs.Add(1)
		return false, err
	}

	if e.Expired(m.opts.Now()) {
		m.misses.Add(1)
		if err := m.store.Delete(ctx, key); err != nil {
			m.storeErrs.Add(1)
		} else {
			m.evictions.Add(1)
		}
		return false, nil
	}

	if err := json.Unmarshal(e.Value, dst); err != nil {
		m.misses.Add(1)
		m.storeErrs.Add(1)
		_ = m.store.Delete(ctx, key)
		return false, fmt.Errorf("decode cache entry %q: %w", key, err)
	}

	m.hits.Add(1)
	return true, nil
}

// Set stores v under key. A ttl <= 0 uses the default TTL.
func (m *Manager) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	return m.setRaw(ctx, key, data, ttl)
}

func (m *Manager) setRaw(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	defer m.checkAlerts()

	if ttl <= 0 {
		ttl = m.opts.DefaultTTL
	}
	now := m.opts.Now()
	err := m.store.Set(ctx, Entry{
		Key:       key,
		Value:     data,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		m.storeErrs.Add(1)
		return err
	}
	m.sets.Add(1)
	return nil
}

// GetOrCompute decodes the cached value for key into dst, or calls fn,
// caches its result and decodes that into dst. Concurrent callers for the
// same key share one call to fn. The returned bool reports a cache hit.
//
// A result whose key is invalidated while fn runs is returned but not
// stored. Store failures are logged and never returned; only fn's error is.
func (m *Manager) GetOrCompute(ctx context.Context, key string, ttl time.Duration, dst any, fn func(context.Context) (any, error)) (bool, error) {
	hit, err := m.Get(ctx, key, dst)
	if err != nil {
		slog.Warn("cache read failed, computing", "key", key, "error", err)
	}
	if hit {
		return true, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		start := m.inv.begin()
		defer m.inv.end()

		// A caller that finished just before us may have filled the entry
		if e, err := m.store.Get(ctx, key); err == nil && !e.Expired(m.opts.Now()) {
			return e.Value, nil
		}

		result, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode cache entry %q: %w", key, err)
		}
		if m.inv.since(key, start) {
			// Later callers must not join this flight
			m.group.Forget(key)
			slog.Debug("computed value invalidated, not caching", "key", key)
			return data, nil
		}
		if err := m.setRaw(ctx, key, data, ttl); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err)
		}
		return data, nil
	})
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(v.([]byte), dst); err != nil {
		return false, fmt.Errorf("decode computed value %q: %w", key, err)
	}
	return false, nil
}

// Invalidate removes key
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	defer m.checkAlerts()
	m.inv.bump(key)

	if err := m.store.Delete(ctx, key); err != nil {
		m.storeErrs.Add(1)
		return err
	}
	return nil
}

// InvalidatePrefix removes every key starting with prefix
func (m *Manager) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	defer m.checkAlerts()
	m.inv.bump(prefix)

	n, err := m.store.DeletePrefix(ctx, prefix)
	if err != nil {
		m.storeErrs.Add(1)
		return 0, err
	}
	return n, nil
}

// EvictStale deletes all expired entries and returns how many were removed
func (m *Manager) EvictStale(ctx context.Context) (int, error) {
	defer m.checkAlerts()

	n, err := m.store.DeleteExpired(ctx, m.opts.Now())
	if err != nil {
		m.storeErrs.Add(1)
		return 0, err
	}
	m.evictions.Add(int64(n))
	return n, nil
}

// Stats returns the counters since the last reset. Entries is -1 when the
// store cannot be counted.
func (m *Manager) Stats(ctx context.Context) models.CacheStats {
	st := m.counters()
	if n, err := m.store.Len(ctx); err == nil {
		st.Entries = n
	} else {
		st.Entries = -1
	}
	st.Alerts = m.Alerts()
	return st
}

func (m *Manager) counters() models.CacheStats {
	st := models.CacheStats{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Sets:      m.sets.Load(),
		Evictions: m.evictions.Load(),
		Errors:    m.storeErrs.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// ResetStats zeroes the counters and clears active alerts
func (m *Manager) ResetStats() {
	m.hits.Store(0)
	m.misses.Store(0)
	m.sets.Store(0)
	m.evictions.Store(0)
	m.storeErrs.Store(0)

	m.mu.Lock()
	clear(m.active)
	m.mu.Unlock()
}

// Alerts returns the active alert kinds, sorted
func (m *Manager) Alerts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := []string{}
	for kind, on := range m.active {
		if on {
			alerts = append(alerts, kind)
		}
	}
	sort.Strings(alerts)
	return alerts
}

func (m *Manager) checkAlerts() {
	st := m.counters()
	th := m.opts.Thresholds

	lowHitRate := th.MinHitRate > 0 &&
		st.Hits+st.Misses >= th.MinSamples &&
		st.HitRate < th.MinHitRate
	overBudget := th.MaxErrors > 0 && st.Errors > th.MaxErrors

	var fire []Alert
	m.mu.Lock()
	if m.transition(AlertLowHitRate, lowHitRate) {
		fire = append(fire, Alert{
			Kind:    AlertLowHitRate,
			Message: fmt.Sprintf("hit rate %.2f below %.2f", st.HitRate, th.MinHitRate),
			Stats:   st,
		})
	}
	if m.transition(AlertErrorBudget, overBudget) {
		fire = append(fire, Alert{
			Kind:    AlertErrorBudget,
			Message: fmt.Sprintf("%d store errors exceed budget of %d", st.Errors, th.MaxErrors),
			Stats:   st,
		})
	}
	m.mu.Unlock()

	for _, a := range fire {
		m.opts.OnAlert(a)
	}
}

// transition records the state of kind and reports whether it just
// became active. Caller holds m.mu.
func (m *Manager) transition(kind string, on bool) bool {
	was := m.active[kind]
	m.active[kind] = on
	return on && !was
}

// Start runs EvictStale every SweepInterval until ctx is done or Close is
// called. It does nothing when the interval is not positive or the
// sweeper is already running.
func (m *Manager) Start(ctx context.Context) {
	if m.opts.SweepInterval <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.sweep(ctx, m.done)
}

func (m *Manager) sweep(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.EvictStale(ctx)
			if err != nil {
				slog.Warn("cache sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("cache sweep", "evicted", n)
			}
		}
	}
}

// Close stops the sweeper and waits for it to exit
func (m *Manager) Close() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
