// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielhkuo/prepsense/auth"
)

// GuardrailResult is the outcome of one guardrail scenario
type GuardrailResult struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail"`
	Duration time.Duration `json:"duration_ns"`
}

type guardrail struct {
	name string
	run  func(ctx context.Context, env *guardrailEnv) error
}

// guardrailEnv gives each scenario a fresh Manager on a controllable clock
// and a key namespace that is removed afterwards.
type guardrailEnv struct {
	store  Store
	prefix string

	mu  sync.Mutex
	now time.Time
}

func (g *guardrailEnv) clock() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now
}

func (g *guardrailEnv) advance(d time.Duration) {
	g.mu.Lock()
	g.now = g.now.Add(d)
	g.mu.Unlock()
}

func (g *guardrailEnv) key(s string) string {
	return g.prefix + s
}

func (g *guardrailEnv) manager(th Thresholds, onAlert AlertFunc) *Manager {
	if onAlert == nil {
		onAlert = func(Alert) {}
	}
	return NewManager(g.store, Options{
		DefaultTTL: time.Minute,
		Thresholds: th,
		OnAlert:    onAlert,
		Now:        g.clock,
	})
}

var guardrails = []guardrail{
	{"round_trip", guardRoundTrip},
	{"miss", guardMiss},
	{"ttl_expiry", guardTTLExpiry},
	{"prefix_invalidation", guardPrefixInvalidation},
	{"stale_sweep", guardStaleSweep},
	{"single_flight", guardSingleFlight},
	{"hit_rate_alert", guardHitRateAlert},
}

// RunGuardrails exercises store through a fresh Manager and reports one
// result per scenario. Keys are written under a random prefix and removed
// afterwards, so it is safe against a live store.
func RunGuardrails(ctx context.Context, store Store) []GuardrailResult {
	results := make([]GuardrailResult, 0, len(guardrails))
	for _, g := range guardrails {
		env := &guardrailEnv{
			store:  store,
			prefix: fmt.Sprintf("guardrail:%s:%s:", g.name, auth.NewSortableID()),
			now:    time.Now(),
		}

		start := time.Now()
		err := g.run(ctx, env)
		res := GuardrailResult{
			Name:     g.name,
			Passed:   err == nil,
			Detail:   "ok",
			Duration: time.Since(start),
		}
		if err != nil {
			res.Detail = err.Error()
		}
		if _, err := store.DeletePrefix(ctx, env.prefix); err != nil && res.Passed {
			res.Passed = false
			res.Detail = fmt.Sprintf("cleanup failed: %v", err)
		}
		results = append(results, res)
	}
	return results
}

type guardPayload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func guardRoundTrip(ctx context.Context, env *guardrailEnv) error {
	m := env.manager(Thresholds{}, nil)
	want := guardPayload{Name: "omelette", Items: []string{"egg", "butter"}}

	if err := m.Set(ctx, env.key("value"), want, 0); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	var got guardPayload
	hit, err := m.Get(ctx, env.key("value"), &got)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if !hit {
		return fmt.Errorf("expected hit after set")
	}
	if got.Name != want.Name || len(got.Items) != len(want.Items) {
		return fmt.Errorf("got %+v, want %+v", got, want)
	}
	if st := m.counters(); st.Hits != 1 || st.Sets != 1 {
		return fmt.Errorf("expected 1 hit and 1 set, got %d and %d", st.Hits, st.Sets)
	}
	return nil
}

func guardMiss(ctx context.Context, env *guardrailEnv) error {
	m := env.manager(Thresholds{}, nil)

	var v guardPayload
	hit, err := m.Get(ctx, env.key("absent"), &v)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if hit {
		return fmt.Errorf("expected miss for absent key")
	}
	if st := m.counters(); st.Misses != 1 {
		return fmt.Errorf("expected 1 miss, got %d", st.Misses)
	}
	return nil
}

func guardTTLExpiry(ctx context.Context, env *guardrailEnv) error {
	m := env.manager(Thresholds{}, nil)

	if err := m.Set(ctx, env.key("short"), "v", 10*time.Second); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	var v string
	if hit, _ := m.Get(ctx, env.key("short"), &v); !hit {
		return fmt.Errorf("expected hit before expiry")
	}

	env.advance(11 * time.Second)
	hit, err := m.Get(ctx, env.key("short"), &v)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if hit {
		return fmt.Errorf("expected miss after expiry")
	}
	if st := m.counters(); st.Evictions != 1 {
		return fmt.Errorf("expected 1 eviction, got %d", st.Evictions)
	}
	if _, err := env.store.Get(ctx, env.key("short")); err != ErrNotFound {
		return fmt.Errorf("expired entry still stored (err=%v)", err)
	}
	return nil
}

func guardPrefixInvalidation(ctx context.Context, env *guardrailEnv) error {
	m := env.manager(Thresholds{}, nil)

	for _, k := range []string{"user1:a", "user1:b", "user2:a"} {
		if err := m.Set(ctx, env.key(k), k, 0); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	n, err := m.InvalidatePrefix(ctx, env.key("user1:"))
	if err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("expected 2 invalidated, got %d", n)
	}
	var v string
	if hit, _ := m.Get(ctx, env.key("user2:a"), &v); !hit {
		return fmt.Errorf("unrelated key was invalidated")
	}
	return nil
}

// guardStaleSweep runs on a scratch MemoryStore: a sweep on the clock
// moved forward would also remove live entries of the real store.
func guardStaleSweep(ctx context.Context, env *guardrailEnv) error {
	if _, err := env.store.Len(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	m := NewManager(NewMemoryStore(), Options{
		DefaultTTL: time.Minute,
		OnAlert:    func(Alert) {},
		Now:        env.clock,
	})

	if err := m.Set(ctx, env.key("stale1"), 1, time.Second); err != nil {
		return err
	}
	if err := m.Set(ctx, env.key("stale2"), 2, time.Second); err != nil {
		return err
	}
	if err := m.Set(ctx, env.key("fresh"), 3, time.Hour); err != nil {
		return err
	}

	env.advance(time.Minute)
	n, err := m.EvictStale(ctx)
	if err != nil {
		return fmt.Errorf("evict: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("expected 2 evictions, got %d", n)
	}
	var v int
	if hit, _ := m.Get(ctx, env.key("fresh"), &v); !hit {
		return fmt.Errorf("fresh entry was evicted")
	}
	return nil
}

func guardSingleFlight(ctx context.Context, env *guardrailEnv) error {
	m := env.manager(Thresholds{}, nil)

	const callers = 8
	var (
		calls atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			var v int
			_, err := m.GetOrCompute(ctx, env.key("shared"), 0, &v, func(context.Context) (any, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return 42, nil
			})
			if err == nil && v != 42 {
				err = fmt.Errorf("got %d, want 42", v)
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	if n := calls.Load(); n != 1 {
		return fmt.Errorf("expected 1 computation, got %d", n)
	}
	return nil
}

func guardHitRateAlert(ctx context.Context, env *guardrailEnv) error {
	var fired []string
	m := env.manager(Thresholds{MinHitRate: 0.5, MinSamples: 4}, func(a Alert) {
		fired = append(fired, a.Kind)
	})

	var v string
	for i := 0; i < 6; i++ {
		_, _ = m.Get(ctx, env.key(fmt.Sprintf("missing%d", i)), &v)
	}
	if len(fired) != 1 || fired[0] != AlertLowHitRate {
		return fmt.Errorf("expected one low_hit_rate alert, got %v", fired)
	}

	active := m.Alerts()
	if len(active) != 1 || active[0] != AlertLowHitRate {
		return fmt.Errorf("expected active low_hit_rate, got %v", active)
	}

	// Recover above the threshold; the alert clears without firing again
	if err := m.Set(ctx, env.key("warm"), "x", 0); err != nil {
		return err
	}
	for i := 0; i < 8; i++ {
		_, _ = m.Get(ctx, env.key("warm"), &v)
	}
	if active := m.Alerts(); len(active) != 0 {
		return fmt.Errorf("expected alert to clear, still active: %v", active)
	}
	if len(fired) != 1 {
		return fmt.Errorf("alert fired again while recovering: %v", fired)
	}
	return nil
}
