// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingStore returns err from every operation
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (Entry, error) { return Entry{}, f.err }
func (f failingStore) Set(context.Context, Entry) error { return f.err }
func (f failingStore) Delete(context.Context, string) error { return f.err }
func (f failingStore) DeletePrefix(context.Context, string) (int, error) { return 0, f.err }
func (f failingStore) DeleteExpired(context.Context, time.Time) (int, error) { return 0, f.err }
func (f failingStore) Len(context.Context) (int, error) { return 0, f.err }

func openSQLiteForTest(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storesUnderTest(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": openSQLiteForTest(t),
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, Entry{Key: "recs:u1:a", Value: []byte(`"a"`), ExpiresAt: now.Add(time.Minute), CreatedAt: now}))
			require.NoError(t, store.Set(ctx, Entry{Key: "recs:u1:b", Value: []byte(`"b"`), ExpiresAt: now.Add(-time.Minute), CreatedAt: now}))
			require.NoError(t, store.Set(ctx, Entry{Key: "recs:u2:a", Value: []byte(`"c"`), CreatedAt: now}))
			require.NoError(t, store.Set(ctx, Entry{Key: "100%_off", Value: []byte(`1`), CreatedAt: now}))

			e, err := store.Get(ctx, "recs:u1:a")
			require.NoError(t, err)
			assert.Equal(t, `"a"`, string(e.Value))
			assert.True(t, e.ExpiresAt.Equal(now.Add(time.Minute)))

			// Overwrite keeps a single entry
			require.NoError(t, store.Set(ctx, Entry{Key: "recs:u1:a", Value: []byte(`"a2"`), CreatedAt: now}))
			e, err = store.Get(ctx, "recs:u1:a")
			require.NoError(t, err)
			assert.Equal(t, `"a2"`, string(e.Value))
			assert.True(t, e.ExpiresAt.IsZero())

			n, err := store.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, n)

			n, err = store.DeleteExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "only recs:u1:b had expired")

			// Wildcard characters are literal
			n, err = store.DeletePrefix(ctx, "100%")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			n, err = store.DeletePrefix(ctx, "recs:u_")
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			n, err = store.DeletePrefix(ctx, "recs:u1:")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, store.Delete(ctx, "recs:u2:a"))
			require.NoError(t, store.Delete(ctx, "recs:u2:a"), "deleting a missing key is not an error")

			n, err = store.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, Entry{Key: "k", Value: buf}))
	buf[0] = 'z'

	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(e.Value))
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, Entry{Key: "k", Value: []byte("1"), CreatedAt: time.Now()}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "1", string(e.Value))
	assert.Equal(t, path, s.Path())
}

type recipeList struct {
	IDs []string `json:"ids"`
}

func TestManager_GetSet(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := NewManager(NewMemoryStore(), Options{DefaultTTL: time.Minute, Now: clock.Now})

	var got recipeList
	hit, err := m.Get(ctx, "recs:u1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, m.Set(ctx, "recs:u1", recipeList{IDs: []string{"r1", "r2"}}, 0))
	hit, err = m.Get(ctx, "recs:u1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"r1", "r2"}, got.IDs)

	// Default TTL applies when ttl <= 0
	clock.Advance(61 * time.Second)
	hit, err = m.Get(ctx, "recs:u1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	st := m.Stats(ctx)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(2), st.Misses)
	assert.Equal(t, int64(1), st.Sets)
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, 0, st.Entries)
	assert.InDelta(t, 1.0/3.0, st.HitRate, 1e-9)

	m.ResetStats()
	st = m.Stats(ctx)
	assert.Zero(t, st.Hits)
	assert.Zero(t, st.HitRate)
	assert.Empty(t, st.Alerts)
}

func TestManager_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, Options{})

	require.NoError(t, store.Set(ctx, Entry{Key: "bad", Value: []byte("{not json")}))

	var v recipeList
	hit, err := m.Get(ctx, "bad", &v)
	assert.Error(t, err)
	assert.False(t, hit)

	_, err = store.Get(ctx, "bad")
	assert.ErrorIs(t, err, ErrNotFound, "corrupt entry is dropped")
}

func TestManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), Options{})

	require.NoError(t, m.Set(ctx, "recs:u1:local", 1, 0))
	require.NoError(t, m.Set(ctx, "recs:u1:external", 2, 0))
	require.NoError(t, m.Set(ctx, "recs:u2:local", 3, 0))

	require.NoError(t, m.Invalidate(ctx, "recs:u2:local"))
	n, err := m.InvalidatePrefix(ctx, "recs:u1:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, m.Stats(ctx).Entries)
}

func TestManager_EvictStale(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := NewManager(NewMemoryStore(), Options{Now: clock.Now})

	require.NoError(t, m.Set(ctx, "a", 1, time.Second))
	require.NoError(t, m.Set(ctx, "b", 2, time.Hour))

	clock.Advance(time.Minute)
	n, err := m.EvictStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), m.Stats(ctx).Evictions)
	assert.Equal(t, 1, m.Stats(ctx).Entries)
}

func TestManager_GetOrCompute(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), Options{})

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return recipeList{IDs: []string{"r9"}}, nil
	}

	var v recipeList
	cached, err := m.GetOrCompute(ctx, "k", 0, &v, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []string{"r9"}, v.IDs)

	var again recipeList
	cached, err = m.GetOrCompute(ctx, "k", 0, &again, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, v, again)
	assert.Equal(t, 1, calls)
}

func TestManager_InvalidateDuringCompute(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), Options{})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		var v string
		_, err := m.GetOrCompute(ctx, "recs:u1:10:0", 0, &v, func(context.Context) (any, error) {
			close(started)
			<-release
			return "old-pantry", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "old-pantry", v, "the caller still gets its result")
	}()

	<-started
	_, err := m.InvalidatePrefix(ctx, "recs:u1:")
	require.NoError(t, err)
	close(release)
	<-done

	var v string
	hit, err := m.Get(ctx, "recs:u1:10:0", &v)
	require.NoError(t, err)
	assert.False(t, hit, "a result computed before the invalidation is not cached")

	// Other users' computations are unaffected
	cached, err := m.GetOrCompute(ctx, "recs:u2:10:0", 0, &v, func(context.Context) (any, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	hit, err = m.Get(ctx, "recs:u2:10:0", &v)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestManager_UnrelatedInvalidateDuringCompute(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), Options{})

	var v string
	_, err := m.GetOrCompute(ctx, "recs:u1:10:0", 0, &v, func(ctx context.Context) (any, error) {
		_, err := m.InvalidatePrefix(ctx, "recs:u2:")
		return "kept", err
	})
	require.NoError(t, err)

	hit, err := m.Get(ctx, "recs:u1:10:0", &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "kept", v)
}

func TestManager_GetOrComputeError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), Options{})
	boom := errors.New("upstream down")

	var v int
	_, err := m.GetOrCompute(ctx, "k", 0, &v, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Stats(ctx).Entries, "errors are not cached")
}

func TestManager_SingleFlight(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), Options{})

	var (
		calls atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := m.GetOrCompute(ctx, "shared", 0, &results[i], func(context.Context) (any, error) {
				calls.Add(1)
				time.Sleep(30 * time.Millisecond)
				return 7, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 7, r)
	}
}

func TestManager_StoreErrorsFallBack(t *testing.T) {
	ctx := context.Background()
	var alerts []Alert
	m := NewManager(failingStore{err: errors.New("disk full")}, Options{
		Thresholds: Thresholds{MaxErrors: 2},
		OnAlert:    func(a Alert) { alerts = append(alerts, a) },
	})

	for i := 0; i < 3; i++ {
		var v string
		cached, err := m.GetOrCompute(ctx, "k", 0, &v, func(context.Context) (any, error) {
			return "fresh", nil
		})
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, "fresh", v)
	}

	st := m.Stats(ctx)
	assert.Equal(t, int64(6), st.Errors, "one read and one write failure per call")
	assert.Equal(t, -1, st.Entries)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertErrorBudget, alerts[0].Kind)
	assert.Equal(t, []string{AlertErrorBudget}, m.Alerts())
}

func TestManager_AlertsAreEdgeTriggered(t *testing.T) {
	ctx := context.Background()
	var fired []string
	m := NewManager(NewMemoryStore(), Options{
		Thresholds: Thresholds{MinHitRate: 0.5, MinSamples: 2},
		OnAlert:    func(a Alert) { fired = append(fired, a.Kind) },
	})

	var v int
	m.Get(ctx, "x", &v) // 1 sample, not judged yet
	assert.Empty(t, fired)
	m.Get(ctx, "x", &v)
	m.Get(ctx, "x", &v)
	assert.Equal(t, []string{AlertLowHitRate}, fired)

	require.NoError(t, m.Set(ctx, "x", 1, 0))
	for i := 0; i < 3; i++ {
		m.Get(ctx, "x", &v)
	}
	assert.Empty(t, m.Alerts(), "3 hits of 6 lookups clears the alert")

	require.NoError(t, m.Invalidate(ctx, "x"))
	m.Get(ctx, "x", &v)
	assert.Equal(t, []string{AlertLowHitRate, AlertLowHitRate}, fired, "alert fires again after clearing")
}

func TestManager_Sweeper(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, Options{SweepInterval: 5 * time.Millisecond})

	require.NoError(t, store.Set(ctx, Entry{Key: "old", Value: []byte("1"), ExpiresAt: time.Now().Add(-time.Second)}))

	m.Start(ctx)
	m.Start(ctx) // second call is a no-op

	require.Eventually(t, func() bool {
		n, _ := store.Len(ctx)
		return n == 0
	}, time.Second, 5*time.Millisecond)

	m.Close()
	m.Close()
}

func TestManager_SweeperStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(NewMemoryStore(), Options{SweepInterval: time.Millisecond})
	m.Start(ctx)
	cancel()
	m.Close()
}

func TestRunGuardrails(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			results := RunGuardrails(ctx, store)
			require.Len(t, results, len(guardrails))
			for _, r := range results {
				assert.True(t, r.Passed, "%s: %s", r.Name, r.Detail)
			}

			n, err := store.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n, "guardrails clean up their keys")
		})
	}
}

func TestRunGuardrails_KeepsLiveEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	require.NoError(t, store.Set(ctx, Entry{Key: "recs:u1:10:0", Value: []byte(`"live"`), ExpiresAt: now.Add(30 * time.Second), CreatedAt: now}))

	for _, r := range RunGuardrails(ctx, store) {
		assert.True(t, r.Passed, "%s: %s", r.Name, r.Detail)
	}

	e, err := store.Get(ctx, "recs:u1:10:0")
	require.NoError(t, err, "an entry close to expiry survives the guardrails")
	assert.Equal(t, `"live"`, string(e.Value))
}

func TestRunGuardrails_FailingStore(t *testing.T) {
	results := RunGuardrails(context.Background(), failingStore{err: errors.New("unreachable")})
	for _, r := range results {
		assert.False(t, r.Passed, r.Name)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := OpenStore(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, closeFn())

	s, closeFn, err = OpenStore(ctx, filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, closeFn())
}
