package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestMemory(ttl time.Duration, limits Limits) (*Memory, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(ttl, limits, 0)
	m.now = clock.Now
	return m, clock
}

func TestMemory_SlidingExpiration(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(time.Hour, Limits{})
	defer m.Close()

	require.NoError(t, m.Set(ctx, "k", []byte("v")))

	clock.Advance(50 * time.Minute)
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	// The hit above pushed the deadline out by another hour.
	clock.Advance(50 * time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	require.True(t, ok)

	clock.Advance(time.Hour)
	_, ok, _ = m.Get(ctx, "k")
	require.False(t, ok)
	require.Zero(t, m.Len())
}

func TestMemory_Sweep(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(time.Minute, Limits{})
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	clock.Advance(30 * time.Second)
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	clock.Advance(45 * time.Second)

	require.Equal(t, 1, m.Sweep())
	require.Equal(t, 1, m.Len())
	_, ok, _ := m.Get(ctx, "b")
	require.True(t, ok)
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(time.Hour, Limits{Entries: 2})
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	clock.Advance(time.Second)
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	clock.Advance(time.Second)
	_, ok, _ := m.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, m.Set(ctx, "c", []byte("3")))
	require.Equal(t, 2, m.Len())

	_, ok, _ = m.Get(ctx, "b")
	require.False(t, ok, "b was least recently used")
	_, ok, _ = m.Get(ctx, "a")
	require.True(t, ok)

	// Overwriting an existing key never evicts.
	require.NoError(t, m.Set(ctx, "c", []byte("33")))
	require.Equal(t, 2, m.Len())
}

func TestMemory_ByteBudget(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(time.Hour, Limits{Bytes: 10})
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", []byte("aaaa")))
	clock.Advance(time.Second)
	require.NoError(t, m.Set(ctx, "b", []byte("bbbb")))
	clock.Advance(time.Second)
	require.Equal(t, int64(8), m.Size())

	// "a" is the oldest and goes first; "b" alone leaves room.
	require.NoError(t, m.Set(ctx, "c", []byte("cccc")))
	require.Equal(t, 2, m.Len())
	require.Equal(t, int64(8), m.Size())
	_, ok, _ := m.Get(ctx, "a")
	require.False(t, ok)

	// Replacing a value accounts for the old size.
	require.NoError(t, m.Set(ctx, "c", []byte("cccccc")))
	require.Equal(t, int64(10), m.Size())
	require.Equal(t, 2, m.Len())

	// A value bigger than the whole budget is not cached and evicts nothing.
	require.NoError(t, m.Set(ctx, "huge", make([]byte, 11)))
	_, ok, _ = m.Get(ctx, "huge")
	require.False(t, ok)
	require.Equal(t, 2, m.Len())

	clock.Advance(2 * time.Hour)
	require.Equal(t, 2, m.Sweep())
	require.Zero(t, m.Size())
}

func TestMemory_EntryBytesCap(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(time.Hour, Limits{EntryBytes: 4})
	defer m.Close()

	require.NoError(t, m.Set(ctx, "small", []byte("1234")))
	require.NoError(t, m.Set(ctx, "big", []byte("12345")))

	_, ok, _ := m.Get(ctx, "small")
	require.True(t, ok)
	_, ok, _ = m.Get(ctx, "big")
	require.False(t, ok)
	require.Equal(t, int64(4), m.Size())

	// Growing an existing key past the cap drops it.
	require.NoError(t, m.Set(ctx, "small", []byte("12345")))
	require.Zero(t, m.Len())
	require.Zero(t, m.Size())
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, Limits{Entries: 50}, time.Millisecond)
	defer m.Close()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				key := fmt.Sprintf("%d-%d", i, j%64)
				_ = m.Set(ctx, key, []byte(key))
				if v, ok, _ := m.Get(ctx, key); ok && string(v) != key {
					t.Errorf("got %q for key %q", v, key)
				}
			}
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, m.Len(), 50)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), RedisOpts{Addr: mr.Addr(), Prefix: "test:"}, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedis_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, time.Hour)

	_, ok, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Set(ctx, "k", []byte("payload")))
	require.True(t, mr.Exists("test:k"))
	require.Equal(t, time.Hour, mr.TTL("test:k"))

	mr.FastForward(40 * time.Minute)
	got, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), got)
	require.Equal(t, time.Hour, mr.TTL("test:k"), "a hit slides the expiry")

	mr.FastForward(2 * time.Hour)
	_, ok, err = r.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_EntryBytesCap(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, time.Hour)
	r.maxEntryBytes = 4

	require.NoError(t, r.Set(ctx, "small", []byte("1234")))
	require.NoError(t, r.Set(ctx, "big", []byte("12345")))
	require.True(t, mr.Exists("test:small"))
	require.False(t, mr.Exists("test:big"))
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisOpts{Addr: addr, ConnectTimeout: 200 * time.Millisecond}, time.Hour)
	require.Error(t, err)

	_, err = NewRedis(context.Background(), RedisOpts{}, time.Hour)
	require.Error(t, err)
}

func TestNew_Factory(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Opts{})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, c)
	require.Equal(t, DefaultTTL, c.(*Memory).ttl)
	require.NoError(t, c.Close())

	c, err = New(ctx, Opts{MaxEntries: 5, MaxBytes: 1 << 20, MaxEntryBytes: 1 << 10})
	require.NoError(t, err)
	require.Equal(t, Limits{Entries: 5, Bytes: 1 << 20, EntryBytes: 1 << 10}, c.(*Memory).limits)
	require.NoError(t, c.Close())

	mr := miniredis.RunT(t)
	c, err = New(ctx, Opts{Backend: BackendRedis, Redis: RedisOpts{Addr: mr.Addr()}})
	require.NoError(t, err)
	require.IsType(t, &Redis{}, c)
	require.NoError(t, c.Close())

	_, err = New(ctx, Opts{Backend: "memcached"})
	require.Error(t, err)
}
