package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Limits bound the memory backend. Zero disables a limit.
type Limits struct {
	Entries    int   // most entries held
	Bytes      int64 // most value bytes held in total
	EntryBytes int64 // largest single value accepted; larger values are not cached
}

// Memory is an in-process cache. Values are shared, not copied: callers
// must not modify a slice after Set or after it is returned by Get.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]*entry
	bytes  int64
	ttl    time.Duration
	limits Limits
	now    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory builds a memory cache. A janitor drops expired entries every
// sweep interval until Close; sweep <= 0 disables it.
func NewMemory(ttl time.Duration, limits Limits, sweep time.Duration) *Memory {
	m := &Memory{
		items:  make(map[string]*entry),
		ttl:    ttl,
		limits: limits,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	if sweep > 0 {
		go m.sweepLoop(sweep)
	}
	return m
}

func (m *Memory) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !now.Before(e.expires) {
		m.removeLocked(key, e)
		return nil, false, nil
	}
	e.expires = now.Add(m.ttl)
	return e.value, true, nil
}

// Set stores value unless it exceeds Limits.EntryBytes or the whole byte
// budget. Expired entries, then the least recently used ones, make room
// for it. Values too large to cache are dropped without error.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	size := int64(len(value))
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.items[key]; exists {
		m.removeLocked(key, old)
	}
	if (m.limits.EntryBytes > 0 && size > m.limits.EntryBytes) || (m.limits.Bytes > 0 && size > m.limits.Bytes) {
		return nil
	}

	if m.overLocked(size) {
		m.sweepLocked(now)
		for len(m.items) > 0 && m.overLocked(size) {
			m.evictLocked()
		}
	}
	m.items[key] = &entry{value: value, expires: now.Add(m.ttl)}
	m.bytes += size
	return nil
}

// overLocked reports whether adding a value of size bytes breaks a limit.
func (m *Memory) overLocked(size int64) bool {
	if m.limits.Entries > 0 && len(m.items) >= m.limits.Entries {
		return true
	}
	return m.limits.Bytes > 0 && m.bytes+size > m.limits.Bytes
}

func (m *Memory) removeLocked(key string, e *entry) {
	delete(m.items, key)
	m.bytes -= int64(len(e.value))
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

func (m *Memory) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range m.items {
		if !now.Before(e.expires) {
			m.removeLocked(k, e)
			n++
		}
	}
	return n
}

// evictLocked drops the entry closest to expiry, i.e. the least recently used.
func (m *Memory) evictLocked() {
	var (
		oldestKey string
		oldest    *entry
	)
	for k, e := range m.items {
		if oldest == nil || e.expires.Before(oldest.expires) {
			oldestKey, oldest = k, e
		}
	}
	if oldest != nil {
		m.removeLocked(oldestKey, oldest)
	}
}

// Len returns the number of entries, expired ones included until swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Size returns the total bytes of the values held.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bytes
}

// Close stops the janitor. The cache stays usable.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}
