package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Entry is a fixed-window counter for one client key.
type Entry struct {
	Count       int
	WindowStart time.Time
}

// Store abstracts where counters live. MemoryStore serves single-instance
// deployments; a shared store can be plugged in for horizontal scaling.
type Store interface {
	Get(key string) (Entry, bool)
	Set(key string, e Entry)
	Delete(key string)
	Range(fn func(key string, e Entry) bool)
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Set(key string, e Entry) {
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *MemoryStore) Range(fn func(key string, e Entry) bool) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	entries := make([]Entry, 0, len(s.entries))
	for k, e := range s.entries {
		keys = append(keys, k)
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	for i := range keys {
		if !fn(keys[i], entries[i]) {
			return
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type Policy struct {
	MaxRequests int
	Window      time.Duration
}

type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// Limiter counts requests per client key in fixed windows.
type Limiter struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Check records one request against key and reports whether it fits in the
// current window. ResetTime is when the window rolls over, surfaced to the
// caller for client-side backoff.
func (l *Limiter) Check(key string, p Policy) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.store.Get(key)
	if !ok || now.Sub(e.WindowStart) >= p.Window {
		l.store.Set(key, Entry{Count: 1, WindowStart: now})
		return Result{Allowed: true, Remaining: p.MaxRequests - 1, ResetTime: now.Add(p.Window)}
	}

	reset := e.WindowStart.Add(p.Window)
	if e.Count >= p.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetTime: reset}
	}

	e.Count++
	l.store.Set(key, e)
	return Result{Allowed: true, Remaining: p.MaxRequests - e.Count, ResetTime: reset}
}

// Cleanup drops counters whose window ended before the TTL cutoff.
// Returns the number of entries removed.
func (l *Limiter) Cleanup(ttl time.Duration) int {
	cutoff := l.now().Add(-ttl)
	removed := 0
	l.store.Range(func(key string, e Entry) bool {
		if e.WindowStart.Before(cutoff) {
			l.store.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// ClientKey derives a per-client key from proxy headers. Clients that
// expose neither header all share the "unknown" bucket.
func ClientKey(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := h.Get("X-Real-Ip"); real != "" {
		return real
	}
	return "unknown"
}
