package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	constants "github.com/nadmetry/scorerelay/internal/constants"
	util "github.com/nadmetry/scorerelay/internal/util"
)

// Entry tracks one request id through its dedup lifetime. The Processing
// flag is a cooperative marker bracketing the chain call, not a mutex; a
// writer that dies between mark and complete is cleared by the sweep.
type Entry struct {
	Timestamp  time.Time
	Processing bool
}

// Store abstracts where dedup entries live, so multi-instance deployments
// can swap the in-memory map for a shared cache.
type Store interface {
	Get(id string) (Entry, bool)
	Set(id string, e Entry)
	Delete(id string)
	Range(fn func(id string, e Entry) bool)
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *MemoryStore) Set(id string, e Entry) {
	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

func (s *MemoryStore) Range(fn func(id string, e Entry) bool) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	entries := make([]Entry, 0, len(s.entries))
	for id, e := range s.entries {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	for i := range ids {
		if !fn(ids[i], entries[i]) {
			return
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Deduplicator collapses identical submissions inside a 30-second bucket
// into a single accepted chain write.
type Deduplicator struct {
	store Store
	now   func() time.Time
}

func NewDeduplicator(store Store) *Deduplicator {
	return &Deduplicator{store: store, now: time.Now}
}

func (d *Deduplicator) WithClock(now func() time.Time) *Deduplicator {
	d.now = now
	return d
}

// MakeID hashes the submission triple plus the current time bucket.
// Identical submissions within one bucket collide by design.
func (d *Deduplicator) MakeID(playerAddress string, scoreAmount, transactionAmount int64) string {
	bucket := d.now().UnixMilli() / constants.DedupWindow.Milliseconds()
	data := fmt.Sprintf("%s-%d-%d-%d", playerAddress, scoreAmount, transactionAmount, bucket)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether id was already seen and is still inside the
// dedup window or currently being processed. Expired idle entries are
// dropped eagerly here so a stale id does not block a fresh submission.
func (d *Deduplicator) IsDuplicate(id string) bool {
	e, ok := d.store.Get(id)
	if !ok {
		return false
	}
	if d.now().Sub(e.Timestamp) > constants.DedupWindow && !e.Processing {
		d.store.Delete(id)
		return false
	}
	return true
}

func (d *Deduplicator) MarkProcessing(id string) {
	d.store.Set(id, Entry{Timestamp: d.now(), Processing: true})
}

// MarkComplete clears the processing flag but keeps the entry, so exact
// repeats stay suppressed until the entry ages out.
func (d *Deduplicator) MarkComplete(id string) {
	if e, ok := d.store.Get(id); ok {
		e.Processing = false
		d.store.Set(id, e)
	}
}

// Sweep removes entries that expired while idle, plus entries stuck in
// processing past the hard ceiling. Stuck entries are treated as crashed
// writers so a failure cannot permanently wedge identical submissions.
func (d *Deduplicator) Sweep() int {
	now := d.now()
	removed := 0
	d.store.Range(func(id string, e Entry) bool {
		expired := now.Sub(e.Timestamp) > constants.DedupWindow && !e.Processing
		stuck := e.Processing && now.Sub(e.Timestamp) > constants.MaxProcessingTime
		if expired || stuck {
			d.store.Delete(id)
			removed++
		}
		return true
	})
	return removed
}

// StartSweeper runs Sweep on a fixed interval until the returned stop
// function is called.
func (d *Deduplicator) StartSweeper(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := d.Sweep(); n > 0 {
					util.LogInfo("Swept %d stale dedup entries", n)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
