package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pfrederiksen/local-events/internal/events"
)

// Clock abstracts time for staleness and TTL checks, so caches are testable
// without real timers.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Store is the injected response-cache abstraction. Adapters hold no hidden
// process-wide singletons; each receives a Store at construction.
type Store interface {
	Get(key string) (events.ProviderResult, bool)
	Set(key string, result events.ProviderResult)
	Invalidate(key string)
}

type entry struct {
	result   events.ProviderResult
	cachedAt time.Time
}

// MemoryStore is a mutex-guarded in-memory Store with a fixed TTL.
// Concurrent requests for an unpopulated key are not coalesced; duplicate
// upstream work under load is an accepted trade-off.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]entry
}

// NewMemoryStore creates a store whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration, clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryStore{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Get returns the cached result for key if present and unexpired. Expired
// entries are removed on access.
func (s *MemoryStore) Get(key string) (events.ProviderResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return events.ProviderResult{}, false
	}
	if s.clock.Now().Sub(e.cachedAt) > s.ttl {
		delete(s.entries, key)
		return events.ProviderResult{}, false
	}
	return e.result, true
}

// Set stores a result under key, overwriting any previous entry.
func (s *MemoryStore) Set(key string, result events.ProviderResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{result: result, cachedAt: s.clock.Now()}
}

// Invalidate removes key from the store.
func (s *MemoryStore) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Size returns the number of live entries, expired or not.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Key builds a deterministic cache key from a provider name and its query
// parameters. Parameter order never affects the key.
func Key(provider string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(provider)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.ToLower(strings.TrimSpace(params[k])))
	}
	return b.String()
}
