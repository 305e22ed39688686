package cache

import (
	"testing"
	"time"

	"github.com/pfrederiksen/local-events/internal/events"
)

// fakeClock is a manually advanced Clock for TTL and staleness tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryStore_GetSet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(time.Hour, clock)

	result := events.OK(events.SourceSerpAPI, []*events.Event{
		{ID: "a", Title: "Jazz Night"},
	}, clock.now)

	if _, ok := store.Get("k"); ok {
		t.Error("Get() on empty store should miss")
	}

	store.Set("k", result)
	got, ok := store.Get("k")
	if !ok {
		t.Fatal("Get() after Set() should hit")
	}
	if got.Count != 1 {
		t.Errorf("Count = %d, want 1", got.Count)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(time.Hour, clock)

	store.Set("k", events.ProviderResult{Success: true})

	clock.Advance(59 * time.Minute)
	if _, ok := store.Get("k"); !ok {
		t.Error("entry expired before TTL")
	}

	clock.Advance(2 * time.Minute)
	if _, ok := store.Get("k"); ok {
		t.Error("entry survived past TTL")
	}
	if store.Size() != 0 {
		t.Error("expired entry not removed on access")
	}
}

func TestMemoryStore_Invalidate(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	store.Set("k", events.ProviderResult{Success: true})
	store.Invalidate("k")
	if _, ok := store.Get("k"); ok {
		t.Error("Get() after Invalidate() should miss")
	}
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("serpapi", map[string]string{"category": "music", "location": "SF", "limit": "50"})
	b := Key("serpapi", map[string]string{"limit": "50", "location": "SF", "category": "music"})
	if a != b {
		t.Errorf("Key() order-sensitive: %q != %q", a, b)
	}

	c := Key("serpapi", map[string]string{"category": "Music ", "location": "sf", "limit": "50"})
	if a != c {
		t.Errorf("Key() should normalize case and whitespace: %q != %q", a, c)
	}

	d := Key("exa", map[string]string{"category": "music", "location": "SF", "limit": "50"})
	if a == d {
		t.Error("Key() must differ across providers")
	}
}
