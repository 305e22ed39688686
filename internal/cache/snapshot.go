package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/logger"
)

// VenueRecord is one scraped venue and its event entries. Written by the
// external scraper, read-only here.
type VenueRecord struct {
	Name            string          `json:"name"`
	URL             string          `json:"url"`
	Domain          string          `json:"domain"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	DefaultCategory string          `json:"category"`
	Events          []*events.Event `json:"events"`
	AddedAt         time.Time       `json:"added_at,omitempty"`
}

// VenueSnapshot is the scraped venue dataset. Staleness is computed against
// LastUpdated, never against read time.
type VenueSnapshot struct {
	LastUpdated time.Time               `json:"last_updated"`
	Venues      map[string]*VenueRecord `json:"venues"`
}

// EmptySnapshot returns a usable zero-value snapshot.
func EmptySnapshot() *VenueSnapshot {
	return &VenueSnapshot{Venues: make(map[string]*VenueRecord)}
}

// SnapshotStore is one backing copy of the venue snapshot.
type SnapshotStore interface {
	// Load returns the stored snapshot, or an empty snapshot when the
	// backing copy does not exist yet.
	Load() (*VenueSnapshot, error)
	// Save overwrites the backing copy. Used for opportunistic repair of a
	// stale store, not by the read path.
	Save(*VenueSnapshot) error
	// Name identifies the store in logs.
	Name() string
}

// Refresher regenerates the snapshot's backing data out-of-band. The manager
// runs it in a supervised goroutine and observes its typed result
// asynchronously; callers of the read path never wait on it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// SnapshotManager serves the venue snapshot stale-while-revalidate. The
// in-progress flag and last-trigger timestamp act as a simple non-reentrant
// lock preventing duplicate refresh spawns.
type SnapshotManager struct {
	stores    []SnapshotStore // priority order; newest LastUpdated wins
	refresher Refresher
	clock     Clock

	staleAfter time.Duration
	cooldown   time.Duration

	// onSpawn is invoked once per launched refresh (metrics hook).
	onSpawn func()

	mu            sync.Mutex
	snapshot      *VenueSnapshot
	refreshActive bool
	lastTriggered time.Time
}

// NewSnapshotManager wires a manager over one or more backing stores.
func NewSnapshotManager(stores []SnapshotStore, refresher Refresher, clock Clock, staleAfter, cooldown time.Duration) *SnapshotManager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SnapshotManager{
		stores:     stores,
		refresher:  refresher,
		clock:      clock,
		staleAfter: staleAfter,
		cooldown:   cooldown,
	}
}

// OnSpawn registers a hook called each time a background refresh launches.
func (m *SnapshotManager) OnSpawn(fn func()) { m.onSpawn = fn }

// Snapshot returns the current snapshot immediately, regardless of age.
// When the snapshot is stale, no refresh is in flight, and the cooldown has
// elapsed, a background refresh is launched before returning.
func (m *SnapshotManager) Snapshot() *VenueSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshot == nil {
		m.snapshot = m.loadLocked()
	}
	snap := m.snapshot

	now := m.clock.Now()
	stale := now.Sub(snap.LastUpdated) > m.staleAfter
	cooled := now.Sub(m.lastTriggered) > m.cooldown

	if stale && !m.refreshActive && cooled && m.refresher != nil {
		m.refreshActive = true
		m.lastTriggered = now
		if m.onSpawn != nil {
			m.onSpawn()
		}
		logger.Info("venue snapshot stale, launching background refresh", logger.Fields{
			"age": now.Sub(snap.LastUpdated).String(),
		})
		go m.runRefresh()
	}

	return snap
}

// RefreshInProgress reports whether a background refresh is currently active.
func (m *SnapshotManager) RefreshInProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshActive
}

// runRefresh supervises one refresh attempt. Success or failure flips the
// in-progress flag; success also invalidates the in-memory snapshot so the
// next read re-loads from the backing stores.
func (m *SnapshotManager) runRefresh() {
	err := m.refresher.Refresh(context.Background())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshActive = false
	if err != nil {
		logger.Error("venue snapshot refresh failed", nil, err)
		return
	}
	m.snapshot = nil
	logger.Info("venue snapshot refresh finished", nil)
}

// loadLocked reads every backing store and keeps the copy with the newest
// LastUpdated. When the copies disagree, the stale store is repaired in the
// background; read-your-own-writes across stores is not guaranteed, only
// eventual convergence.
func (m *SnapshotManager) loadLocked() *VenueSnapshot {
	type loaded struct {
		store SnapshotStore
		snap  *VenueSnapshot
	}

	best := EmptySnapshot()
	var copies []loaded

	for _, store := range m.stores {
		snap, err := store.Load()
		if err != nil {
			logger.Warn("venue snapshot store load failed", logger.Fields{
				"store": store.Name(),
			})
			continue
		}
		copies = append(copies, loaded{store: store, snap: snap})
		if snap.LastUpdated.After(best.LastUpdated) {
			best = snap
		}
	}

	if !best.LastUpdated.IsZero() {
		for _, c := range copies {
			if c.snap.LastUpdated.Before(best.LastUpdated) {
				go m.repair(c.store, best)
			}
		}
	}

	if best.Venues == nil {
		best.Venues = make(map[string]*VenueRecord)
	}
	return best
}

// repair overwrites a stale backing copy with the newer snapshot.
func (m *SnapshotManager) repair(store SnapshotStore, snap *VenueSnapshot) {
	if err := store.Save(snap); err != nil {
		logger.Warn("venue snapshot repair failed", logger.Fields{
			"store": store.Name(),
		})
	}
}
