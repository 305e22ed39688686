package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory SnapshotStore for tests.
type memStore struct {
	mu    sync.Mutex
	name  string
	snap  *VenueSnapshot
	saves int
}

func (s *memStore) Name() string { return s.name }

func (s *memStore) Load() (*VenueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return EmptySnapshot(), nil
	}
	return s.snap, nil
}

func (s *memStore) Save(snap *VenueSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.saves++
	return nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// blockingRefresher holds its Refresh call open until released.
type blockingRefresher struct {
	started chan struct{}
	release chan error
	calls   int
	mu      sync.Mutex
}

func newBlockingRefresher() *blockingRefresher {
	return &blockingRefresher{
		started: make(chan struct{}, 16),
		release: make(chan error),
	}
}

func (r *blockingRefresher) Refresh(_ context.Context) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.started <- struct{}{}
	return <-r.release
}

func (r *blockingRefresher) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func snapshotAged(t time.Time) *VenueSnapshot {
	return &VenueSnapshot{
		LastUpdated: t,
		Venues: map[string]*VenueRecord{
			"fillmore.com": {Name: "The Fillmore", Domain: "fillmore.com", DefaultCategory: "music"},
		},
	}
}

func TestSnapshotManager_StaleReadTriggersOneRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	store := &memStore{name: "file", snap: snapshotAged(now.Add(-30 * time.Hour))}
	refresher := newBlockingRefresher()

	m := NewSnapshotManager([]SnapshotStore{store}, refresher, clock, 24*time.Hour, 30*time.Minute)

	spawns := 0
	m.OnSpawn(func() { spawns++ })

	// First read: 30h-old data returned immediately, one refresh spawned.
	snap := m.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.Venues, 1, "stale data must still be served")
	<-refresher.started
	assert.Equal(t, 1, spawns)

	// Second read a minute later: still stale, but refresh in flight and
	// cooldown unexpired; no second spawn.
	clock.Advance(time.Minute)
	snap = m.Snapshot()
	assert.Len(t, snap.Venues, 1)
	assert.Equal(t, 1, spawns)
	assert.Equal(t, 1, refresher.callCount())

	refresher.release <- nil
}

func TestSnapshotManager_ReadNeverBlocksOnRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	store := &memStore{name: "file", snap: snapshotAged(now.Add(-48 * time.Hour))}
	refresher := newBlockingRefresher()

	m := NewSnapshotManager([]SnapshotStore{store}, refresher, clock, 24*time.Hour, 30*time.Minute)

	m.Snapshot()
	<-refresher.started

	// Refresh is wedged; reads must still return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			m.Snapshot()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read path blocked while refresh in flight")
	}

	refresher.release <- nil
}

func TestSnapshotManager_SuccessfulRefreshReloads(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	store := &memStore{name: "file", snap: snapshotAged(now.Add(-30 * time.Hour))}
	refresher := newBlockingRefresher()

	m := NewSnapshotManager([]SnapshotStore{store}, refresher, clock, 24*time.Hour, 30*time.Minute)

	m.Snapshot()
	<-refresher.started

	// Scraper rewrites the backing store, then reports success.
	fresh := snapshotAged(now)
	fresh.Venues["warfield.com"] = &VenueRecord{Name: "The Warfield", Domain: "warfield.com"}
	store.mu.Lock()
	store.snap = fresh
	store.mu.Unlock()
	refresher.release <- nil

	require.Eventually(t, func() bool { return !m.RefreshInProgress() },
		2*time.Second, 5*time.Millisecond)

	snap := m.Snapshot()
	assert.Len(t, snap.Venues, 2, "next read after refresh must see the new snapshot")
}

func TestSnapshotManager_FailedRefreshKeepsServingAndRespectsCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	store := &memStore{name: "file", snap: snapshotAged(now.Add(-30 * time.Hour))}
	refresher := newBlockingRefresher()

	m := NewSnapshotManager([]SnapshotStore{store}, refresher, clock, 24*time.Hour, 30*time.Minute)

	m.Snapshot()
	<-refresher.started
	refresher.release <- assert.AnError

	require.Eventually(t, func() bool { return !m.RefreshInProgress() },
		2*time.Second, 5*time.Millisecond)

	// Inside the cooldown: no new spawn even though still stale.
	clock.Advance(10 * time.Minute)
	m.Snapshot()
	assert.Equal(t, 1, refresher.callCount())

	// Past the cooldown: one retry.
	clock.Advance(25 * time.Minute)
	m.Snapshot()
	<-refresher.started
	assert.Equal(t, 2, refresher.callCount())

	refresher.release <- nil
}

func TestSnapshotManager_PrefersNewerStoreAndRepairsStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}

	newer := snapshotAged(now.Add(-time.Hour))
	newer.Venues["warfield.com"] = &VenueRecord{Name: "The Warfield"}
	fileStore := &memStore{name: "file", snap: newer}
	dbStore := &memStore{name: "sqlite", snap: snapshotAged(now.Add(-72 * time.Hour))}

	m := NewSnapshotManager([]SnapshotStore{fileStore, dbStore}, nil, clock, 24*time.Hour, 30*time.Minute)

	snap := m.Snapshot()
	assert.Len(t, snap.Venues, 2, "newer file copy should win")

	// Stale sqlite copy gets repaired in the background.
	require.Eventually(t, func() bool { return dbStore.saveCount() == 1 },
		2*time.Second, 5*time.Millisecond)
	loaded, err := dbStore.Load()
	require.NoError(t, err)
	assert.Equal(t, newer.LastUpdated, loaded.LastUpdated)
}

func TestSnapshotManager_FreshSnapshotNoSpawn(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	store := &memStore{name: "file", snap: snapshotAged(now.Add(-time.Hour))}
	refresher := newBlockingRefresher()

	m := NewSnapshotManager([]SnapshotStore{store}, refresher, clock, 24*time.Hour, 30*time.Minute)

	m.Snapshot()
	m.Snapshot()
	assert.Equal(t, 0, refresher.callCount())
}
