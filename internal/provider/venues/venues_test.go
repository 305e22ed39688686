package venues

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/provider"
)

type memStore struct {
	snap *cache.VenueSnapshot
}

func (s *memStore) Load() (*cache.VenueSnapshot, error) {
	if s.snap == nil {
		return cache.EmptySnapshot(), nil
	}
	return s.snap, nil
}

func (s *memStore) Save(snap *cache.VenueSnapshot) error {
	s.snap = snap
	return nil
}

func (s *memStore) Name() string { return "mem" }

func testSnapshot(updated time.Time) *cache.VenueSnapshot {
	show := time.Date(2026, 9, 5, 20, 0, 0, 0, time.UTC)
	return &cache.VenueSnapshot{
		LastUpdated: updated,
		Venues: map[string]*cache.VenueRecord{
			"fillmore": {
				Name:            "The Fillmore",
				URL:             "https://thefillmore.com",
				Domain:          "thefillmore.com",
				City:            "San Francisco",
				State:           "CA",
				DefaultCategory: "music",
				Events: []*events.Event{
					{Title: "Soul Revue", StartDate: &show},
					{Title: "Improv Night", Category: "comedy", StartDate: &show},
				},
			},
			"ashby-stage": {
				Name:            "Ashby Stage",
				URL:             "https://shotgunplayers.org",
				Domain:          "shotgunplayers.org",
				City:            "Berkeley",
				State:           "CA",
				DefaultCategory: "theatre",
				Events: []*events.Event{
					{Title: "Autumn Play", StartDate: &show},
				},
			},
		},
	}
}

func newTestClient(t *testing.T, snap *cache.VenueSnapshot) *Client {
	t.Helper()
	mgr := cache.NewSnapshotManager(
		[]cache.SnapshotStore{&memStore{snap: snap}},
		nil, nil, 24*time.Hour, 30*time.Minute)
	return New(mgr)
}

func TestSearchEvents_FiltersByCategoryAndLocation(t *testing.T) {
	c := newTestClient(t, testSnapshot(time.Now()))

	res := c.SearchEvents(context.Background(), provider.Params{Category: "music", Location: "San Francisco, CA", Limit: 10})
	require.True(t, res.Success)
	require.Equal(t, 1, res.Count)

	evt := res.Events[0]
	assert.Equal(t, "Soul Revue", evt.Title)
	assert.Equal(t, events.SourceVenues, evt.Source)
	assert.Equal(t, "The Fillmore", evt.VenueName, "venue name filled from the owning record")
	assert.Equal(t, "https://thefillmore.com", evt.EventURL)
	assert.Equal(t, "music", evt.Category, "default category inherited from the venue")
	assert.InDelta(t, 0.9, evt.Confidence, 0.001)
	assert.NotEmpty(t, evt.ID)
}

func TestSearchEvents_EventCategoryOverridesVenueDefault(t *testing.T) {
	c := newTestClient(t, testSnapshot(time.Now()))

	res := c.SearchEvents(context.Background(), provider.Params{Category: "comedy", Location: "San Francisco", Limit: 10})
	require.True(t, res.Success)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "Improv Night", res.Events[0].Title)
}

func TestSearchEvents_GeneralCategoryMatchesEverything(t *testing.T) {
	c := newTestClient(t, testSnapshot(time.Now()))

	// State-level location match picks up both venues.
	res := c.SearchEvents(context.Background(), provider.Params{Category: "general", Location: "somewhere in CA", Limit: 10})
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Count)
}

func TestSearchEvents_EmptyLocationMatchesAllVenues(t *testing.T) {
	c := newTestClient(t, testSnapshot(time.Now()))

	res := c.SearchEvents(context.Background(), provider.Params{Category: "general", Location: "", Limit: 10})
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Count, "no location constraint means every venue serves")
}

func TestSearchEvents_LocationMismatchExcludesVenue(t *testing.T) {
	c := newTestClient(t, testSnapshot(time.Now()))

	res := c.SearchEvents(context.Background(), provider.Params{Category: "theatre", Location: "San Francisco", Limit: 10})
	require.True(t, res.Success)
	assert.Equal(t, 0, res.Count, "Berkeley venue must not match a San Francisco query")
}

func TestSearchEvents_StaleSnapshotStillServes(t *testing.T) {
	c := newTestClient(t, testSnapshot(time.Now().Add(-48*time.Hour)))

	res := c.SearchEvents(context.Background(), provider.Params{Category: "music", Location: "San Francisco", Limit: 10})
	require.True(t, res.Success, "staleness must never fail the read path")
	assert.Equal(t, 1, res.Count)
}

func TestSearchEvents_DoesNotMutateSnapshot(t *testing.T) {
	snap := testSnapshot(time.Now())
	c := newTestClient(t, snap)

	res := c.SearchEvents(context.Background(), provider.Params{Category: "music", Location: "San Francisco", Limit: 10})
	require.True(t, res.Success)

	original := snap.Venues["fillmore"].Events[0]
	assert.Equal(t, events.Source(""), original.Source, "snapshot records must stay untouched")
	assert.Empty(t, original.VenueName)
}

func TestHealth_EmptySnapshotIsDown(t *testing.T) {
	c := newTestClient(t, nil)

	status := c.Health(context.Background())
	assert.Equal(t, provider.StatusDown, status.Status)
}

func TestHealth_PopulatedSnapshotIsOK(t *testing.T) {
	c := newTestClient(t, testSnapshot(time.Now()))

	status := c.Health(context.Background())
	assert.Equal(t, provider.StatusOK, status.Status)
}
