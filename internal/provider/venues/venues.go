// Package venues implements the adapter over the scraped venue snapshot.
// The read path never touches the network: events come from the snapshot as
// it stands, and staleness only ever triggers a background refresh inside
// the snapshot manager. Venue-sourced events carry the highest confidence of
// any adapter because a venue's own calendar is authoritative for itself.
package venues

import (
	"context"
	"errors"
	"strings"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/provider"
	"github.com/pfrederiksen/local-events/internal/taxonomy"
)

const confidence = 0.9

// Client is the scraped-venue adapter.
type Client struct {
	manager *cache.SnapshotManager
	clock   cache.Clock
}

// New creates a venues adapter over a snapshot manager.
func New(manager *cache.SnapshotManager) *Client {
	return &Client{manager: manager, clock: cache.SystemClock{}}
}

func (c *Client) Name() string { return "venues" }

func (c *Client) Source() events.Source { return events.SourceVenues }

// Health reflects snapshot availability, not upstream reachability.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	started := c.clock.Now()
	snap := c.manager.Snapshot()
	latency := c.clock.Now().Sub(started).Milliseconds()

	switch {
	case len(snap.Venues) == 0:
		return provider.HealthStatus{Status: provider.StatusDown, Latency: latency, Message: "snapshot empty"}
	case c.manager.RefreshInProgress():
		return provider.HealthStatus{Status: provider.StatusDegraded, Latency: latency, Message: "refresh in progress"}
	default:
		return provider.HealthStatus{Status: provider.StatusOK, Latency: latency}
	}
}

// SearchEvents filters snapshot events by category and location. A stale
// snapshot is still served; the manager revalidates behind the read.
func (c *Client) SearchEvents(ctx context.Context, p provider.Params) events.ProviderResult {
	started := c.clock.Now()

	if c.manager == nil {
		return events.Fail(c.Source(), errors.New("venue snapshot not configured"), started)
	}

	snap := c.manager.Snapshot()
	category := taxonomy.Normalize(p.Category)

	var out []*events.Event
	for _, venue := range snap.Venues {
		if !venueMatchesLocation(venue, p.Location) {
			continue
		}
		for _, evt := range venue.Events {
			if evt == nil {
				continue
			}
			matched := cloneFromVenue(evt, venue)
			if matched.Category == "" {
				matched.Category = venue.DefaultCategory
			}
			matched.Category = taxonomy.Normalize(matched.Category)
			if category != taxonomy.CategoryGeneral && matched.Category != category {
				continue
			}
			out = append(out, matched)
		}
	}

	out = provider.Clamp(events.Sanitize(out), p.Limit)
	return events.OK(c.Source(), out, started)
}

// cloneFromVenue copies a snapshot event, filling venue-derived fields the
// scraper leaves blank. The snapshot itself is shared and never mutated.
func cloneFromVenue(evt *events.Event, venue *cache.VenueRecord) *events.Event {
	clone := *evt
	clone.Source = events.SourceVenues
	if clone.Confidence == 0 {
		clone.Confidence = confidence
	}
	if clone.VenueName == "" {
		clone.VenueName = venue.Name
	}
	if clone.EventURL == "" {
		clone.EventURL = venue.URL
	}
	if clone.ID == "" {
		clone.ID = events.GenerateID(events.SourceVenues, clone.Title, clone.EventURL)
	}
	if clone.Address == "" && venue.City != "" {
		clone.Address = joinNonEmpty(venue.City, venue.State)
	}
	return &clone
}

// venueMatchesLocation matches on city or state, tolerating qualifiers like
// "San Francisco, CA". Venues without location info match everything, and an
// empty query location matches every venue.
func venueMatchesLocation(venue *cache.VenueRecord, location string) bool {
	if venue.City == "" && venue.State == "" {
		return true
	}
	if strings.TrimSpace(location) == "" {
		return true
	}
	lower := strings.ToLower(location)
	if venue.City != "" && strings.Contains(lower, strings.ToLower(venue.City)) {
		return true
	}
	return venue.State != "" && strings.Contains(lower, strings.ToLower(venue.State))
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
