package provider

import (
	"context"
	"strconv"
	"time"

	"github.com/pfrederiksen/local-events/internal/events"
)

// Params are the search inputs common to every adapter. Extra carries
// provider-specific options; adapters ignore keys they do not understand.
type Params struct {
	Category string
	Location string
	Limit    int
	Extra    map[string]string
}

// CacheParams flattens the params into a map suitable for cache.Key.
func (p Params) CacheParams() map[string]string {
	m := map[string]string{
		"category": p.Category,
		"location": p.Location,
		"limit":    strconv.Itoa(p.Limit),
	}
	for k, v := range p.Extra {
		m["x_"+k] = v
	}
	return m
}

// Health statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// HealthStatus is the result of one end-to-end health probe.
type HealthStatus struct {
	Status  string `json:"status"`
	Latency int64  `json:"latency"` // milliseconds
	Message string `json:"message,omitempty"`
}

// Adapter translates one upstream source into the canonical event contract.
//
// SearchEvents never returns a Go error and never panics across the
// boundary; every failure mode (timeout, non-2xx, malformed payload, missing
// credentials) is reported inside the ProviderResult. It returns within the
// adapter's own timeout bound regardless of upstream behavior, and never
// returns more than p.Limit events.
type Adapter interface {
	Name() string
	Source() events.Source
	SearchEvents(ctx context.Context, p Params) events.ProviderResult
	Health(ctx context.Context) HealthStatus
}

// Probe implements the shared health-check semantics: a minimal real query
// end-to-end rather than a synthetic ping.
func Probe(ctx context.Context, a Adapter) HealthStatus {
	started := time.Now()
	res := a.SearchEvents(ctx, Params{
		Category: "music",
		Location: "San Francisco, CA",
		Limit:    1,
	})
	latency := time.Since(started).Milliseconds()

	if !res.Success {
		return HealthStatus{Status: StatusDown, Latency: latency, Message: res.Error}
	}
	if res.Count == 0 {
		return HealthStatus{Status: StatusDegraded, Latency: latency, Message: "query succeeded but returned no events"}
	}
	return HealthStatus{Status: StatusOK, Latency: latency}
}

// Clamp enforces the advisory limit: at most limit events are returned.
// limit <= 0 means unbounded.
func Clamp(evts []*events.Event, limit int) []*events.Event {
	if limit <= 0 || len(evts) <= limit {
		return evts
	}
	return evts[:limit]
}
