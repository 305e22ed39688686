// Package pipeline orchestrates one event search end-to-end: concurrent
// provider fan-out, aggregator hub expansion for the search-derived results,
// cross-provider merge, and the days-ahead window filter.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/expand"
	"github.com/pfrederiksen/local-events/internal/logger"
	"github.com/pfrederiksen/local-events/internal/merge"
	"github.com/pfrederiksen/local-events/internal/metrics"
	"github.com/pfrederiksen/local-events/internal/provider"
	"github.com/pfrederiksen/local-events/internal/taxonomy"
)

// Request is one aggregated event search.
type Request struct {
	Category  string
	Location  string
	Limit     int
	DaysAhead int // 0 disables the window filter
}

// Response is the merged, deduplicated answer to one Request.
type Response struct {
	RequestID       string                              `json:"request_id"`
	Category        string                              `json:"category"`
	Location        string                              `json:"location"`
	Events          []*events.Event                     `json:"events"`
	Count           int                                 `json:"count"`
	Stats           map[events.Source]merge.SourceStats `json:"stats"`
	TotalDuplicates int                                 `json:"total_duplicates"`
	ProcessingTime  int64                               `json:"processing_time_ms"`
	GeneratedAt     time.Time                           `json:"generated_at"`
}

// Pipeline fans a request out to every registered adapter and folds the
// results back together. Adapters never fail the pipeline; a provider that
// errors contributes empty results and its error lands in the stats.
type Pipeline struct {
	adapters []provider.Adapter
	expander *expand.Expander // nil disables hub expansion
	metrics  *metrics.Metrics // nil disables instrumentation
	clock    cache.Clock

	defaultLimit int
}

// New wires a pipeline. expander and m may be nil.
func New(adapters []provider.Adapter, expander *expand.Expander, m *metrics.Metrics, defaultLimit int) *Pipeline {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Pipeline{
		adapters:     adapters,
		expander:     expander,
		metrics:      m,
		clock:        cache.SystemClock{},
		defaultLimit: defaultLimit,
	}
}

// searchDerived reports whether a source returns web documents rather than
// structured events; only those are candidates for hub expansion.
func searchDerived(s events.Source) bool {
	return s == events.SourceSerpAPI || s == events.SourceExa || s == events.SourcePerplexity
}

// Search runs one aggregated search. It always returns a response; in the
// worst case every provider failed and the event list is empty.
func (p *Pipeline) Search(ctx context.Context, req Request) *Response {
	started := p.clock.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = p.defaultLimit
	}
	params := provider.Params{
		Category: taxonomy.Normalize(req.Category),
		Location: req.Location,
		Limit:    limit,
	}

	requestID := uuid.NewString()
	logger.Info("search started", logger.Fields{
		"request_id": requestID,
		"category":   params.Category,
		"location":   params.Location,
		"providers":  len(p.adapters),
	})

	results := p.fanOut(ctx, params)
	results = p.expandHubs(ctx, results)
	p.windowFilter(results, req.DaysAhead)

	merged := merge.Merge(results, limit)
	p.record(results, merged)

	resp := &Response{
		RequestID:       requestID,
		Category:        params.Category,
		Location:        params.Location,
		Events:          merged.Events,
		Count:           len(merged.Events),
		Stats:           merged.Stats,
		TotalDuplicates: merged.TotalDuplicates,
		ProcessingTime:  p.clock.Now().Sub(started).Milliseconds(),
		GeneratedAt:     p.clock.Now().UTC(),
	}

	logger.Info("search finished", logger.Fields{
		"request_id": requestID,
		"count":      resp.Count,
		"duplicates": resp.TotalDuplicates,
		"elapsed_ms": resp.ProcessingTime,
	})
	return resp
}

// fanOut queries every adapter concurrently. Each adapter bounds its own
// latency, so no extra timeout is layered here.
func (p *Pipeline) fanOut(ctx context.Context, params provider.Params) []events.ProviderResult {
	results := make([]events.ProviderResult, len(p.adapters))

	var wg sync.WaitGroup
	for i, a := range p.adapters {
		wg.Add(1)
		go func(i int, a provider.Adapter) {
			defer wg.Done()
			results[i] = a.SearchEvents(ctx, params)
		}(i, a)
	}
	wg.Wait()

	return results
}

// expandHubs runs aggregator expansion over the search-derived results.
func (p *Pipeline) expandHubs(ctx context.Context, results []events.ProviderResult) []events.ProviderResult {
	if p.expander == nil {
		return results
	}

	for i, res := range results {
		if !res.Success || !searchDerived(res.Source) {
			continue
		}
		expanded, stats := p.expander.Expand(ctx, res.Events)
		if stats.Attempted == 0 {
			continue
		}

		results[i].Events = expanded
		results[i].Count = len(expanded)

		if p.metrics != nil {
			p.metrics.ExpansionAttempts.WithLabelValues("attempted").Add(float64(stats.Attempted))
			p.metrics.ExpansionAttempts.WithLabelValues("expanded").Add(float64(stats.Expanded))
		}
		logger.Debug("aggregator expansion", logger.Fields{
			"provider":  string(res.Source),
			"attempted": stats.Attempted,
			"expanded":  stats.Expanded,
			"children":  stats.Children,
		})
	}
	return results
}

// windowFilter drops events starting outside the next daysAhead days.
// Undated events are kept; the window only excludes what is provably out.
func (p *Pipeline) windowFilter(results []events.ProviderResult, daysAhead int) {
	if daysAhead <= 0 {
		return
	}
	now := p.clock.Now()
	for i, res := range results {
		// Fresh slice: the adapter may have handed out the same backing
		// array to its response cache, which must stay intact.
		kept := make([]*events.Event, 0, len(res.Events))
		for _, evt := range res.Events {
			if evt.StartDate == nil || evt.IsWithinDays(now, daysAhead) {
				kept = append(kept, evt)
			}
		}
		results[i].Events = kept
		results[i].Count = len(kept)
	}
}

// record pushes per-provider outcomes into the metrics collectors.
func (p *Pipeline) record(results []events.ProviderResult, merged merge.Result) {
	if p.metrics == nil {
		return
	}
	for _, res := range results {
		name := string(res.Source)
		if res.Success {
			p.metrics.EventsFetched.WithLabelValues(name).Add(float64(res.Count))
		} else {
			p.metrics.ProviderErrors.WithLabelValues(name).Inc()
		}
		p.metrics.ProviderLatency.WithLabelValues(name).Observe(float64(res.ProcessingTime) / 1000)
	}
	for source, stats := range merged.Stats {
		if stats.DuplicatesRemoved > 0 {
			p.metrics.DuplicatesRemoved.WithLabelValues(string(source)).Add(float64(stats.DuplicatesRemoved))
		}
	}
}

// Health probes every adapter concurrently and reports per-adapter status.
func (p *Pipeline) Health(ctx context.Context) map[string]provider.HealthStatus {
	statuses := make([]provider.HealthStatus, len(p.adapters))

	var wg sync.WaitGroup
	for i, a := range p.adapters {
		wg.Add(1)
		go func(i int, a provider.Adapter) {
			defer wg.Done()
			statuses[i] = a.Health(ctx)
		}(i, a)
	}
	wg.Wait()

	out := make(map[string]provider.HealthStatus, len(p.adapters))
	for i, a := range p.adapters {
		out[a.Name()] = statuses[i]
	}
	return out
}
