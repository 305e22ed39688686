// Package serpapi implements the search-derived adapter backed by SerpAPI's
// google_events engine.
//
// A single free-text query against an events search engine has low recall,
// so the adapter fans out several reformulated queries (genre phrases,
// "tickets"/"schedule"/"festival" suffixes, rotating month names) and
// accumulates unique events, stopping early once the requested limit is
// reached. Sub-query failures are tolerated as long as one succeeds.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/extract"
	"github.com/pfrederiksen/local-events/internal/logger"
	"github.com/pfrederiksen/local-events/internal/provider"
	"github.com/pfrederiksen/local-events/internal/taxonomy"
)

const (
	defaultBaseURL = "https://serpapi.com/search"
	userAgent      = "local-events/1.0 (github.com/pfrederiksen/local-events)"

	// batchSize caps simultaneous upstream requests to respect rate limits.
	batchSize = 5

	// costPerQuery approximates SerpAPI's per-search price in USD.
	costPerQuery = 0.01

	confidence = 0.6
)

// Client is the SerpAPI adapter.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxResults int
	store      cache.Store
	clock      cache.Clock
	cacheHook  func(hit bool)
}

// OnCache registers a hook invoked after every response-cache lookup, for
// hit/miss instrumentation.
func (c *Client) OnCache(hook func(hit bool)) { c.cacheHook = hook }

// New creates a SerpAPI adapter. store may be nil to disable response
// caching.
func New(cfg config.ProviderConfig, store cache.Store) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		timeout:    cfg.Timeout,
		maxResults: cfg.MaxResults,
		store:      store,
		clock:      cache.SystemClock{},
	}
}

func (c *Client) Name() string { return "serpapi" }

func (c *Client) Source() events.Source { return events.SourceSerpAPI }

// Health runs a minimal real query end-to-end.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	return provider.Probe(ctx, c)
}

// SearchEvents implements the adapter contract.
func (c *Client) SearchEvents(ctx context.Context, p provider.Params) events.ProviderResult {
	started := c.clock.Now()

	if c.apiKey == "" {
		return events.Fail(c.Source(), errors.New("missing SerpAPI credentials"), started)
	}

	limit := p.Limit
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	key := cache.Key(c.Name(), p.CacheParams())
	if c.store != nil {
		if cached, ok := c.store.Get(key); ok {
			if c.cacheHook != nil {
				c.cacheHook(true)
			}
			cached.ProcessingTime = 0
			return cached
		}
		if c.cacheHook != nil {
			c.cacheHook(false)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	variants := c.queryVariants(p)
	unique := make(map[string]*events.Event)
	var queries, failures int
	var firstErr error

	for start := 0; start < len(variants) && len(unique) < limit; start += batchSize {
		end := start + batchSize
		if end > len(variants) {
			end = len(variants)
		}
		batch := variants[start:end]

		type outcome struct {
			evts []*events.Event
			err  error
		}
		outcomes := make([]outcome, len(batch))

		var wg sync.WaitGroup
		for i, q := range batch {
			wg.Add(1)
			go func(i int, q string) {
				defer wg.Done()
				evts, err := c.fetch(ctx, q, p.Category)
				outcomes[i] = outcome{evts: evts, err: err}
			}(i, q)
		}
		wg.Wait()

		for _, o := range outcomes {
			queries++
			if o.err != nil {
				failures++
				if firstErr == nil {
					firstErr = o.err
				}
				continue
			}
			for _, e := range o.evts {
				if _, dup := unique[e.ID]; !dup {
					unique[e.ID] = e
				}
			}
		}
	}

	// Partial success is fine; total failure is not.
	if queries > 0 && failures == queries {
		return events.Fail(c.Source(), firstErr, started)
	}

	out := make([]*events.Event, 0, len(unique))
	for _, e := range unique {
		out = append(out, e)
	}
	out = provider.Clamp(events.Sanitize(out), limit)

	result := events.OK(c.Source(), out, started)
	result.Cost = float64(queries) * costPerQuery
	if c.store != nil {
		c.store.Set(key, result)
	}
	return result
}

// queryVariants builds the reformulated query ladder for one search:
// genre-enhanced base queries, intent suffixes, and month-name rotations.
func (c *Client) queryVariants(p provider.Params) []string {
	var variants []string
	add := func(q string) {
		for _, existing := range variants {
			if existing == q {
				return
			}
		}
		variants = append(variants, q)
	}

	for _, phrase := range taxonomy.SearchEnhancements(p.Category) {
		add(fmt.Sprintf("%s in %s", phrase, p.Location))
	}

	base := fmt.Sprintf("%s events in %s", taxonomy.Normalize(p.Category), p.Location)
	add(base)
	for _, suffix := range []string{"tickets", "schedule", "festival"} {
		add(base + " " + suffix)
	}

	now := c.clock.Now()
	for i := 0; i < 2; i++ {
		month := now.AddDate(0, i, 0).Format("January 2006")
		add(base + " " + month)
	}

	return variants
}

type searchResponse struct {
	Error         string        `json:"error,omitempty"`
	EventsResults []eventResult `json:"events_results"`
}

type eventResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	Address     []string `json:"address"`
	Date        struct {
		StartDate string `json:"start_date"`
		When      string `json:"when"`
	} `json:"date"`
	Venue struct {
		Name string `json:"name"`
	} `json:"venue"`
	TicketInfo []struct {
		Link string `json:"link"`
	} `json:"ticket_info"`
}

// fetch issues one upstream query and converts its results.
func (c *Client) fetch(ctx context.Context, query, category string) ([]*events.Event, error) {
	params := url.Values{}
	params.Set("engine", "google_events")
	params.Set("q", query)
	params.Set("hl", "en")
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("upstream error: %s", decoded.Error)
	}

	out := make([]*events.Event, 0, len(decoded.EventsResults))
	for _, raw := range decoded.EventsResults {
		evt := c.convert(raw, category)
		if evt == nil {
			// Malformed entry; dropped, never fatal to the response.
			logger.Debug("dropping malformed serpapi event", logger.Fields{
				"query": query,
			})
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}

// convert maps one upstream result to a canonical event. Returns nil when
// the entry is unusable (no title).
func (c *Client) convert(raw eventResult, category string) *events.Event {
	if strings.TrimSpace(raw.Title) == "" {
		return nil
	}

	evt := events.New(c.Source(), raw.Title, raw.Link, confidence)
	evt.Description = raw.Description
	evt.Category = taxonomy.Normalize(category)

	dateText := raw.Date.StartDate
	if raw.Date.When != "" {
		dateText = dateText + " " + raw.Date.When
	}
	if when, ok := extract.Date(dateText+" "+raw.Title, c.clock.Now()); ok {
		evt.StartDate = &when
	}

	if raw.Venue.Name != "" {
		evt.VenueName = raw.Venue.Name
	} else if len(raw.Address) > 0 {
		evt.VenueName = extract.VenueOrSentinel(strings.Join(raw.Address, ", "), events.VenueSentinel)
	} else {
		evt.VenueName = extract.VenueOrSentinel(raw.Title+" "+raw.Description, events.VenueSentinel)
	}
	if len(raw.Address) > 0 {
		evt.Address = strings.Join(raw.Address, ", ")
	}
	if len(raw.TicketInfo) > 0 {
		evt.TicketURL = raw.TicketInfo[0].Link
	}
	return evt
}
