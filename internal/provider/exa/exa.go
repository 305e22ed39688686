// Package exa implements the search-derived adapter backed by the Exa
// neural search API.
//
// Exa returns web documents, not events, so everything structured (date,
// venue) is recovered from titles, summaries and page text by the extract
// heuristics. The adapter walks a ladder of search strategies: the cheap
// "fast" type first, falling back to "neural" when it yields too few
// results.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/extract"
	"github.com/pfrederiksen/local-events/internal/provider"
	"github.com/pfrederiksen/local-events/internal/taxonomy"
)

const (
	defaultBaseURL = "https://api.exa.ai/search"

	// ladderThreshold is the minimum result count below which the next
	// search strategy is tried.
	ladderThreshold = 5

	costPerQuery = 0.005

	confidence = 0.5
)

// searchTypes is the fallback ladder, preferred strategy first.
var searchTypes = []string{"fast", "neural"}

// Client is the Exa adapter.
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

// New creates an Exa adapter. store may be nil to disable response caching.
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

func (c *Client) Name() string { return "exa" }

func (c *Client) Source() events.Source { return events.SourceExa }

// Health runs a minimal real query end-to-end.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	return provider.Probe(ctx, c)
}

// SearchEvents implements the adapter contract.
func (c *Client) SearchEvents(ctx context.Context, p provider.Params) events.ProviderResult {
	started := c.clock.Now()

	if c.apiKey == "" {
		return events.Fail(c.Source(), errors.New("missing Exa credentials"), started)
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

	query := fmt.Sprintf("%s events in %s for the next 30 days",
		taxonomy.Normalize(p.Category), p.Location)

	var (
		best      []*events.Event
		succeeded bool
		queries   int
		lastErr   error
	)
	for _, searchType := range searchTypes {
		queries++
		evts, err := c.search(ctx, query, searchType, p.Category, limit)
		if err != nil {
			lastErr = err
			continue
		}
		// An empty result set is still a successful sub-query; only a run
		// where every strategy erred counts as failure.
		succeeded = true
		if len(evts) > len(best) {
			best = evts
		}
		if len(best) >= ladderThreshold || len(best) >= limit {
			break
		}
	}

	if !succeeded {
		return events.Fail(c.Source(), lastErr, started)
	}

	out := provider.Clamp(events.Sanitize(best), limit)
	result := events.OK(c.Source(), out, started)
	result.Cost = float64(queries) * costPerQuery
	if c.store != nil {
		c.store.Set(key, result)
	}
	return result
}

type searchRequest struct {
	Query      string          `json:"query"`
	Type       string          `json:"type"`
	NumResults int             `json:"numResults"`
	Contents   requestContents `json:"contents"`
}

type requestContents struct {
	Text    textOptions    `json:"text"`
	Summary summaryOptions `json:"summary"`
}

type textOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

type summaryOptions struct {
	Query         string `json:"query"`
	MaxCharacters int    `json:"maxCharacters"`
}

type searchResponse struct {
	Results []documentResult `json:"results"`
}

type documentResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate"`
	Text          string `json:"text"`
	Summary       string `json:"summary"`
}

// search issues one upstream query with the given strategy.
func (c *Client) search(ctx context.Context, query, searchType, category string, limit int) ([]*events.Event, error) {
	payload := searchRequest{
		Query:      query,
		Type:       searchType,
		NumResults: limit,
		Contents: requestContents{
			Text: textOptions{MaxCharacters: 2000},
			Summary: summaryOptions{
				Query:         "For each event found, list its name, venue, full date, and a ticket link if available.",
				MaxCharacters: 500,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	out := make([]*events.Event, 0, len(decoded.Results))
	for _, doc := range decoded.Results {
		if evt := c.convert(doc, category); evt != nil {
			out = append(out, evt)
		}
	}
	return out, nil
}

// convert maps one web document to a canonical event, recovering structured
// fields from its text. Untitled documents are dropped.
func (c *Client) convert(doc documentResult, category string) *events.Event {
	if doc.Title == "" {
		return nil
	}

	evt := events.New(c.Source(), doc.Title, doc.URL, confidence)
	evt.Category = taxonomy.Normalize(category)
	evt.Description = doc.Summary

	// Summary first: it is written against the event-listing prompt and is
	// far denser in dates/venues than raw page text.
	searchable := doc.Title + " " + doc.Summary + " " + doc.Text
	if when, ok := extract.Date(searchable, c.clock.Now()); ok {
		evt.StartDate = &when
	}
	evt.VenueName = extract.VenueOrSentinel(searchable, events.VenueSentinel)

	if doc.Summary != "" {
		evt.Metadata = map[string]string{"summary": doc.Summary}
	}
	return evt
}
