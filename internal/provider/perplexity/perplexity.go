// Package perplexity implements the search-derived adapter backed by the
// Perplexity Search API.
//
// The API returns ranked web documents with snippets, not events. One
// request carries several reformulated queries (the endpoint accepts up to
// five per call at a single-request price), results are filtered down to
// documents that look like event listings, and dates and venues are
// recovered from titles and snippets by the extract heuristics.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/extract"
	"github.com/pfrederiksen/local-events/internal/provider"
	"github.com/pfrederiksen/local-events/internal/taxonomy"
)

const (
	defaultBaseURL = "https://api.perplexity.ai/search"

	// maxQueries is the API's per-request multi-query ceiling.
	maxQueries = 5

	// costPerRequest is the flat Search API price; multi-query calls still
	// bill as one request.
	costPerRequest = 0.005

	confidence = 0.55
)

// eventKeywords marks documents worth converting; the search surfaces plenty
// of venue homepages and listicles that never name a concrete event.
var eventKeywords = []string{"concert", "show", "event", "festival", "tour", "live", "tickets"}

// Client is the Perplexity adapter.
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

// New creates a Perplexity adapter. store may be nil to disable response
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

// OnCache registers a hook invoked after every response-cache lookup, for
// hit/miss instrumentation.
func (c *Client) OnCache(hook func(hit bool)) { c.cacheHook = hook }

func (c *Client) Name() string { return "perplexity" }

func (c *Client) Source() events.Source { return events.SourcePerplexity }

// Health runs a minimal real query end-to-end.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	return provider.Probe(ctx, c)
}

// SearchEvents implements the adapter contract.
func (c *Client) SearchEvents(ctx context.Context, p provider.Params) events.ProviderResult {
	started := c.clock.Now()

	if c.apiKey == "" {
		return events.Fail(c.Source(), errors.New("missing Perplexity credentials"), started)
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

	docs, err := c.search(ctx, c.queries(p), limit)
	if err != nil {
		return events.Fail(c.Source(), err, started)
	}

	out := make([]*events.Event, 0, len(docs))
	for _, doc := range docs {
		if evt := c.convert(doc, p.Category); evt != nil {
			out = append(out, evt)
		}
	}
	out = provider.Clamp(events.Sanitize(out), limit)

	result := events.OK(c.Source(), out, started)
	result.Cost = costPerRequest
	if c.store != nil {
		c.store.Set(key, result)
	}
	return result
}

// queries builds the multi-query payload: the base reformulation plus intent
// variants, all carrying an explicit date range so the search ranks upcoming
// listings over archives.
func (c *Client) queries(p provider.Params) []string {
	now := c.clock.Now()
	dateRange := fmt.Sprintf("%s to %s",
		now.Format("January 2, 2006"), now.AddDate(0, 1, 0).Format("January 2, 2006"))

	category := taxonomy.Normalize(p.Category)
	qs := []string{
		fmt.Sprintf("%s events %s %s venues dates tickets", category, p.Location, dateRange),
		fmt.Sprintf("%s shows %s %s Eventbrite Ticketmaster", category, p.Location, dateRange),
	}
	for _, phrase := range taxonomy.SearchEnhancements(category) {
		if len(qs) >= maxQueries {
			break
		}
		qs = append(qs, fmt.Sprintf("%s %s %s", phrase, p.Location, dateRange))
	}
	return qs
}

type searchRequest struct {
	Query            []string `json:"query"`
	MaxResults       int      `json:"max_results"`
	MaxTokensPerPage int      `json:"max_tokens_per_page"`
	Country          string   `json:"country"`
}

type searchResponse struct {
	Results []documentResult `json:"results"`
}

type documentResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

// search issues one multi-query request.
func (c *Client) search(ctx context.Context, queries []string, limit int) ([]documentResult, error) {
	payload := searchRequest{
		Query:            queries,
		MaxResults:       limit,
		MaxTokensPerPage: 1536,
		Country:          "US",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
	return decoded.Results, nil
}

// convert maps one document to a canonical event. Documents without a title
// or without any event indicator are dropped.
func (c *Client) convert(doc documentResult, category string) *events.Event {
	if strings.TrimSpace(doc.Title) == "" || !looksLikeEvent(doc) {
		return nil
	}

	evt := events.New(c.Source(), doc.Title, doc.URL, confidence)
	evt.Category = taxonomy.Normalize(category)
	evt.Description = doc.Snippet

	searchable := doc.Title + " " + doc.Date + " " + doc.Snippet
	if when, ok := extract.Date(searchable, c.clock.Now()); ok {
		evt.StartDate = &when
	}
	evt.VenueName = extract.VenueOrSentinel(searchable, events.VenueSentinel)
	return evt
}

func looksLikeEvent(doc documentResult) bool {
	text := strings.ToLower(doc.Title + " " + doc.Snippet)
	for _, kw := range eventKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
