// Package predicthq implements the structured adapter for the PredictHQ
// events API. Unlike the search-derived adapters it maps category and
// location directly onto upstream query parameters and trusts the upstream's
// own event semantics; no text extraction is involved.
package predicthq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/logger"
	"github.com/pfrederiksen/local-events/internal/provider"
	"github.com/pfrederiksen/local-events/internal/taxonomy"
)

const (
	defaultBaseURL = "https://api.predicthq.com/v1"

	maxRetries = 3

	confidence = 0.8
)

// metroCoords maps known metro areas onto "radius@lat,long" location
// queries; anything else falls back to a free-text q parameter.
var metroCoords = map[string]string{
	"san francisco": "10km@37.7749,-122.4194",
	"oakland":       "10km@37.8044,-122.2712",
	"berkeley":      "8km@37.8715,-122.2730",
	"san jose":      "12km@37.3382,-121.8863",
	"new york":      "15km@40.7128,-74.0060",
	"los angeles":   "20km@34.0522,-118.2437",
	"chicago":       "15km@41.8781,-87.6298",
	"austin":        "12km@30.2672,-97.7431",
	"seattle":       "12km@47.6062,-122.3321",
}

// Client is the PredictHQ adapter.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxResults int
	clock      cache.Clock
}

// New creates a PredictHQ adapter.
func New(cfg config.ProviderConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		timeout:    cfg.Timeout,
		maxResults: cfg.MaxResults,
		clock:      cache.SystemClock{},
	}
}

func (c *Client) Name() string { return "predicthq" }

func (c *Client) Source() events.Source { return events.SourcePredictHQ }

// Health runs a minimal real query end-to-end.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	return provider.Probe(ctx, c)
}

// SearchEvents implements the adapter contract.
func (c *Client) SearchEvents(ctx context.Context, p provider.Params) events.ProviderResult {
	started := c.clock.Now()

	if c.apiKey == "" {
		return events.Fail(c.Source(), errors.New("missing PredictHQ credentials"), started)
	}

	limit := p.Limit
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("category", taxonomy.PredictHQCategory(p.Category))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "start")
	if within, ok := locationWithin(p.Location); ok {
		params.Set("location.within", within)
	} else {
		params.Set("q", locationQuery(p.Location))
	}

	decoded, err := c.fetch(ctx, params)
	if err != nil {
		return events.Fail(c.Source(), err, started)
	}

	out := make([]*events.Event, 0, len(decoded.Results))
	for _, raw := range decoded.Results {
		evt := c.convert(raw, p.Category)
		if evt == nil {
			logger.Debug("dropping malformed predicthq event", nil)
			continue
		}
		out = append(out, evt)
	}

	return events.OK(c.Source(), provider.Clamp(events.Sanitize(out), limit), started)
}

type apiResponse struct {
	Count   int        `json:"count"`
	Results []apiEvent `json:"results"`
}

type apiEvent struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Labels      []string `json:"labels"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Rank        int      `json:"rank"`
	LocalRank   int      `json:"local_rank"`
	Attendance  int      `json:"phq_attendance"`
	Entities    []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"entities"`
	Geo struct {
		Address struct {
			Locality  string `json:"locality"`
			Formatted string `json:"formatted_address"`
		} `json:"address"`
	} `json:"geo"`
}

// fetch issues the upstream request with exponential-backoff retry on
// transient failures (network errors, 429, 5xx).
func (c *Client) fetch(ctx context.Context, params url.Values) (*apiResponse, error) {
	var decoded *apiResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetching events: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("transient status code: %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		}

		var body apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("parsing response: %w", err))
		}
		decoded = &body
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return decoded, nil
}

// convert maps one upstream event to a canonical event. The requested
// canonical category is kept; PredictHQ's own category lands in metadata.
func (c *Client) convert(raw apiEvent, category string) *events.Event {
	if strings.TrimSpace(raw.Title) == "" {
		return nil
	}

	evt := events.New(c.Source(), raw.Title, "", confidence)
	if raw.ID != "" {
		evt.ID = string(c.Source()) + "-" + raw.ID
	}
	evt.Description = raw.Description
	evt.Category = taxonomy.Normalize(category)
	evt.Tags = raw.Labels

	if start, ok := parseInstant(raw.Start); ok {
		evt.StartDate = &start
	}
	if end, ok := parseInstant(raw.End); ok {
		evt.EndDate = &end
	}

	for _, entity := range raw.Entities {
		if entity.Type == "venue" {
			evt.VenueName = entity.Name
			break
		}
	}
	if evt.VenueName == "" {
		evt.VenueName = events.VenueSentinel
	}
	if raw.Geo.Address.Formatted != "" {
		evt.Address = raw.Geo.Address.Formatted
	} else if raw.Geo.Address.Locality != "" {
		evt.Address = raw.Geo.Address.Locality
	}

	evt.Metadata = map[string]string{
		"phq_category": raw.Category,
	}
	if raw.Rank > 0 {
		evt.Metadata["rank"] = strconv.Itoa(raw.Rank)
	}
	if raw.LocalRank > 0 {
		evt.Metadata["local_rank"] = strconv.Itoa(raw.LocalRank)
	}
	if raw.Attendance > 0 {
		evt.Metadata["phq_attendance"] = strconv.Itoa(raw.Attendance)
	}
	return evt
}

// parseInstant parses PredictHQ timestamps, which arrive either as full
// RFC3339 instants or bare dates. Unparseable input means "absent".
func parseInstant(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// locationWithin resolves a human location onto a known metro radius query.
func locationWithin(location string) (string, bool) {
	lower := strings.ToLower(location)
	for metro, within := range metroCoords {
		if strings.Contains(lower, metro) {
			return within, true
		}
	}
	return "", false
}

// locationQuery strips state/country qualifiers for the free-text fallback.
func locationQuery(location string) string {
	return strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
}
