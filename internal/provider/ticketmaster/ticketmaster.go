// Package ticketmaster implements the structured adapter backed by the
// Ticketmaster Discovery API. Events arrive fully structured (venues, price
// ranges, classifications), so the adapter's job is translation: canonical
// category to segment/genre IDs on the way out, embedded venue and price
// objects to canonical fields on the way back.
package ticketmaster

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
	defaultBaseURL = "https://app.ticketmaster.com/discovery/v2"

	maxRetries = 3

	confidence = 0.85
)

// Client is the Ticketmaster adapter.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxResults int
	clock      cache.Clock
}

// New creates a Ticketmaster adapter.
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

func (c *Client) Name() string { return "ticketmaster" }

func (c *Client) Source() events.Source { return events.SourceTicketmaster }

// Health runs a minimal real query end-to-end.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	return provider.Probe(ctx, c)
}

// SearchEvents implements the adapter contract.
func (c *Client) SearchEvents(ctx context.Context, p provider.Params) events.ProviderResult {
	started := c.clock.Now()

	if c.apiKey == "" {
		return events.Fail(c.Source(), errors.New("missing Ticketmaster credentials"), started)
	}

	limit := p.Limit
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("size", strconv.Itoa(limit))
	params.Set("sort", "date,asc")
	params.Set("city", cityOf(p.Location))

	segment, genre := taxonomy.TicketmasterClassification(p.Category)
	if segment != "" {
		params.Set("segmentId", segment)
	}
	if genre != "" {
		params.Set("genreId", genre)
	}

	decoded, err := c.fetch(ctx, params)
	if err != nil {
		return events.Fail(c.Source(), err, started)
	}

	out := make([]*events.Event, 0, len(decoded.Embedded.Events))
	for _, raw := range decoded.Embedded.Events {
		evt := c.convert(raw, p.Category)
		if evt == nil {
			logger.Debug("dropping malformed ticketmaster event", nil)
			continue
		}
		out = append(out, evt)
	}

	return events.OK(c.Source(), provider.Clamp(events.Sanitize(out), limit), started)
}

type apiResponse struct {
	Embedded struct {
		Events []apiEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		TotalElements int `json:"totalElements"`
	} `json:"page"`
}

type apiEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Info  string `json:"info"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
		} `json:"start"`
	} `json:"dates"`
	PriceRanges []struct {
		Currency string  `json:"currency"`
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
	} `json:"priceRanges"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	Embedded struct {
		Venues []struct {
			Name    string `json:"name"`
			Address struct {
				Line1 string `json:"line1"`
			} `json:"address"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
			State struct {
				StateCode string `json:"stateCode"`
			} `json:"state"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// fetch issues the upstream request with exponential-backoff retry on
// transient failures (network errors, 429, 5xx).
func (c *Client) fetch(ctx context.Context, params url.Values) (*apiResponse, error) {
	var decoded *apiResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events.json?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
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

// convert maps one Discovery API event to a canonical event.
func (c *Client) convert(raw apiEvent, category string) *events.Event {
	if strings.TrimSpace(raw.Name) == "" {
		return nil
	}

	evt := events.New(c.Source(), raw.Name, raw.URL, confidence)
	if raw.ID != "" {
		evt.ID = string(c.Source()) + "-" + raw.ID
	}
	evt.Description = raw.Info
	evt.Category = taxonomy.Normalize(category)
	evt.TicketURL = raw.URL

	if start, ok := parseStart(raw.Dates.Start.DateTime, raw.Dates.Start.LocalDate); ok {
		evt.StartDate = &start
	}

	if len(raw.Embedded.Venues) > 0 {
		venue := raw.Embedded.Venues[0]
		evt.VenueName = venue.Name
		evt.Address = joinNonEmpty(venue.Address.Line1, venue.City.Name, venue.State.StateCode)
	}
	if evt.VenueName == "" {
		evt.VenueName = events.VenueSentinel
	}

	evt.Metadata = map[string]string{}
	if len(raw.PriceRanges) > 0 {
		pr := raw.PriceRanges[0]
		evt.Metadata["price_range"] = fmt.Sprintf("%.2f-%.2f %s", pr.Min, pr.Max, pr.Currency)
	}
	if len(raw.Classifications) > 0 {
		cl := raw.Classifications[0]
		if cl.Segment.Name != "" {
			evt.Metadata["tm_segment"] = cl.Segment.Name
		}
		if cl.Genre.Name != "" {
			evt.Metadata["tm_genre"] = cl.Genre.Name
		}
	}
	if len(evt.Metadata) == 0 {
		evt.Metadata = nil
	}
	return evt
}

// parseStart prefers the full instant, falling back to the venue-local date.
func parseStart(dateTime, localDate string) (time.Time, bool) {
	if dateTime != "" {
		if t, err := time.Parse(time.RFC3339, dateTime); err == nil {
			return t.UTC(), true
		}
	}
	if localDate != "" {
		if t, err := time.Parse("2006-01-02", localDate); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// cityOf strips state/country qualifiers from a human location.
func cityOf(location string) string {
	return strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
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
