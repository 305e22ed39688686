// Package expand resolves aggregator hub pages into individual events.
//
// Search-derived providers often return a link to an aggregator's listing
// page ("Events this weekend in SF" on Funcheap) instead of a single event.
// The expander recognizes those hubs by domain, fetches the listing once,
// and pulls out the individual event links it can find. Expansion is best
// effort: a hub that cannot be fetched or yields nothing is kept as-is.
package expand

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/extract"
	"github.com/pfrederiksen/local-events/internal/logger"
)

const (
	userAgent = "local-events/1.0 (github.com/pfrederiksen/local-events)"

	// maxChildren caps how many events one hub page may expand into.
	maxChildren = 10

	// minTitleLen filters out navigation anchors ("More", "Next").
	minTitleLen = 5
)

// aggregatorPatterns maps hub domains to the URL shape of their event detail
// pages. A nil pattern falls back to the generic "/event" heuristic.
var aggregatorPatterns = map[string]*regexp.Regexp{
	"eventbrite.com":  regexp.MustCompile(`/e/[\w-]+`),
	"meetup.com":      regexp.MustCompile(`/events/\d+`),
	"songkick.com":    regexp.MustCompile(`/concerts/\d+`),
	"bandsintown.com": regexp.MustCompile(`/e/\d+`),
	"funcheap.com":    regexp.MustCompile(`/[\w-]{10,}/`),
	"everout.com":     nil,
	"dothebay.com":    nil,
	"sfstation.com":   nil,
}

var genericPattern = regexp.MustCompile(`/event`)

// Stats summarizes one expansion pass.
type Stats struct {
	Attempted int // hub fetches launched
	Expanded  int // hubs that produced at least one child
	Children  int // total child events produced
}

// Expander fetches and parses aggregator listing pages.
type Expander struct {
	httpClient *http.Client
	timeout    time.Duration
	clock      cache.Clock
}

// New creates an expander with the given per-fetch timeout.
func New(timeout time.Duration) *Expander {
	return &Expander{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		clock:      cache.SystemClock{},
	}
}

// IsAggregator reports whether a URL points at a known aggregator domain.
func IsAggregator(rawURL string) bool {
	return aggregatorDomain(rawURL) != ""
}

func aggregatorDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	for domain := range aggregatorPatterns {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return domain
		}
	}
	return ""
}

// Expand walks the event list and replaces aggregator hub events with the
// individual events found on their listing pages. Each aggregator domain is
// fetched at most once per call; hubs that yield nothing survive unchanged.
func (x *Expander) Expand(ctx context.Context, evts []*events.Event) ([]*events.Event, Stats) {
	var stats Stats
	attempted := make(map[string]bool)
	out := make([]*events.Event, 0, len(evts))

	for _, evt := range evts {
		domain := aggregatorDomain(evt.EventURL)
		if domain == "" || attempted[domain] {
			out = append(out, evt)
			continue
		}
		attempted[domain] = true
		stats.Attempted++

		children, err := x.expandHub(ctx, evt, domain)
		if err != nil {
			logger.Debug("hub expansion failed", logger.Fields{
				"domain": domain,
				"url":    evt.EventURL,
			})
			out = append(out, evt)
			continue
		}
		if len(children) == 0 {
			out = append(out, evt)
			continue
		}

		stats.Expanded++
		stats.Children += len(children)
		out = append(out, children...)
	}

	return out, stats
}

// expandHub fetches one listing page and scrapes its event detail links.
func (x *Expander) expandHub(ctx context.Context, hub *events.Event, domain string) ([]*events.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hub.EventURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	return x.scrapeListing(doc, hub, domain), nil
}

// scrapeListing pulls event detail anchors out of a parsed listing page.
func (x *Expander) scrapeListing(doc *goquery.Document, hub *events.Event, domain string) []*events.Event {
	pattern := aggregatorPatterns[domain]
	if pattern == nil {
		pattern = genericPattern
	}
	base, _ := url.Parse(hub.EventURL)

	seen := make(map[string]bool)
	var children []*events.Event

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !pattern.MatchString(href) {
			return true
		}

		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return true
		}

		title := strings.TrimSpace(sel.Text())
		if len(title) < minTitleLen {
			return true
		}
		seen[resolved] = true

		child := events.New(hub.Source, title, resolved, hub.Confidence)
		child.Category = hub.Category
		child.Metadata = map[string]string{"expanded_from": hub.EventURL}

		// Listing anchors often carry the date and venue inline.
		anchorText := title + " " + strings.TrimSpace(sel.Parent().Text())
		if when, ok := extract.Date(anchorText, x.clock.Now()); ok {
			child.StartDate = &when
		}
		child.VenueName = extract.VenueOrSentinel(anchorText, events.VenueSentinel)

		children = append(children, child)
		return len(children) < maxChildren
	})

	return children
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}
