// Package merge deduplicates events across providers and combines the
// survivors into one ranked list.
//
// The same real-world event routinely arrives from several providers at
// once. Identity is decided by URL first (host+path, tracking noise
// stripped) and by normalized title as the fallback. When two records
// collide, the record from the more trustworthy source wins and inherits any
// fields it was missing from the loser, so a Ticketmaster record can pick up
// a better description scraped by a search provider.
package merge

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/pfrederiksen/local-events/internal/events"
)

// sourcePriority ranks sources by trustworthiness of their structured data.
// Higher wins a merge collision.
var sourcePriority = map[events.Source]int{
	events.SourceVenues:       6,
	events.SourceTicketmaster: 5,
	events.SourcePredictHQ:    4,
	events.SourceExa:          3,
	events.SourcePerplexity:   2,
	events.SourceSerpAPI:      1,
}

// SourceStats summarizes one provider's contribution to a merged response.
type SourceStats struct {
	OriginalCount     int     `json:"original_count"`
	SurvivedCount     int     `json:"survived_count"`
	DuplicatesRemoved int     `json:"duplicates_removed"`
	ProcessingTime    int64   `json:"processing_time_ms"`
	Cost              float64 `json:"cost"`
	Error             string  `json:"error,omitempty"`
}

// Result is the outcome of one merge pass.
type Result struct {
	Events          []*events.Event               `json:"events"`
	Stats           map[events.Source]SourceStats `json:"stats"`
	TotalDuplicates int                           `json:"total_duplicates"`
}

// Merge deduplicates the events of all provider results and returns at most
// limit survivors, soonest first. Failed provider results contribute stats
// but no events. Merging a merged result again is a no-op.
func Merge(results []events.ProviderResult, limit int) Result {
	stats := make(map[events.Source]SourceStats, len(results))
	byKey := make(map[string]*events.Event)
	var order []string

	for _, res := range results {
		s := stats[res.Source]
		s.OriginalCount += res.Count
		s.ProcessingTime += res.ProcessingTime
		s.Cost += res.Cost
		if !res.Success {
			s.Error = res.Error
		}
		stats[res.Source] = s

		for _, evt := range res.Events {
			if !evt.Valid() {
				continue
			}
			key := identityKey(evt)
			existing, dup := byKey[key]
			if !dup {
				byKey[key] = evt
				order = append(order, key)
				continue
			}
			byKey[key] = combine(existing, evt)
		}
	}

	merged := make([]*events.Event, 0, len(byKey))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	sortBySoonest(merged)

	total := 0
	survived := make(map[events.Source]int)
	for _, evt := range merged {
		survived[evt.Source]++
	}
	for source, s := range stats {
		s.SurvivedCount = survived[source]
		s.DuplicatesRemoved = s.OriginalCount - s.SurvivedCount
		if s.DuplicatesRemoved < 0 {
			s.DuplicatesRemoved = 0
		}
		total += s.DuplicatesRemoved
		stats[source] = s
	}

	// Truncation happens after merge so low-priority uniques are not pushed
	// out by duplicates that were going to collapse anyway.
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	return Result{Events: merged, Stats: stats, TotalDuplicates: total}
}

// combine resolves one collision: the higher-priority record survives and
// backfills its missing fields from the other.
func combine(a, b *events.Event) *events.Event {
	winner, loser := a, b
	if sourcePriority[b.Source] > sourcePriority[a.Source] {
		winner, loser = b, a
	}

	out := *winner
	if out.StartDate == nil {
		out.StartDate = loser.StartDate
		out.EndDate = loser.EndDate
	}
	if out.VenueName == "" || out.VenueName == events.VenueSentinel {
		if loser.VenueName != "" {
			out.VenueName = loser.VenueName
		}
	}
	if out.Description == "" {
		out.Description = loser.Description
	}
	if out.Address == "" {
		out.Address = loser.Address
	}
	if out.TicketURL == "" {
		out.TicketURL = loser.TicketURL
	}
	if out.EventURL == "" {
		out.EventURL = loser.EventURL
	}
	if out.Confidence < loser.Confidence {
		out.Confidence = loser.Confidence
	}
	return &out
}

// identityKey builds the cross-provider identity of an event: the cleaned
// URL when present, the normalized title otherwise.
func identityKey(evt *events.Event) string {
	if key, ok := normalizeURL(evt.EventURL); ok {
		return "u|" + key
	}
	return "t|" + normalizeTitle(evt.Title)
}

// normalizeURL reduces a URL to lowercase host+path with tracking noise,
// scheme, query and fragment stripped.
func normalizeURL(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(strings.ToLower(u.Path), "/")
	return host + path, true
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeTitle lowercases and strips punctuation so "Jazz Night!" and
// "jazz night" collide.
func normalizeTitle(title string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(title), " "), " ")
}

// sortBySoonest orders events by start date ascending; undated events go
// last, ties break on title for determinism.
func sortBySoonest(evts []*events.Event) {
	sort.SliceStable(evts, func(i, j int) bool {
		a, b := evts[i], evts[j]
		switch {
		case a.StartDate == nil && b.StartDate == nil:
			return a.Title < b.Title
		case a.StartDate == nil:
			return false
		case b.StartDate == nil:
			return true
		case a.StartDate.Equal(*b.StartDate):
			return a.Title < b.Title
		default:
			return a.StartDate.Before(*b.StartDate)
		}
	})
}
