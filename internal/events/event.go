package events

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

// Source identifies the adapter that produced an event.
type Source string

const (
	SourceSerpAPI      Source = "serpapi"
	SourceExa          Source = "exa"
	SourcePerplexity   Source = "perplexity"
	SourcePredictHQ    Source = "predicthq"
	SourceTicketmaster Source = "ticketmaster"
	SourceVenues       Source = "venues"
)

// VenueSentinel is used when no venue could be recovered from a payload.
// Adapters never fabricate a venue name.
const VenueSentinel = "See Event Page"

// Event is the canonical, source-agnostic event record.
type Event struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category"`
	Tags        []string          `json:"tags,omitempty"`
	VenueName   string            `json:"venue_name,omitempty"`
	Address     string            `json:"address,omitempty"`
	StartDate   *time.Time        `json:"start_date,omitempty"`
	EndDate     *time.Time        `json:"end_date,omitempty"`
	EventURL    string            `json:"event_url,omitempty"`
	TicketURL   string            `json:"ticket_url,omitempty"`
	Source      Source            `json:"source"`
	Confidence  float64           `json:"confidence"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// GenerateID creates a deterministic, provider-namespaced ID for an event.
// Stable for the same source/title/url triple across runs.
func GenerateID(source Source, title, url string) string {
	h := sha1.New()
	h.Write([]byte(string(source) + "|" + strings.ToLower(strings.TrimSpace(title)) + "|" + url))
	return string(source) + "-" + fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// New creates an Event with its ID populated and confidence clamped to [0,1].
func New(source Source, title, url string, confidence float64) *Event {
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	return &Event{
		ID:         GenerateID(source, title, url),
		Title:      strings.TrimSpace(title),
		EventURL:   url,
		Source:     source,
		Confidence: confidence,
	}
}

// Valid reports whether the event satisfies the canonical invariants.
// Events with an empty title are dropped, not nulled.
func (e *Event) Valid() bool {
	return e != nil && strings.TrimSpace(e.Title) != ""
}

// Sanitize filters out invalid events and normalizes dates to UTC.
// An EndDate without a StartDate is discarded rather than promoted.
func Sanitize(evts []*Event) []*Event {
	out := make([]*Event, 0, len(evts))
	for _, e := range evts {
		if !e.Valid() {
			continue
		}
		if e.StartDate != nil {
			utc := e.StartDate.UTC()
			e.StartDate = &utc
		}
		if e.EndDate != nil {
			if e.StartDate == nil {
				e.EndDate = nil
			} else {
				utc := e.EndDate.UTC()
				e.EndDate = &utc
			}
		}
		out = append(out, e)
	}
	return out
}

// IsUpcoming reports whether the event starts at or after now.
// Events without a start date are treated as upcoming (safer default).
func (e *Event) IsUpcoming(now time.Time) bool {
	if e.StartDate == nil {
		return true
	}
	return !e.StartDate.Before(now)
}

// IsWithinDays reports whether the event starts within N days of now.
// Returns true if days <= 0 (window disabled) or the date is absent.
func (e *Event) IsWithinDays(now time.Time, days int) bool {
	if days <= 0 || e.StartDate == nil {
		return true
	}
	cutoff := now.AddDate(0, 0, days)
	return e.StartDate.After(now) && e.StartDate.Before(cutoff)
}
