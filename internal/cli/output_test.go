package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/merge"
	"github.com/pfrederiksen/local-events/internal/pipeline"
	"github.com/pfrederiksen/local-events/internal/provider"
)

func sampleResponse() *pipeline.Response {
	when := time.Date(2026, 9, 26, 20, 0, 0, 0, time.UTC)
	jazz := events.New(events.SourceTicketmaster, "Jazz Night", "https://venue.com/jazz", 0.85)
	jazz.StartDate = &when
	jazz.VenueName = "The Fillmore"
	undated := events.New(events.SourceExa, "Gallery Walk", "https://art.com/walk", 0.5)
	undated.VenueName = events.VenueSentinel

	return &pipeline.Response{
		RequestID:       "req-1",
		Category:        "music",
		Location:        "San Francisco, CA",
		Events:          []*events.Event{jazz, undated},
		Count:           2,
		TotalDuplicates: 1,
		ProcessingTime:  120,
		Stats: map[events.Source]merge.SourceStats{
			events.SourceTicketmaster: {OriginalCount: 2, SurvivedCount: 1, DuplicatesRemoved: 1},
			events.SourceExa:          {OriginalCount: 1, SurvivedCount: 1},
		},
		GeneratedAt: when,
	}
}

func TestWriteSearch_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearch(&buf, sampleResponse(), FormatText, false); err != nil {
		t.Fatalf("WriteSearch: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Jazz Night", "The Fillmore", "Sat, Sep 26 2026", "date TBD", "1 duplicates removed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearch_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	resp := &pipeline.Response{}
	if err := WriteSearch(&buf, resp, FormatText, false); err != nil {
		t.Fatalf("WriteSearch: %v", err)
	}
	if !strings.Contains(buf.String(), "No events found.") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestWriteSearch_JSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearch(&buf, sampleResponse(), FormatJSON, false); err != nil {
		t.Fatalf("WriteSearch: %v", err)
	}

	var decoded pipeline.Response
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Count != 2 || decoded.RequestID != "req-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteHealth_TextSortedByName(t *testing.T) {
	var buf bytes.Buffer
	statuses := map[string]provider.HealthStatus{
		"serpapi": {Status: provider.StatusDown, Latency: 12, Message: "rate limited"},
		"exa":     {Status: provider.StatusOK, Latency: 340},
	}
	if err := WriteHealth(&buf, statuses, FormatText); err != nil {
		t.Fatalf("WriteHealth: %v", err)
	}

	out := buf.String()
	if strings.Index(out, "exa") > strings.Index(out, "serpapi") {
		t.Errorf("providers not sorted:\n%s", out)
	}
	if !strings.Contains(out, "rate limited") {
		t.Errorf("message missing:\n%s", out)
	}
}

func TestWriteVenueStatus(t *testing.T) {
	snap := &cache.VenueSnapshot{
		LastUpdated: time.Now().Add(-2 * time.Hour),
		Venues: map[string]*cache.VenueRecord{
			"fillmore": {Name: "The Fillmore", Events: []*events.Event{{Title: "A"}, {Title: "B"}}},
		},
	}
	cfg := config.VenuesConfig{SnapshotPath: "data/venue-snapshot.json", StaleAfter: 24 * time.Hour}

	var buf bytes.Buffer
	if err := WriteVenueStatus(&buf, snap, cfg, false, FormatText); err != nil {
		t.Fatalf("WriteVenueStatus: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Venues: 1, events: 2") {
		t.Errorf("summary missing:\n%s", out)
	}
	if !strings.Contains(out, "Stale: false") {
		t.Errorf("staleness missing:\n%s", out)
	}
	if strings.Contains(out, "Refresh in progress") {
		t.Errorf("idle snapshot reported as refreshing:\n%s", out)
	}

	buf.Reset()
	if err := WriteVenueStatus(&buf, snap, cfg, true, FormatJSON); err != nil {
		t.Fatalf("WriteVenueStatus json: %v", err)
	}
	var status venueStatus
	if err := json.Unmarshal(buf.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.VenueCount != 1 || status.EventCount != 2 || status.Stale || !status.Refreshing {
		t.Errorf("status = %+v", status)
	}
}

func TestWriteVenueStatus_NeverUpdated(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.VenuesConfig{SnapshotPath: "x.json", StaleAfter: 24 * time.Hour}
	if err := WriteVenueStatus(&buf, cache.EmptySnapshot(), cfg, false, FormatText); err != nil {
		t.Fatalf("WriteVenueStatus: %v", err)
	}
	if !strings.Contains(buf.String(), "Last updated: never") {
		t.Errorf("output = %q", buf.String())
	}
}
