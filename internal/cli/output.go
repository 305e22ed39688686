package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/events"
	"github.com/pfrederiksen/local-events/internal/pipeline"
	"github.com/pfrederiksen/local-events/internal/provider"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteSearch writes a search response in the specified format.
func WriteSearch(w io.Writer, resp *pipeline.Response, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, resp)
	case FormatText:
		return writeSearchText(w, resp, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeSearchText(w io.Writer, resp *pipeline.Response, verbose bool) error {
	if resp.Count == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range resp.Events {
		when := "date TBD"
		if evt.StartDate != nil {
			when = evt.StartDate.Format("Mon, Jan 2 2006")
		}
		fmt.Fprintf(w, "%s — %s @ %s\n", when, evt.Title, evt.VenueName)
		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", evt.ID)
			fmt.Fprintf(w, "     Source: %s (confidence %.2f)\n", evt.Source, evt.Confidence)
			if evt.EventURL != "" {
				fmt.Fprintf(w, "     URL: %s\n", evt.EventURL)
			}
			if evt.TicketURL != "" {
				fmt.Fprintf(w, "     Tickets: %s\n", evt.TicketURL)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d events (%d duplicates removed) in %dms\n",
		resp.Count, resp.TotalDuplicates, resp.ProcessingTime)

	if verbose {
		sources := make([]string, 0, len(resp.Stats))
		for source := range resp.Stats {
			sources = append(sources, string(source))
		}
		sort.Strings(sources)
		for _, source := range sources {
			s := resp.Stats[events.Source(source)]
			fmt.Fprintf(w, "  %s: %d fetched, %d survived", source, s.OriginalCount, s.SurvivedCount)
			if s.Error != "" {
				fmt.Fprintf(w, " (error: %s)", s.Error)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

// WriteHealth writes per-provider health statuses.
func WriteHealth(w io.Writer, statuses map[string]provider.HealthStatus, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, statuses)
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := statuses[name]
		fmt.Fprintf(w, "%-14s %-9s %dms", name, s.Status, s.Latency)
		if s.Message != "" {
			fmt.Fprintf(w, "  %s", s.Message)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// venueStatus is the serializable venues-status report.
type venueStatus struct {
	SnapshotPath string    `json:"snapshot_path"`
	LastUpdated  time.Time `json:"last_updated"`
	Age          string    `json:"age"`
	Stale        bool      `json:"stale"`
	Refreshing   bool      `json:"refreshing"`
	VenueCount   int       `json:"venue_count"`
	EventCount   int       `json:"event_count"`
}

// WriteVenueStatus writes the snapshot age and contents summary.
func WriteVenueStatus(w io.Writer, snap *cache.VenueSnapshot, cfg config.VenuesConfig, refreshing bool, format OutputFormat) error {
	status := venueStatus{
		SnapshotPath: cfg.SnapshotPath,
		LastUpdated:  snap.LastUpdated,
		Stale:        time.Since(snap.LastUpdated) > cfg.StaleAfter,
		Refreshing:   refreshing,
		VenueCount:   len(snap.Venues),
	}
	if !snap.LastUpdated.IsZero() {
		status.Age = time.Since(snap.LastUpdated).Round(time.Minute).String()
	}
	for _, venue := range snap.Venues {
		status.EventCount += len(venue.Events)
	}

	if format == FormatJSON {
		return writeJSON(w, status)
	}

	fmt.Fprintf(w, "Snapshot: %s\n", status.SnapshotPath)
	if status.LastUpdated.IsZero() {
		fmt.Fprintln(w, "Last updated: never")
	} else {
		fmt.Fprintf(w, "Last updated: %s (%s ago)\n",
			status.LastUpdated.Format(time.RFC3339), status.Age)
	}
	fmt.Fprintf(w, "Stale: %v\n", status.Stale)
	if status.Refreshing {
		fmt.Fprintln(w, "Refresh in progress")
	}
	fmt.Fprintf(w, "Venues: %d, events: %d\n", status.VenueCount, status.EventCount)
	return nil
}
