// Package calendar exports aggregated events as an iCalendar (.ics) feed so
// a search result can be dropped straight into a calendar app.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/local-events/internal/events"
)

// defaultDuration is assumed when an event has no end date.
const defaultDuration = 2 * time.Hour

// GenerateICS renders one VCALENDAR holding every dated event in the list.
// Undated events are skipped; a calendar entry without a start time is
// worse than no entry.
func GenerateICS(evts []*events.Event, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//local-events//local-events//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	for _, evt := range evts {
		if evt.StartDate == nil {
			continue
		}
		writeVEvent(&ics, evt, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeVEvent(ics *strings.Builder, evt *events.Event, now time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	fmt.Fprintf(ics, "UID:%s@local-events\r\n", evt.ID)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", formatICSTime(now))
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(*evt.StartDate))

	end := evt.StartDate.Add(defaultDuration)
	if evt.EndDate != nil {
		end = *evt.EndDate
	}
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(end))

	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(evt.Title))

	if desc := buildDescription(evt); desc != "" {
		fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(desc))
	}

	if location := buildLocation(evt); location != "" {
		fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(location))
	}

	if evt.EventURL != "" {
		fmt.Fprintf(ics, "URL:%s\r\n", evt.EventURL)
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func buildDescription(evt *events.Event) string {
	var parts []string
	if evt.Description != "" {
		parts = append(parts, evt.Description)
	}
	if evt.TicketURL != "" {
		parts = append(parts, "Tickets: "+evt.TicketURL)
	}
	parts = append(parts, "Source: "+string(evt.Source))
	return strings.Join(parts, "\n")
}

func buildLocation(evt *events.Event) string {
	location := evt.VenueName
	if location == events.VenueSentinel {
		location = ""
	}
	if evt.Address != "" {
		if location != "" {
			return location + ", " + evt.Address
		}
		return evt.Address
	}
	return location
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
