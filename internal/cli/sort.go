package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/local-events/internal/events"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate   SortOrder = "date"
	SortByTitle  SortOrder = "title"
	SortBySource SortOrder = "source"
)

func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(s))
	switch order {
	case SortByDate, SortByTitle, SortBySource:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort: %s (must be 'date', 'title' or 'source')", s)
	}
}

// sortEvents sorts a slice of events based on the specified sort order
func sortEvents(evts []*events.Event, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(evts, func(i, j int) bool {
			return compareByDate(evts[i], evts[j])
		})
	case SortByTitle:
		sort.SliceStable(evts, func(i, j int) bool {
			ti, tj := strings.ToLower(evts[i].Title), strings.ToLower(evts[j].Title)
			if ti != tj {
				return ti < tj
			}
			return compareByDate(evts[i], evts[j])
		})
	case SortBySource:
		sort.SliceStable(evts, func(i, j int) bool {
			if evts[i].Source != evts[j].Source {
				return evts[i].Source < evts[j].Source
			}
			return compareByDate(evts[i], evts[j])
		})
	}
}

// compareByDate reports whether event i should come before event j. Dated
// events come before undated ones; undated pairs fall back to title.
func compareByDate(i, j *events.Event) bool {
	switch {
	case i.StartDate != nil && j.StartDate != nil:
		if i.StartDate.Equal(*j.StartDate) {
			return strings.ToLower(i.Title) < strings.ToLower(j.Title)
		}
		return i.StartDate.Before(*j.StartDate)
	case i.StartDate != nil:
		return true
	case j.StartDate != nil:
		return false
	default:
		return strings.ToLower(i.Title) < strings.ToLower(j.Title)
	}
}
