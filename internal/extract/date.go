package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DatePass is a single heuristic pass over free text. It returns every
// candidate instant the pass recognizes, resolved against now.
type DatePass func(text string, now time.Time) []time.Time

// datePasses are tried in order; the first pass producing any candidate wins.
var datePasses = []DatePass{
	monthNameDates,
	numericDates,
	relativeDates,
}

// Date extracts the most plausible event date from text.
//
// The winning pass may yield several candidates (snippets often mention more
// than one date); the earliest candidate not in the past is chosen, falling
// back to the earliest candidate overall when all are past.
func Date(text string, now time.Time) (time.Time, bool) {
	for _, pass := range datePasses {
		candidates := pass(text, now)
		if len(candidates) == 0 {
			continue
		}
		return pickCandidate(candidates, now), true
	}
	return time.Time{}, false
}

// pickCandidate selects the earliest candidate on or after the start of
// today, or the earliest overall if every candidate is in the past.
func pickCandidate(candidates []time.Time, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var bestFuture, bestAny time.Time
	for _, c := range candidates {
		if bestAny.IsZero() || c.Before(bestAny) {
			bestAny = c
		}
		if !c.Before(today) && (bestFuture.IsZero() || c.Before(bestFuture)) {
			bestFuture = c
		}
	}
	if !bestFuture.IsZero() {
		return bestFuture
	}
	return bestAny
}

var monthsByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var monthNamePattern = regexp.MustCompile(
	`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)

// monthNameDates matches dates like "September 26, 2025", "Sep 26" or
// "Jan 2nd". A yearless date already in the past rolls forward one year.
func monthNameDates(text string, now time.Time) []time.Time {
	var out []time.Time
	for _, m := range monthNamePattern.FindAllStringSubmatch(text, -1) {
		month, ok := monthsByName[strings.ToLower(m[1][:3])]
		if !ok {
			continue
		}
		day, err := strconv.Atoi(m[2])
		if err != nil || day < 1 || day > 31 {
			continue
		}

		if m[3] != "" {
			year, err := strconv.Atoi(m[3])
			if err != nil {
				continue
			}
			out = append(out, time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
			continue
		}

		candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)
		if candidate.Before(startOfDay(now)) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		out = append(out, candidate)
	}
	return out
}

var numericPattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?\b`)

// numericDates matches MM/DD, MM/DD/YY and MM/DD/YYYY. Two-digit years are
// taken as 20xx; yearless dates in the past roll forward one year.
func numericDates(text string, now time.Time) []time.Time {
	var out []time.Time
	for _, m := range numericPattern.FindAllStringSubmatch(text, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}

		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
			out = append(out, time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
			continue
		}

		candidate := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if candidate.Before(startOfDay(now)) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		out = append(out, candidate)
	}
	return out
}

var weekdaysByName = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var weekdayPattern = regexp.MustCompile(`(?i)\b(?:this\s+|next\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)

// relativeDates resolves "today", "tomorrow", "tonight", "this weekend",
// "next week" and bare weekday names against now.
func relativeDates(text string, now time.Time) []time.Time {
	lower := strings.ToLower(text)
	today := startOfDay(now)

	var out []time.Time
	switch {
	case strings.Contains(lower, "today"), strings.Contains(lower, "tonight"):
		out = append(out, today)
	case strings.Contains(lower, "tomorrow"):
		out = append(out, today.AddDate(0, 0, 1))
	case strings.Contains(lower, "this weekend"):
		out = append(out, nextWeekday(today, time.Saturday))
	case strings.Contains(lower, "next week"):
		out = append(out, today.AddDate(0, 0, 7))
	}
	if len(out) > 0 {
		return out
	}

	for _, m := range weekdayPattern.FindAllStringSubmatch(text, -1) {
		if wd, ok := weekdaysByName[strings.ToLower(m[1])]; ok {
			out = append(out, nextWeekday(today, wd))
		}
	}
	return out
}

// nextWeekday returns the next occurrence of wd on or after day.
func nextWeekday(day time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, delta)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
