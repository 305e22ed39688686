package extract

import (
	"regexp"
	"strings"
)

// VenuePass is a single heuristic pass recovering a venue name from text.
type VenuePass func(text string) (string, bool)

var venuePasses = []VenuePass{
	labeledVenue,
	hostedByVenue,
	venueTypeSuffix,
	atVenue,
}

var labeledPattern = regexp.MustCompile(`(?i)\b(?:venue|location|where)\s*:\s*([^.;\n|]+)`)

// labeledVenue matches explicit "venue:" / "location:" / "where:" labels.
func labeledVenue(text string) (string, bool) {
	if m := labeledPattern.FindStringSubmatch(text); m != nil {
		return cleanVenue(m[1])
	}
	return "", false
}

var hostedByPattern = regexp.MustCompile(`(?i)\bhosted\s+(?:by|at)\s+([A-Z][\w'&.-]*(?:\s+[\w'&.-]+){0,5})`)

func hostedByVenue(text string) (string, bool) {
	if m := hostedByPattern.FindStringSubmatch(text); m != nil {
		return cleanVenue(m[1])
	}
	return "", false
}

// venueTypeSuffixes are the building types that mark a capitalized phrase as
// a venue name ("The Orpheum Theatre", "Davies Symphony Hall").
var venueTypeSuffixes = []string{
	"theatre", "theater", "hall", "museum", "club", "center", "centre",
	"arena", "gallery", "auditorium", "stadium", "amphitheatre",
	"amphitheater", "pavilion", "ballroom", "lounge", "tavern", "church",
	"winery", "brewery", "park", "plaza", "conservatory",
}

var venuePhrasePattern = regexp.MustCompile(`\b(?:The\s+)?(?:[A-Z][\w'&.-]*\s+){0,4}[A-Z][\w'&.-]*\b`)

// venueTypeSuffix scans capitalized phrases and keeps the first one ending in
// a known venue-type word.
func venueTypeSuffix(text string) (string, bool) {
	for _, phrase := range venuePhrasePattern.FindAllString(text, -1) {
		words := strings.Fields(phrase)
		if len(words) < 2 {
			continue
		}
		last := strings.ToLower(strings.Trim(words[len(words)-1], ".,"))
		for _, suffix := range venueTypeSuffixes {
			if last == suffix {
				return cleanVenue(phrase)
			}
		}
	}
	return "", false
}

var atPattern = regexp.MustCompile(`\bat\s+((?:[Tt]he\s+)?[A-Z][\w'&.-]*(?:\s+[A-Z][\w'&.-]*){0,4})`)

// atVenue matches "... at The Fillmore" style mentions. Weakest pass, so it
// runs last.
func atVenue(text string) (string, bool) {
	if m := atPattern.FindStringSubmatch(text); m != nil {
		return cleanVenue(m[1])
	}
	return "", false
}

// Venue extracts a venue name from free text. Returns false when no pass
// matches; it never fabricates a venue.
func Venue(text string) (string, bool) {
	for _, pass := range venuePasses {
		if name, ok := pass(text); ok {
			return name, true
		}
	}
	return "", false
}

// VenueOrSentinel extracts a venue name, degrading to the sentinel value
// when nothing matches.
func VenueOrSentinel(text, sentinel string) string {
	if name, ok := Venue(text); ok {
		return name
	}
	return sentinel
}

// cleanVenue trims whitespace and trailing punctuation from a candidate and
// rejects implausibly short or long names.
func cleanVenue(s string) (string, bool) {
	s = strings.Trim(strings.TrimSpace(s), ".,;:!-")
	s = strings.TrimSpace(s)
	if len(s) < 3 || len(s) > 80 {
		return "", false
	}
	return s, true
}
