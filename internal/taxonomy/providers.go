package taxonomy

// Provider-owned forward maps, keyed by canonical category. Each provider
// speaks its own vocabulary; these tables translate outward at query-build
// time so the rest of the pipeline only ever handles canonical values.

// predictHQCategories maps the taxonomy onto PredictHQ category codes.
var predictHQCategories = map[string]string{
	CategoryMusic:    "concerts",
	CategoryTheatre:  "performing-arts",
	CategoryComedy:   "performing-arts",
	CategoryMovies:   "performing-arts",
	CategoryArt:      "expos",
	CategoryFood:     "festivals",
	CategoryTech:     "conferences",
	CategoryLectures: "conferences",
	CategoryKids:     "community",
	CategorySports:   "sports",
}

// PredictHQCategory returns the PredictHQ category code for a canonical
// category, defaulting to performing-arts for unmapped input.
func PredictHQCategory(canonical string) string {
	if code, ok := predictHQCategories[Normalize(canonical)]; ok {
		return code
	}
	return "performing-arts"
}

// ticketmasterSegments maps the taxonomy onto Ticketmaster Discovery API
// segment IDs (classification level above genre).
var ticketmasterSegments = map[string]string{
	CategoryMusic:   "KZFzniwnSyZfZ7v7nJ", // Music
	CategoryTheatre: "KZFzniwnSyZfZ7v7na", // Arts & Theatre
	CategoryComedy:  "KZFzniwnSyZfZ7v7na",
	CategoryMovies:  "KZFzniwnSyZfZ7v7nn", // Film
	CategoryArt:     "KZFzniwnSyZfZ7v7na",
	CategorySports:  "KZFzniwnSyZfZ7v7nE", // Sports
	CategoryKids:    "KZFzniwnSyZfZ7v7n1", // Miscellaneous
}

// ticketmasterGenres narrows a segment for categories Ticketmaster only
// distinguishes at genre level.
var ticketmasterGenres = map[string]string{
	CategoryComedy:  "KnvZfZ7vAe1", // Comedy
	CategoryTheatre: "KnvZfZ7v7l1", // Theatre
}

// TicketmasterClassification returns (segmentID, genreID) for a canonical
// category. Either value may be empty; empty means "do not constrain".
func TicketmasterClassification(canonical string) (segment, genre string) {
	c := Normalize(canonical)
	return ticketmasterSegments[c], ticketmasterGenres[c]
}

// searchEnhancements are genre keywords injected into search-derived
// provider queries to sharpen low-precision free-text search.
var searchEnhancements = map[string][]string{
	CategoryMusic:    {"concerts", "live music", "shows"},
	CategoryTheatre:  {"theatre", "plays", "performances"},
	CategoryComedy:   {"comedy shows", "standup"},
	CategoryMovies:   {"movie screenings", "film festival"},
	CategoryArt:      {"art exhibitions", "gallery openings"},
	CategoryFood:     {"food festivals", "tastings"},
	CategoryTech:     {"tech meetups", "conferences"},
	CategoryLectures: {"lectures", "talks", "author events"},
	CategoryKids:     {"family events", "kids activities"},
	CategorySports:   {"games", "matches"},
	CategoryGeneral:  {"events", "things to do"},
}

// SearchEnhancements returns query-sharpening phrases for a canonical
// category. Always returns at least one phrase.
func SearchEnhancements(canonical string) []string {
	if phrases, ok := searchEnhancements[Normalize(canonical)]; ok {
		return phrases
	}
	return searchEnhancements[CategoryGeneral]
}
