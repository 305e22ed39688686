package taxonomy

import (
	"strings"

	"github.com/pfrederiksen/local-events/internal/logger"
)

// Canonical categories. Every event leaving an adapter carries exactly one
// of these; raw provider strings never escape the mapper.
const (
	CategoryMusic    = "music"
	CategoryTheatre  = "theatre"
	CategoryComedy   = "comedy"
	CategoryMovies   = "movies"
	CategoryArt      = "art"
	CategoryFood     = "food"
	CategoryTech     = "tech"
	CategoryLectures = "lectures"
	CategoryKids     = "kids"
	CategorySports   = "sports"
	CategoryGeneral  = "general" // fallback for unmapped input
)

// Categories lists every canonical category, fallback excluded.
var Categories = []string{
	CategoryMusic, CategoryTheatre, CategoryComedy, CategoryMovies,
	CategoryArt, CategoryFood, CategoryTech, CategoryLectures,
	CategoryKids, CategorySports,
}

// aliases resolves common synonyms in one lookup.
var aliases = map[string]string{
	"theater":         CategoryTheatre,
	"plays":           CategoryTheatre,
	"musical":         CategoryTheatre,
	"musicals":        CategoryTheatre,
	"performing arts": CategoryTheatre,
	"concert":         CategoryMusic,
	"concerts":        CategoryMusic,
	"live music":      CategoryMusic,
	"gig":             CategoryMusic,
	"gigs":            CategoryMusic,
	"standup":         CategoryComedy,
	"stand-up":        CategoryComedy,
	"stand up":        CategoryComedy,
	"improv":          CategoryComedy,
	"film":            CategoryMovies,
	"films":           CategoryMovies,
	"cinema":          CategoryMovies,
	"screening":       CategoryMovies,
	"screenings":      CategoryMovies,
	"gallery":         CategoryArt,
	"galleries":       CategoryArt,
	"exhibition":      CategoryArt,
	"exhibitions":     CategoryArt,
	"museum":          CategoryArt,
	"food and drink":  CategoryFood,
	"food & drink":    CategoryFood,
	"dining":          CategoryFood,
	"culinary":        CategoryFood,
	"technology":      CategoryTech,
	"startup":         CategoryTech,
	"startups":        CategoryTech,
	"hackathon":       CategoryTech,
	"talk":            CategoryLectures,
	"talks":           CategoryLectures,
	"lecture":         CategoryLectures,
	"seminar":         CategoryLectures,
	"conference":      CategoryLectures,
	"conferences":     CategoryLectures,
	"family":          CategoryKids,
	"children":        CategoryKids,
	"family-friendly": CategoryKids,
	"sport":           CategorySports,
	"game":            CategorySports,
	"games":           CategorySports,
}

// keywords is the last lookup stage: substring match against curated topic
// phrases. Order matters; earlier entries win.
var keywords = []struct {
	phrase   string
	category string
}{
	{"jazz", CategoryMusic},
	{"symphony", CategoryMusic},
	{"orchestra", CategoryMusic},
	{"band", CategoryMusic},
	{"dj", CategoryMusic},
	{"opera", CategoryTheatre},
	{"broadway", CategoryTheatre},
	{"ballet", CategoryTheatre},
	{"comedy", CategoryComedy},
	{"comedian", CategoryComedy},
	{"movie", CategoryMovies},
	{"sculpture", CategoryArt},
	{"painting", CategoryArt},
	{"wine", CategoryFood},
	{"beer", CategoryFood},
	{"tasting", CategoryFood},
	{"festival", CategoryFood},
	{"coding", CategoryTech},
	{"developer", CategoryTech},
	{"ai ", CategoryTech},
	{"author", CategoryLectures},
	{"book", CategoryLectures},
	{"science", CategoryLectures},
	{"kid", CategoryKids},
	{"toddler", CategoryKids},
	{"soccer", CategorySports},
	{"basketball", CategorySports},
	{"baseball", CategorySports},
	{"marathon", CategorySports},
}

// IsCanonical reports whether s is already a taxonomy member.
func IsCanonical(s string) bool {
	if s == CategoryGeneral {
		return true
	}
	for _, c := range Categories {
		if s == c {
			return true
		}
	}
	return false
}

// Normalize maps an arbitrary category string onto the taxonomy through
// three stages: exact match, alias table, keyword substring. Unmapped input
// falls back to CategoryGeneral; that is logged, not an error.
func Normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return CategoryGeneral
	}

	if IsCanonical(s) {
		return s
	}

	if mapped, ok := aliases[s]; ok {
		return mapped
	}

	for _, kw := range keywords {
		if strings.Contains(s, kw.phrase) {
			return kw.category
		}
	}

	logger.Debug("category fell through to fallback", logger.Fields{
		"input": input,
	})
	return CategoryGeneral
}
