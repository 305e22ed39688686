package taxonomy

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"music", CategoryMusic},
		{"Theatre", CategoryTheatre},
		{"theater", CategoryTheatre},
		{"standup", CategoryComedy},
		{"food and drink", CategoryFood},
		{"Food & Drink", CategoryFood},
		{"concerts", CategoryMusic},
		{"performing arts", CategoryTheatre},
		{"jazz quartet", CategoryMusic},
		{"wine tasting evening", CategoryFood},
		{"author reading", CategoryLectures},
		{"toddler storytime", CategoryKids},
		{"xyz-unknown", CategoryGeneral},
		{"", CategoryGeneral},
		{"   ", CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Normalize must be total: any input yields a taxonomy member, never the raw
// string and never empty.
func TestNormalize_Total(t *testing.T) {
	inputs := []string{
		"xyz-unknown", "🎉", "quantum knitting", "EVENTS!!!", "null",
	}
	for _, in := range inputs {
		got := Normalize(in)
		if !IsCanonical(got) {
			t.Errorf("Normalize(%q) = %q, not a taxonomy member", in, got)
		}
	}
}

func TestPredictHQCategory(t *testing.T) {
	if got := PredictHQCategory("music"); got != "concerts" {
		t.Errorf("PredictHQCategory(music) = %q, want concerts", got)
	}
	if got := PredictHQCategory("theatre"); got != "performing-arts" {
		t.Errorf("PredictHQCategory(theatre) = %q, want performing-arts", got)
	}
	// Unknown input degrades to the broadest useful code.
	if got := PredictHQCategory("xyz"); got != "performing-arts" {
		t.Errorf("PredictHQCategory(xyz) = %q, want performing-arts", got)
	}
}

func TestTicketmasterClassification(t *testing.T) {
	seg, genre := TicketmasterClassification("comedy")
	if seg == "" {
		t.Error("comedy should map to a segment")
	}
	if genre == "" {
		t.Error("comedy should map to a genre")
	}

	seg, genre = TicketmasterClassification("music")
	if seg == "" {
		t.Error("music should map to a segment")
	}
	if genre != "" {
		t.Errorf("music genre = %q, want unconstrained", genre)
	}
}

func TestSearchEnhancements(t *testing.T) {
	for _, c := range append([]string{CategoryGeneral, "garbage-input"}, Categories...) {
		if phrases := SearchEnhancements(c); len(phrases) == 0 {
			t.Errorf("SearchEnhancements(%q) returned no phrases", c)
		}
	}
}
