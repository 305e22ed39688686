package extract

import "testing"

func TestVenue(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		wantNone bool
	}{
		{
			name: "explicit venue label",
			text: "Venue: The Warfield | Doors at 7pm",
			want: "The Warfield",
		},
		{
			name: "location label",
			text: "location: Golden Gate Park Bandshell",
			want: "Golden Gate Park Bandshell",
		},
		{
			name: "hosted by",
			text: "An evening of readings hosted by City Lights Bookstore",
			want: "City Lights Bookstore",
		},
		{
			name: "venue type suffix",
			text: "Symphony performs at Davies Symphony Hall on Friday",
			want: "Davies Symphony Hall",
		},
		{
			name: "theatre suffix",
			text: "Now playing Orpheum Theatre downtown",
			want: "Orpheum Theatre",
		},
		{
			name: "at-phrase fallback",
			text: "Live music this Saturday at The Fillmore",
			want: "The Fillmore",
		},
		{
			name:     "no venue never fabricated",
			text:     "a night of music somewhere in town",
			wantNone: true,
		},
		{
			name:     "empty text",
			text:     "",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Venue(tt.text)
			if tt.wantNone {
				if ok {
					t.Errorf("Venue(%q) = %q, want no match", tt.text, got)
				}
				return
			}
			if !ok {
				t.Fatalf("Venue(%q) found nothing, want %q", tt.text, tt.want)
			}
			if got != tt.want {
				t.Errorf("Venue(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestVenueOrSentinel(t *testing.T) {
	if got := VenueOrSentinel("no venue here at all", "See Event Page"); got != "See Event Page" {
		t.Errorf("VenueOrSentinel() = %q, want sentinel", got)
	}
	if got := VenueOrSentinel("venue: Bimbo's 365 Club", "See Event Page"); got != "Bimbo's 365 Club" {
		t.Errorf("VenueOrSentinel() = %q, want extracted venue", got)
	}
}
