package events

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID(SourceSerpAPI, "Jazz Night", "https://venue.com/jazz")
	b := GenerateID(SourceSerpAPI, "Jazz Night", "https://venue.com/jazz")
	if a != b {
		t.Errorf("GenerateID not deterministic: %q != %q", a, b)
	}

	c := GenerateID(SourceExa, "Jazz Night", "https://venue.com/jazz")
	if a == c {
		t.Error("GenerateID should differ across sources")
	}

	if a[:len("serpapi-")] != "serpapi-" {
		t.Errorf("ID %q missing source namespace prefix", a)
	}
}

func TestNew_ClampsConfidence(t *testing.T) {
	if got := New(SourceExa, "x", "", 1.7).Confidence; got != 1 {
		t.Errorf("Confidence = %v, want 1", got)
	}
	if got := New(SourceExa, "x", "", -0.3).Confidence; got != 0 {
		t.Errorf("Confidence = %v, want 0", got)
	}
}

func TestSanitize(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	start := time.Date(2026, 3, 1, 19, 0, 0, 0, loc)
	end := time.Date(2026, 3, 1, 22, 0, 0, 0, loc)

	in := []*Event{
		nil,
		{Title: "   "},
		{Title: "Kept", StartDate: &start, EndDate: &end},
		{Title: "End only", EndDate: &end},
	}

	out := Sanitize(in)
	if len(out) != 2 {
		t.Fatalf("Sanitize kept %d events, want 2", len(out))
	}

	if out[0].StartDate.Location() != time.UTC {
		t.Error("StartDate not normalized to UTC")
	}
	if out[1].EndDate != nil {
		t.Error("EndDate without StartDate should be discarded")
	}
}

func TestEvent_IsWithinDays(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	soon := now.AddDate(0, 0, 3)
	far := now.AddDate(0, 0, 45)

	tests := []struct {
		name  string
		start *time.Time
		days  int
		want  bool
	}{
		{"window disabled", &far, 0, true},
		{"no date", nil, 7, true},
		{"inside window", &soon, 7, true},
		{"outside window", &far, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{Title: "x", StartDate: tt.start}
			if got := e.IsWithinDays(now, tt.days); got != tt.want {
				t.Errorf("IsWithinDays() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFail_AlwaysWellFormed(t *testing.T) {
	r := Fail(SourcePredictHQ, errors.New("boom"), time.Now())
	if r.Success {
		t.Error("Fail result reports success")
	}
	if r.Events == nil {
		t.Error("Fail result has nil event list")
	}
	if r.Error != "boom" {
		t.Errorf("Error = %q, want boom", r.Error)
	}

	r = Fail(SourcePredictHQ, nil, time.Now())
	if r.Error == "" {
		t.Error("Fail with nil error should still set a message")
	}
}
