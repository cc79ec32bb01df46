package core

import (
	"errors"
	"testing"
	"time"
)

func TestResolveWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		r         Range
		wantStart time.Time
		calendar  bool
	}{
		{"daily starts at midnight", Daily, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"weekly is rolling seven days", Weekly, time.Date(2024, 3, 8, 14, 30, 0, 0, time.UTC), false},
		{"monthly starts on the first", Monthly, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"yearly starts on january first", Yearly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(tt.r, now)
			if err != nil {
				t.Fatalf("ResolveWindow(%s) error = %v", tt.r, err)
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End.Equal(now) {
				t.Errorf("end = %v, want %v", w.End, now)
			}
			resolver, _ := GetWindowResolver(tt.r)
			if resolver.Calendar() != tt.calendar {
				t.Errorf("Calendar() = %v, want %v", resolver.Calendar(), tt.calendar)
			}
		})
	}
}

func TestResolveWindow_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	// 20:00 UTC on the 31st is already the 1st of the next month locally.
	now := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC).In(loc)

	w, err := ResolveWindow(Monthly, now)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, loc)
	if !w.Start.Equal(want) {
		t.Fatalf("start = %v, want %v", w.Start, want)
	}
}

func TestWindowContainsBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	w := Window{Start: start, End: end}

	if !w.Contains(start) || !w.Contains(end) {
		t.Fatal("bounds must be included")
	}
	if w.Contains(start.Add(-time.Nanosecond)) || w.Contains(end.Add(time.Nanosecond)) {
		t.Fatal("outside instants must be excluded")
	}
}

func TestParseRange(t *testing.T) {
	if r, err := ParseRange("MONTHLY"); err != nil || r != Monthly {
		t.Fatalf("got %v %v", r, err)
	}
	if _, err := ParseRange("hourly"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestEndOfDay(t *testing.T) {
	d := time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)
	want := time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC)
	if got := EndOfDay(d); !got.Equal(want) {
		t.Fatalf("EndOfDay = %v, want %v", got, want)
	}
}
