package core

import (
	"testing"
	"time"
)

func TestEditPolicy_CanEdit(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	p := DefaultEditPolicy()

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"just created", 0, true},
		{"eleven hours", 11 * time.Hour, true},
		{"exactly twelve hours", 12 * time.Hour, true},
		{"one nanosecond past", 12*time.Hour + time.Nanosecond, false},
		{"a day later", 24 * time.Hour, false},
		{"clock skew into the past", -time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanEdit(created.Add(tt.elapsed), created); got != tt.want {
				t.Errorf("CanEdit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEditPolicy_Remaining(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	p := DefaultEditPolicy()

	if got := p.Remaining(created.Add(2*time.Hour), created); got != 10*time.Hour {
		t.Fatalf("Remaining = %v, want 10h", got)
	}
	if got := p.Remaining(created.Add(13*time.Hour), created); got != 0 {
		t.Fatalf("Remaining after expiry = %v, want 0", got)
	}
	if got := p.RemainingHours(created.Add(150*time.Minute), created); got != 10 {
		t.Fatalf("RemainingHours = %d, want 10", got)
	}
	if got := p.RemainingHours(created.Add(13*time.Hour), created); got != 0 {
		t.Fatalf("RemainingHours after expiry = %d, want 0", got)
	}
	if !p.EditableUntil(created).Equal(created.Add(12 * time.Hour)) {
		t.Fatal("EditableUntil should be creation + 12h")
	}
}

func TestEditPolicy_CustomWindow(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	p := EditPolicy{Window: time.Hour}
	if p.CanEdit(created.Add(61*time.Minute), created) {
		t.Fatal("custom one-hour window should be expired")
	}
	if !(EditPolicy{}).CanEdit(created.Add(12*time.Hour), created) {
		t.Fatal("zero policy should fall back to 12h")
	}
}
