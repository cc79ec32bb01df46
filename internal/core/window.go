// This file implements the Strategy Pattern for aggregation windows.
// Each range (daily, weekly, monthly, yearly) has its own resolver that
// computes where the window starts relative to "now".

package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Range = "daily"
	Weekly  Range = "weekly"
	Monthly Range = "monthly"
	Yearly  Range = "yearly"
)

// Range names an aggregation window resolved against the current time.
type Range string

// ParseRange normalises s and validates it.
func ParseRange(s string) (Range, error) {
	r := Range(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := windowStrategies[r]; !ok {
		return r, ErrInvalidRange
	}
	return r, nil
}

// Window is the closed interval [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// WindowResolver is the strategy interface for computing the start of a window.
type WindowResolver interface {
	// Start returns the first instant of the window ending at now.
	Start(now time.Time) time.Time
	// Calendar reports whether the start is anchored to a calendar boundary
	// (and therefore stable for the rest of that day, month or year).
	Calendar() bool
}

// DayStart starts at midnight of the current calendar day.
type DayStart struct{}

func (DayStart) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func (DayStart) Calendar() bool { return true }

// RollingWeek starts exactly 7×24h before now.
type RollingWeek struct{}

func (RollingWeek) Start(now time.Time) time.Time {
	return now.Add(-7 * 24 * time.Hour)
}

func (RollingWeek) Calendar() bool { return false }

// MonthStart starts at the first day of the current calendar month.
type MonthStart struct{}

func (MonthStart) Start(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

func (MonthStart) Calendar() bool { return true }

// YearStart starts on January 1st of the current calendar year.
type YearStart struct{}

func (YearStart) Start(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}

func (YearStart) Calendar() bool { return true }

// windowStrategies maps ranges to their resolvers.
var windowStrategies = map[Range]WindowResolver{
	Daily:   DayStart{},
	Weekly:  RollingWeek{},
	Monthly: MonthStart{},
	Yearly:  YearStart{},
}

// GetWindowResolver returns the resolver registered for r.
func GetWindowResolver(r Range) (WindowResolver, error) {
	resolver, ok := windowStrategies[r]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, string(r))
	}
	return resolver, nil
}

// ResolveWindow returns the window for r ending at now. Calendar boundaries
// are computed in now's location.
func ResolveWindow(r Range, now time.Time) (Window, error) {
	resolver, err := GetWindowResolver(r)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: resolver.Start(now), End: now}, nil
}

// EndOfDay returns the last nanosecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
