package core

import "time"

// DefaultEditWindow is how long after creation a transaction stays editable.
const DefaultEditWindow = 12 * time.Hour

// EditPolicy decides whether a transaction may still be modified. The window
// is anchored to the original creation time; editing never renews it.
type EditPolicy struct {
	Window time.Duration
}

// DefaultEditPolicy returns the 12-hour policy.
func DefaultEditPolicy() EditPolicy {
	return EditPolicy{Window: DefaultEditWindow}
}

func (p EditPolicy) window() time.Duration {
	if p.Window <= 0 {
		return DefaultEditWindow
	}
	return p.Window
}

// CanEdit reports whether a transaction created at createdAt is editable at now.
// The boundary itself (exactly Window elapsed) is still editable.
func (p EditPolicy) CanEdit(now, createdAt time.Time) bool {
	return now.Sub(createdAt) <= p.window()
}

// EditableUntil returns the last instant at which an edit is accepted.
func (p EditPolicy) EditableUntil(createdAt time.Time) time.Time {
	return createdAt.Add(p.window())
}

// Remaining returns the time left to edit, never negative.
func (p EditPolicy) Remaining(now, createdAt time.Time) time.Duration {
	left := p.EditableUntil(createdAt).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// RemainingHours is the whole-hour countdown shown to users:
// window hours minus elapsed whole hours, clamped to zero once expired.
func (p EditPolicy) RemainingHours(now, createdAt time.Time) int {
	if !p.CanEdit(now, createdAt) {
		return 0
	}
	elapsed := int(now.Sub(createdAt) / time.Hour)
	if elapsed < 0 {
		elapsed = 0
	}
	left := int(p.window()/time.Hour) - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// CanEdit applies the default 12-hour policy.
func CanEdit(now, createdAt time.Time) bool {
	return DefaultEditPolicy().CanEdit(now, createdAt)
}
