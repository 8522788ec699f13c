// Package spend tracks cumulative provider cost per calendar day.
//
// The read-before-call / record-after-call pattern used by callers is a
// soft limit: two concurrent calls can both pass the cap check before
// either records its cost. The store only guarantees that each increment
// itself is atomic.
package spend

import (
	"context"
	"time"
)

// Store is a date-keyed accumulator of spend in USD.
type Store interface {
	// Get returns the accumulated spend for the given day key.
	// A day with no recorded spend returns 0.
	Get(ctx context.Context, day string) (float64, error)

	// Add atomically adds amount to the given day's total.
	Add(ctx context.Context, day string, amount float64) error
}

// Retention window for day keys in external stores, for auditability.
const RetentionDays = 7

// DayKey returns the store key for the calendar day of t.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
