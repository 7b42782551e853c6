package travel

import (
	"errors"
	"time"
)

// MinLeadTime is how far in the future a trip must start to be bookable.
const MinLeadTime = 24 * time.Hour

var (
	ErrEndBeforeStart = errors.New("date range end must be after start")
	ErrTooSoon        = errors.New("date range must start at least 24 hours from now")
)

// Validate checks the booking rules for a date range against now.
func (d DateRange) Validate(now time.Time) error {
	if !d.End.After(d.Start) {
		return ErrEndBeforeStart
	}
	if d.Start.Before(now.Add(MinLeadTime)) {
		return ErrTooSoon
	}
	return nil
}
