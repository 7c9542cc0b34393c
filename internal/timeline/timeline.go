// internal/timeline/timeline.go

// Package timeline holds the per-sprint simulated clock: the sprint's
// date range plus a signed day offset applied on top of the wall
// clock. The wall-clock "today" is always passed in by the caller so
// the math stays deterministic and testable.
package timeline

import (
	"time"

	"devsprint-service/internal/apperrors"
)

// Timeline is the date state of one sprint. OffsetDays may go
// negative when an operator retargets the countdown past "today".
type Timeline struct {
	StartDate  time.Time
	EndDate    time.Time
	OffsetDays int
}

// DateOf truncates t to a UTC calendar date. All snapshot and
// countdown math happens on these day-granular values.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CurrentDate is today shifted by the simulated offset.
func (tl Timeline) CurrentDate(today time.Time) time.Time {
	return DateOf(today).AddDate(0, 0, tl.OffsetDays)
}

// Countdown is the number of days from the current simulated date to
// the sprint end. Negative means the sprint is overdue.
func (tl Timeline) Countdown(today time.Time) int {
	return daysBetween(tl.CurrentDate(today), DateOf(tl.EndDate))
}

// AdvanceBy moves the simulated clock forward n days. n must be
// strictly positive; it is never clamped.
func (tl *Timeline) AdvanceBy(n int) error {
	if n <= 0 {
		return apperrors.InvalidArgumentf("days must be positive, got %d", n)
	}
	tl.OffsetDays += n
	return nil
}

// SetRemainingDays recomputes the offset so that Countdown(today)
// returns exactly r. Start and end dates are never touched, which
// keeps previously recorded snapshot dates meaningful.
func (tl *Timeline) SetRemainingDays(today time.Time, r int) error {
	if r < 0 {
		return apperrors.InvalidArgumentf("remaining days must be non-negative, got %d", r)
	}
	tl.OffsetDays = daysBetween(DateOf(today), DateOf(tl.EndDate)) - r
	return nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
