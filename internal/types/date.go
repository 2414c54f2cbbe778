package types

import (
	"time"
)

// AddClampedDate adds the given number of years, months and days to t.
// Unlike time.AddDate it never overflows into the following month: adding one
// month to Jan 31 lands on Feb 28 (or 29), not on Mar 3.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	// Calculate the proposed year and month
	newY := y + years
	newM := time.Month(int(m) + months)

	// If we move beyond December, it adjusts correctly,
	// for example adding 2 months to November will land on January next year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	lastDay := DaysInMonth(newY, newM, t.Location())

	newD := d + days
	if newD > lastDay {
		// Clamp to last valid day
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given calendar month
func DaysInMonth(year int, month time.Month, loc *time.Location) int {
	// day 0 of the next month normalises to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
