// Package billingcycle derives the last elapsed billing cycle for a customer's anchor day.
package billingcycle

import (
	"fmt"
	"time"

	"github.com/flexprice/debitsync/internal/types"
)

const (
	minAnchorDay = 1
	maxAnchorDay = 31

	// DescriptionLayout renders a cycle boundary as "Jan, 02"
	DescriptionLayout = "Jan, 02"
)

// BillingCycle is the half-open window [StartDate, EndDate)
type BillingCycle struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Window returns the cycle that started on anchorDay of the month before ref.
// The start day is clamped to the length of that month, and the cycle lasts
// exactly one calendar month. Both bounds are midnight in ref's location.
func Window(anchorDay int, ref time.Time) BillingCycle {
	anchorDay = clampAnchor(anchorDay)

	loc := ref.Location()
	prevYear, prevMonth := previousMonth(ref)
	startDay := min(anchorDay, types.DaysInMonth(prevYear, prevMonth, loc))

	start := time.Date(prevYear, prevMonth, startDay, 0, 0, 0, 0, loc)
	return BillingCycle{
		StartDate: start,
		EndDate:   types.AddClampedDate(start, 0, 1, 0),
	}
}

// Contains reports whether t falls inside the cycle
func (c BillingCycle) Contains(t time.Time) bool {
	return !t.Before(c.StartDate) && t.Before(c.EndDate)
}

// Description is the human readable range used on invoice line items
func (c BillingCycle) Description() string {
	return fmt.Sprintf("%s - %s", c.StartDate.Format(DescriptionLayout), c.EndDate.Format(DescriptionLayout))
}

func (c BillingCycle) String() string {
	return fmt.Sprintf("[%s, %s)", c.StartDate.Format(time.RFC3339), c.EndDate.Format(time.RFC3339))
}

func previousMonth(ref time.Time) (int, time.Month) {
	y, m, _ := ref.Date()
	if m == time.January {
		return y - 1, time.December
	}
	return y, m - 1
}

func clampAnchor(day int) int {
	if day < minAnchorDay {
		return minAnchorDay
	}
	if day > maxAnchorDay {
		return maxAnchorDay
	}
	return day
}
