package billingcycle

import (
	"testing"
	"time"

	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name      string
		anchor    int
		ref       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "anchor 31 in march of a non leap year",
			anchor:    31,
			ref:       time.Date(2023, time.March, 10, 14, 30, 0, 0, time.UTC),
			wantStart: date(2023, time.February, 28),
			wantEnd:   date(2023, time.March, 28),
		},
		{
			name:      "anchor 31 in march of a leap year",
			anchor:    31,
			ref:       date(2024, time.March, 1),
			wantStart: date(2024, time.February, 29),
			wantEnd:   date(2024, time.March, 29),
		},
		{
			name:      "anchor 31 from a 31 day previous month",
			anchor:    31,
			ref:       date(2024, time.February, 5),
			wantStart: date(2024, time.January, 31),
			wantEnd:   date(2024, time.February, 29),
		},
		{
			name:      "anchor 30 in may",
			anchor:    30,
			ref:       date(2024, time.May, 20),
			wantStart: date(2024, time.April, 30),
			wantEnd:   date(2024, time.May, 30),
		},
		{
			name:      "january reference crosses the year",
			anchor:    15,
			ref:       date(2024, time.January, 2),
			wantStart: date(2023, time.December, 15),
			wantEnd:   date(2024, time.January, 15),
		},
		{
			name:      "anchor 1",
			anchor:    1,
			ref:       date(2024, time.July, 31),
			wantStart: date(2024, time.June, 1),
			wantEnd:   date(2024, time.July, 1),
		},
		{
			name:      "anchor below range is clamped to 1",
			anchor:    0,
			ref:       date(2024, time.July, 31),
			wantStart: date(2024, time.June, 1),
			wantEnd:   date(2024, time.July, 1),
		},
		{
			name:      "anchor above range is clamped to 31",
			anchor:    40,
			ref:       date(2023, time.March, 3),
			wantStart: date(2023, time.February, 28),
			wantEnd:   date(2023, time.March, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Window(tt.anchor, tt.ref)
			assert.Equal(t, tt.wantStart, got.StartDate)
			assert.Equal(t, tt.wantEnd, got.EndDate)
		})
	}
}

// Every anchor across two years of reference months
func TestWindowProperties(t *testing.T) {
	ref := date(2023, time.January, 17)
	for i := 0; i < 24; i++ {
		r := ref.AddDate(0, i, 0)
		py, pm := previousMonth(r)
		daysInPrev := types.DaysInMonth(py, pm, time.UTC)

		for d := 1; d <= 31; d++ {
			c := Window(d, r)

			require.Equal(t, min(d, daysInPrev), c.StartDate.Day(), "anchor %d ref %s", d, r)
			require.Equal(t, pm, c.StartDate.Month())
			require.Equal(t, types.AddClampedDate(c.StartDate, 0, 1, 0), c.EndDate)
			require.True(t, c.EndDate.After(c.StartDate))
			require.Equal(t, r.Month(), c.EndDate.Month(), "end always lands in the reference month")
			require.Zero(t, c.StartDate.Hour())
		}
	}
}

func TestWindowKeepsLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	c := Window(10, time.Date(2024, time.June, 1, 23, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, loc), c.StartDate)
	assert.Equal(t, loc, c.EndDate.Location())
}

func TestContains(t *testing.T) {
	c := BillingCycle{StartDate: date(2024, time.January, 15), EndDate: date(2024, time.February, 15)}

	assert.True(t, c.Contains(date(2024, time.January, 15)))
	assert.True(t, c.Contains(date(2024, time.February, 15).Add(-time.Nanosecond)))
	assert.False(t, c.Contains(date(2024, time.February, 15)))
	assert.False(t, c.Contains(date(2024, time.January, 14)))
}

func TestDescription(t *testing.T) {
	c := BillingCycle{StartDate: date(2023, time.February, 28), EndDate: date(2023, time.March, 28)}
	assert.Equal(t, "Feb, 28 - Mar, 28", c.Description())

	c = BillingCycle{StartDate: date(2024, time.January, 5), EndDate: date(2024, time.February, 5)}
	assert.Equal(t, "Jan, 05 - Feb, 05", c.Description())
}
