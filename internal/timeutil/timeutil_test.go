package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{" 12:05 ", 725, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"-1:00", 0, true},
		{"1200", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockRoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		got, err := ParseClock(FormatClock(m))
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
}

func TestOverlaps(t *testing.T) {
	// Half-open intervals: touching endpoints do not overlap.
	assert.False(t, Overlaps(540, 600, 600, 660))
	assert.False(t, Overlaps(600, 660, 540, 600))
	assert.True(t, Overlaps(540, 601, 600, 660))
	assert.True(t, Overlaps(540, 660, 570, 580))
	assert.True(t, Overlaps(570, 580, 540, 660))
}

func TestWeekdayNumber(t *testing.T) {
	wd, ok := WeekdayNumber("Monday")
	require.True(t, ok)
	assert.Equal(t, time.Monday, wd)

	wd, ok = WeekdayNumber("sunday")
	require.True(t, ok)
	assert.Equal(t, time.Sunday, wd)

	_, ok = WeekdayNumber("Funday")
	assert.False(t, ok)
}

func TestDatesForWeekday(t *testing.T) {
	// 2025-06-02 is a Monday.
	start, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	end, err := ParseDate("2025-06-30")
	require.NoError(t, err)

	mondays := DatesForWeekday(start, end, time.Monday)
	require.Len(t, mondays, 5)
	assert.Equal(t, "2025-06-02", FormatDate(mondays[0]))
	assert.Equal(t, "2025-06-30", FormatDate(mondays[4]))

	// Range starting on the target weekday includes it.
	sundays := DatesForWeekday(start, end, time.Sunday)
	require.NotEmpty(t, sundays)
	assert.Equal(t, "2025-06-01", FormatDate(sundays[0]))

	// Empty range.
	assert.Empty(t, DatesForWeekday(end, start, time.Monday))
}
