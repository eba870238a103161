package calendar

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCovariates(t *testing.T) {
	c := New()

	testData := map[string]struct {
		date     time.Time
		expected map[string]float64
	}{
		"new years day on a saturday": {
			date:     day(2011, 1, 1),
			expected: map[string]float64{Holiday: 0, Weekday: 6, Workingday: 0, Season: 1},
		},
		"mlk day": {
			date:     day(2011, 1, 17),
			expected: map[string]float64{Holiday: 1, Weekday: 1, Workingday: 0, Season: 1},
		},
		"regular tuesday": {
			date:     day(2011, 1, 18),
			expected: map[string]float64{Holiday: 0, Weekday: 2, Workingday: 1, Season: 1},
		},
		"independence day": {
			date:     day(2011, 7, 4),
			expected: map[string]float64{Holiday: 1, Weekday: 1, Workingday: 0, Season: 3},
		},
		"thanksgiving": {
			date:     day(2012, 11, 22),
			expected: map[string]float64{Holiday: 1, Weekday: 4, Workingday: 0, Season: 4},
		},
		"sunday in spring": {
			date:     day(2012, 4, 1),
			expected: map[string]float64{Holiday: 0, Weekday: 0, Workingday: 0, Season: 2},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, c.Covariates(td.date))
		})
	}
}

func TestCustomHolidays(t *testing.T) {
	c := New([]*cal.Holiday{us.ChristmasDay}...)
	assert.True(t, c.IsHoliday(day(2024, 12, 25)))
	assert.False(t, c.IsHoliday(day(2024, 11, 28)))
	assert.True(t, New().IsHoliday(day(2024, 11, 28)))
}

func TestSeasonOf(t *testing.T) {
	testData := map[string]struct {
		date     time.Time
		expected int
	}{
		"winter start":  {date: day(2011, 12, 21), expected: 1},
		"winter end":    {date: day(2011, 3, 20), expected: 1},
		"spring start":  {date: day(2011, 3, 21), expected: 2},
		"summer start":  {date: day(2011, 6, 21), expected: 3},
		"fall start":    {date: day(2011, 9, 23), expected: 4},
		"fall end":      {date: day(2011, 12, 20), expected: 4},
		"new years day": {date: day(2011, 1, 1), expected: 1},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, SeasonOf(td.date))
		})
	}
}

func TestHorizon(t *testing.T) {
	c := New()

	days, err := c.Horizon(day(2011, 1, 14), 3, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, day(2011, 1, 15), days[0].Date)
	assert.Equal(t, day(2011, 1, 17), days[2].Date)
	assert.Equal(t, 1.0, days[2].Covariates[Holiday])

	days, err = c.Horizon(day(2011, 1, 14), 0, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, days)

	_, err = c.Horizon(day(2011, 1, 14), 3, 0)
	assert.ErrorIs(t, err, ErrNonPositiveStep)

	_, err = c.Horizon(day(2011, 1, 14), -1, time.Hour)
	assert.ErrorIs(t, err, ErrNegativeCount)
}
