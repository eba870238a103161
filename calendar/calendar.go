// Package calendar derives day level covariates such as holiday, weekday and working day flags
// from a date so future rows can be built when a data source has none.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// covariate column names
const (
	Holiday    = "holiday"
	Weekday    = "weekday"
	Workingday = "workingday"
	Season     = "season"
)

var (
	ErrNonPositiveStep = errors.New("step between days must be positive")
	ErrNegativeCount   = errors.New("number of days must be non-negative")
)

// FederalHolidays are the US federal holidays recognized by default
var FederalHolidays = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	us.MemorialDay,
	us.IndependenceDay,
	us.LaborDay,
	us.ColumbusDay,
	us.VeteransDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// Calendar flags observed holidays and working days
type Calendar struct {
	holidays []*cal.Holiday
}

// New creates a calendar from a list of holidays. If none are provided the US federal
// holidays are used.
func New(holidays ...*cal.Holiday) *Calendar {
	if len(holidays) == 0 {
		holidays = FederalHolidays
	}
	h := make([]*cal.Holiday, len(holidays))
	copy(h, holidays)
	return &Calendar{holidays: h}
}

// IsHoliday reports whether any holiday is observed on the date. Observed dates can fall in
// the previous year so the following year's holidays are checked as well.
func (c *Calendar) IsHoliday(date time.Time) bool {
	y, m, d := date.Date()
	for _, hol := range c.holidays {
		for _, year := range []int{y, y + 1} {
			_, observed := hol.Calc(year)
			if observed.IsZero() {
				continue
			}
			oy, om, od := observed.Date()
			if oy == y && om == m && od == d {
				return true
			}
		}
	}
	return false
}

// IsWorkingday reports whether the date is neither a weekend nor an observed holiday
func (c *Calendar) IsWorkingday(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(date)
}

// Covariates returns the calendar covariates of a date. Weekday counts from 0 on Sunday and
// the flags are 0 or 1.
func (c *Calendar) Covariates(date time.Time) map[string]float64 {
	return map[string]float64{
		Holiday:    boolToFloat(c.IsHoliday(date)),
		Weekday:    float64(date.Weekday()),
		Workingday: boolToFloat(c.IsWorkingday(date)),
		Season:     float64(SeasonOf(date)),
	}
}

// Names lists the covariates produced by Covariates
func Names() []string {
	return []string{Holiday, Weekday, Workingday, Season}
}

// SeasonOf returns 1 through 4 for the astronomical season starting with the one that begins
// at the December solstice
func SeasonOf(date time.Time) int {
	_, m, d := date.Date()
	md := int(m)*100 + d
	switch {
	case md >= 1221 || md < 321:
		return 1
	case md < 621:
		return 2
	case md < 923:
		return 3
	}
	return 4
}

// Day is a future date along with its calendar covariates
type Day struct {
	Date       time.Time
	Covariates map[string]float64
}

// Horizon builds n days following last spaced by step
func (c *Calendar) Horizon(last time.Time, n int, step time.Duration) ([]Day, error) {
	if step <= 0 {
		return nil, fmt.Errorf("got step %s, %w", step, ErrNonPositiveStep)
	}
	if n < 0 {
		return nil, fmt.Errorf("got %d days, %w", n, ErrNegativeCount)
	}

	days := make([]Day, 0, n)
	for i := 1; i <= n; i++ {
		date := last.Add(time.Duration(i) * step)
		days = append(days, Day{
			Date:       date,
			Covariates: c.Covariates(date),
		})
	}
	return days, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
