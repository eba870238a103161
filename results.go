package forecaster

import (
	"time"

	"github.com/aouyang1/go-arimax/util"
)

// Result is a single forecast row
type Result struct {
	Date            time.Time `json:"dteday"`
	SiteID          string    `json:"site_id"`
	Forecast        int       `json:"forecast"`
	ForecastAverage *float64  `json:"forecast_average,omitempty"`
}

// Results holds the forecast rows in columnar form. ForecastAverage is empty unless the
// average was requested, in which case every row carries the same mean of the window.
type Results struct {
	T               []time.Time `json:"dteday"`
	SiteID          []string    `json:"site_id"`
	Forecast        []int       `json:"forecast"`
	ForecastAverage []float64   `json:"forecast_average,omitempty"`
}

// NewResults zips forecasts onto the future rows they were produced for
func NewResults(future []Observation, forecast []int, withAverage bool) *Results {
	r := &Results{
		T:        make([]time.Time, 0, len(future)),
		SiteID:   make([]string, 0, len(future)),
		Forecast: make([]int, 0, len(future)),
	}
	for i, row := range future {
		r.T = append(r.T, row.Date)
		r.SiteID = append(r.SiteID, row.SiteID)
		r.Forecast = append(r.Forecast, forecast[i])
	}
	if withAverage && len(forecast) > 0 {
		avg := util.MeanInt(forecast)
		r.ForecastAverage = make([]float64, len(forecast))
		for i := range r.ForecastAverage {
			r.ForecastAverage[i] = avg
		}
	}
	return r
}

// Len returns the number of forecast rows
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Forecast)
}

// Rows returns the results as a slice of rows
func (r *Results) Rows() []Result {
	if r == nil {
		return nil
	}
	rows := make([]Result, 0, len(r.Forecast))
	for i := range r.Forecast {
		res := Result{
			Date:     r.T[i],
			SiteID:   r.SiteID[i],
			Forecast: r.Forecast[i],
		}
		if i < len(r.ForecastAverage) {
			avg := r.ForecastAverage[i]
			res.ForecastAverage = &avg
		}
		rows = append(rows, res)
	}
	return rows
}

// SeriesResult is the fixed horizon forecast of a single count series and the mean of
// that window
type SeriesResult struct {
	Forecast      []int   `json:"forecast"`
	WeeklyAverage float64 `json:"weekly_average"`
}
