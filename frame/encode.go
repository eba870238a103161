package frame

import (
	"fmt"
	"io"
	"strconv"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
	"github.com/goccy/go-json"
)

// resultFrame is the list oriented form of forecast results
type resultFrame struct {
	Date            []string  `json:"dteday"`
	SiteID          []string  `json:"site_id"`
	Forecast        []int     `json:"forecast"`
	ForecastAverage []float64 `json:"forecast_average,omitempty"`
}

// indexFrame is the index oriented form of forecast results
type indexFrame struct {
	Date            map[string]string  `json:"dteday"`
	SiteID          map[string]string  `json:"site_id"`
	Forecast        map[string]int     `json:"forecast"`
	ForecastAverage map[string]float64 `json:"forecast_average,omitempty"`
}

func toResultFrame(res *forecaster.Results) resultFrame {
	f := resultFrame{
		Date:     make([]string, 0, res.Len()),
		SiteID:   make([]string, 0, res.Len()),
		Forecast: make([]int, 0, res.Len()),
	}
	if res == nil {
		return f
	}
	for i := range res.Forecast {
		f.Date = append(f.Date, res.T[i].Format(time.DateOnly))
		f.SiteID = append(f.SiteID, res.SiteID[i])
		f.Forecast = append(f.Forecast, res.Forecast[i])
	}
	if len(res.ForecastAverage) > 0 {
		f.ForecastAverage = append([]float64(nil), res.ForecastAverage...)
	}
	return f
}

func toIndexFrame(res *forecaster.Results) indexFrame {
	lf := toResultFrame(res)
	f := indexFrame{
		Date:     make(map[string]string, len(lf.Forecast)),
		SiteID:   make(map[string]string, len(lf.Forecast)),
		Forecast: make(map[string]int, len(lf.Forecast)),
	}
	for i := range lf.Forecast {
		k := strconv.Itoa(i)
		f.Date[k] = lf.Date[i]
		f.SiteID[k] = lf.SiteID[i]
		f.Forecast[k] = lf.Forecast[i]
	}
	if len(lf.ForecastAverage) > 0 {
		f.ForecastAverage = make(map[string]float64, len(lf.ForecastAverage))
		for i, v := range lf.ForecastAverage {
			f.ForecastAverage[strconv.Itoa(i)] = v
		}
	}
	return f
}

func resultsFrame(res *forecaster.Results, orient Orient) (any, error) {
	switch orient {
	case OrientList, "":
		return toResultFrame(res), nil
	case OrientIndex:
		return toIndexFrame(res), nil
	}
	return nil, fmt.Errorf("unknown orient %q", orient)
}

// EncodeResults writes the forecast results as a table with dates formatted as YYYY-MM-DD
func EncodeResults(w io.Writer, res *forecaster.Results, orient Orient) error {
	out, err := resultsFrame(res, orient)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(out)
}

// EncodeSiteResults writes one result table per site as a list of tables
func EncodeSiteResults(w io.Writer, res []forecaster.SiteResults, orient Orient) error {
	frames := make([]any, 0, len(res))
	for _, sr := range res {
		out, err := resultsFrame(sr.Results, orient)
		if err != nil {
			return err
		}
		frames = append(frames, out)
	}
	return json.NewEncoder(w).Encode(frames)
}

// EncodeSeries writes the forecast of a single series
func EncodeSeries(w io.Writer, res *forecaster.SeriesResult) error {
	return json.NewEncoder(w).Encode(res)
}

// EncodeObservations writes rows as a list oriented table with the named covariate columns.
// Rows missing a covariate are written with a null value.
func EncodeObservations(w io.Writer, rows []forecaster.Observation, exog []string) error {
	out := make(map[string]any, 3+len(exog))
	dates := make([]string, 0, len(rows))
	sites := make([]string, 0, len(rows))
	counts := make([]int, 0, len(rows))
	covs := make(map[string][]*float64, len(exog))
	for _, r := range rows {
		dates = append(dates, r.Date.Format(time.DateOnly))
		sites = append(sites, r.SiteID)
		counts = append(counts, r.Count)
		for _, name := range exog {
			var val *float64
			if v, exists := r.Covariates[name]; exists {
				val = &v
			}
			covs[name] = append(covs[name], val)
		}
	}
	out[ColDate] = dates
	out[ColSiteID] = sites
	out[ColCount] = counts
	for _, name := range exog {
		col := covs[name]
		if col == nil {
			col = []*float64{}
		}
		out[name] = col
	}
	return json.NewEncoder(w).Encode(out)
}
