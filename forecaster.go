// Package forecaster produces daily count forecasts for a site from a table of observations
// mixing historical rows with future rows marked by a sentinel count. The historical counts
// are fit with an ARIMA model regressed on the row covariates and one integer forecast is
// returned per future row.
package forecaster

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-arimax/arima"
	"github.com/aouyang1/go-arimax/calendar"
	"github.com/aouyang1/go-arimax/feature"
	"github.com/aouyang1/go-arimax/timedataset"
	"github.com/aouyang1/go-arimax/util"
)

var (
	ErrNoHistory            = errors.New("no historical rows to fit")
	ErrMixedSites           = errors.New("rows span more than one site")
	ErrMissingCovariate     = errors.New("row is missing an exogenous covariate")
	ErrNonFiniteCovariate   = errors.New("exogenous covariate is NaN or Inf")
	ErrSentinelOrder        = errors.New("future rows must follow all historical rows")
	ErrNonContiguousHorizon = errors.New("future rows are not contiguous with the history")
	ErrUnfitForecaster      = errors.New("forecaster has not been fit yet")
)

// Forecaster fits an ARIMA model per invocation and forecasts the future rows. A Forecaster
// keeps the model of its latest invocation for inspection and is not safe for concurrent use.
type Forecaster struct {
	opt *Options

	model        *arima.Model
	exogLabels   *feature.Labels
	siteID       string
	trainingData *timedataset.TimeDataset
}

// New creates a new instance of a Forecaster using the provided options. If no options are
// provided a default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate forecaster options, %w", err)
	}
	return &Forecaster{opt: opt}, nil
}

// Options returns a copy of the options of the forecaster
func (f *Forecaster) Options() Options {
	opt := *f.opt
	opt.Exog = append([]string(nil), f.opt.Exog...)
	arimaOpt := *f.opt.ARIMA
	opt.ARIMA = &arimaOpt
	return opt
}

// Forecast partitions rows into history and future rows, fits the history and returns one
// rounded forecast per future row in input order. An empty set of future rows returns empty
// results.
func (f *Forecaster) Forecast(rows []Observation) (*Results, error) {
	f.reset()

	hist, future := Partition(rows, f.opt.Sentinel)
	if len(hist) == 0 {
		return nil, ErrNoHistory
	}
	if err := validateRows(rows, f.opt.Sentinel); err != nil {
		return nil, err
	}

	histSet, err := f.covariateSet(hist)
	if err != nil {
		return nil, fmt.Errorf("invalid historical rows, %w", err)
	}
	futureSet, err := f.covariateSet(future)
	if err != nil {
		return nil, fmt.Errorf("invalid future rows, %w", err)
	}

	t := make([]time.Time, 0, len(hist))
	y := make([]float64, 0, len(hist))
	for _, r := range hist {
		t = append(t, r.Date)
		y = append(y, float64(r.Count))
	}
	x := make(map[string][]float64, histSet.Width())
	for _, label := range histSet.Labels().Labels() {
		x[label.String()], _ = histSet.Get(label)
	}
	td, err := timedataset.NewExogDataset(t, y, x)
	if err != nil {
		return nil, fmt.Errorf("unable to create training dataset, %w", err)
	}
	if err := validateHorizon(td.T, future); err != nil {
		return nil, err
	}

	histRows, err := td.ExogRows(f.opt.Exog)
	if err != nil {
		return nil, fmt.Errorf("unable to build exogenous rows, %w", err)
	}
	if len(f.opt.Exog) == 0 {
		histRows = nil
	}

	siteID := hist[0].SiteID
	model, err := arima.New(f.opt.ARIMA)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(td.Y, histRows); err != nil {
		return nil, fmt.Errorf("unable to fit site %s, %w", siteID, err)
	}

	f.model = model
	f.exogLabels = histSet.Labels()
	f.siteID = siteID
	f.trainingData = td

	values, err := model.Forecast(len(future), futureSet.Rows())
	if err != nil {
		return nil, fmt.Errorf("unable to forecast site %s, %w", siteID, err)
	}
	return NewResults(future, util.RoundToInt(values), f.opt.WithAverage), nil
}

// ForecastSeries fits a single count series without covariates and forecasts SeriesSteps
// values along with their mean
func (f *Forecaster) ForecastSeries(counts []float64) (*SeriesResult, error) {
	f.reset()

	if len(counts) == 0 {
		return nil, ErrNoHistory
	}

	model, err := arima.New(f.opt.ARIMA)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(counts, nil); err != nil {
		return nil, fmt.Errorf("unable to fit series, %w", err)
	}
	f.model = model

	values, err := model.Forecast(f.opt.SeriesSteps, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast series, %w", err)
	}
	forecast := util.RoundToInt(values)
	return &SeriesResult{
		Forecast:      forecast,
		WeeklyAverage: util.MeanInt(forecast),
	}, nil
}

// reset drops the fit of a previous call so a failed call leaves nothing to inspect
func (f *Forecaster) reset() {
	f.model = nil
	f.exogLabels = nil
	f.siteID = ""
	f.trainingData = nil
}

// validateRows checks that all rows belong to one site and that no historical row follows a
// future row
func validateRows(rows []Observation, sentinel int) error {
	seenFuture := false
	for i, r := range rows {
		if r.SiteID != rows[0].SiteID {
			return fmt.Errorf("row %d has site %q, expected %q, %w", i, r.SiteID, rows[0].SiteID, ErrMixedSites)
		}
		if r.IsFuture(sentinel) {
			seenFuture = true
			continue
		}
		if seenFuture {
			return fmt.Errorf("historical row %d on %s, %w", i, r.Date.Format(time.DateOnly), ErrSentinelOrder)
		}
	}
	return nil
}

// validateHorizon checks the future rows continue the history at its most common interval
func validateHorizon(histT []time.Time, future []Observation) error {
	if len(future) == 0 {
		return nil
	}
	futureT := make(timedataset.TimeSlice, 0, len(future))
	for _, r := range future {
		futureT = append(futureT, r.Date)
	}

	last := timedataset.TimeSlice(histT).EndTime()
	if !futureT.StartTime().After(last) {
		return fmt.Errorf("first future row on %s is not after last historical row on %s, %w",
			futureT.StartTime().Format(time.DateOnly), last.Format(time.DateOnly), ErrSentinelOrder)
	}

	freq, err := timedataset.TimeSlice(histT).EstimateFreq()
	if errors.Is(err, timedataset.ErrCannotInferFreq) {
		// a single historical row is rejected by the fit
		return nil
	}
	if err != nil {
		return err
	}
	if !futureT.Continues(last, freq) {
		return fmt.Errorf("expected future rows every %s after %s, %w", freq, last.Format(time.DateOnly), ErrNonContiguousHorizon)
	}
	return nil
}

func (f *Forecaster) covariateSet(rows []Observation) (*feature.Set, error) {
	set := feature.NewSet()
	for _, name := range f.opt.Exog {
		col := make([]float64, len(rows))
		for i, r := range rows {
			v, exists := r.Covariates[name]
			if !exists {
				return nil, fmt.Errorf("row on %s has no %s, %w", r.Date.Format(time.DateOnly), name, ErrMissingCovariate)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row on %s has %s=%f, %w", r.Date.Format(time.DateOnly), name, v, ErrNonFiniteCovariate)
			}
			col[i] = v
		}
		if err := set.Add(covariateFeature(name), col); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func covariateFeature(name string) feature.Feature {
	for _, c := range calendar.Names() {
		if c == name {
			return feature.NewCalendarCovariate(name)
		}
	}
	return feature.NewCovariate(name)
}

// Fitted reports whether the forecaster holds a fit model
func (f *Forecaster) Fitted() bool {
	return f.model != nil && f.model.Fitted()
}

// TrainingData returns the history of the latest Forecast call
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	if f.trainingData == nil {
		return nil
	}
	return f.trainingData.Copy()
}

// FittedValues returns the one step ahead in-sample predictions of the latest fit
func (f *Forecaster) FittedValues() []float64 {
	if f.model == nil {
		return nil
	}
	return f.model.FittedValues()
}

// Residuals returns the innovations of the latest fit
func (f *Forecaster) Residuals() []float64 {
	if f.model == nil {
		return nil
	}
	return f.model.Residuals()
}

// ModelEq returns a string representation of the latest fit model
func (f *Forecaster) ModelEq() (string, error) {
	if !f.Fitted() {
		return "", ErrUnfitForecaster
	}
	return f.model.ModelEq(f.exogLabels.Names())
}
