package forecaster

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-arimax/arima"
	"github.com/aouyang1/go-arimax/calendar"
	"github.com/aouyang1/go-arimax/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)

func zeroCovariates() map[string]float64 {
	return map[string]float64{
		calendar.Holiday:    0,
		calendar.Weekday:    0,
		calendar.Workingday: 0,
	}
}

// constantRows builds nHist rows of count followed by nFuture sentinel rows with all zero
// covariates
func constantRows(site string, nHist, nFuture, count int) []Observation {
	days := timedataset.GenerateDays(testStart, nHist+nFuture)
	rows := make([]Observation, 0, len(days))
	for i, d := range days {
		cnt := count
		if i >= nHist {
			cnt = DefaultSentinel
		}
		rows = append(rows, Observation{
			Date:       d,
			SiteID:     site,
			Count:      cnt,
			Covariates: zeroCovariates(),
		})
	}
	return rows
}

// bikeRows simulates daily rentals driven by the calendar covariates with ARMA noise
func bikeRows(site string, nHist, nFuture int, seed uint64) []Observation {
	cal := calendar.New()
	days := timedataset.GenerateDays(testStart, nHist+nFuture)
	noise := timedataset.GenerateNoise(len(days), 150, seed)
	u := timedataset.GenerateARMA([]float64{0.5}, []float64{0.2}, noise)

	rows := make([]Observation, 0, len(days))
	for i, d := range days {
		cov := cal.Covariates(d)
		cnt := int(math.Round(3000 + 400*cov[calendar.Workingday] - 300*cov[calendar.Holiday] + 20*cov[calendar.Weekday] + u[i]))
		if i >= nHist {
			cnt = DefaultSentinel
		}
		rows = append(rows, Observation{Date: d, SiteID: site, Count: cnt, Covariates: cov})
	}
	return rows
}

func TestForecastConstant(t *testing.T) {
	wednesday := map[string]float64{
		calendar.Holiday:    0,
		calendar.Weekday:    3,
		calendar.Workingday: 1,
	}

	testData := map[string]struct {
		opt         *Options
		cov         map[string]float64
		withAverage bool
	}{
		"standard":                    {opt: NewStandardOptions(), withAverage: true},
		"arma2":                       {opt: NewARMA2Options(), withAverage: false},
		"standard nonzero covariates": {opt: NewStandardOptions(), cov: wednesday, withAverage: true},
		"arma2 nonzero covariates":    {opt: NewARMA2Options(), cov: wednesday, withAverage: false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rows := constantRows("site-1", 30, 7, 100)
			if td.cov != nil {
				for i := range rows {
					rows[i].Covariates = map[string]float64{}
					for k, v := range td.cov {
						rows[i].Covariates[k] = v
					}
				}
			}

			f, err := New(td.opt)
			require.NoError(t, err)
			res, err := f.Forecast(rows)
			require.NoError(t, err)

			require.Equal(t, 7, res.Len())
			assert.Equal(t, []int{100, 100, 100, 100, 100, 100, 100}, res.Forecast)
			for i, r := range res.Rows() {
				assert.Equal(t, rows[30+i].Date, r.Date)
				assert.Equal(t, "site-1", r.SiteID)
				if td.withAverage {
					require.NotNil(t, r.ForecastAverage)
					assert.Equal(t, 100.0, *r.ForecastAverage)
				} else {
					assert.Nil(t, r.ForecastAverage)
				}
			}
		})
	}
}

func TestForecastSimulated(t *testing.T) {
	rows := bikeRows("site-1", 120, 14, 5)

	f, err := New(nil)
	require.NoError(t, err)
	res, err := f.Forecast(rows)
	require.NoError(t, err)
	require.Equal(t, 14, res.Len())

	cal := calendar.New()
	for i, r := range res.Rows() {
		assert.Equal(t, rows[120+i].Date, r.Date)
		cov := cal.Covariates(r.Date)
		expected := 3000 + 400*cov[calendar.Workingday] - 300*cov[calendar.Holiday] + 20*cov[calendar.Weekday]
		assert.InDelta(t, expected, float64(r.Forecast), 600)
	}

	m, err := f.Model()
	require.NoError(t, err)
	assert.Equal(t, "site-1", m.SiteID)
	assert.Equal(t, rows[119].Date, m.TrainEndTime)
	require.Len(t, m.Weights.Coef, 3)
	assert.InDelta(t, 400, m.Weights.Coef[2].Value, 200)

	eq, err := f.ModelEq()
	require.NoError(t, err)
	assert.Contains(t, eq, "workingday")
}

func TestForecastDeterministic(t *testing.T) {
	rows := bikeRows("site-1", 90, 7, 9)

	run := func() *Results {
		f, err := New(NewARMA2Options())
		require.NoError(t, err)
		res, err := f.Forecast(rows)
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run(), run())
}

func TestForecastEmptyHorizon(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	res, err := f.Forecast(constantRows("site-1", 30, 0, 100))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.Empty(t, res.Rows())
	assert.Empty(t, res.ForecastAverage)
}

func TestForecastErrors(t *testing.T) {
	outOfOrder := constantRows("site-1", 30, 7, 100)
	outOfOrder[29], outOfOrder[30] = outOfOrder[30], outOfOrder[29]

	gap := constantRows("site-1", 30, 7, 100)
	gap[31].Date = gap[31].Date.Add(24 * time.Hour)
	gap[32].Date = gap[32].Date.Add(24 * time.Hour)

	mixed := constantRows("site-1", 30, 7, 100)
	mixed[3].SiteID = "site-2"

	missing := constantRows("site-1", 30, 7, 100)
	delete(missing[33].Covariates, calendar.Weekday)

	nonFinite := constantRows("site-1", 30, 7, 100)
	nonFinite[2].Covariates[calendar.Holiday] = math.NaN()

	duplicateDate := constantRows("site-1", 30, 7, 100)
	duplicateDate[5].Date = duplicateDate[4].Date

	testData := map[string]struct {
		rows []Observation
		err  error
	}{
		"no rows":              {rows: nil, err: ErrNoHistory},
		"only future rows":     {rows: constantRows("site-1", 0, 7, 100), err: ErrNoHistory},
		"single history row":   {rows: constantRows("site-1", 1, 7, 100), err: arima.ErrInsufficientData},
		"too little history":   {rows: constantRows("site-1", 7, 7, 100), err: arima.ErrInsufficientData},
		"history after future": {rows: outOfOrder, err: ErrSentinelOrder},
		"gap in horizon":       {rows: gap, err: ErrNonContiguousHorizon},
		"mixed sites":          {rows: mixed, err: ErrMixedSites},
		"missing covariate":    {rows: missing, err: ErrMissingCovariate},
		"nan covariate":        {rows: nonFinite, err: ErrNonFiniteCovariate},
		"duplicate date":       {rows: duplicateDate, err: timedataset.ErrNonMontonic},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(nil)
			require.NoError(t, err)
			res, err := f.Forecast(td.rows)
			assert.ErrorIs(t, err, td.err)
			assert.Nil(t, res)
		})
	}
}

func TestForecastNoCovariates(t *testing.T) {
	opt := NewStandardOptions()
	opt.Exog = nil

	rows := constantRows("site-1", 30, 3, 42)
	for i := range rows {
		rows[i].Covariates = nil
	}

	f, err := New(opt)
	require.NoError(t, err)
	res, err := f.Forecast(rows)
	require.NoError(t, err)
	assert.Equal(t, []int{42, 42, 42}, res.Forecast)
}

func TestForecastSeries(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	res, err := f.ForecastSeries(timedataset.GenerateConstY(30, 250))
	require.NoError(t, err)
	assert.Equal(t, []int{250, 250, 250, 250, 250, 250, 250}, res.Forecast)
	assert.Equal(t, 250.0, res.WeeklyAverage)

	_, err = f.ForecastSeries(nil)
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = f.ForecastSeries([]float64{1, 2})
	assert.ErrorIs(t, err, arima.ErrInsufficientData)

	opt := NewStandardOptions()
	opt.SeriesSteps = 3
	f, err = New(opt)
	require.NoError(t, err)
	res, err = f.ForecastSeries(timedataset.GenerateConstY(30, 10))
	require.NoError(t, err)
	assert.Len(t, res.Forecast, 3)
}

func TestModelUnfit(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	_, err = f.Model()
	assert.ErrorIs(t, err, ErrUnfitForecaster)
	_, err = f.ModelEq()
	assert.ErrorIs(t, err, ErrUnfitForecaster)
	assert.Nil(t, f.TrainingData())
}

func TestForecastZeroValueOptions(t *testing.T) {
	rows := constantRows("site-1", 30, 7, 100)
	rows[11].Count = 0

	f, err := New(&Options{Exog: DefaultExog})
	require.NoError(t, err)
	assert.Equal(t, DefaultSentinel, f.Options().Sentinel)

	res, err := f.Forecast(rows)
	require.NoError(t, err)
	require.Equal(t, 7, res.Len())
	for i, r := range res.Rows() {
		assert.Equal(t, rows[30+i].Date, r.Date)
	}
	assert.Equal(t, 30, f.TrainingData().Len())
}

func TestForecastFailureClearsFit(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	_, err = f.Forecast(constantRows("site-1", 30, 7, 100))
	require.NoError(t, err)
	require.True(t, f.Fitted())

	testData := map[string]func() error{
		"too little history": func() error {
			_, err := f.Forecast(constantRows("site-2", 3, 7, 100))
			return err
		},
		"no history": func() error {
			_, err := f.Forecast(constantRows("site-2", 0, 7, 100))
			return err
		},
		"series too short": func() error {
			_, err := f.ForecastSeries([]float64{1, 2})
			return err
		},
	}

	for name, run := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := f.Forecast(constantRows("site-1", 30, 7, 100))
			require.NoError(t, err)

			require.Error(t, run())
			assert.False(t, f.Fitted())
			assert.Nil(t, f.TrainingData())
			assert.Nil(t, f.Residuals())
			_, err = f.Model()
			assert.ErrorIs(t, err, ErrUnfitForecaster)
			_, err = f.ModelEq()
			assert.ErrorIs(t, err, ErrUnfitForecaster)
		})
	}
}
