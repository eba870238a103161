package warehouse

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Warehouse {
	t.Helper()
	w, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func day(m time.Month, d int) time.Time {
	return time.Date(2011, m, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, w *Warehouse) {
	t.Helper()
	var obs []forecaster.Observation
	for _, site := range []string{"b", "a"} {
		for i := 0; i < 40; i++ {
			d := day(2, 1).AddDate(0, 0, i)
			obs = append(obs, forecaster.Observation{
				Date:   d,
				SiteID: site,
				Count:  100 + i,
				Covariates: map[string]float64{
					"season":     1,
					"holiday":    0,
					"weekday":    float64(d.Weekday()),
					"workingday": 1,
				},
			})
		}
	}
	require.NoError(t, w.InsertObservations(context.Background(), obs))
}

func TestRebind(t *testing.T) {
	testData := map[string]struct {
		driver   string
		query    string
		expected string
	}{
		"sqlite":   {driver: DriverSQLite, query: "a = ? AND b = ?", expected: "a = ? AND b = ?"},
		"mysql":    {driver: DriverMySQL, query: "a = ? AND b = ?", expected: "a = ? AND b = ?"},
		"postgres": {driver: DriverPostgres, query: "a = ? AND b = ?", expected: "a = $1 AND b = $2"},
		"none":     {driver: DriverPostgres, query: "SELECT 1", expected: "SELECT 1"},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, rebind(td.driver, td.query))
		})
	}
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)

	path := filepath.Join(t.TempDir(), "test.db")
	w, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	v, err := w.schemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), v)
	require.NoError(t, w.Close())

	// reopening an up to date database is a no-op
	w, err = Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, w.Driver())
	require.NoError(t, w.Close())
}

func TestSites(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	sites, err := w.Sites(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)

	seed(t, w)
	sites, err = w.Sites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sites)
}

func TestHistory(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()
	seed(t, w)

	forecastDay := day(3, 1)
	hist, err := w.History(ctx, "a", forecastDay.AddDate(0, -1, 0), forecastDay)
	require.NoError(t, err)

	// 2011-02-01 < dteday <= 2011-03-01
	require.Len(t, hist, 28)
	assert.Equal(t, day(2, 2), hist[0].Date)
	assert.Equal(t, forecastDay, hist[len(hist)-1].Date)
	assert.Equal(t, 101, hist[0].Count)
	for i, h := range hist {
		assert.Equal(t, "a", h.SiteID)
		assert.Equal(t, float64(h.Date.Weekday()), h.Covariates["weekday"])
		assert.Len(t, h.Covariates, 4)
		if i > 0 {
			assert.True(t, h.Date.After(hist[i-1].Date))
		}
	}

	hist, err = w.History(ctx, "missing", forecastDay.AddDate(0, -1, 0), forecastDay)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestHorizon(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()
	seed(t, w)

	testData := map[string]struct {
		day      time.Time
		n        int
		expected int
		err      error
	}{
		"week":         {day: day(3, 1), n: 7, expected: 7},
		"past the end": {day: day(3, 8), n: 7, expected: 4},
		"zero":         {day: day(3, 1), n: 0, expected: 0},
		"negative":     {day: day(3, 1), n: -1, err: ErrNegativeDays},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rows, err := w.Horizon(ctx, "b", td.day, td.n, forecaster.DefaultSentinel)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			require.Len(t, rows, td.expected)
			for i, r := range rows {
				assert.Equal(t, forecaster.DefaultSentinel, r.Count)
				assert.Equal(t, td.day.AddDate(0, 0, i+1), r.Date)
			}
		})
	}
}

func TestInsertObservationsReplaces(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	require.NoError(t, w.InsertObservations(ctx, []forecaster.Observation{
		{Date: day(3, 1), SiteID: "a", Count: 1, Covariates: map[string]float64{"holiday": 1, "other": 5}},
	}))
	require.NoError(t, w.InsertObservations(ctx, []forecaster.Observation{
		{Date: day(3, 1), SiteID: "a", Count: 2, Covariates: map[string]float64{"holiday": 0}},
	}))
	require.NoError(t, w.InsertObservations(ctx, nil))

	hist, err := w.History(ctx, "a", day(2, 28), day(3, 1))
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 2, hist[0].Count)
	assert.Equal(t, map[string]float64{"holiday": 0}, hist[0].Covariates)
}

func TestForecasts(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	future := []forecaster.Observation{
		{Date: day(3, 3), SiteID: "a", Count: -1},
		{Date: day(3, 2), SiteID: "a", Count: -1},
	}
	created := time.Date(2011, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.InsertForecasts(ctx, forecaster.NewResults(future, []int{20, 10}, true), created))
	require.NoError(t, w.InsertForecasts(ctx, forecaster.NewResults(future[:1], []int{30}, false), created.Add(time.Hour)))
	require.NoError(t, w.InsertForecasts(ctx, forecaster.NewResults(nil, nil, true), created))

	res, err := w.Forecasts(ctx, "a")
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, day(3, 2), res[0].Date)
	assert.Equal(t, 10, res[0].Forecast)
	require.NotNil(t, res[0].ForecastAverage)
	assert.Equal(t, 15.0, *res[0].ForecastAverage)
	assert.Equal(t, created, res[0].CreatedAt)

	assert.Equal(t, day(3, 3), res[1].Date)
	assert.Equal(t, 20, res[1].Forecast)
	assert.Equal(t, 30, res[2].Forecast)
	assert.Nil(t, res[2].ForecastAverage)
	assert.Equal(t, created.Add(time.Hour), res[2].CreatedAt)

	res, err = w.Forecasts(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, res)
}
