package forecaster

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNothingToPlot = errors.New("no fit history to plot")

// missing is rendered by echarts as a gap in the line
const missing = "-"

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination.
// Each series in y must have the same length as the input time slice. NaN values are drawn
// as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	xAxis := make([]string, 0, len(t))
	for _, ts := range t {
		xAxis = append(xAxis, ts.Format(time.DateOnly))
	}
	line = line.SetXAxis(xAxis)

	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, v := range y[i] {
			if math.IsNaN(v) {
				lineData = append(lineData, opts.LineData{Value: missing})
				continue
			}
			lineData = append(lineData, opts.LineData{Value: v})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// LineForecast plots the actual history, the in-sample one step ahead fit and the forecast
// on a shared date axis
func LineForecast(t []time.Time, actual, fitted []float64, res *Results) *charts.Line {
	n := len(t) + res.Len()
	axis := make([]time.Time, 0, n)
	axis = append(axis, t...)
	axis = append(axis, res.T...)

	actualSeries := nanPad(actual, n)
	fittedSeries := make([]float64, 0, n)
	for i := 0; i < len(t)-len(fitted); i++ {
		fittedSeries = append(fittedSeries, math.NaN())
	}
	fittedSeries = nanPad(append(fittedSeries, fitted...), n)

	forecastSeries := make([]float64, 0, n)
	for i := 0; i < len(t); i++ {
		forecastSeries = append(forecastSeries, math.NaN())
	}
	for _, v := range res.Forecast {
		forecastSeries = append(forecastSeries, float64(v))
	}

	return LineTSeries(
		"Forecast",
		[]string{"Actual", "Fitted", "Forecast"},
		axis,
		[][]float64{actualSeries, fittedSeries, forecastSeries},
	)
}

func nanPad(y []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(y) {
			out[i] = y[i]
			continue
		}
		out[i] = math.NaN()
	}
	return out
}

// PlotForecast uses the Apache Echarts library to render an html page of the latest fit
// along with the forecast results and the fit residuals
func (f *Forecaster) PlotForecast(w io.Writer, res *Results) error {
	td := f.TrainingData()
	if td == nil || !f.Fitted() {
		return ErrNothingToPlot
	}

	residuals := f.Residuals()
	resT := td.T[len(td.T)-len(residuals):]

	page := components.NewPage()
	page.AddCharts(
		LineForecast(td.T, td.Y, f.FittedValues(), res),
		LineTSeries(
			"Forecast Residual",
			[]string{"Residual"},
			resT,
			[][]float64{residuals},
		),
	)
	return page.Render(w)
}
