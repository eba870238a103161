// Package timedataset holds the time indexed series a forecast is fit on along with
// the exogenous regressor columns aligned to it.
package timedataset

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrExogLenMismatch    = errors.New("exogenous column has a different length than observations")
	ErrUnknownExog        = errors.New("unknown exogenous column")
)

// TimeDataset represents a time series storing a slice of time points and values along with
// optional exogenous columns keyed by name. All slices must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
	X map[string][]float64
}

// NewExogDataset returns an instance of a TimeDataset with exogenous columns. Time must be
// strictly increasing.
func NewExogDataset(t []time.Time, y []float64, x map[string][]float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}

	for name, col := range x {
		if len(col) != len(y) {
			return nil, fmt.Errorf(
				"exogenous column %q has length of %d, but values has a length of %d, %w",
				name, len(col), len(y), ErrExogLenMismatch,
			)
		}
	}

	td := &TimeDataset{
		T: t,
		Y: y,
		X: x,
	}
	return td.Copy(), nil
}

func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.Y))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)

	var x map[string][]float64
	if td.X != nil {
		x = make(map[string][]float64, len(td.X))
		for name, col := range td.X {
			c := make([]float64, len(col))
			copy(c, col)
			x[name] = c
		}
	}
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
		X: x,
	}
}

// Len returns the number of observations
func (td *TimeDataset) Len() int {
	return len(td.Y)
}

// ExogRows returns the exogenous values as one row per observation with columns in the
// order of names.
func (td *TimeDataset) ExogRows(names []string) ([][]float64, error) {
	cols := make([][]float64, 0, len(names))
	for _, name := range names {
		col, exists := td.X[name]
		if !exists {
			return nil, fmt.Errorf("%s, %w", name, ErrUnknownExog)
		}
		cols = append(cols, col)
	}

	rows := make([][]float64, td.Len())
	for i := range rows {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = col[i]
		}
		rows[i] = row
	}
	return rows, nil
}
