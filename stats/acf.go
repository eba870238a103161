// Package stats holds the time series statistics used to initialize and diagnose a fit
package stats

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrZeroVariance = errors.New("series has zero variance")
	ErrNegativeLag  = errors.New("lag must be non-negative")
)

// ACF returns the sample autocorrelation of y for lags 0 through maxLag. maxLag is capped at
// len(y)-1.
func ACF(y []float64, maxLag int) ([]float64, error) {
	if maxLag < 0 {
		return nil, ErrNegativeLag
	}
	n := len(y)
	if maxLag >= n {
		maxLag = n - 1
	}

	mean := stat.Mean(y, nil)
	centered := make([]float64, n)
	copy(centered, y)
	floats.AddConst(-mean, centered)

	denom := floats.Dot(centered, centered)
	if denom == 0 {
		return nil, ErrZeroVariance
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		acf[k] = floats.Dot(centered[k:], centered[:n-k]) / denom
	}
	return acf, nil
}

// YuleWalker solves the Yule-Walker equations for an AR(order) process with the
// Levinson-Durbin recursion. The returned coefficients are ordered by lag starting at 1.
func YuleWalker(acf []float64, order int) []float64 {
	phi := make([]float64, order)
	if order == 0 || len(acf) <= order {
		return phi
	}

	v := 1.0
	for k := 0; k < order; k++ {
		lambda := acf[k+1]
		for j := 0; j < k; j++ {
			lambda -= phi[j] * acf[k-j]
		}
		lambda /= v

		prev := make([]float64, k)
		copy(prev, phi[:k])
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - lambda*prev[k-1-j]
		}
		phi[k] = lambda

		v *= 1 - lambda*lambda
		if v <= 0 {
			break
		}
	}
	return phi
}
