package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult represents the result of a Ljung-Box test on a series
type LjungBoxResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Lags      int     `json:"lags"`
	DOF       int     `json:"dof"`
}

// LjungBox tests for autocorrelation in y up to lags. fitDOF is the number of estimated ARMA
// parameters and reduces the degrees of freedom of the chi squared reference distribution.
func LjungBox(y []float64, lags, fitDOF int) (*LjungBoxResult, error) {
	n := len(y)
	if lags >= n {
		lags = n - 1
	}
	if lags < 1 {
		return nil, ErrNegativeLag
	}

	acf, err := ACF(y, lags)
	if err != nil {
		return nil, err
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k] / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitDOF
	if dof < 1 {
		dof = 1
	}

	chi := distuv.ChiSquared{K: float64(dof)}
	return &LjungBoxResult{
		Statistic: q,
		PValue:    1 - chi.CDF(q),
		Lags:      lags,
		DOF:       dof,
	}, nil
}
