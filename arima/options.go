package arima

import (
	"errors"
	"fmt"
)

const (
	DefaultMaxIterations      = 5000
	DefaultTolerance          = 1e-10
	DefaultConvergeIterations = 50
)

var ErrNegativeOrder = errors.New("model order must be non-negative")

// Order represents the ARIMA(p, d, q) model order
type Order struct {
	P int `json:"p"` // autoregressive lags
	D int `json:"d"` // differencing passes
	Q int `json:"q"` // moving average lags
}

var (
	// Order101 is the ARIMA(1,0,1) order used by the standard forecast
	Order101 = Order{P: 1, D: 0, Q: 1}

	// Order202 is the ARIMA(2,0,2) order used by the second order forecast
	Order202 = Order{P: 2, D: 0, Q: 2}
)

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// Options configures the model order and the conditional sum of squares optimizer
type Options struct {
	Order Order `json:"order"`

	// FitIntercept estimates a constant mean term. It is ignored when the order differences
	// the series since the constant is removed by differencing.
	FitIntercept bool `json:"fit_intercept"`

	// MaxIterations caps the number of major optimizer iterations. Hitting the cap is reported
	// as a convergence failure.
	MaxIterations int `json:"max_iterations"`

	// Tolerance is the absolute and relative improvement of the objective below which the
	// optimizer is considered converged once sustained for ConvergeIterations iterations.
	Tolerance          float64 `json:"tolerance"`
	ConvergeIterations int     `json:"converge_iterations"`
}

// NewDefaultOptions returns an ARIMA(1,0,1) with intercept
func NewDefaultOptions() *Options {
	return &Options{
		Order:              Order101,
		FitIntercept:       true,
		MaxIterations:      DefaultMaxIterations,
		Tolerance:          DefaultTolerance,
		ConvergeIterations: DefaultConvergeIterations,
	}
}

// Validate checks the model order and fills in optimizer defaults. A nil receiver returns the
// default options.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}

	if o.Order.P < 0 || o.Order.D < 0 || o.Order.Q < 0 {
		return nil, fmt.Errorf("order %s, %w", o.Order, ErrNegativeOrder)
	}

	opt := *o
	if opt.MaxIterations <= 0 {
		opt.MaxIterations = DefaultMaxIterations
	}
	if opt.Tolerance <= 0 {
		opt.Tolerance = DefaultTolerance
	}
	if opt.ConvergeIterations <= 0 {
		opt.ConvergeIterations = DefaultConvergeIterations
	}
	return &opt, nil
}

// UseIntercept reports whether a constant term is estimated for this order
func (o *Options) UseIntercept() bool {
	return o.FitIntercept && o.Order.D == 0
}
