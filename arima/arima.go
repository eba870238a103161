// Package arima fits ARIMA(p,d,q) models with exogenous regressors. The series is modeled as a
// linear regression on the exogenous columns whose error term follows an ARMA(p,q) process
// after differencing d times. Regression coefficients are estimated by ordinary least squares
// and the ARMA coefficients by minimizing the conditional sum of squares.
package arima

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	mat_ "github.com/aouyang1/go-arimax/mat"
	"github.com/aouyang1/go-arimax/models"
	"github.com/aouyang1/go-arimax/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoData            = errors.New("no observations to fit")
	ErrInsufficientData  = errors.New("insufficient observations for model order")
	ErrNotConverged      = errors.New("optimizer did not converge")
	ErrExogLenMismatch   = errors.New("exogenous rows do not match number of observations")
	ErrExogWidthMismatch = errors.New("exogenous rows have inconsistent number of columns")
	ErrNonFinite         = errors.New("input contains NaN or Inf")
	ErrUnfitted          = errors.New("model has not been fit yet")
	ErrNegativeSteps     = errors.New("forecast steps must be non-negative")
)

// Model is an ARIMA model with exogenous regressors. A Model is not safe for concurrent use
// while fitting.
type Model struct {
	opt *Options

	intercept float64
	exogCoef  []float64
	ar        []float64
	ma        []float64
	sigma2    float64

	loglik     float64
	iterations int
	scores     *stats.Scores

	// training state retained for forecasting
	y       []float64
	x       [][]float64
	levels  [][]float64 // y differenced 0..d-1 times
	u       []float64   // regression error on the differenced scale
	resid   []float64   // innovations
	fitted  []float64
	nExog   int
	nActive int
	trained bool
}

// New creates an unfitted model. If no options are provided the default is used.
func New(opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate arima options, %w", err)
	}
	return &Model{opt: opt}, nil
}

// Options returns a copy of the options used by the model
func (m *Model) Options() Options {
	return *m.opt
}

// MinObservations is the smallest series length that can be fit for an order with nExog
// exogenous columns
func MinObservations(order Order, nExog int) int {
	return order.P + order.D + order.Q + nExog + 3
}

// Fit estimates the model from the series y and the exogenous rows x. x may be nil if the
// model has no exogenous regressors, otherwise it must have one row per observation.
func (m *Model) Fit(y []float64, x [][]float64) error {
	nExog, err := validateInputs(y, x)
	if err != nil {
		return err
	}

	order := m.opt.Order
	n := len(y)
	if minObs := MinObservations(order, nExog); n < minObs {
		return fmt.Errorf("got %d observations, need at least %d for order %s with %d exogenous columns, %w",
			n, minObs, order, nExog, ErrInsufficientData)
	}

	m.trained = false
	m.nExog = nExog
	m.y = append([]float64(nil), y...)
	m.x = copyRows(x)

	m.levels = make([][]float64, order.D)
	w := m.y
	for k := 0; k < order.D; k++ {
		m.levels[k] = w
		w = difference(w)
	}
	wx := differenceColumns(columns(x, nExog), order.D)

	if err := m.fitRegression(w, wx); err != nil {
		return err
	}

	if err := m.fitARMA(); err != nil {
		return err
	}

	m.resid = innovations(m.u, m.ar, m.ma)
	m.fitted = make([]float64, len(m.resid))
	for t := range m.resid {
		m.fitted[t] = m.y[t+order.D] - m.resid[t]
	}

	effective := len(m.resid) - order.P
	sse := floats.Dot(m.resid[order.P:], m.resid[order.P:])
	m.sigma2 = sse / float64(effective)
	m.loglik = 0
	if m.sigma2 > 0 {
		m.loglik = -0.5 * float64(effective) * (math.Log(2*math.Pi*m.sigma2) + 1)
	}

	m.scores, err = stats.NewScores(m.fitted[order.P:], m.y[order.D+order.P:])
	if err != nil {
		return fmt.Errorf("unable to score fit, %w", err)
	}

	m.trained = true
	return nil
}

func validateInputs(y []float64, x [][]float64) (int, error) {
	if len(y) == 0 {
		return 0, ErrNoData
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("observation %d is %f, %w", i, v, ErrNonFinite)
		}
	}
	if len(x) == 0 {
		return 0, nil
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("got %d exogenous rows for %d observations, %w", len(x), len(y), ErrExogLenMismatch)
	}
	return validateExog(x, len(x[0]))
}

func validateExog(x [][]float64, width int) (int, error) {
	for i, row := range x {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d columns, expected %d, %w", i, len(row), width, ErrExogWidthMismatch)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("exogenous value at row %d column %d is %f, %w", i, j, v, ErrNonFinite)
			}
		}
	}
	return width, nil
}

// fitRegression estimates the intercept and exogenous coefficients on the differenced scale
// and keeps the regression error u. Columns that are constant, or that are collinear with the
// columns already selected, are pinned to a zero coefficient.
func (m *Model) fitRegression(w []float64, wx [][]float64) error {
	m.intercept = 0
	m.exogCoef = make([]float64, m.nExog)
	withIntercept := m.opt.UseIntercept()

	active := make([]int, 0, len(wx))
	for j, col := range wx {
		if floats.Max(col)-floats.Min(col) > 0 {
			active = append(active, j)
			continue
		}
		slog.Debug("dropping constant exogenous column", "column", j)
	}

	reg, err := olsFit(w, wx, active, withIntercept)
	if errors.Is(err, models.ErrRankDeficient) {
		active, reg, err = greedyOLSFit(w, wx, active, withIntercept)
	}
	if err != nil {
		return fmt.Errorf("unable to fit exogenous regression, %w", err)
	}
	slog.Debug("fit exogenous regression", "columns", len(active), "r2", reg.r2)

	m.intercept = reg.intercept
	for i, j := range active {
		m.exogCoef[j] = reg.coef[i]
	}
	m.nActive = len(active)

	m.u = make([]float64, len(w))
	floats.SubTo(m.u, w, reg.fitted)
	return nil
}

// regressionFit is the ordinary least squares fit of the differenced series on the active
// exogenous columns
type regressionFit struct {
	intercept float64
	coef      []float64
	fitted    []float64
	r2        float64
}

func olsFit(w []float64, wx [][]float64, active []int, withIntercept bool) (*regressionFit, error) {
	if len(active) == 0 {
		reg := &regressionFit{fitted: make([]float64, len(w))}
		if withIntercept {
			reg.intercept = stat.Mean(w, nil)
			floats.AddConst(reg.intercept, reg.fitted)
		}
		return reg, nil
	}

	cols := make([][]float64, 0, len(active))
	for _, j := range active {
		cols = append(cols, wx[j])
	}
	xMx, err := mat_.NewDenseFromColumns(cols)
	if err != nil {
		return nil, err
	}
	yMx := mat.NewDense(len(w), 1, append([]float64(nil), w...))

	ols, err := models.NewOLSRegression(&models.OLSOptions{FitIntercept: withIntercept})
	if err != nil {
		return nil, err
	}
	if err := ols.Fit(xMx, yMx); err != nil {
		return nil, err
	}
	fitted, err := ols.Predict(xMx)
	if err != nil {
		return nil, err
	}
	r2, err := ols.Score(xMx, yMx)
	if err != nil {
		return nil, err
	}
	return &regressionFit{
		intercept: ols.Intercept(),
		coef:      ols.Coef(),
		fitted:    fitted,
		r2:        r2,
	}, nil
}

// greedyOLSFit adds columns one at a time and skips any column that makes the design
// rank deficient
func greedyOLSFit(w []float64, wx [][]float64, candidates []int, withIntercept bool) ([]int, *regressionFit, error) {
	var active []int
	for _, j := range candidates {
		next := append(append([]int(nil), active...), j)
		_, err := olsFit(w, wx, next, withIntercept)
		if errors.Is(err, models.ErrRankDeficient) {
			slog.Warn("dropping collinear exogenous column", "column", j)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		active = next
	}
	reg, err := olsFit(w, wx, active, withIntercept)
	return active, reg, err
}

func (m *Model) regression(wx [][]float64, t int) float64 {
	v := m.intercept
	for j, c := range m.exogCoef {
		if c == 0 {
			continue
		}
		v += c * wx[j][t]
	}
	return v
}

// fitARMA estimates the AR and MA coefficients of the regression error
func (m *Model) fitARMA() error {
	p, q := m.opt.Order.P, m.opt.Order.Q
	m.ar = make([]float64, p)
	m.ma = make([]float64, q)
	m.iterations = 0
	if p+q == 0 {
		return nil
	}

	x0 := make([]float64, p+q)
	if p > 0 {
		acf, err := stats.ACF(m.u, p)
		switch {
		case errors.Is(err, stats.ErrZeroVariance):
			// a perfectly explained series starts from white noise
		case err != nil:
			return fmt.Errorf("unable to compute autocorrelation for initial values, %w", err)
		default:
			copy(x0, unconstrainStationary(stats.YuleWalker(acf, p)))
		}
	}

	u := m.u
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			ar := constrainStationary(params[:p])
			ma := constrainInvertible(params[p:])
			return conditionalSumOfSquares(u, ar, ma)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: m.opt.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   m.opt.Tolerance,
			Relative:   m.opt.Tolerance,
			Iterations: m.opt.ConvergeIterations,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return fmt.Errorf("optimizer error, %w", errors.Join(ErrNotConverged, err))
	}
	if !converged(res.Status) {
		return fmt.Errorf("optimizer stopped with status %s after %d iterations, %w",
			res.Status, res.Stats.MajorIterations, ErrNotConverged)
	}

	ar := constrainStationary(res.X[:p])
	ma := constrainInvertible(res.X[p:])
	// partial autocorrelations saturate at 1 when the optimizer runs off to infinity
	if !isStationary(ar) || !isInvertible(ma) {
		return fmt.Errorf("coefficients ar=%v ma=%v left the stationary and invertible region, %w", ar, ma, ErrNotConverged)
	}

	m.iterations = res.Stats.MajorIterations
	m.ar = ar
	m.ma = ma
	return nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}
	return false
}

// innovations runs the ARMA recursion e_t = u_t - sum(ar_i*u_{t-i}) - sum(ma_j*e_{t-j}),
// conditioning on zero innovations for the first p observations
func innovations(u, ar, ma []float64) []float64 {
	p := len(ar)
	e := make([]float64, len(u))
	for t := p; t < len(u); t++ {
		v := u[t]
		for i, phi := range ar {
			v -= phi * u[t-1-i]
		}
		for j, theta := range ma {
			if t-1-j < 0 {
				break
			}
			v -= theta * e[t-1-j]
		}
		e[t] = v
	}
	return e
}

// conditionalSumOfSquares is the mean squared innovation after the first p observations
func conditionalSumOfSquares(u, ar, ma []float64) float64 {
	e := innovations(u, ar, ma)
	p := len(ar)
	n := len(e) - p
	if n <= 0 {
		return 0
	}
	css := floats.Dot(e[p:], e[p:]) / float64(n)
	if math.IsNaN(css) || math.IsInf(css, 0) {
		return math.MaxFloat64
	}
	return css
}

// Forecast produces steps future values of the series assuming zero future shocks. x holds
// the exogenous rows for each future step and must be nil when the model has no exogenous
// columns.
func (m *Model) Forecast(steps int, x [][]float64) ([]float64, error) {
	if m == nil || !m.trained {
		return nil, ErrUnfitted
	}
	if steps < 0 {
		return nil, fmt.Errorf("got %d steps, %w", steps, ErrNegativeSteps)
	}
	if steps == 0 {
		return []float64{}, nil
	}
	if m.nExog > 0 || len(x) > 0 {
		if len(x) != steps {
			return nil, fmt.Errorf("got %d exogenous rows for %d steps, %w", len(x), steps, ErrExogLenMismatch)
		}
		if _, err := validateExog(x, m.nExog); err != nil {
			return nil, err
		}
	}

	d := m.opt.Order.D

	// difference the future regressors using the tail of the training regressors
	var wxf [][]float64
	if m.nExog > 0 {
		tail := m.x[len(m.x)-d:]
		joined := append(copyRows(tail), x...)
		wx := differenceColumns(columns(joined, m.nExog), d)
		wxf = wx
	}

	n := len(m.u)
	u := make([]float64, n+steps)
	copy(u, m.u)
	e := make([]float64, n+steps)
	copy(e, m.resid)

	w := make([]float64, steps)
	for h := 0; h < steps; h++ {
		t := n + h
		v := 0.0
		for i, phi := range m.ar {
			if t-1-i >= 0 {
				v += phi * u[t-1-i]
			}
		}
		for j, theta := range m.ma {
			if t-1-j >= 0 {
				v += theta * e[t-1-j]
			}
		}
		u[t] = v
		w[h] = m.regression(wxf, h) + v
	}

	return integrate(w, m.levels), nil
}

// Fitted reports whether the model has been fit
func (m *Model) Fitted() bool {
	return m != nil && m.trained
}

// Residuals returns the one step ahead innovations on the differenced scale. The first p
// values are conditioned to zero.
func (m *Model) Residuals() []float64 {
	if m == nil {
		return nil
	}
	res := make([]float64, len(m.resid))
	copy(res, m.resid)
	return res
}

// FittedValues returns the one step ahead predictions for the training series starting at
// observation d
func (m *Model) FittedValues() []float64 {
	if m == nil {
		return nil
	}
	res := make([]float64, len(m.fitted))
	copy(res, m.fitted)
	return res
}

// Intercept returns the constant term of the regression
func (m *Model) Intercept() float64 {
	if m == nil {
		return 0
	}
	return m.intercept
}

// ExogCoef returns the regression coefficient of each exogenous column
func (m *Model) ExogCoef() []float64 {
	if m == nil {
		return nil
	}
	return append([]float64(nil), m.exogCoef...)
}

// AR returns the autoregressive coefficients ordered by lag
func (m *Model) AR() []float64 {
	if m == nil {
		return nil
	}
	return append([]float64(nil), m.ar...)
}

// MA returns the moving average coefficients ordered by lag
func (m *Model) MA() []float64 {
	if m == nil {
		return nil
	}
	return append([]float64(nil), m.ma...)
}

// Sigma2 is the innovation variance
func (m *Model) Sigma2() float64 {
	if m == nil {
		return 0
	}
	return m.sigma2
}

// Iterations is the number of optimizer iterations used to fit the ARMA coefficients
func (m *Model) Iterations() int {
	if m == nil {
		return 0
	}
	return m.iterations
}

// Scores returns the in-sample fit scores
func (m *Model) Scores() stats.Scores {
	if m == nil || m.scores == nil {
		return stats.Scores{}
	}
	return *m.scores
}

func copyRows(x [][]float64) [][]float64 {
	if x == nil {
		return nil
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// columns transposes row major exogenous data into columns
func columns(x [][]float64, width int) [][]float64 {
	cols := make([][]float64, width)
	for j := range cols {
		cols[j] = make([]float64, len(x))
		for i, row := range x {
			cols[j][i] = row[j]
		}
	}
	return cols
}
