package arima

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aouyang1/go-arimax/stats"
)

// DefaultLjungBoxLags is the number of residual lags tested in the fit summary
const DefaultLjungBoxLags = 10

// Coefficients is the serializeable form of the fitted model parameters
type Coefficients struct {
	Intercept float64   `json:"intercept"`
	Exog      []float64 `json:"exog"`
	AR        []float64 `json:"ar"`
	MA        []float64 `json:"ma"`
	Sigma2    float64   `json:"sigma2"`
}

// Coefficients returns a copy of the fitted parameters
func (m *Model) Coefficients() (Coefficients, error) {
	if !m.Fitted() {
		return Coefficients{}, ErrUnfitted
	}
	return Coefficients{
		Intercept: m.intercept,
		Exog:      m.ExogCoef(),
		AR:        m.AR(),
		MA:        m.MA(),
		Sigma2:    m.sigma2,
	}, nil
}

// NumParams is the number of estimated parameters including the innovation variance. Pinned
// exogenous columns are not counted.
func (m *Model) NumParams() int {
	if m == nil {
		return 0
	}
	k := m.opt.Order.P + m.opt.Order.Q + m.nActive + 1
	if m.opt.UseIntercept() {
		k++
	}
	return k
}

func (m *Model) effectiveObs() int {
	return len(m.resid) - m.opt.Order.P
}

// LogLik is the gaussian conditional log likelihood. A perfect fit has an undefined likelihood
// and reports 0.
func (m *Model) LogLik() float64 {
	if m == nil {
		return 0
	}
	return m.loglik
}

// AIC is the Akaike information criterion of the fit
func (m *Model) AIC() float64 {
	if !m.Fitted() || m.sigma2 == 0 {
		return 0
	}
	return -2*m.loglik + 2*float64(m.NumParams())
}

// AICc is the small sample corrected AIC. It is 0 when the correction is undefined.
func (m *Model) AICc() float64 {
	if !m.Fitted() || m.sigma2 == 0 {
		return 0
	}
	n := float64(m.effectiveObs())
	k := float64(m.NumParams())
	if n-k-1 <= 0 {
		return 0
	}
	return m.AIC() + 2*k*(k+1)/(n-k-1)
}

// BIC is the Bayesian information criterion of the fit
func (m *Model) BIC() float64 {
	if !m.Fitted() || m.sigma2 == 0 {
		return 0
	}
	return -2*m.loglik + float64(m.NumParams())*math.Log(float64(m.effectiveObs()))
}

// ModelEq returns a string representation of the fitted model in the format of
// y ~ c + b1*x1 + ... + ARMA(p,q) errors
func (m *Model) ModelEq(exogNames []string) (string, error) {
	if !m.Fitted() {
		return "", ErrUnfitted
	}

	var sb strings.Builder
	order := m.opt.Order
	if order.D > 0 {
		fmt.Fprintf(&sb, "diff%d(y) ~ ", order.D)
	} else {
		sb.WriteString("y ~ ")
	}
	fmt.Fprintf(&sb, "%.2f", m.intercept)
	for j, c := range m.exogCoef {
		if c == 0 {
			continue
		}
		name := fmt.Sprintf("x%d", j)
		if j < len(exogNames) {
			name = exogNames[j]
		}
		fmt.Fprintf(&sb, "%+.2f*%s", c, name)
	}
	sb.WriteString(" + u; u ~ ARMA(")
	fmt.Fprintf(&sb, "%d,%d)", order.P, order.Q)
	for i, phi := range m.ar {
		fmt.Fprintf(&sb, " ar%d=%.3f", i+1, phi)
	}
	for j, theta := range m.ma {
		fmt.Fprintf(&sb, " ma%d=%.3f", j+1, theta)
	}
	return sb.String(), nil
}

// Summary collects the information criteria and residual diagnostics of a fit
type Summary struct {
	Order        Order                 `json:"order"`
	Observations int                   `json:"observations"`
	Iterations   int                   `json:"iterations"`
	LogLik       float64               `json:"log_likelihood"`
	AIC          float64               `json:"aic"`
	AICc         float64               `json:"aicc"`
	BIC          float64               `json:"bic"`
	Scores       stats.Scores          `json:"scores"`
	LjungBox     *stats.LjungBoxResult `json:"ljung_box,omitempty"`
}

// Summary reports the fit diagnostics. The Ljung-Box test is omitted when the residuals have
// no variance or are too short to test.
func (m *Model) Summary() (Summary, error) {
	if !m.Fitted() {
		return Summary{}, ErrUnfitted
	}
	s := Summary{
		Order:        m.opt.Order,
		Observations: len(m.y),
		Iterations:   m.iterations,
		LogLik:       m.LogLik(),
		AIC:          m.AIC(),
		AICc:         m.AICc(),
		BIC:          m.BIC(),
		Scores:       m.Scores(),
	}

	lb, err := stats.LjungBox(m.resid[m.opt.Order.P:], DefaultLjungBoxLags, m.opt.Order.P+m.opt.Order.Q)
	switch {
	case errors.Is(err, stats.ErrZeroVariance), errors.Is(err, stats.ErrNegativeLag):
	case err != nil:
		return Summary{}, fmt.Errorf("unable to run ljung-box test on residuals, %w", err)
	default:
		s.LjungBox = lb
	}
	return s, nil
}
