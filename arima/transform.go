package arima

import "math"

// maxPartial bounds partial autocorrelations when mapping coefficients back to the
// unconstrained space so the inverse transform stays finite
const maxPartial = 0.99

// constrainStationary maps unconstrained values to the coefficients of a stationary AR
// polynomial 1 - phi_1*z - ... - phi_p*z^p. Each value is first squashed into a partial
// autocorrelation in (-1, 1) and then run through the Durbin-Levinson recursion.
func constrainStationary(x []float64) []float64 {
	p := len(x)
	phi := make([]float64, p)
	prev := make([]float64, p)
	for k := 0; k < p; k++ {
		r := x[k] / math.Sqrt(1+x[k]*x[k])
		copy(prev, phi[:k])
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - r*prev[k-1-j]
		}
		phi[k] = r
	}
	return phi
}

// unconstrainStationary is the inverse of constrainStationary. Coefficients outside the
// stationary region are pulled back to the boundary.
func unconstrainStationary(phi []float64) []float64 {
	p := len(phi)
	cur := make([]float64, p)
	copy(cur, phi)

	x := make([]float64, p)
	for k := p - 1; k >= 0; k-- {
		r := math.Max(-maxPartial, math.Min(maxPartial, cur[k]))
		x[k] = r / math.Sqrt(1-r*r)

		prev := make([]float64, k)
		for j := 0; j < k; j++ {
			prev[j] = (cur[j] + r*cur[k-1-j]) / (1 - r*r)
		}
		cur = prev
	}
	return x
}

// constrainInvertible maps unconstrained values to MA coefficients of an invertible
// polynomial 1 + theta_1*z + ... + theta_q*z^q
func constrainInvertible(x []float64) []float64 {
	theta := constrainStationary(x)
	for i := range theta {
		theta[i] = -theta[i]
	}
	return theta
}

// isInvertible reports whether the MA polynomial is invertible
func isInvertible(theta []float64) bool {
	neg := make([]float64, len(theta))
	for i, v := range theta {
		neg[i] = -v
	}
	return isStationary(neg)
}

// isStationary reports whether all partial autocorrelations of the AR polynomial lie
// strictly inside the unit interval
func isStationary(phi []float64) bool {
	cur := make([]float64, len(phi))
	copy(cur, phi)
	for k := len(phi) - 1; k >= 0; k-- {
		r := cur[k]
		if math.Abs(r) >= 1 {
			return false
		}
		prev := make([]float64, k)
		for j := 0; j < k; j++ {
			prev[j] = (cur[j] + r*cur[k-1-j]) / (1 - r*r)
		}
		cur = prev
	}
	return true
}
