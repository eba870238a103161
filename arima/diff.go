package arima

// difference returns the first difference of x which is one element shorter
func difference(x []float64) []float64 {
	if len(x) < 2 {
		return []float64{}
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

func differenceColumns(cols [][]float64, d int) [][]float64 {
	out := make([][]float64, len(cols))
	for j, col := range cols {
		for k := 0; k < d; k++ {
			col = difference(col)
		}
		out[j] = col
	}
	return out
}

// integrate undoes differencing of the forecast w. levels holds the training series
// differenced 0 through d-1 times and the last value of each level anchors the cumulative sum.
func integrate(w []float64, levels [][]float64) []float64 {
	f := append([]float64(nil), w...)
	for k := len(levels) - 1; k >= 0; k-- {
		level := levels[k]
		acc := level[len(level)-1]
		for h := range f {
			acc += f[h]
			f[h] = acc
		}
	}
	return f
}
