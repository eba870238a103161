package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateDays returns n consecutive UTC midnights starting at start's date
func GenerateDays(start time.Time, n int) []time.Time {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, day.AddDate(0, 0, i))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// Scale multiplies the values on the given days by factor
func (s Series) Scale(t []time.Time, factor float64, days ...time.Time) Series {
	for i := range s {
		for _, d := range days {
			if t[i].Equal(d) {
				s[i] *= factor
				break
			}
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateWeeklyY returns a sinusoid with a period of one week keyed on the weekday of each
// time, peaking mid week
func GenerateWeeklyY(t []time.Time, amp float64) Series {
	y := make([]float64, 0, len(t))
	for _, tPnt := range t {
		y = append(y, amp*math.Sin(2.0*math.Pi*(float64(tPnt.Weekday())-0.75)/7.0))
	}
	return Series(y)
}

// GenerateNoise returns n gaussian samples with the given standard deviation. The same seed
// always yields the same samples.
func GenerateNoise(n int, stddev float64, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rng.NormFloat64()*stddev)
	}
	return Series(y)
}

// GenerateARMA simulates a zero mean ARMA process driven by the provided innovations using
// x_t = sum(ar_i*x_{t-i}) + e_t + sum(ma_j*e_{t-j}).
func GenerateARMA(ar, ma []float64, innovations []float64) Series {
	n := len(innovations)
	y := make([]float64, n)
	for t := 0; t < n; t++ {
		val := innovations[t]
		for i, phi := range ar {
			if t-i-1 >= 0 {
				val += phi * y[t-i-1]
			}
		}
		for j, theta := range ma {
			if t-j-1 >= 0 {
				val += theta * innovations[t-j-1]
			}
		}
		y[t] = val
	}
	return Series(y)
}
