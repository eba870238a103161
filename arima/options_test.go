package arima

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *Options
		expected *Options
		err      error
	}{
		"nil": {
			opt:      nil,
			expected: NewDefaultOptions(),
		},
		"fill optimizer defaults": {
			opt: &Options{Order: Order202},
			expected: &Options{
				Order:              Order202,
				MaxIterations:      DefaultMaxIterations,
				Tolerance:          DefaultTolerance,
				ConvergeIterations: DefaultConvergeIterations,
			},
		},
		"keep set values": {
			opt: &Options{Order: Order101, FitIntercept: true, MaxIterations: 10, Tolerance: 1e-3, ConvergeIterations: 5},
			expected: &Options{
				Order:              Order101,
				FitIntercept:       true,
				MaxIterations:      10,
				Tolerance:          1e-3,
				ConvergeIterations: 5,
			},
		},
		"negative order": {
			opt: &Options{Order: Order{P: -1}},
			err: ErrNegativeOrder,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestUseIntercept(t *testing.T) {
	opt := NewDefaultOptions()
	assert.True(t, opt.UseIntercept())

	opt.Order = Order{P: 1, D: 1, Q: 1}
	assert.False(t, opt.UseIntercept())
}

func TestOrderString(t *testing.T) {
	assert.Equal(t, "(2,0,2)", Order202.String())
}
