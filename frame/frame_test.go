package frame

import (
	"bytes"
	"strings"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExog = []string{"holiday", "weekday", "workingday"}

func day(d int) time.Time {
	return time.Date(2011, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestDecodeObservations(t *testing.T) {
	testData := map[string]struct {
		input    string
		exog     []string
		expected []forecaster.Observation
		err      error
	}{
		"list orient": {
			input: `{
				"dteday": ["2011-03-01", "2011-03-02"],
				"site_id": ["site-1", "site-1"],
				"cnt": [985, -1],
				"holiday": [0, 0],
				"weekday": [2, 3],
				"workingday": [1, 1],
				"season": [1, 1]
			}`,
			exog: testExog,
			expected: []forecaster.Observation{
				{Date: day(1), SiteID: "site-1", Count: 985, Covariates: map[string]float64{"holiday": 0, "weekday": 2, "workingday": 1, "season": 1}},
				{Date: day(2), SiteID: "site-1", Count: -1, Covariates: map[string]float64{"holiday": 0, "weekday": 3, "workingday": 1, "season": 1}},
			},
		},
		"index orient out of order": {
			input: `{
				"dteday": {"1": "2011-03-02", "0": "2011-03-01", "10": "2011-03-11"},
				"site_id": {"0": "a", "1": "a", "10": "a"},
				"cnt": {"0": 1.0, "10": -1, "1": 2},
				"holiday": {"0": false, "1": true, "10": 0}
			}`,
			exog: []string{"holiday"},
			expected: []forecaster.Observation{
				{Date: day(1), SiteID: "a", Count: 1, Covariates: map[string]float64{"holiday": 0}},
				{Date: day(2), SiteID: "a", Count: 2, Covariates: map[string]float64{"holiday": 1}},
				{Date: day(11), SiteID: "a", Count: -1, Covariates: map[string]float64{"holiday": 0}},
			},
		},
		"timestamps and numeric site": {
			input: `{
				"dteday": ["2011-03-01T00:00:00Z", "2011-03-02 00:00:00", 1299110400000],
				"site_id": [7, 7, 7],
				"cnt": [1, 2, 3]
			}`,
			expected: []forecaster.Observation{
				{Date: day(1), SiteID: "7", Count: 1, Covariates: map[string]float64{}},
				{Date: day(2), SiteID: "7", Count: 2, Covariates: map[string]float64{}},
				{Date: day(3), SiteID: "7", Count: 3, Covariates: map[string]float64{}},
			},
		},
		"non numeric extra column is ignored": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1], "note": ["x"]}`,
			expected: []forecaster.Observation{
				{Date: day(1), SiteID: "a", Count: 1, Covariates: map[string]float64{}},
			},
		},
		"empty": {
			input:    `{"dteday": [], "site_id": [], "cnt": []}`,
			expected: []forecaster.Observation{},
		},
		"missing count": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"]}`,
			err:   ErrMissingColumn,
		},
		"missing covariate": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1]}`,
			exog:  []string{"holiday"},
			err:   ErrMissingColumn,
		},
		"non numeric covariate": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1], "holiday": ["no"]}`,
			exog:  []string{"holiday"},
			err:   ErrNonNumeric,
		},
		"null covariate": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1], "holiday": [null]}`,
			exog:  []string{"holiday"},
			err:   ErrNonNumeric,
		},
		"fractional count": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1.5]}`,
			err:   ErrNonNumeric,
		},
		"huge count": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1e300]}`,
			err:   ErrNonNumeric,
		},
		"huge negative count": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [-1e300]}`,
			err:   ErrNonNumeric,
		},
		"count past int64": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [9223372036854775808]}`,
			err:   ErrNonNumeric,
		},
		"large count": {
			input: `{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1e15]}`,
			expected: []forecaster.Observation{
				{Date: day(1), SiteID: "a", Count: 1000000000000000, Covariates: map[string]float64{}},
			},
		},
		"ragged": {
			input: `{"dteday": ["2011-03-01", "2011-03-02"], "site_id": ["a"], "cnt": [1, 2]}`,
			err:   ErrColumnLength,
		},
		"bad date": {
			input: `{"dteday": ["03/01/2011"], "site_id": ["a"], "cnt": [1]}`,
			err:   ErrInvalidDate,
		},
		"bad index": {
			input: `{"dteday": {"a": "2011-03-01"}, "site_id": ["a"], "cnt": [1]}`,
			err:   ErrInvalidIndex,
		},
		"scalar column": {
			input: `{"dteday": "2011-03-01", "site_id": ["a"], "cnt": [1]}`,
			err:   ErrInvalidColumn,
		},
		"not an object": {
			input: `"hello"`,
			err:   ErrInvalidFrame,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := DecodeObservations(strings.NewReader(td.input), td.exog)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestDecodeBatch(t *testing.T) {
	input := `[
		{"dteday": ["2011-03-01", "2011-03-02"], "site_id": ["a", "a"], "cnt": [1, -1]},
		{"dteday": {"0": "2011-03-01"}, "site_id": {"0": "b"}, "cnt": {"0": 5}}
	]`

	res, err := DecodeBatch(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "a", res[0].SiteID)
	assert.Equal(t, -1, res[1].Count)
	assert.Equal(t, "b", res[2].SiteID)
	assert.Equal(t, 5, res[2].Count)

	res, err = Decode(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Len(t, res, 3)

	res, err = Decode(strings.NewReader(`{"dteday": ["2011-03-01"], "site_id": ["a"], "cnt": [1]}`), nil)
	require.NoError(t, err)
	assert.Len(t, res, 1)

	_, err = DecodeBatch(strings.NewReader(`[{"dteday": ["2011-03-01"], "site_id": ["a"]}]`), nil)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestDecodeSeries(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected []float64
		err      error
	}{
		"count list":     {input: `{"count": [1, 2, 3]}`, expected: []float64{1, 2, 3}},
		"cnt list":       {input: `{"cnt": [4, 5]}`, expected: []float64{4, 5}},
		"nested row":     {input: `{"count": [[1, 2, 3]]}`, expected: []float64{1, 2, 3}},
		"nested index":   {input: `{"count": {"0": [1, 2]}}`, expected: []float64{1, 2}},
		"records":        {input: `[{"count": [7, 8]}]`, expected: []float64{7, 8}},
		"single value":   {input: `{"count": [9]}`, expected: []float64{9}},
		"missing column": {input: `{"value": [1]}`, err: ErrMissingColumn},
		"empty records":  {input: `[]`, err: ErrMissingColumn},
		"non numeric":    {input: `{"count": ["a"]}`, err: ErrNonNumeric},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := DecodeSeries(strings.NewReader(td.input))
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestEncodeResults(t *testing.T) {
	res := forecaster.NewResults(
		[]forecaster.Observation{
			{Date: day(2), SiteID: "a", Count: -1},
			{Date: day(3), SiteID: "a", Count: -1},
		},
		[]int{10, 13},
		true,
	)

	testData := map[string]struct {
		res      *forecaster.Results
		orient   Orient
		expected string
		err      bool
	}{
		"list": {
			res:      res,
			orient:   OrientList,
			expected: `{"dteday":["2011-03-02","2011-03-03"],"site_id":["a","a"],"forecast":[10,13],"forecast_average":[11.5,11.5]}`,
		},
		"index": {
			res:      res,
			orient:   OrientIndex,
			expected: `{"dteday":{"0":"2011-03-02","1":"2011-03-03"},"site_id":{"0":"a","1":"a"},"forecast":{"0":10,"1":13},"forecast_average":{"0":11.5,"1":11.5}}`,
		},
		"no average": {
			res:      forecaster.NewResults([]forecaster.Observation{{Date: day(2), SiteID: "a"}}, []int{10}, false),
			expected: `{"dteday":["2011-03-02"],"site_id":["a"],"forecast":[10]}`,
		},
		"empty": {
			res:      forecaster.NewResults(nil, nil, true),
			expected: `{"dteday":[],"site_id":[],"forecast":[]}`,
		},
		"unknown orient": {
			res:    res,
			orient: "records",
			err:    true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := EncodeResults(&buf, td.res, td.orient)
			if td.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, td.expected, buf.String())
		})
	}
}

func TestEncodeSiteResults(t *testing.T) {
	res := []forecaster.SiteResults{
		{SiteID: "a", Results: forecaster.NewResults([]forecaster.Observation{{Date: day(2), SiteID: "a"}}, []int{1}, false)},
		{SiteID: "b", Results: forecaster.NewResults([]forecaster.Observation{{Date: day(2), SiteID: "b"}}, []int{2}, false)},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeSiteResults(&buf, res, OrientList))
	assert.JSONEq(t, `[
		{"dteday":["2011-03-02"],"site_id":["a"],"forecast":[1]},
		{"dteday":["2011-03-02"],"site_id":["b"],"forecast":[2]}
	]`, buf.String())
}

func TestEncodeSeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSeries(&buf, &forecaster.SeriesResult{Forecast: []int{1, 2}, WeeklyAverage: 1.5}))
	assert.JSONEq(t, `{"forecast":[1,2],"weekly_average":1.5}`, buf.String())
}

func TestObservationsRoundTrip(t *testing.T) {
	rows := []forecaster.Observation{
		{Date: day(1), SiteID: "a", Count: 3, Covariates: map[string]float64{"holiday": 0, "weekday": 2, "workingday": 1}},
		{Date: day(2), SiteID: "a", Count: -1, Covariates: map[string]float64{"holiday": 1, "weekday": 3, "workingday": 0}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeObservations(&buf, rows, testExog))

	res, err := DecodeObservations(&buf, testExog)
	require.NoError(t, err)
	assert.Equal(t, rows, res)

	buf.Reset()
	require.NoError(t, EncodeObservations(&buf, []forecaster.Observation{{Date: day(1), SiteID: "a"}}, []string{"holiday"}))
	_, err = DecodeObservations(&buf, []string{"holiday"})
	assert.ErrorIs(t, err, ErrNonNumeric)
}
