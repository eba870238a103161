// Package frame converts between columnar JSON tables and forecaster rows. A table is a JSON
// object of named columns where each column is either a list of values or a map from row
// index to value.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
	"github.com/goccy/go-json"
)

// Column names of the observation table
const (
	ColDate     = "dteday"
	ColSiteID   = "site_id"
	ColCount    = "cnt"
	ColCountAlt = "count"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrNonNumeric    = errors.New("column value is not numeric")
	ErrColumnLength  = errors.New("columns have different lengths")
	ErrInvalidIndex  = errors.New("column index is not a row number")
	ErrInvalidDate   = errors.New("unable to parse date")
	ErrInvalidColumn = errors.New("column is neither a list nor an index map")
	ErrInvalidFrame  = errors.New("frame is not a json object of columns")
)

// Orient selects the column layout of an encoded table
type Orient string

const (
	// OrientList writes every column as a list of values
	OrientList Orient = "list"

	// OrientIndex writes every column as a map from row index to value
	OrientIndex Orient = "index"
)

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
}

// column is the ordered list of raw values of a single table column
type column []json.RawMessage

// table is a decoded frame keyed by column name
type table struct {
	cols map[string]column
	n    int
}

func decodeTable(data []byte) (*table, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrInvalidFrame, err)
	}

	t := &table{cols: make(map[string]column, len(raw)), n: -1}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		col, err := decodeColumn(raw[name])
		if err != nil {
			return nil, fmt.Errorf("column %s, %w", name, err)
		}
		if t.n >= 0 && len(col) != t.n {
			return nil, fmt.Errorf("column %s has %d values, expected %d, %w", name, len(col), t.n, ErrColumnLength)
		}
		t.n = len(col)
		t.cols[name] = col
	}
	if t.n < 0 {
		t.n = 0
	}
	return t, nil
}

// decodeColumn accepts a list of values or an index map ordered by its integer keys
func decodeColumn(data json.RawMessage) (column, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrInvalidColumn
	}

	switch data[0] {
	case '[':
		var col column
		if err := json.Unmarshal(data, &col); err != nil {
			return nil, err
		}
		return col, nil
	case '{':
		var idx map[string]json.RawMessage
		if err := json.Unmarshal(data, &idx); err != nil {
			return nil, err
		}
		keys := make([]int, 0, len(idx))
		byKey := make(map[int]json.RawMessage, len(idx))
		for k, v := range idx {
			i, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil {
				return nil, fmt.Errorf("key %q, %w", k, ErrInvalidIndex)
			}
			keys = append(keys, i)
			byKey[i] = v
		}
		sort.Ints(keys)

		col := make(column, 0, len(keys))
		for _, k := range keys {
			col = append(col, byKey[k])
		}
		return col, nil
	}
	return nil, ErrInvalidColumn
}

func (t *table) column(name string) (column, error) {
	col, exists := t.cols[name]
	if !exists {
		return nil, fmt.Errorf("%s, %w", name, ErrMissingColumn)
	}
	return col, nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(bytes.TrimSpace(v)) == "null"
}

func parseFloat(v json.RawMessage) (float64, error) {
	switch s := string(bytes.TrimSpace(v)); s {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	if isNull(v) {
		return 0, fmt.Errorf("null, %w", ErrNonNumeric)
	}

	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, fmt.Errorf("%s, %w", string(v), ErrNonNumeric)
	}
	return f, nil
}

func parseCount(v json.RawMessage) (int, error) {
	f, err := parseFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("count %s is not a whole number, %w", string(v), ErrNonNumeric)
	}
	// float64(math.MaxInt) can round up past the largest int
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, fmt.Errorf("count %s is out of range, %w", string(v), ErrNonNumeric)
	}
	return int(f), nil
}

func parseString(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	if isNull(v) {
		return "", nil
	}
	// numeric site ids are kept in their json form
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", fmt.Errorf("%s is not a string or number, %w", string(v), err)
	}
	return n.String(), nil
}

// parseDate reads a date string in one of the accepted layouts or epoch milliseconds
func parseDate(v json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		var ms int64
		if err := json.Unmarshal(v, &ms); err != nil {
			return time.Time{}, fmt.Errorf("%s, %w", string(v), ErrInvalidDate)
		}
		return time.UnixMilli(ms).UTC(), nil
	}

	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrInvalidDate)
}

// Decode reads either a single observation frame or a list of frames
func Decode(r io.Reader, exog []string) ([]forecaster.Observation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read frame, %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return decodeBatch(data, exog)
	}
	return decodeObservations(data, exog)
}

// DecodeObservations reads an observation frame with the date, site and count columns along
// with every named exogenous column. Numeric columns outside of the required set are kept as
// extra covariates.
func DecodeObservations(r io.Reader, exog []string) ([]forecaster.Observation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read frame, %w", err)
	}
	return decodeObservations(data, exog)
}

// DecodeBatch reads a list of observation frames, typically one per site, and concatenates
// their rows
func DecodeBatch(r io.Reader, exog []string) ([]forecaster.Observation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read frames, %w", err)
	}
	return decodeBatch(data, exog)
}

func decodeBatch(data []byte, exog []string) ([]forecaster.Observation, error) {
	var frames []json.RawMessage
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrInvalidFrame, err)
	}
	var rows []forecaster.Observation
	for i, f := range frames {
		obs, err := decodeObservations(f, exog)
		if err != nil {
			return nil, fmt.Errorf("frame %d, %w", i, err)
		}
		rows = append(rows, obs...)
	}
	return rows, nil
}

func decodeObservations(data []byte, exog []string) ([]forecaster.Observation, error) {
	t, err := decodeTable(data)
	if err != nil {
		return nil, err
	}

	dates, err := t.column(ColDate)
	if err != nil {
		return nil, err
	}
	sites, err := t.column(ColSiteID)
	if err != nil {
		return nil, err
	}
	counts, err := t.column(ColCount)
	if err != nil {
		return nil, err
	}
	for _, name := range exog {
		if _, err := t.column(name); err != nil {
			return nil, err
		}
	}

	required := map[string]struct{}{ColDate: {}, ColSiteID: {}, ColCount: {}}
	for _, name := range exog {
		required[name] = struct{}{}
	}
	var extra []string
	for name, col := range t.cols {
		if _, exists := required[name]; exists {
			continue
		}
		if numericColumn(col) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	rows := make([]forecaster.Observation, 0, t.n)
	for i := 0; i < t.n; i++ {
		date, err := parseDate(dates[i])
		if err != nil {
			return nil, fmt.Errorf("row %d %s, %w", i, ColDate, err)
		}
		site, err := parseString(sites[i])
		if err != nil {
			return nil, fmt.Errorf("row %d %s, %w", i, ColSiteID, err)
		}
		cnt, err := parseCount(counts[i])
		if err != nil {
			return nil, fmt.Errorf("row %d %s, %w", i, ColCount, err)
		}

		cov := make(map[string]float64, len(exog)+len(extra))
		for _, name := range exog {
			v, err := parseFloat(t.cols[name][i])
			if err != nil {
				return nil, fmt.Errorf("row %d %s, %w", i, name, err)
			}
			cov[name] = v
		}
		for _, name := range extra {
			if v, err := parseFloat(t.cols[name][i]); err == nil {
				cov[name] = v
			}
		}

		rows = append(rows, forecaster.Observation{
			Date:       date,
			SiteID:     site,
			Count:      cnt,
			Covariates: cov,
		})
	}
	return rows, nil
}

func numericColumn(col column) bool {
	for _, v := range col {
		if _, err := parseFloat(v); err != nil {
			return false
		}
	}
	return true
}

// DecodeSeries reads a single count series from a frame with a count or cnt column. The
// column may hold the values directly or a single row holding the list of values.
func DecodeSeries(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read frame, %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		// list of records, only the first record is read
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w, %w", ErrInvalidFrame, err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%s, %w", ColCountAlt, ErrMissingColumn)
		}
		data = records[0]
	}

	t, err := decodeTable(data)
	if err != nil {
		return nil, err
	}
	col, err := t.column(ColCountAlt)
	if errors.Is(err, ErrMissingColumn) {
		col, err = t.column(ColCount)
	}
	if err != nil {
		return nil, fmt.Errorf("%s or %w", ColCountAlt, err)
	}

	if len(col) == 1 {
		if nested, err := decodeColumn(col[0]); err == nil {
			col = nested
		}
	}

	counts := make([]float64, 0, len(col))
	for i, v := range col {
		f, err := parseFloat(v)
		if err != nil {
			return nil, fmt.Errorf("row %d, %w", i, err)
		}
		counts = append(counts, f)
	}
	return counts, nil
}
