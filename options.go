package forecaster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aouyang1/go-arimax/arima"
	"github.com/aouyang1/go-arimax/calendar"
)

const (
	DefaultSentinel    = -1
	DefaultSeriesSteps = 7
)

var (
	ErrUnknownPreset = errors.New("unknown forecast preset")
	ErrDuplicateExog = errors.New("exogenous covariate listed more than once")
	ErrEmptyExogName = errors.New("exogenous covariate has no name")
)

// Preset names a fixed model configuration
type Preset string

const (
	// PresetStandard is an ARIMA(1,0,1) on holiday, weekday and workingday with the forecast
	// window average attached
	PresetStandard Preset = "standard"

	// PresetARMA2 is an ARIMA(2,0,2) on the same covariates without the window average
	PresetARMA2 Preset = "arma2"
)

// DefaultExog are the covariates used by both presets
var DefaultExog = []string{calendar.Holiday, calendar.Weekday, calendar.Workingday}

// Options configures a Forecaster. Options are copied when a Forecaster is created so later
// changes do not affect it.
type Options struct {
	Preset Preset `json:"preset,omitempty"`

	// Exog lists the covariate names regressed on in column order
	Exog []string `json:"exog"`

	// WithAverage attaches the mean of the forecast window to every result row
	WithAverage bool `json:"with_average"`

	// Sentinel is the count marking a row as a future row. A zero value defaults to -1 since
	// a count of 0 is a valid observation.
	Sentinel int `json:"sentinel"`

	// SeriesSteps is the horizon of ForecastSeries
	SeriesSteps int `json:"series_steps"`

	ARIMA *arima.Options `json:"arima"`
}

// NewStandardOptions returns the ARIMA(1,0,1) preset
func NewStandardOptions() *Options {
	arimaOpt := arima.NewDefaultOptions()
	arimaOpt.Order = arima.Order101
	return &Options{
		Preset:      PresetStandard,
		Exog:        append([]string(nil), DefaultExog...),
		WithAverage: true,
		Sentinel:    DefaultSentinel,
		SeriesSteps: DefaultSeriesSteps,
		ARIMA:       arimaOpt,
	}
}

// NewARMA2Options returns the ARIMA(2,0,2) preset
func NewARMA2Options() *Options {
	arimaOpt := arima.NewDefaultOptions()
	arimaOpt.Order = arima.Order202
	return &Options{
		Preset:      PresetARMA2,
		Exog:        append([]string(nil), DefaultExog...),
		WithAverage: false,
		Sentinel:    DefaultSentinel,
		SeriesSteps: DefaultSeriesSteps,
		ARIMA:       arimaOpt,
	}
}

// NewDefaultOptions returns the standard preset
func NewDefaultOptions() *Options {
	return NewStandardOptions()
}

// NewPresetOptions looks up preset options by name
func NewPresetOptions(name string) (*Options, error) {
	switch Preset(strings.ToLower(strings.TrimSpace(name))) {
	case PresetStandard, "":
		return NewStandardOptions(), nil
	case PresetARMA2:
		return NewARMA2Options(), nil
	}
	return nil, fmt.Errorf("preset %q, %w", name, ErrUnknownPreset)
}

// Validate checks the options and returns a deep copy with defaults filled in. A nil receiver
// returns the default options.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}

	opt := *o
	opt.Exog = make([]string, 0, len(o.Exog))
	seen := make(map[string]struct{}, len(o.Exog))
	for _, name := range o.Exog {
		if name == "" {
			return nil, ErrEmptyExogName
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("covariate %s, %w", name, ErrDuplicateExog)
		}
		seen[name] = struct{}{}
		opt.Exog = append(opt.Exog, name)
	}

	if opt.Sentinel == 0 {
		opt.Sentinel = DefaultSentinel
	}
	if opt.SeriesSteps <= 0 {
		opt.SeriesSteps = DefaultSeriesSteps
	}

	arimaOpt, err := o.ARIMA.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate arima options, %w", err)
	}
	opt.ARIMA = arimaOpt
	return &opt, nil
}
