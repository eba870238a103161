// Package config loads the forecast task configuration from YAML with environment overrides
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Environment variables overriding the file configuration
const (
	EnvDriver    = "ARIMAX_WAREHOUSE_DRIVER"
	EnvDSN       = "ARIMAX_WAREHOUSE_DSN"
	EnvWorkspace = "ARIMAX_WORKSPACE"
	EnvPipeline  = "ARIMAX_PIPELINE"
	EnvDay       = "ARIMAX_FORECAST_DAY"
	EnvLogLevel  = "ARIMAX_LOG_LEVEL"
	EnvAddr      = "ARIMAX_SERVER_ADDR"
	EnvHorizon   = "ARIMAX_FORECAST_HORIZON"
)

var (
	ErrUnknownDriver   = errors.New("unknown warehouse driver")
	ErrEmptyName       = errors.New("workspace and pipeline names are required")
	ErrInvalidHorizon  = errors.New("forecast horizon must be positive")
	ErrInvalidLookback = errors.New("lookback must be positive")
	ErrInvalidDay      = errors.New("forecast day must be formatted as YYYY-MM-DD")
	ErrInvalidLevel    = errors.New("unknown log level")
)

// Drivers are the supported database/sql driver names
var Drivers = []string{"sqlite", "postgres", "mysql"}

type Config struct {
	Workspace      string    `yaml:"workspace"`
	Pipeline       string    `yaml:"pipeline"`
	CreatePipeline bool      `yaml:"create_pipeline"`
	Preset         string    `yaml:"preset"`
	Warehouse      Warehouse `yaml:"warehouse"`
	Forecast       Forecast  `yaml:"forecast"`
	Schedule       Schedule  `yaml:"schedule"`
	Server         Server    `yaml:"server"`
	Logging        Logging   `yaml:"logging"`
}

type Warehouse struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Forecast struct {
	Day            string `yaml:"day"`
	LookbackMonths int    `yaml:"lookback_months"`
	Horizon        int    `yaml:"horizon"`
	Parallelism    int    `yaml:"parallelism"`
}

type Schedule struct {
	Every time.Duration `yaml:"every"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Workspace:      "bikerental",
		Pipeline:       "bikeforecast-pipe",
		CreatePipeline: true,
		Preset:         string(forecaster.PresetStandard),
		Warehouse:      Warehouse{Driver: "sqlite", DSN: "file:bikerentals.db"},
		Forecast:       Forecast{LookbackMonths: 1, Horizon: 7, Parallelism: 4},
		Schedule:       Schedule{Every: 24 * time.Hour},
		Server:         Server{Addr: ":8080"},
		Logging:        Logging{Level: "INFO"},
	}
}

// Load reads a config YAML file and applies environment overrides. The optional env files are
// loaded into the process environment first without replacing variables already set. An
// empty path uses the defaults.
func Load(path string, envFiles ...string) (Config, error) {
	data := []byte{}
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("unable to read config, %w", err)
		}
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, err
	}

	if err := loadEnvFiles(envFiles...); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			slog.Debug("env file not found, using process environment", "file", f)
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("unable to load env file %s, %w", f, err)
		}
	}
	return nil
}

// parse parses YAML bytes into a Config, applying defaults
func parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to parse config, %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		EnvDriver:    &c.Warehouse.Driver,
		EnvDSN:       &c.Warehouse.DSN,
		EnvWorkspace: &c.Workspace,
		EnvPipeline:  &c.Pipeline,
		EnvDay:       &c.Forecast.Day,
		EnvLogLevel:  &c.Logging.Level,
		EnvAddr:      &c.Server.Addr,
	}
	for key, dst := range str {
		if v, exists := lookup(key); exists && v != "" {
			*dst = v
		}
	}

	if v, exists := lookup(EnvHorizon); exists && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q, %w", EnvHorizon, v, ErrInvalidHorizon)
		}
		c.Forecast.Horizon = n
	}
	return nil
}

// Validate checks the configuration values
func (c Config) Validate() error {
	if c.Workspace == "" || c.Pipeline == "" {
		return ErrEmptyName
	}
	known := false
	for _, d := range Drivers {
		if c.Warehouse.Driver == d {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%q, %w", c.Warehouse.Driver, ErrUnknownDriver)
	}
	if c.Forecast.Horizon <= 0 {
		return ErrInvalidHorizon
	}
	if c.Forecast.LookbackMonths <= 0 {
		return ErrInvalidLookback
	}
	if _, err := c.ForecastDay(time.Now()); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := c.ForecastOptions(); err != nil {
		return err
	}
	return nil
}

// ForecastOptions returns the forecaster preset named by the config
func (c Config) ForecastOptions() (*forecaster.Options, error) {
	return forecaster.NewPresetOptions(c.Preset)
}

// ForecastDay returns the configured forecast day or the UTC date of now when unset
func (c Config) ForecastDay(now time.Time) (time.Time, error) {
	if c.Forecast.Day == "" {
		now = now.UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(time.DateOnly, c.Forecast.Day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q, %w", c.Forecast.Day, ErrInvalidDay)
	}
	return day, nil
}

// LogLevel parses the configured slog level
func (c Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Logging.Level))); err != nil {
		return 0, fmt.Errorf("%q, %w", c.Logging.Level, ErrInvalidLevel)
	}
	return lvl, nil
}
