// Package orchestrate runs the daily forecast task: every site of the warehouse is forecast
// through a deployed pipeline and the results are staged back into the warehouse.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
	"github.com/aouyang1/go-arimax/calendar"
	"github.com/aouyang1/go-arimax/internal/config"
	"github.com/aouyang1/go-arimax/internal/registry"
	"github.com/go-co-op/gocron"
)

var ErrNonPositiveInterval = errors.New("schedule interval must be positive")

// Warehouse is the tabular source and sink of the task
type Warehouse interface {
	Sites(ctx context.Context) ([]string, error)
	History(ctx context.Context, site string, from, to time.Time) ([]forecaster.Observation, error)
	Horizon(ctx context.Context, site string, day time.Time, n, sentinel int) ([]forecaster.Observation, error)
	InsertForecasts(ctx context.Context, res *forecaster.Results, createdAt time.Time) error
}

// Runner executes the forecast task against a registry and warehouse
type Runner struct {
	Registry  registry.Registry
	Warehouse Warehouse
	Config    config.Config

	// Calendar builds future rows when the warehouse has none for a site. Defaults to the US
	// federal calendar.
	Calendar *calendar.Calendar

	Logger *slog.Logger
	Now    func() time.Time
}

// Report summarizes a task run
type Report struct {
	Day      time.Time `json:"day"`
	Sites    int       `json:"sites"`
	Rows     int       `json:"rows"`
	Failed   []string  `json:"failed,omitempty"`
	Duration string    `json:"duration"`
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// ResolvePipeline finds the configured workspace, creating it when absent, and the configured
// pipeline. A missing pipeline is built only when the config allows it.
func (r *Runner) ResolvePipeline() (*registry.Pipeline, error) {
	ws, err := registry.GetOrCreateWorkspace(r.Registry, r.Config.Workspace)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve workspace %s, %w", r.Config.Workspace, err)
	}

	p, exists := ws.FindPipeline(r.Config.Pipeline)
	if exists {
		return p, nil
	}
	if !r.Config.CreatePipeline {
		return nil, fmt.Errorf("%s in workspace %s, %w", r.Config.Pipeline, ws.Name(), registry.ErrPipelineNotFound)
	}

	opt, err := r.Config.ForecastOptions()
	if err != nil {
		return nil, err
	}
	p, err = ws.BuildPipeline(r.Config.Pipeline, opt)
	if errors.Is(err, registry.ErrPipelineExists) {
		return ws.Pipeline(r.Config.Pipeline)
	}
	if err != nil {
		return nil, err
	}
	r.logger().Info("built pipeline", "workspace", ws.Name(), "pipeline", p.Name(), "preset", opt.Preset)
	return p, nil
}

// Run forecasts every site of the warehouse for the configured day. The pipeline is deployed
// for the duration of the run and undeployed on exit. Sites that fail are reported and do not
// stop the remaining sites.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := r.now()
	log := r.logger()

	p, err := r.ResolvePipeline()
	if err != nil {
		return nil, err
	}
	if err := p.Deploy(); err != nil {
		return nil, fmt.Errorf("unable to deploy pipeline %s, %w", p.Name(), err)
	}
	defer func() {
		if err := p.Undeploy(); err != nil {
			log.Warn("unable to undeploy pipeline", "pipeline", p.Name(), "error", err)
			return
		}
		log.Info("undeployed pipeline", "pipeline", p.Name())
	}()

	day, err := r.Config.ForecastDay(start)
	if err != nil {
		return nil, err
	}
	log.Info("running forecast", "day", day.Format(time.DateOnly), "pipeline", p.Name())

	sites, err := r.Warehouse.Sites(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list sites, %w", err)
	}
	log.Info("found sites", "count", len(sites))

	parallelism := r.Config.Forecast.Parallelism
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	rows := make([]int, len(sites))
	errs := make([]error, len(sites))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, site := range sites {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, site string) {
			defer func() {
				wg.Done()
				<-sem
			}()
			rows[i], errs[i] = r.forecastSite(ctx, p, site, day, start)
		}(i, site)
	}
	wg.Wait()

	report := &Report{Day: day, Sites: len(sites)}
	for i, site := range sites {
		if errs[i] != nil {
			log.Warn("site forecast failed", "site", site, "error", errs[i])
			report.Failed = append(report.Failed, site)
			errs[i] = fmt.Errorf("site %s, %w", site, errs[i])
			continue
		}
		report.Rows += rows[i]
	}
	report.Duration = r.now().Sub(start).String()
	log.Info("forecast complete", "sites", report.Sites, "rows", report.Rows, "failed", len(report.Failed))

	return report, errors.Join(errs...)
}

func (r *Runner) forecastSite(ctx context.Context, p *registry.Pipeline, site string, day, createdAt time.Time) (int, error) {
	cfg := r.Config.Forecast
	sentinel := p.Options().Sentinel

	hist, err := r.Warehouse.History(ctx, site, day.AddDate(0, -cfg.LookbackMonths, 0), day)
	if err != nil {
		return 0, err
	}
	future, err := r.Warehouse.Horizon(ctx, site, day, cfg.Horizon, sentinel)
	if err != nil {
		return 0, err
	}
	if len(future) == 0 && len(hist) > 0 {
		future, err = r.calendarHorizon(site, hist[len(hist)-1].Date, cfg.Horizon, sentinel)
		if err != nil {
			return 0, err
		}
		r.logger().Debug("using calendar covariates for horizon", "site", site, "days", len(future))
	}

	rows := make([]forecaster.Observation, 0, len(hist)+len(future))
	rows = append(rows, hist...)
	rows = append(rows, future...)

	res, err := p.Infer(rows)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, sr := range res {
		if err := r.Warehouse.InsertForecasts(ctx, sr.Results, createdAt); err != nil {
			return n, fmt.Errorf("unable to stage forecasts, %w", err)
		}
		n += sr.Results.Len()
	}
	r.logger().Debug("forecast site", "site", site, "history", len(hist), "rows", n)
	return n, nil
}

func (r *Runner) calendarHorizon(site string, last time.Time, n, sentinel int) ([]forecaster.Observation, error) {
	cal := r.Calendar
	if cal == nil {
		cal = calendar.New()
	}
	days, err := cal.Horizon(last, n, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	return forecaster.FutureRows(site, days, sentinel), nil
}

// Schedule runs the task every interval until ctx is done. The first run starts immediately
// and runs never overlap.
func (r *Runner) Schedule(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("got %s, %w", every, ErrNonPositiveInterval)
	}
	log := r.logger()

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	_, err := scheduler.Every(every).Do(func() {
		log.Info("scheduled forecast run")
		if _, err := r.Run(ctx); err != nil {
			log.Error("scheduled forecast run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("unable to schedule forecast, %w", err)
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	log.Info("forecast scheduler stopped")
	return nil
}
