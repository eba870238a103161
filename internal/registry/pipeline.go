package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
)

var ErrNotDeployed = errors.New("pipeline is not deployed")

type State string

const (
	StateUndeployed State = "undeployed"
	StateRunning    State = "running"
)

// Status is a point in time view of a pipeline
type Status struct {
	Name       string            `json:"name"`
	State      State             `json:"state"`
	Preset     forecaster.Preset `json:"preset,omitempty"`
	DeployedAt *time.Time        `json:"deployed_at,omitempty"`
	Inferences int64             `json:"inferences"`
	Failures   int64             `json:"failures"`
}

// Pipeline serves forecasts with fixed options once deployed. Every inference fits its own
// models so concurrent inferences share no state.
type Pipeline struct {
	name string
	opt  *forecaster.Options

	// Parallelism bounds the number of sites forecast concurrently by one inference
	Parallelism int

	mu         sync.RWMutex
	deployed   bool
	deployedAt time.Time
	inferences int64
	failures   int64
}

func newPipeline(name string, opt *forecaster.Options) (*Pipeline, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate pipeline options, %w", err)
	}
	return &Pipeline{name: name, opt: opt}, nil
}

func (p *Pipeline) Name() string {
	return p.name
}

// Options returns a copy of the forecaster options of the pipeline
func (p *Pipeline) Options() *forecaster.Options {
	opt, _ := p.opt.Validate()
	return opt
}

// Deploy makes the pipeline available for inference. Deploying a running pipeline is a no-op.
func (p *Pipeline) Deploy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deployed {
		return nil
	}
	p.deployed = true
	p.deployedAt = time.Now().UTC()
	return nil
}

// Undeploy stops serving inferences. Undeploying a stopped pipeline is a no-op.
func (p *Pipeline) Undeploy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deployed = false
	p.deployedAt = time.Time{}
	return nil
}

func (p *Pipeline) Deployed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deployed
}

func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Status{
		Name:       p.name,
		State:      StateUndeployed,
		Preset:     p.opt.Preset,
		Inferences: p.inferences,
		Failures:   p.failures,
	}
	if p.deployed {
		s.State = StateRunning
		at := p.deployedAt
		s.DeployedAt = &at
	}
	return s
}

func (p *Pipeline) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inferences++
	if err != nil {
		p.failures++
	}
}

// Infer forecasts the future rows of every site in rows. Sites are returned in the order they
// first appear.
func (p *Pipeline) Infer(rows []forecaster.Observation) ([]forecaster.SiteResults, error) {
	if !p.Deployed() {
		return nil, fmt.Errorf("%s, %w", p.name, ErrNotDeployed)
	}
	if len(rows) == 0 {
		err := forecaster.ErrNoHistory
		p.record(err)
		return nil, err
	}
	res, err := forecaster.ForecastSites(rows, p.opt, p.Parallelism)
	p.record(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// InferSeries forecasts a single count series without covariates
func (p *Pipeline) InferSeries(counts []float64) (*forecaster.SeriesResult, error) {
	if !p.Deployed() {
		return nil, fmt.Errorf("%s, %w", p.name, ErrNotDeployed)
	}
	f, err := forecaster.New(p.opt)
	if err != nil {
		return nil, err
	}
	res, err := f.ForecastSeries(counts)
	p.record(err)
	return res, err
}
