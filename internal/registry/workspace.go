package registry

import (
	"fmt"
	"sort"
	"sync"

	forecaster "github.com/aouyang1/go-arimax"
)

// Workspace groups pipelines under a name
type Workspace struct {
	name string

	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

func newWorkspace(name string) *Workspace {
	return &Workspace{name: name, pipelines: make(map[string]*Pipeline)}
}

func (w *Workspace) Name() string {
	return w.name
}

// FindPipeline returns the named pipeline and whether it exists
func (w *Workspace) FindPipeline(name string) (*Pipeline, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, exists := w.pipelines[name]
	return p, exists
}

// Pipeline returns the named pipeline or ErrPipelineNotFound
func (w *Workspace) Pipeline(name string) (*Pipeline, error) {
	p, exists := w.FindPipeline(name)
	if !exists {
		return nil, fmt.Errorf("%s in workspace %s, %w", name, w.name, ErrPipelineNotFound)
	}
	return p, nil
}

// BuildPipeline creates an undeployed pipeline forecasting with the given options
func (w *Workspace) BuildPipeline(name string, opt *forecaster.Options) (*Pipeline, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	p, err := newPipeline(name, opt)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.pipelines[name]; exists {
		return nil, fmt.Errorf("%s in workspace %s, %w", name, w.name, ErrPipelineExists)
	}
	w.pipelines[name] = p
	return p, nil
}

// Pipelines lists the pipeline names in ascending order
func (w *Workspace) Pipelines() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.pipelines))
	for name := range w.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
