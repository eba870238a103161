// Package registry keeps named workspaces and the forecast pipelines deployed in them. Lookups
// return an explicit found flag so callers decide whether a missing entry is created or
// reported.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrWorkspaceExists   = errors.New("workspace already exists")
	ErrPipelineNotFound  = errors.New("pipeline not found")
	ErrPipelineExists    = errors.New("pipeline already exists")
	ErrEmptyName         = errors.New("name must not be empty")
)

// Registry resolves workspaces by name
type Registry interface {
	FindWorkspace(name string) (*Workspace, bool)
	CreateWorkspace(name string) (*Workspace, error)
}

var _ Registry = (*Local)(nil)

// Local is an in-process registry safe for concurrent use
type Local struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// New creates an empty in-process registry
func New() *Local {
	return &Local{workspaces: make(map[string]*Workspace)}
}

// FindWorkspace returns the named workspace and whether it exists
func (l *Local) FindWorkspace(name string) (*Workspace, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ws, exists := l.workspaces[name]
	return ws, exists
}

// CreateWorkspace adds an empty workspace
func (l *Local) CreateWorkspace(name string) (*Workspace, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.workspaces[name]; exists {
		return nil, fmt.Errorf("%s, %w", name, ErrWorkspaceExists)
	}
	ws := newWorkspace(name)
	l.workspaces[name] = ws
	return ws, nil
}

// Workspace returns the named workspace or ErrWorkspaceNotFound
func (l *Local) Workspace(name string) (*Workspace, error) {
	ws, exists := l.FindWorkspace(name)
	if !exists {
		return nil, fmt.Errorf("%s, %w", name, ErrWorkspaceNotFound)
	}
	return ws, nil
}

// Workspaces lists the workspace names in ascending order
func (l *Local) Workspaces() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.workspaces))
	for name := range l.workspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetOrCreateWorkspace returns the named workspace creating it when absent
func GetOrCreateWorkspace(r Registry, name string) (*Workspace, error) {
	if ws, exists := r.FindWorkspace(name); exists {
		return ws, nil
	}
	ws, err := r.CreateWorkspace(name)
	if errors.Is(err, ErrWorkspaceExists) {
		// created concurrently
		if ws, exists := r.FindWorkspace(name); exists {
			return ws, nil
		}
	}
	return ws, err
}
