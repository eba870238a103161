package feature

import (
	"errors"
	"fmt"
)

var (
	ErrDataLenMismatch = errors.New("feature data length does not match set length")
	ErrFeatureExists   = errors.New("feature already exists in set")
)

// Set holds equal length column data for each feature in insertion order
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

// NewSet creates an empty feature set
func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Add stores a copy of the data for a new feature. The first feature added fixes the number
// of observations of the set.
func (s *Set) Add(f Feature, data []float64) error {
	key := f.String()
	if _, exists := s.set[key]; exists {
		return fmt.Errorf("feature %s, %w", key, ErrFeatureExists)
	}
	if len(s.labels) > 0 && len(data) != s.m {
		return fmt.Errorf("feature %s has %d values, expected %d, %w", key, len(data), s.m, ErrDataLenMismatch)
	}
	if len(s.labels) == 0 {
		s.m = len(data)
	}

	d := make([]float64, len(data))
	copy(d, data)
	s.set[key] = d
	s.labels = append(s.labels, f)
	return nil
}

// Get returns the feature data if it exists
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	d, exists := s.set[f.String()]
	return d, exists
}

// Width returns the number of features
func (s *Set) Width() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Labels returns the features in insertion order
func (s *Set) Labels() *Labels {
	if s == nil {
		return nil
	}
	labels := make([]Feature, len(s.labels))
	copy(labels, s.labels)
	return NewLabels(labels)
}

// Rows returns the set as one slice per observation with features ordered as in Labels.
// An empty set returns nil.
func (s *Set) Rows() [][]float64 {
	if s == nil || len(s.labels) == 0 {
		return nil
	}
	rows := make([][]float64, s.m)
	for i := range rows {
		row := make([]float64, len(s.labels))
		for j, l := range s.labels {
			row[j] = s.set[l.String()][i]
		}
		rows[i] = row
	}
	return rows
}
