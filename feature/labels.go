package feature

// Labels tracks a slice of features in the order of the coefficients assigned to them.
type Labels struct {
	labels []Feature
}

func NewLabels(labels []Feature) *Labels {
	return &Labels{labels: labels}
}

func (f *Labels) Labels() []Feature {
	if f == nil {
		return nil
	}
	labels := make([]Feature, len(f.labels))
	copy(labels, f.labels)
	return labels
}

// Names returns the string representation of each label in order
func (f *Labels) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.labels))
	for _, l := range f.labels {
		names = append(names, l.String())
	}
	return names
}
