// Package feature tracks the named regressors of a fit and their column data
package feature

type FeatureType int

const (
	FeatureTypeCovariate FeatureType = iota
	FeatureTypeCalendar
)

func (f FeatureType) String() string {
	switch f {
	case FeatureTypeCovariate:
		return "covariate"
	case FeatureTypeCalendar:
		return "calendar"
	}
	return "unknown"
}

type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}
