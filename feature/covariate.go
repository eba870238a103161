package feature

import (
	"strings"

	"github.com/goccy/go-json"
)

// Covariate is an exogenous regressor supplied alongside the observed counts such as a
// holiday flag or the day of week
type Covariate struct {
	Name string `json:"name"`

	// Calendar marks covariates that can be derived from the date alone
	Calendar bool `json:"calendar,omitempty"`
}

// NewCovariate creates a covariate feature from a column name
func NewCovariate(name string) *Covariate {
	return &Covariate{Name: name}
}

// NewCalendarCovariate creates a covariate feature that is derived from the date
func NewCalendarCovariate(name string) *Covariate {
	return &Covariate{Name: name, Calendar: true}
}

// String returns the column name of the covariate
func (c Covariate) String() string {
	return c.Name
}

// Get returns the value of an arbitrary label and returns the value along with whether
// the label exists
func (c Covariate) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	}
	return "", false
}

func (c Covariate) Type() FeatureType {
	if c.Calendar {
		return FeatureTypeCalendar
	}
	return FeatureTypeCovariate
}

// Decode converts the feature into a map of label values
func (c Covariate) Decode() map[string]string {
	return map[string]string{
		"name": c.Name,
	}
}

// UnmarshalJSON is the custom unmarshalling to convert a map[string]string
// to a covariate feature
func (c *Covariate) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name     string `json:"name"`
		Calendar bool   `json:"calendar"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	c.Name = labelStr.Name
	c.Calendar = labelStr.Calendar
	return nil
}
