package forecaster

import (
	"time"

	"github.com/aouyang1/go-arimax/calendar"
)

// Observation is a single day of counts for a site along with its covariates. A Count equal
// to the sentinel marks a future row whose count is unknown.
type Observation struct {
	Date       time.Time          `json:"dteday"`
	SiteID     string             `json:"site_id"`
	Count      int                `json:"cnt"`
	Covariates map[string]float64 `json:"covariates,omitempty"`
}

// IsFuture reports whether the row is a future row
func (o Observation) IsFuture(sentinel int) bool {
	return o.Count == sentinel
}

// Partition splits rows into historical rows and future rows keeping the relative order
// within each
func Partition(rows []Observation, sentinel int) ([]Observation, []Observation) {
	hist := make([]Observation, 0, len(rows))
	future := make([]Observation, 0)
	for _, r := range rows {
		if r.IsFuture(sentinel) {
			future = append(future, r)
			continue
		}
		hist = append(hist, r)
	}
	return hist, future
}

// GroupBySite groups rows by site id. Sites are returned in the order they are first seen and
// rows keep their relative order.
func GroupBySite(rows []Observation) ([]string, map[string][]Observation) {
	var sites []string
	groups := make(map[string][]Observation)
	for _, r := range rows {
		if _, exists := groups[r.SiteID]; !exists {
			sites = append(sites, r.SiteID)
		}
		groups[r.SiteID] = append(groups[r.SiteID], r)
	}
	return sites, groups
}

// FutureRows converts calendar days into sentinel rows for a site
func FutureRows(siteID string, days []calendar.Day, sentinel int) []Observation {
	rows := make([]Observation, 0, len(days))
	for _, d := range days {
		cov := make(map[string]float64, len(d.Covariates))
		for k, v := range d.Covariates {
			cov[k] = v
		}
		rows = append(rows, Observation{
			Date:       d.Date,
			SiteID:     siteID,
			Count:      sentinel,
			Covariates: cov,
		})
	}
	return rows
}
