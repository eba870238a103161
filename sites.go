package forecaster

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// SiteResults pairs a site with its forecast
type SiteResults struct {
	SiteID  string   `json:"site_id"`
	Results *Results `json:"results"`
}

// ForecastSites groups rows by site and forecasts every site concurrently with at most
// parallelism sites in flight. Each site gets its own Forecaster. Results are returned in the
// order sites first appear and any site failure fails the whole batch. A parallelism below 1
// uses the number of CPUs.
func ForecastSites(rows []Observation, opt *Options, parallelism int) ([]SiteResults, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate forecaster options, %w", err)
	}
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	sites, groups := GroupBySite(rows)
	out := make([]SiteResults, len(sites))
	errs := make([]error, len(sites))

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, site := range sites {
		sem <- struct{}{}
		wg.Add(1)

		go runSite(i, site, groups[site], opt, out, errs, &wg, sem)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func runSite(i int, site string, rows []Observation, opt *Options, out []SiteResults, errs []error, wg *sync.WaitGroup, sem chan struct{}) {
	defer func() {
		wg.Done()
		<-sem
	}()

	f, err := New(opt)
	if err != nil {
		errs[i] = err
		return
	}
	res, err := f.Forecast(rows)
	if err != nil {
		errs[i] = fmt.Errorf("site %s, %w", site, err)
		return
	}
	out[i] = SiteResults{SiteID: site, Results: res}
}
