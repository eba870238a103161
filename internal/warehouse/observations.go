package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
)

// Sites returns the distinct site ids of the observations table in ascending order
func (w *Warehouse) Sites(ctx context.Context) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT DISTINCT site_id FROM observations ORDER BY site_id`)
	if err != nil {
		return nil, fmt.Errorf("unable to query sites, %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("unable to scan site, %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// History returns the observations of a site with from < dteday <= to ordered by date
func (w *Warehouse) History(ctx context.Context, site string, from, to time.Time) ([]forecaster.Observation, error) {
	query := w.rebind(`SELECT dteday, site_id, cnt, ` + strings.Join(CovariateColumns, ", ") + `
FROM observations
WHERE site_id = ? AND dteday > ? AND dteday <= ?
ORDER BY dteday`)
	return w.queryObservations(ctx, nil, query, site, formatDay(from), formatDay(to))
}

// Horizon returns the n days of observations of a site following day with the count replaced
// by the sentinel. Only the covariates of these rows are read.
func (w *Warehouse) Horizon(ctx context.Context, site string, day time.Time, n, sentinel int) ([]forecaster.Observation, error) {
	if n < 0 {
		return nil, ErrNegativeDays
	}
	query := w.rebind(`SELECT dteday, site_id, cnt, ` + strings.Join(CovariateColumns, ", ") + `
FROM observations
WHERE site_id = ? AND dteday > ? AND dteday <= ?
ORDER BY dteday`)
	return w.queryObservations(ctx, &sentinel, query, site, formatDay(day), formatDay(day.AddDate(0, 0, n)))
}

func (w *Warehouse) queryObservations(ctx context.Context, sentinel *int, query string, args ...any) ([]forecaster.Observation, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query observations, %w", err)
	}
	defer rows.Close()

	var out []forecaster.Observation
	for rows.Next() {
		var (
			day  string
			obs  forecaster.Observation
			covs = make([]sql.NullFloat64, len(CovariateColumns))
		)
		dest := []any{&day, &obs.SiteID, &obs.Count}
		for i := range covs {
			dest = append(dest, &covs[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("unable to scan observation, %w", err)
		}

		obs.Date, err = parseDay(day)
		if err != nil {
			return nil, fmt.Errorf("unable to parse dteday %q, %w", day, err)
		}
		obs.Covariates = make(map[string]float64, len(CovariateColumns))
		for i, c := range covs {
			if c.Valid {
				obs.Covariates[CovariateColumns[i]] = c.Float64
			}
		}
		if sentinel != nil {
			obs.Count = *sentinel
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// InsertObservations writes observations replacing rows with the same site and date.
// Covariates outside of CovariateColumns are not stored.
func (w *Warehouse) InsertObservations(ctx context.Context, obs []forecaster.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin insert, %w", err)
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx, w.rebind(`DELETE FROM observations WHERE site_id = ? AND dteday = ?`))
	if err != nil {
		return fmt.Errorf("unable to prepare delete, %w", err)
	}
	defer del.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 3+len(CovariateColumns)), ", ")
	ins, err := tx.PrepareContext(ctx, w.rebind(`INSERT INTO observations (dteday, site_id, cnt, `+
		strings.Join(CovariateColumns, ", ")+`) VALUES (`+placeholders+`)`))
	if err != nil {
		return fmt.Errorf("unable to prepare insert, %w", err)
	}
	defer ins.Close()

	for _, o := range obs {
		day := formatDay(o.Date)
		if _, err := del.ExecContext(ctx, o.SiteID, day); err != nil {
			return fmt.Errorf("unable to replace observation %s %s, %w", o.SiteID, day, err)
		}
		args := []any{day, o.SiteID, o.Count}
		for _, c := range CovariateColumns {
			v, exists := o.Covariates[c]
			args = append(args, sql.NullFloat64{Float64: v, Valid: exists})
		}
		if _, err := ins.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("unable to insert observation %s %s, %w", o.SiteID, day, err)
		}
	}
	return tx.Commit()
}
