package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
)

// StagedForecast is a forecast row along with the time it was written
type StagedForecast struct {
	forecaster.Result
	CreatedAt time.Time `json:"created_at"`
}

// InsertForecasts appends forecast results to the forecasts staging table
func (w *Warehouse) InsertForecasts(ctx context.Context, res *forecaster.Results, createdAt time.Time) error {
	rows := res.Rows()
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin insert, %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, w.rebind(
		`INSERT INTO forecasts (dteday, site_id, forecast, forecast_average, created_at) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("unable to prepare insert, %w", err)
	}
	defer stmt.Close()

	created := createdAt.UTC().Format(time.RFC3339)
	for _, r := range rows {
		var avg sql.NullFloat64
		if r.ForecastAverage != nil {
			avg = sql.NullFloat64{Float64: *r.ForecastAverage, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, formatDay(r.Date), r.SiteID, r.Forecast, avg, created); err != nil {
			return fmt.Errorf("unable to insert forecast %s %s, %w", r.SiteID, formatDay(r.Date), err)
		}
	}
	return tx.Commit()
}

// Forecasts returns the staged forecasts of a site ordered by date and write time
func (w *Warehouse) Forecasts(ctx context.Context, site string) ([]StagedForecast, error) {
	rows, err := w.db.QueryContext(ctx, w.rebind(`SELECT dteday, site_id, forecast, forecast_average, created_at
FROM forecasts
WHERE site_id = ?
ORDER BY dteday, created_at`), site)
	if err != nil {
		return nil, fmt.Errorf("unable to query forecasts, %w", err)
	}
	defer rows.Close()

	var out []StagedForecast
	for rows.Next() {
		var (
			day, created string
			avg          sql.NullFloat64
			f            StagedForecast
		)
		if err := rows.Scan(&day, &f.SiteID, &f.Forecast, &avg, &created); err != nil {
			return nil, fmt.Errorf("unable to scan forecast, %w", err)
		}
		if f.Date, err = parseDay(day); err != nil {
			return nil, fmt.Errorf("unable to parse dteday %q, %w", day, err)
		}
		if f.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("unable to parse created_at %q, %w", created, err)
		}
		if avg.Valid {
			v := avg.Float64
			f.ForecastAverage = &v
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
