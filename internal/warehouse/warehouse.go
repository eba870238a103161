// Package warehouse reads observation rows from and writes forecast rows to a SQL database
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrNegativeDays  = errors.New("number of days must be non-negative")
)

// CovariateColumns are the covariate columns of the observations table
var CovariateColumns = []string{"season", "holiday", "weekday", "workingday"}

// Warehouse wraps a database connection holding the observations and forecasts tables
type Warehouse struct {
	db     *sql.DB
	driver string
}

// Open connects to the database with the given driver and brings the schema up to date
func Open(ctx context.Context, driver, dsn string) (*Warehouse, error) {
	if !knownDriver(driver) {
		return nil, fmt.Errorf("%q, %w", driver, ErrUnknownDriver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s database, %w", driver, err)
	}

	w, err := New(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// New wraps an open database and migrates its schema
func New(ctx context.Context, db *sql.DB, driver string) (*Warehouse, error) {
	if !knownDriver(driver) {
		return nil, fmt.Errorf("%q, %w", driver, ErrUnknownDriver)
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer per database file
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to reach %s database, %w", driver, err)
	}

	w := &Warehouse{db: db, driver: driver}
	if err := w.migrate(ctx); err != nil {
		return nil, fmt.Errorf("unable to migrate schema, %w", err)
	}
	return w, nil
}

func knownDriver(driver string) bool {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return true
	}
	return false
}

// Close closes the database connection
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// Driver returns the database driver name
func (w *Warehouse) Driver() string {
	return w.driver
}

// rebind converts ? placeholders into the positional form of the driver
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func (w *Warehouse) rebind(query string) string {
	return rebind(w.driver, query)
}

func formatDay(t time.Time) string {
	return t.Format(time.DateOnly)
}

func parseDay(s string) (time.Time, error) {
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	return time.Parse(time.DateOnly, s)
}
