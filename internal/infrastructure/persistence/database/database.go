// Package database opens the optional SQL record backend.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/pkg/config"
)

// Drivers.
const (
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

// DB wraps the standard connection pool.
type DB struct {
	*sql.DB
	Driver string
}

// Options selects and locates the database.
type Options struct {
	Driver    string
	Path      string // sqlite3 file
	URL       string // libsql URL
	AuthToken string
}

// DataSourceName builds the DSN for the selected driver.
func (o Options) DataSourceName() (string, error) {
	switch o.Driver {
	case DriverSQLite:
		if o.Path == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", o.Path), nil
	case DriverLibSQL:
		if o.URL == "" {
			return "", fmt.Errorf("libsql url is required")
		}
		if o.AuthToken == "" {
			return o.URL, nil
		}
		u, err := url.Parse(o.URL)
		if err != nil {
			return "", fmt.Errorf("invalid libsql url: %w", err)
		}
		q := u.Query()
		q.Set("authToken", o.AuthToken)
		u.RawQuery = q.Encode()
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", o.Driver)
	}
}

// NewConnectionWithLogger opens and pings the database, logging timing on the
// database channel.
func NewConnectionWithLogger(ctx context.Context, opts Options, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", opts.Driver)

	dsn, err := opts.DataSourceName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", opts.Driver)
		return nil, err
	}
	if opts.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.DBMaxOpenConns)
		db.SetMaxIdleConns(config.DBMaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", opts.Driver)
		return nil, err
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", opts.Driver, "duration", duration)
	CheckAndLogSlowQuery(logger, "DATABASE_CONNECTION", duration)

	return &DB{DB: db, Driver: opts.Driver}, nil
}
