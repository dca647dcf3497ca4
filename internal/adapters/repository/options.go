package repository

import (
	"database/sql"

	"github.com/okian/fires/pkg/logger"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSkipMigrations leaves the schema untouched on open.
func WithSkipMigrations() Option {
	return func(s *SQLStore) {
		s.skipMigrations = true
	}
}

// openDB is a package-level var to allow test injection.
var openDB = sql.Open
