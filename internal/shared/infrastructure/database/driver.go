// Package database opens the storage backends that hold the offline queue
// and its sibling key-value state.
package database

import "strings"

// Driver identifies a storage backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
)

// String returns the string representation of the driver.
func (d Driver) String() string {
	return string(d)
}

// DetectDriver inspects a connection string and returns its backend.
// Anything that is not a postgres or redis URL is treated as a SQLite path,
// so an empty string selects the zero-config local store.
func DetectDriver(url string) Driver {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return DriverRedis
	default:
		return DriverSQLite
	}
}

// IsValid returns true if the driver is a known type.
func (d Driver) IsValid() bool {
	switch d {
	case DriverSQLite, DriverPostgres, DriverRedis:
		return true
	default:
		return false
	}
}
