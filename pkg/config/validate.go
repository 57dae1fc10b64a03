// Package config loads and validates service configuration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidateCore ensures critical configuration is present and consistent.
func (c *Config) ValidateCore() error {
	var missing []string
	var invalid []string

	switch c.Store.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverMemory:
	default:
		invalid = append(invalid, fmt.Sprintf("STORE_DRIVER=%q", c.Store.Driver))
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == defaultJWTSecret {
		missing = append(missing, "JWT_SECRET")
	}

	if c.Store.QueryTimeout <= 0 {
		invalid = append(invalid, "STORE_QUERY_TIMEOUT must be positive")
	}
	if c.Pagination.DefaultLimit <= 0 {
		invalid = append(invalid, "PAGINATION_DEFAULT_LIMIT must be positive")
	}
	if c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		invalid = append(invalid, "PAGINATION_MAX_LIMIT must not be below PAGINATION_DEFAULT_LIMIT")
	}
	// The zone name is handed to the database, which only knows IANA names.
	if _, err := time.LoadLocation(c.Stats.Timezone); err != nil || c.Stats.Timezone == "Local" {
		invalid = append(invalid, fmt.Sprintf("STATS_TIMEZONE=%q", c.Stats.Timezone))
	}
	if c.Realtime.QueueSize <= 0 {
		invalid = append(invalid, "REALTIME_QUEUE_SIZE must be positive")
	}
	if c.Realtime.MaxDropped <= 0 {
		invalid = append(invalid, "REALTIME_MAX_DROPPED must be positive")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, "; "))
	}

	return nil
}

// Location resolves the stats timezone. Call after ValidateCore.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
