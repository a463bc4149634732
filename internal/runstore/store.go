// Package runstore persists per-job records for observability.
package runstore

import (
	"context"
	"errors"

	"comfybridge/pkg/types"
)

// ErrJobNotFound is returned when no record exists for a job id.
var ErrJobNotFound = errors.New("job not found")

// Store records the lifecycle of handled jobs. Implementations must be safe
// for concurrent use.
type Store interface {
	// Create inserts a new record.
	Create(ctx context.Context, rec *types.JobRecord) error

	// Update replaces the record with the same id.
	Update(ctx context.Context, rec *types.JobRecord) error

	// Get returns the record for a job id.
	Get(ctx context.Context, id string) (*types.JobRecord, error)

	// List returns recent records, newest first.
	List(ctx context.Context) ([]*types.JobRecord, error)

	// Ping checks backend health.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Config holds configuration shared by Store implementations.
type Config struct {
	// MaxRecords bounds how many records are kept (memory store).
	MaxRecords int

	// TTL bounds how long records are kept (redis store).
	TTLSeconds int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRecords: 1000,
		TTLSeconds: 24 * 60 * 60,
	}
}
