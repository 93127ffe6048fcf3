package db

import "time"

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10

	defaultMaxConns        = 5
	defaultMinConns        = 1
	defaultMaxConnLifetime = time.Hour

	migrationLockID = 1000
)

const (
	errFetchPending = "fetch pending %s: %w"
	errUpdateItem   = "%s item %d: %w"
)
