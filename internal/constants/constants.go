package constants

import "time"

const (
	ProviderTimeout = 10 * time.Second
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// MinEventsForPublic is the default visibility floor: below this many
	// scored events a player's summary stays private and tier reads unknown.
	MinEventsForPublic = 5

	RecalcParallelism = 8

	// RecalcInterval drives the periodic decay refresh. Scores only move when
	// recomputed, so cached summaries drift until the next pass.
	RecalcInterval = 1 * time.Hour
)

const (
	// MaxDeliveryAttempts bounds how many failed attempts per channel the
	// retry sweep will accrue before giving up on that channel.
	MaxDeliveryAttempts = 5

	RetryInterval   = 2 * time.Minute
	RetryBatchLimit = 100

	// SenderMaxRetries bounds transient-error retries inside one provider
	// call; anything beyond reports as a single failed attempt.
	SenderMaxRetries   = 2
	SenderRetryBackoff = 500 * time.Millisecond
)
