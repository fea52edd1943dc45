package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// OAuth correlation entries are unusable after this TTL; completeAuth
// rejects older entries and beginAuth purges them lazily.
const OAuthStateTTL = 10 * time.Minute

// Cookie session lifetime
const SessionMaxAge = 24 * time.Hour

// Default per-user rate limiting on the authenticated API
const DefaultRateLimitPerMin = 60

// Outbound provider HTTP client timeout
const ProviderRequestTimeout = 30 * time.Second
