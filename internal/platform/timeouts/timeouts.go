// Package timeouts defines shared timeout constants used by the web and
// worker processes.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown. The platform sends SIGKILL 30s after SIGTERM.
const Shutdown = 10 * time.Second

// DatabaseConnect caps the wait for the first database round trip.
const DatabaseConnect = 10 * time.Second

// CacheDial caps the wait when dialing the cache.
const CacheDial = 5 * time.Second

// CacheOperation caps a single cache command round trip.
const CacheOperation = 2 * time.Second

// HealthCheck caps a single health check from the healthcheck command.
const HealthCheck = 3 * time.Second
