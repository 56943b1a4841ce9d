package v1

import "github.com/4thel00z/ucp/internal"

type (
	// Config is the connection configuration of a Client.
	Config = internal.ClientConfig
	// BreakerSettings configures WithCircuitBreaker.
	BreakerSettings = internal.BreakerSettings

	// Metadata holds arbitrary JSON values, passed through untouched.
	Metadata = internal.Metadata
	// MemoryRequest is the payload of Store.
	MemoryRequest = internal.MemoryRequest
	// Memory is a stored record. Score is set only on search results.
	Memory = internal.Memory
	// VectorQuery is the input of Search and StreamSearch.
	VectorQuery = internal.VectorQuery
	// ProjectStats is the result of Stats.
	ProjectStats = internal.ProjectStats
	// HealthStatus is the result of Health.
	HealthStatus = internal.HealthStatus

	// SearchStream is an open streaming search; see Client.StreamSearch.
	SearchStream = internal.SearchStream
)

// Error taxonomy. Use errors.As for the struct types and errors.Is for the
// sentinels.
type (
	TransportError = internal.TransportError
	DecodeError    = internal.DecodeError
	ServerError    = internal.ServerError
	RateLimitError = internal.RateLimitError
	ConfigError    = internal.ConfigError
)

var (
	ErrAuthentication = internal.ErrAuthentication
	ErrNotFound       = internal.ErrNotFound
	ErrInvalidRequest = internal.ErrInvalidRequest
	ErrStreamConsumed = internal.ErrStreamConsumed
	ErrCircuitOpen    = internal.ErrCircuitOpen
	ErrLineTooLong    = internal.ErrLineTooLong
)

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return internal.DefaultClientConfig()
}

// DefaultBreakerSettings returns conservative circuit breaker settings.
func DefaultBreakerSettings() BreakerSettings {
	return internal.DefaultBreakerSettings()
}
