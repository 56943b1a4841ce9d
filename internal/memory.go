package internal

import (
	"encoding/json"
	"time"
)

const (
	DefaultBaseURL    = "http://localhost:3001"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultUserAgent  = "ucp-go/dev"
)

// ClientConfig is the connection configuration of a client. It is copied into the
// client at construction and never mutated afterwards.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		UserAgent:  DefaultUserAgent,
	}
}

// Metadata holds arbitrary JSON values keyed by name. Values are forwarded
// byte for byte and never interpreted by the client.
type Metadata map[string]json.RawMessage

// MemoryRequest is the payload for storing a memory.
type MemoryRequest struct {
	Project  string   `json:"project" validate:"required"`
	Session  string   `json:"session"`
	Content  string   `json:"content" validate:"required"`
	Metadata Metadata `json:"metadata"`
	Tags     []string `json:"tags" validate:"dive,required"`
}

// Memory is a stored record as returned by the server.
type Memory struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Score     *float64 `json:"score"`
	Metadata  Metadata `json:"metadata"`
	Tags      []string `json:"tags"`
	Timestamp uint64   `json:"timestamp"`
}

// VectorQuery is a similarity search request.
type VectorQuery struct {
	Project   string   `json:"project" validate:"required"`
	Session   *string  `json:"session,omitempty"`
	Query     string   `json:"query" validate:"required"`
	Limit     uint32   `json:"limit"`
	Threshold float64  `json:"threshold"`
	Tags      []string `json:"tags,omitempty" validate:"dive,required"`
}

type SearchResponse struct {
	Results []Memory `json:"results"`
	Total   uint64   `json:"total"`
	Took    uint64   `json:"took"` // milliseconds
}

type ProjectsResponse struct {
	Projects []string `json:"projects"`
}

type ProjectStats struct {
	Project        string `json:"project"`
	TotalMemories  uint64 `json:"total_memories"`
	TotalSessions  uint64 `json:"total_sessions"`
	TotalSizeBytes uint64 `json:"total_size_bytes"`
	CreatedAt      uint64 `json:"created_at"`
	LastUpdated    uint64 `json:"last_updated"`
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Uptime      uint64            `json:"uptime"`
	MemoryUsage map[string]uint64 `json:"memory_usage"`
}

// ErrorResponse is the structured error envelope returned by the server.
type ErrorResponse struct {
	Message string                     `json:"message"`
	Code    *string                    `json:"code,omitempty"`
	Details map[string]json.RawMessage `json:"details,omitempty"`
}
