package v1

import (
	"context"

	"github.com/4thel00z/ucp/internal"
)

// Client provides programmatic access to a UCP memory server. It is safe for
// concurrent use by multiple goroutines.
type Client struct {
	svc       *internal.MemoryService
	transport *internal.Transport
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		conn: internal.DefaultClientConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var metrics *internal.Metrics
	if cfg.registerer != nil {
		m, err := internal.NewMetrics(cfg.registerer, cfg.namespace)
		if err != nil {
			return nil, err
		}
		metrics = m
	}

	transport, err := internal.NewTransport(cfg.conn, internal.TransportOptions{
		HTTPClient:     cfg.httpClient,
		Logger:         cfg.logger,
		Limiter:        cfg.limiter,
		Breaker:        cfg.breaker,
		Metrics:        metrics,
		TracerProvider: cfg.tracerProvider,
		NewBackOff:     cfg.newBackOff,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		svc:       internal.NewMemoryService(transport, metrics, cfg.logger, cfg.decode),
		transport: transport,
	}, nil
}

// Store saves a new memory and returns the server's record.
func (c *Client) Store(ctx context.Context, req MemoryRequest) (*Memory, error) {
	return c.svc.Store(ctx, req)
}

// Get retrieves a memory by project and id. A missing memory is a
// *ServerError that also matches ErrNotFound.
func (c *Client) Get(ctx context.Context, project, id string) (*Memory, error) {
	return c.svc.Get(ctx, project, id)
}

// Search runs a similarity search and returns results in relevance order.
func (c *Client) Search(ctx context.Context, query VectorQuery) ([]Memory, error) {
	return c.svc.Search(ctx, query)
}

// StreamSearch opens a streaming search. Results arrive through the
// stream's All iterator as the server produces them:
//
//	stream, err := client.StreamSearch(ctx, query)
//	if err != nil {
//		return err
//	}
//	for mem, err := range stream.All() {
//		if err != nil {
//			// per-line *DecodeError, or a terminal *TransportError
//			continue
//		}
//		fmt.Println(mem.ID)
//	}
//
// The connection is released when the loop ends. Call Close on a stream
// that is never iterated.
func (c *Client) StreamSearch(ctx context.Context, query VectorQuery) (*SearchStream, error) {
	return c.svc.StreamSearch(ctx, query)
}

// Delete removes a memory.
func (c *Client) Delete(ctx context.Context, project, id string) error {
	return c.svc.Delete(ctx, project, id)
}

// ListProjects returns the project names known to the server.
func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	return c.svc.ListProjects(ctx)
}

// Stats returns aggregate counters for a project.
func (c *Client) Stats(ctx context.Context, project string) (*ProjectStats, error) {
	return c.svc.Stats(ctx, project)
}

// Health reports server status.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	return c.svc.Health(ctx)
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
