package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// MemoryService exposes one method per server operation.
type MemoryService struct {
	transport  *Transport
	metrics    *Metrics
	logger     *zap.Logger
	decodeOpts DecodeOptions
}

func NewMemoryService(transport *Transport, metrics *Metrics, logger *zap.Logger, decodeOpts DecodeOptions) *MemoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryService{
		transport:  transport,
		metrics:    metrics,
		logger:     logger,
		decodeOpts: decodeOpts,
	}
}

func (s *MemoryService) Store(ctx context.Context, req MemoryRequest) (*Memory, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if req.Metadata == nil {
		req.Metadata = Metadata{}
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	var mem Memory
	if err := s.call(ctx, Request{
		Op: "store", Method: http.MethodPost, Path: apiPrefix + "/memory", Body: req,
	}, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

func (s *MemoryService) Get(ctx context.Context, project, id string) (*Memory, error) {
	path, err := memoryPath(project, id)
	if err != nil {
		return nil, err
	}

	var mem Memory
	if err := s.call(ctx, Request{Op: "get", Method: http.MethodGet, Path: path}, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

// Search returns results in server relevance order. The envelope's total and
// took fields are dropped.
func (s *MemoryService) Search(ctx context.Context, query VectorQuery) ([]Memory, error) {
	if err := ValidateRequest(query); err != nil {
		return nil, err
	}

	var out SearchResponse
	if err := s.call(ctx, Request{
		Op: "search", Method: http.MethodPost, Path: apiPrefix + "/search", Body: query,
	}, &out); err != nil {
		return nil, err
	}
	s.logger.Debug("search completed",
		zap.String("project", query.Project),
		zap.Uint64("total", out.Total),
		zap.Uint64("took_ms", out.Took),
	)
	return out.Results, nil
}

// StreamSearch opens the NDJSON search stream. A non-2xx status is returned as
// the classified error and no stream is created.
func (s *MemoryService) StreamSearch(ctx context.Context, query VectorQuery) (*SearchStream, error) {
	if err := ValidateRequest(query); err != nil {
		return nil, err
	}

	resp, release, err := s.transport.Stream(ctx, Request{
		Op:     "stream_search",
		Method: http.MethodPost,
		Path:   apiPrefix + "/search/stream",
		Body:   query,
		Accept: ContentTypeNDJSON,
	})
	if err != nil {
		return nil, err
	}
	return NewSearchStream(resp.Body, release, s.decodeOpts, s.metrics.ObserveStreamItem), nil
}

func (s *MemoryService) Delete(ctx context.Context, project, id string) error {
	path, err := memoryPath(project, id)
	if err != nil {
		return err
	}

	resp, err := s.transport.Do(ctx, Request{Op: "delete", Method: http.MethodDelete, Path: path})
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *MemoryService) ListProjects(ctx context.Context) ([]string, error) {
	var out ProjectsResponse
	if err := s.call(ctx, Request{
		Op: "list_projects", Method: http.MethodGet, Path: apiPrefix + "/projects",
	}, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (s *MemoryService) Stats(ctx context.Context, project string) (*ProjectStats, error) {
	if err := requireArg("project", project); err != nil {
		return nil, err
	}

	var out ProjectStats
	if err := s.call(ctx, Request{
		Op: "stats", Method: http.MethodGet, Path: apiPrefix + "/stats/" + url.PathEscape(project),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryService) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := s.call(ctx, Request{
		Op: "health", Method: http.MethodGet, Path: apiPrefix + "/health",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryService) call(ctx context.Context, req Request, out any) error {
	resp, err := s.transport.Do(ctx, req)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClassifyTransport(req.Op, responseURL(resp, req.Path), fmt.Errorf("read response: %w", err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func memoryPath(project, id string) (string, error) {
	if err := requireArg("project", project); err != nil {
		return "", err
	}
	if err := requireArg("id", id); err != nil {
		return "", err
	}
	return apiPrefix + "/memory/" + url.PathEscape(project) + "/" + url.PathEscape(id), nil
}
