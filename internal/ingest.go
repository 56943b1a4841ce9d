package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

var (
	ErrBinaryFile = errors.New("file is not valid UTF-8 text")
	ErrFileTooBig = errors.New("file exceeds maximum size")
)

const (
	DefaultImportConcurrency = 4
	DefaultMaxFileBytes      = 1 << 20
)

type Storer interface {
	Store(ctx context.Context, req MemoryRequest) (*Memory, error)
}

type ImportOptions struct {
	Project     string
	Session     string
	Tags        []string
	Concurrency int
}

type ImportResult struct {
	Path string
	ID   string
	Err  error
}

// ImportService stores local text files as memories.
type ImportService struct {
	store        Storer
	maxFileBytes int64
}

func NewImportService(store Storer) *ImportService {
	return &ImportService{store: store, maxFileBytes: DefaultMaxFileBytes}
}

// CollectFiles expands roots into regular files, skipping anything matched by
// the ignore rules. Results keep walk order.
func CollectFiles(roots []string, matcher *IgnoreMatcher) ([]string, error) {
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && matcher != nil && matcher.MatchDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if matcher != nil && matcher.Match(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return files, nil
}

// Import stores every path concurrently. A failure on one file is reported in
// its result and does not stop the others; only context cancellation aborts
// the whole import.
func (s *ImportService) Import(ctx context.Context, paths []string, opts ImportOptions) ([]ImportResult, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultImportConcurrency
	}

	results := make([]ImportResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mem, err := s.StoreFile(gctx, path, opts)
			results[i] = ImportResult{Path: path, Err: err}
			if err == nil {
				results[i].ID = mem.ID
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (s *ImportService) StoreFile(ctx context.Context, path string, opts ImportOptions) (*Memory, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if s.maxFileBytes > 0 && info.Size() > s.maxFileBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrFileTooBig, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrBinaryFile)
	}

	source, err := json.Marshal(filepath.ToSlash(path))
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	return s.store.Store(ctx, MemoryRequest{
		Project:  opts.Project,
		Session:  opts.Session,
		Content:  string(data),
		Metadata: Metadata{"source_path": source},
		Tags:     opts.Tags,
	})
}
