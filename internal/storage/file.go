package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// --- JSON Storage ---

// JSONStore keeps one merged JSON document per source under a data
// directory, e.g. data/raw_reddit.json.
type JSONStore struct {
	dir        string
	historyCap int
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewJSONStore creates a JSON file store.
func NewJSONStore(cfg *config.StorageConfig, logger *slog.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create data dir: %w", err)}
	}
	return &JSONStore{
		dir:        cfg.DataDir,
		historyCap: cfg.HistoryCap,
		logger:     logger.With("component", "json_storage"),
	}, nil
}

func (s *JSONStore) Name() string { return "json" }

// Path returns the file holding src.
func (s *JSONStore) Path(src types.Source) string {
	return filepath.Join(s.dir, "raw_"+string(src)+".json")
}

func (s *JSONStore) Save(_ context.Context, batch *types.Batch) (*MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(batch.Source)
	if err != nil {
		return nil, err
	}
	res := doc.Merge(batch, s.historyCap)

	if err := WriteJSONAtomic(s.Path(batch.Source), doc); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: err}
	}
	s.logger.Info("JSON written",
		"source", batch.Source,
		"path", s.Path(batch.Source),
		"added", res.Added,
		"updated", res.Updated,
		"total", res.Total,
	)
	return res, nil
}

func (s *JSONStore) Load(_ context.Context, src types.Source) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(src)
}

func (s *JSONStore) load(src types.Source) (*Document, error) {
	doc := NewDocument(src)
	err := ReadJSON(s.Path(src), doc)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		return NewDocument(src), nil
	case IsCorrupt(err):
		s.logger.Warn("stored document is not valid JSON, starting fresh", "path", s.Path(src), "error", err)
		return NewDocument(src), nil
	default:
		return nil, &types.StorageError{Backend: "json", Err: err}
	}
	// older files may predate the source field
	doc.Source = src
	if doc.KeywordStats == nil {
		doc.KeywordStats = make(map[string]KeywordStats)
	}
	return doc, nil
}

func (s *JSONStore) Summary(_ context.Context) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := newSummary(s.Name())
	for _, src := range types.AllSources() {
		info, err := os.Stat(s.Path(src))
		if err != nil {
			sum.add(src, SourceSummary{})
			continue
		}
		doc, err := s.load(src)
		if err != nil {
			return nil, err
		}
		sum.add(src, SourceSummary{
			Exists:           true,
			LastUpdated:      doc.Info.LastUpdated,
			TotalItems:       doc.Len(),
			TotalCollections: len(doc.History),
			SizeBytes:        info.Size(),
		})
	}
	return sum, nil
}

func (s *JSONStore) Close() error { return nil }

// WriteJSONAtomic writes v as indented JSON via a temp file and rename so
// readers never observe a partial file.
func WriteJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode JSON: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ReadJSON decodes the file at path into v. A missing file yields an error
// matching fs.ErrNotExist.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &decodeError{path: path, err: err}
	}
	return nil
}

type decodeError struct {
	path string
	err  error
}

func (e *decodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.path, e.err) }

func (e *decodeError) Unwrap() error { return e.err }

// IsCorrupt reports whether err came from a file that exists but does not
// hold valid JSON.
func IsCorrupt(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}
