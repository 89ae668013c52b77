package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Store is the interface for all storage backends.
type Store interface {
	// Save merges a cleaned batch into the stored document of its source.
	Save(ctx context.Context, batch *types.Batch) (*MergeResult, error)

	// Load returns the stored document of a source. A source that was never
	// saved yields an empty document.
	Load(ctx context.Context, src types.Source) (*Document, error)

	// Summary describes what is stored per source.
	Summary(ctx context.Context) (*Summary, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// SourceSummary describes the stored data of one source.
type SourceSummary struct {
	Exists           bool      `json:"exists"`
	LastUpdated      time.Time `json:"last_updated,omitempty"`
	TotalItems       int       `json:"total_items"`
	TotalCollections int       `json:"total_collections"`
	SizeBytes        int64     `json:"size_bytes"`
}

// Summary is the storage overview shown by the CLI and dashboard.
type Summary struct {
	Backend     string                         `json:"backend"`
	GeneratedAt time.Time                      `json:"generated_at"`
	TotalItems  int                            `json:"total_items"`
	Sources     map[types.Source]SourceSummary `json:"sources"`
}

func newSummary(backend string) *Summary {
	return &Summary{
		Backend:     backend,
		GeneratedAt: time.Now().UTC(),
		Sources:     make(map[types.Source]SourceSummary),
	}
}

func (s *Summary) add(src types.Source, ss SourceSummary) {
	s.Sources[src] = ss
	s.TotalItems += ss.TotalItems
}

// Open builds the backend selected by storage.type.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "json":
		return NewJSONStore(cfg, logger)
	case "mongodb":
		return NewMongoStore(ctx, cfg, logger)
	case "both":
		js, err := NewJSONStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		ms, err := NewMongoStore(ctx, cfg, logger)
		if err != nil {
			// the file store still works; run degraded rather than not at all
			logger.Warn("mongodb unavailable, using json storage only", "error", err)
			return js, nil
		}
		return NewMultiStore([]Store{js, ms}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// LoadAll loads the document of every source.
func LoadAll(ctx context.Context, s Store) (map[types.Source]*Document, error) {
	out := make(map[types.Source]*Document, len(types.AllSources()))
	for _, src := range types.AllSources() {
		doc, err := s.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		out[src] = doc
	}
	return out, nil
}
