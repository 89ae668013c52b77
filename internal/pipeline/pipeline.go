package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec types.Record) (types.Record, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default builds the standard clean chain from configuration. The dedup
// stage holds state, so build one pipeline per run.
func Default(cfg *config.PipelineConfig, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(RequireID{})
	p.Use(NewDedup())
	if cfg.StripHTML {
		p.Use(HTMLSanitize{})
	}
	p.Use(Whitespace{})
	if cfg.MaxTextLength > 0 {
		p.Use(Truncate{Max: cfg.MaxTextLength})
	}
	if cfg.CanonicalURLs {
		p.Use(URLCanonical{})
	}
	p.Use(NewStamp())
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec types.Record) (types.Record, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:  mw.Name(),
				Record: current,
				Err:    err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "source", rec.Source(), "id", rec.RecordID())
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessBatch cleans every record of the batch in place and reports how
// many were dropped. Records that fail a stage are dropped and logged.
func (p *Pipeline) ProcessBatch(batch *types.Batch) (dropped int) {
	kept := batch.Records[:0]
	for _, rec := range batch.Records {
		out, err := p.Process(rec)
		if err != nil {
			p.logger.Warn("record rejected", "source", batch.Source, "error", err)
			dropped++
			continue
		}
		if out == nil {
			dropped++
			continue
		}
		kept = append(kept, out)
	}
	for i := len(kept); i < len(batch.Records); i++ {
		batch.Records[i] = nil
	}
	batch.Records = kept
	return dropped
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
