// Package keywords persists the user's tracked search keywords.
package keywords

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Limits on the tracked keyword list.
const (
	MaxKeywords = 5
	MinLength   = 2
	MaxLength   = 50
)

// fileData is the on-disk registry.
type fileData struct {
	Keywords        []string   `json:"keywords"`
	MaxKeywords     int        `json:"max_keywords"`
	CreatedAt       time.Time  `json:"created_at"`
	LastUpdated     time.Time  `json:"last_updated"`
	LastCollection  *time.Time `json:"last_collection"`
	CollectionCount int        `json:"collection_count"`
}

// Limits describes the validation bounds.
type Limits struct {
	MaxKeywords int `json:"max_keywords"`
	MinLength   int `json:"min_length"`
	MaxLength   int `json:"max_length"`
}

// Info is the registry state with its limits.
type Info struct {
	Keywords        []string   `json:"keywords"`
	Count           int        `json:"count"`
	MaxKeywords     int        `json:"max_keywords"`
	LastUpdated     time.Time  `json:"last_updated"`
	LastCollection  *time.Time `json:"last_collection"`
	CollectionCount int        `json:"collection_count"`
	Limits          Limits     `json:"limits"`
}

// Registry stores the tracked keywords in a JSON file.
type Registry struct {
	path     string
	defaults []string
	now      func() time.Time
	mu       sync.Mutex
	logger   *slog.Logger
}

// New creates a registry backed by cfg.Path. The file is created with the
// default keywords on first access.
func New(cfg *config.KeywordsConfig, logger *slog.Logger) *Registry {
	defaults := cfg.Defaults
	if len(defaults) == 0 {
		defaults = config.DefaultKeywords
	}
	return &Registry{
		path:     cfg.Path,
		defaults: Clean(defaults),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With("component", "keyword_registry"),
	}
}

// List returns the tracked keywords.
func (r *Registry) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.load()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), data.Keywords...), nil
}

// Set replaces the keyword list.
func (r *Registry) Set(keywords []string) ([]string, error) {
	cleaned := Clean(keywords)
	if err := Validate(cleaned); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.load()
	if err != nil {
		return nil, err
	}
	data.Keywords = cleaned
	if err := r.save(data); err != nil {
		return nil, err
	}
	r.logger.Info("keywords updated", "keywords", cleaned)
	return cleaned, nil
}

// Add appends one keyword.
func (r *Registry) Add(keyword string) ([]string, error) {
	kw := normalize(keyword)
	if err := validateOne(kw); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.load()
	if err != nil {
		return nil, err
	}
	if indexOf(data.Keywords, kw) >= 0 {
		return nil, fmt.Errorf("%w: %q", types.ErrDuplicateKeyword, kw)
	}
	if len(data.Keywords) >= MaxKeywords {
		return nil, fmt.Errorf("%w: maximum %d keywords allowed", types.ErrTooManyKeywords, MaxKeywords)
	}
	data.Keywords = append(data.Keywords, kw)
	if err := r.save(data); err != nil {
		return nil, err
	}
	r.logger.Info("keyword added", "keyword", kw)
	return append([]string(nil), data.Keywords...), nil
}

// Remove deletes a keyword, matching case-insensitively. The last keyword
// cannot be removed.
func (r *Registry) Remove(keyword string) ([]string, error) {
	kw := normalize(keyword)

	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(data.Keywords, kw)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", types.ErrKeywordNotFound, kw)
	}
	if len(data.Keywords) == 1 {
		return nil, fmt.Errorf("%w: at least one keyword is required", types.ErrNoKeywords)
	}
	data.Keywords = append(data.Keywords[:i:i], data.Keywords[i+1:]...)
	if err := r.save(data); err != nil {
		return nil, err
	}
	r.logger.Info("keyword removed", "keyword", kw)
	return append([]string(nil), data.Keywords...), nil
}

// Reset restores the default keywords.
func (r *Registry) Reset() ([]string, error) {
	return r.Set(r.defaults)
}

// RecordCollection notes a completed collection run.
func (r *Registry) RecordCollection(at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.load()
	if err != nil {
		return err
	}
	at = at.UTC()
	data.LastCollection = &at
	data.CollectionCount++
	return r.write(data)
}

// Info returns the registry state with the validation limits.
func (r *Registry) Info() (*Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.load()
	if err != nil {
		return nil, err
	}
	return &Info{
		Keywords:        data.Keywords,
		Count:           len(data.Keywords),
		MaxKeywords:     MaxKeywords,
		LastUpdated:     data.LastUpdated,
		LastCollection:  data.LastCollection,
		CollectionCount: data.CollectionCount,
		Limits:          Limits{MaxKeywords: MaxKeywords, MinLength: MinLength, MaxLength: MaxLength},
	}, nil
}

func (r *Registry) load() (*fileData, error) {
	var data fileData
	err := storage.ReadJSON(r.path, &data)
	switch {
	case err == nil && len(data.Keywords) > 0:
		return &data, nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
	case storage.IsCorrupt(err):
		r.logger.Warn("keyword file is not valid JSON, restoring defaults", "path", r.path, "error", err)
	default:
		return nil, fmt.Errorf("read keywords: %w", err)
	}

	now := r.now()
	fresh := &fileData{
		Keywords:    append([]string(nil), r.defaults...),
		MaxKeywords: MaxKeywords,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := r.write(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (r *Registry) save(data *fileData) error {
	data.LastUpdated = r.now()
	return r.write(data)
}

func (r *Registry) write(data *fileData) error {
	data.MaxKeywords = MaxKeywords
	if err := storage.WriteJSONAtomic(r.path, data); err != nil {
		return fmt.Errorf("write keywords: %w", err)
	}
	return nil
}

// Clean collapses whitespace and drops empty entries.
func Clean(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = normalize(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Validate checks a cleaned keyword list against the limits.
func Validate(keywords []string) error {
	if len(keywords) == 0 {
		return fmt.Errorf("%w: at least one keyword is required", types.ErrNoKeywords)
	}
	if len(keywords) > MaxKeywords {
		return fmt.Errorf("%w: maximum %d keywords allowed", types.ErrTooManyKeywords, MaxKeywords)
	}
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if err := validateOne(kw); err != nil {
			return err
		}
		key := strings.ToLower(kw)
		if seen[key] {
			return fmt.Errorf("%w: %q", types.ErrDuplicateKeyword, kw)
		}
		seen[key] = true
	}
	return nil
}

func validateOne(kw string) error {
	n := utf8.RuneCountInString(kw)
	if n < MinLength {
		return fmt.Errorf("%w: keywords must be at least %d characters", types.ErrInvalidKeyword, MinLength)
	}
	if n > MaxLength {
		return fmt.Errorf("%w: keywords cannot exceed %d characters", types.ErrInvalidKeyword, MaxLength)
	}
	return nil
}

func normalize(kw string) string {
	return strings.Join(strings.Fields(kw), " ")
}

func indexOf(list []string, kw string) int {
	for i, existing := range list {
		if strings.EqualFold(existing, kw) {
			return i
		}
	}
	return -1
}
