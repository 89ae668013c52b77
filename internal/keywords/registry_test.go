package keywords

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.KeywordsConfig{
		Path:     filepath.Join(t.TempDir(), "user_keywords.json"),
		Defaults: []string{"golang", "rust lang"},
	}
	return New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListCreatesDefaults(t *testing.T) {
	r := newRegistry(t)
	kws, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rust lang"}, kws)

	_, err = os.Stat(r.path)
	assert.NoError(t, err)
}

func TestSetCleansAndValidates(t *testing.T) {
	r := newRegistry(t)
	kws, err := r.Set([]string{"  machine   learning ", "", "go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"machine learning", "go"}, kws)

	_, err = r.Set([]string{"a", "b", "c", "d", "e", "f"})
	assert.ErrorIs(t, err, types.ErrTooManyKeywords)

	_, err = r.Set([]string{"Go", "go"})
	assert.ErrorIs(t, err, types.ErrDuplicateKeyword)

	_, err = r.Set([]string{"x"})
	assert.ErrorIs(t, err, types.ErrInvalidKeyword)

	_, err = r.Set([]string{strings.Repeat("k", 51)})
	assert.ErrorIs(t, err, types.ErrInvalidKeyword)

	_, err = r.Set([]string{"  "})
	assert.ErrorIs(t, err, types.ErrNoKeywords)

	// failed updates leave the list untouched
	kws, err = r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"machine learning", "go"}, kws)
}

func TestAddAndRemove(t *testing.T) {
	r := newRegistry(t)

	kws, err := r.Add("  Kubernetes ")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rust lang", "Kubernetes"}, kws)

	_, err = r.Add("GOLANG")
	assert.ErrorIs(t, err, types.ErrDuplicateKeyword)

	kws, err = r.Remove("RUST LANG")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "Kubernetes"}, kws)

	_, err = r.Remove("python")
	assert.ErrorIs(t, err, types.ErrKeywordNotFound)

	_, err = r.Remove("golang")
	require.NoError(t, err)
	_, err = r.Remove("kubernetes")
	assert.ErrorIs(t, err, types.ErrNoKeywords)
}

func TestAddRespectsLimit(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Set([]string{"aa", "bb", "cc", "dd", "ee"})
	require.NoError(t, err)
	_, err = r.Add("ff")
	assert.ErrorIs(t, err, types.ErrTooManyKeywords)
}

func TestResetAndInfo(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Set([]string{"something else"})
	require.NoError(t, err)

	kws, err := r.Reset()
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rust lang"}, kws)

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordCollection(at))
	require.NoError(t, r.RecordCollection(at.Add(time.Hour)))

	info, err := r.Info()
	require.NoError(t, err)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, 2, info.CollectionCount)
	require.NotNil(t, info.LastCollection)
	assert.Equal(t, at.Add(time.Hour), *info.LastCollection)
	assert.Equal(t, Limits{MaxKeywords: 5, MinLength: 2, MaxLength: 50}, info.Limits)
}

func TestCorruptFileRestoresDefaults(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, os.WriteFile(r.path, []byte("{{"), 0o644))
	kws, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rust lang"}, kws)
}
