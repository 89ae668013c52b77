package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func redditBatch(posts ...*types.Post) *types.Batch {
	b := types.NewBatch(types.SourceReddit, []string{"golang"}, "public_json")
	for _, p := range posts {
		b.Add(p)
	}
	return b
}

func post(id string, score int) *types.Post {
	return &types.Post{Meta: types.Meta{Keyword: "golang", CollectedAt: time.Now().UTC()}, ID: id, Title: "post " + id, Score: score}
}

func TestDocumentMergeKeepsFirstCopy(t *testing.T) {
	doc := NewDocument(types.SourceReddit)
	res := doc.Merge(redditBatch(post("a", 10), post("b", 20)), 50)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Total)

	res = doc.Merge(redditBatch(post("a", 99), post("c", 5)), 50)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 10, doc.Posts[0].Score, "plain records keep the stored copy")

	require.Len(t, doc.History, 2)
	assert.Equal(t, 1, doc.History[1].ItemsAdded)
	assert.Equal(t, 3, doc.Info.TotalItems)

	stats := doc.KeywordStats["golang"]
	assert.Equal(t, 3, stats.Items)
	assert.Equal(t, int64(35), stats.TotalEngagement)
}

func TestDocumentMergeFoldsMergers(t *testing.T) {
	doc := NewDocument(types.SourceYouTube)
	b := types.NewBatch(types.SourceYouTube, []string{"go"}, "data_api_v3")
	b.Add(&types.Video{ID: "v1", ViewCount: 100, Comments: []types.Comment{{ID: "c1"}}})
	doc.Merge(b, 50)

	b = types.NewBatch(types.SourceYouTube, []string{"go"}, "data_api_v3")
	b.Add(&types.Video{ID: "v1", ViewCount: 250, Comments: []types.Comment{{ID: "c1"}, {ID: "c2"}}})
	res := doc.Merge(b, 50)

	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Changed, 1)
	require.Len(t, doc.Videos, 1)
	assert.Equal(t, int64(250), doc.Videos[0].ViewCount)
	assert.Len(t, doc.Videos[0].Comments, 2)
}

func TestDocumentMergeSideData(t *testing.T) {
	doc := NewDocument(types.SourceGoogle)
	b := types.NewBatch(types.SourceGoogle, []string{"go"}, "widget_api")
	d2 := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	d1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b.Add(
		&types.InterestPoint{Meta: types.Meta{Keyword: "go"}, Date: "2024-05-02", Time: d2, Value: 80},
		&types.InterestPoint{Meta: types.Meta{Keyword: "go"}, Date: "2024-05-01", Time: d1, Value: 60},
	)
	b.Related = map[string]types.RelatedQueries{"go": {Top: []types.RelatedQuery{{Query: "golang", Value: 100}}}}
	doc.Merge(b, 50)

	require.Len(t, doc.Interest, 2)
	assert.Equal(t, "2024-05-01", doc.Interest[0].Date, "points are kept in time order")
	assert.Equal(t, "golang", doc.Related["go"].Top[0].Query)
}

func TestDocumentHistoryCap(t *testing.T) {
	doc := NewDocument(types.SourceReddit)
	for i := 0; i < 7; i++ {
		doc.Merge(redditBatch(), 5)
	}
	assert.Len(t, doc.History, 5)
}

func TestDocumentIgnoresForeignRecords(t *testing.T) {
	doc := NewDocument(types.SourceReddit)
	b := redditBatch(post("a", 1))
	b.Add(&types.Tweet{ID: "t1"})
	res := doc.Merge(b, 50)
	assert.Equal(t, 1, res.Added)
	assert.Empty(t, doc.Tweets)
}

func newJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	cfg := config.DefaultConfig().Storage
	cfg.DataDir = t.TempDir()
	s, err := NewJSONStore(&cfg, testLogger)
	require.NoError(t, err)
	return s
}

func TestJSONStoreSaveLoad(t *testing.T) {
	s := newJSONStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, redditBatch(post("a", 1), post("b", 2)))
	require.NoError(t, err)
	res, err := s.Save(ctx, redditBatch(post("b", 2), post("c", 3)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 3, res.Total)

	doc, err := s.Load(ctx, types.SourceReddit)
	require.NoError(t, err)
	require.Len(t, doc.Posts, 3)
	assert.Equal(t, "golang", doc.Posts[0].SearchKeyword())
	assert.Len(t, doc.History, 2)

	empty, err := s.Load(ctx, types.SourceYouTube)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, types.SourceYouTube, empty.Source)
}

func TestJSONStoreCorruptFileStartsFresh(t *testing.T) {
	s := newJSONStore(t)
	require.NoError(t, os.WriteFile(s.Path(types.SourceReddit), []byte("{not json"), 0o644))

	res, err := s.Save(context.Background(), redditBatch(post("a", 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestJSONStoreSummary(t *testing.T) {
	s := newJSONStore(t)
	ctx := context.Background()
	_, err := s.Save(ctx, redditBatch(post("a", 1)))
	require.NoError(t, err)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalItems)
	assert.True(t, sum.Sources[types.SourceReddit].Exists)
	assert.Positive(t, sum.Sources[types.SourceReddit].SizeBytes)
	assert.False(t, sum.Sources[types.SourceUpwork].Exists)
}

func TestReadJSONErrors(t *testing.T) {
	dir := t.TempDir()
	var v map[string]any

	err := ReadJSON(dir+"/missing.json", &v)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, IsCorrupt(err))

	path := dir + "/bad.json"
	require.NoError(t, os.WriteFile(path, []byte("[1,"), 0o644))
	assert.True(t, IsCorrupt(ReadJSON(path, &v)))

	require.NoError(t, WriteJSONAtomic(dir+"/nested/ok.json", map[string]int{"a": 1}))
	require.NoError(t, ReadJSON(dir+"/nested/ok.json", &v))
	assert.EqualValues(t, 1, v["a"])
}

type failingStore struct{ Store }

func (failingStore) Name() string { return "failing" }

func (failingStore) Save(context.Context, *types.Batch) (*MergeResult, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Close() error { return nil }

func TestMultiStoreFanOut(t *testing.T) {
	primary := newJSONStore(t)
	secondary := newJSONStore(t)
	m := NewMultiStore([]Store{primary, secondary}, testLogger)
	ctx := context.Background()

	res, err := m.Save(ctx, redditBatch(post("a", 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	doc, err := secondary.Load(ctx, types.SourceReddit)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())

	m = NewMultiStore([]Store{primary, failingStore{}}, testLogger)
	res, err = m.Save(ctx, redditBatch(post("b", 1)))
	require.Error(t, err)
	require.NotNil(t, res, "primary result survives a secondary failure")
	assert.Equal(t, 2, res.Total)
	assert.NoError(t, m.Close())
}

func TestMongoRecordConversion(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := &types.Video{
		Meta:      types.Meta{Keyword: "go", CollectedAt: now},
		ID:        "v1",
		Title:     "Learn Go",
		ViewCount: 1500,
		Comments:  []types.Comment{{ID: "c1", Text: "great"}},
	}
	mr, err := toMongoRecord(v, now)
	require.NoError(t, err)
	assert.Equal(t, types.SourceYouTube, mr.Source)
	assert.Equal(t, "v1", mr.RecordID)
	assert.Equal(t, "go", mr.Keyword)

	rec, err := fromMongoRecord(mr)
	require.NoError(t, err)
	got := rec.(*types.Video)
	assert.Equal(t, "Learn Go", got.Title)
	assert.Equal(t, int64(1500), got.ViewCount)
	assert.Equal(t, "go", got.SearchKeyword())
	require.Len(t, got.Comments, 1)

	_, err = fromMongoRecord(mongoRecord{Source: "myspace"})
	assert.Error(t, err)
}

func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("TRENDGOAT_MONGO_URI")
	if testing.Short() || uri == "" {
		t.Skip("set TRENDGOAT_MONGO_URI to run against MongoDB")
	}
	cfg := config.DefaultConfig().Storage
	cfg.MongoURI = uri
	cfg.MongoDB = "trendgoat_test"
	cfg.Collection = "records_" + time.Now().Format("150405")

	ctx := context.Background()
	s, err := NewMongoStore(ctx, &cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.records.Drop(ctx)
		_ = s.meta.Drop(ctx)
		_ = s.Close()
	})

	_, err = s.Save(ctx, redditBatch(post("a", 1), post("b", 2)))
	require.NoError(t, err)
	res, err := s.Save(ctx, redditBatch(post("b", 2), post("c", 3)))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	doc, err := s.Load(ctx, types.SourceReddit)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Len())
	assert.Len(t, doc.History, 2)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Sources[types.SourceReddit].TotalItems)

	deleted, err := s.PurgeOlderThan(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, deleted, "records saved today are kept")
}
