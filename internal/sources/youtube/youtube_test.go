package youtube

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/sources/sourcetest"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

func TestCollectRequiresKey(t *testing.T) {
	cfg := config.DefaultConfig().Sources.YouTube
	c := New(&cfg, sourcetest.Fetcher(t), sourcetest.Logger())
	_, err := c.Collect(context.Background(), []string{"go"})
	assert.ErrorIs(t, err, types.ErrNoCredentials)
}

func TestCollect(t *testing.T) {
	fixed := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "2024-05-01T12:00:00Z", q.Get("publishedAfter"))
		fmt.Fprint(w, `{"items":[{"id":{"videoId":"v1"}},{"id":{"videoId":"v2"}},{"id":{"kind":"channel"}}]}`)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "v1,v2", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"items":[
			{"id":"v1","snippet":{"title":"Learn Go","channelTitle":"Gophers","publishedAt":"2024-05-02T00:00:00Z","tags":["go","tutorial"],
			  "thumbnails":{"default":{"url":"d.jpg"},"high":{"url":"h.jpg"}}},
			 "statistics":{"viewCount":"1500","likeCount":"90","commentCount":"12"},"contentDetails":{"duration":"PT10M"}},
			{"id":"v2","snippet":{"title":"Go in prod"},"statistics":{"viewCount":"10"}}
		]}`)
	})
	mux.HandleFunc("/commentThreads", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("videoId") == "v2" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"errors":[{"reason":"commentsDisabled"}]}}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"snippet":{"topLevelComment":{"id":"c1","snippet":{"authorDisplayName":"ann","textOriginal":"great video","likeCount":3}}}}]}`)
	})
	srv := sourcetest.Server(t, mux)

	cfg := config.DefaultConfig().Sources.YouTube
	cfg.BaseURL = srv.URL
	cfg.APIKey = "k"

	c := New(&cfg, sourcetest.Fetcher(t), sourcetest.Logger())
	c.now = func() time.Time { return fixed }

	batch, err := c.Collect(context.Background(), []string{"golang"})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())

	v1 := batch.Records[0].(*types.Video)
	assert.Equal(t, int64(1500), v1.ViewCount)
	assert.Equal(t, "h.jpg", v1.Thumbnail)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1", v1.URL)
	require.Len(t, v1.Comments, 1)
	assert.Equal(t, "great video", v1.Comments[0].Text)

	v2 := batch.Records[1].(*types.Video)
	assert.Empty(t, v2.Comments)
	assert.Equal(t, "golang", v2.Keyword)
}

func TestCollectStopsOnQuota(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"errors":[{"reason":"quotaExceeded"}]}}`)
	})
	srv := sourcetest.Server(t, mux)

	cfg := config.DefaultConfig().Sources.YouTube
	cfg.BaseURL = srv.URL
	cfg.APIKey = "k"

	c := New(&cfg, sourcetest.Fetcher(t), sourcetest.Logger())
	_, err := c.Collect(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
