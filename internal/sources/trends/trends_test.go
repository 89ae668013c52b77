package trends

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/sources/sourcetest"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

const guard = ")]}'\n"

func trendsMux(t *testing.T) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "NID", Value: "abc"})
	})
	mux.HandleFunc("/trends/api/explore", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("req"), `"comparisonItem"`)
		fmt.Fprint(w, guard+`{"widgets":[
			{"id":"TIMESERIES","token":"ts","request":{"time":"today 3-m"}},
			{"id":"GEO_MAP","token":"geo","request":{}},
			{"id":"RELATED_QUERIES_0","token":"rq0","request":{"restriction":{"complexKeywordsRestriction":{"keyword":[{"type":"BROAD","value":"golang"}]}}}},
			{"id":"RELATED_QUERIES_1","token":"rq1","request":{"restriction":{"complexKeywordsRestriction":{"keyword":[{"type":"BROAD","value":"rust"}]}}}}
		]}`)
	})
	mux.HandleFunc("/trends/api/widgetdata/multiline", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ts", r.URL.Query().Get("token"))
		fmt.Fprint(w, guard+`{"default":{"timelineData":[
			{"time":"1714521600","value":[40,20],"hasData":[true,true]},
			{"time":"1714608000","value":[55,0],"hasData":[true,false],"isPartial":true}
		]}}`)
	})
	mux.HandleFunc("/trends/api/widgetdata/relatedsearches", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, guard+`{"default":{"rankedList":[
			{"rankedKeyword":[{"query":"golang tutorial","value":100,"formattedValue":"100"}]},
			{"rankedKeyword":[{"query":"golang 1.24","value":450,"formattedValue":"+450%"}]}
		]}}`)
	})
	mux.HandleFunc("/trends/api/widgetdata/comparedgeo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, guard+`{"default":{"geoMapData":[
			{"geoCode":"US-CA","geoName":"California","value":[100,60],"hasData":[true,true]}
		]}}`)
	})
	return mux
}

func TestCollect(t *testing.T) {
	srv := sourcetest.Server(t, trendsMux(t))

	cfg := config.DefaultConfig().Sources.Google
	cfg.BaseURL = srv.URL
	cfg.RelatedQueries = true
	cfg.RegionalInterest = true

	c := New(&cfg, sourcetest.Fetcher(t), sourcetest.Logger())
	batch, err := c.Collect(context.Background(), []string{"golang", "rust"})
	require.NoError(t, err)

	// rust has no data on the second day
	require.Equal(t, 3, batch.Len())
	first := batch.Records[0].(*types.InterestPoint)
	assert.Equal(t, "golang", first.Keyword)
	assert.Equal(t, "2024-05-01", first.Date)
	assert.Equal(t, 40, first.Value)
	assert.True(t, batch.Records[2].(*types.InterestPoint).Partial)

	require.Contains(t, batch.Related, "golang")
	assert.Equal(t, "golang tutorial", batch.Related["golang"].Top[0].Query)
	assert.Equal(t, "+450%", batch.Related["golang"].Rising[0].FormattedValue)

	require.Len(t, batch.Regional["rust"], 1)
	assert.Equal(t, 60, batch.Regional["rust"][0].Value)
}

func TestCollectAllBatchesFail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/trends/api") {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}
	})
	srv := sourcetest.Server(t, mux)

	cfg := config.DefaultConfig().Sources.Google
	cfg.BaseURL = srv.URL

	c := New(&cfg, sourcetest.Fetcher(t), sourcetest.Logger())
	batch, err := c.Collect(context.Background(), []string{"a", "b", "c", "d", "e", "f"})
	require.Error(t, err)
	assert.Len(t, batch.Notes, 2)
}

func TestChunk(t *testing.T) {
	got := chunk([]string{"a", "b", "c", "d", "e", "f", "g"}, 5)
	assert.Equal(t, [][]string{{"a", "b", "c", "d", "e"}, {"f", "g"}}, got)
}

func TestStripGuard(t *testing.T) {
	body, err := stripGuard([]byte(")]}',\n{\"a\":1}"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))

	_, err = stripGuard([]byte(")]}'"))
	assert.ErrorIs(t, err, types.ErrEmptyResponse)
}
