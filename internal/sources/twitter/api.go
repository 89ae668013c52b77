package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

type searchResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		AuthorID      string    `json:"author_id"`
		CreatedAt     time.Time `json:"created_at"`
		Lang          string    `json:"lang"`
		PublicMetrics struct {
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
			LikeCount    int `json:"like_count"`
			QuoteCount   int `json:"quote_count"`
		} `json:"public_metrics"`
		Entities struct {
			Hashtags []struct {
				Tag string `json:"tag"`
			} `json:"hashtags"`
			Mentions []struct {
				Username string `json:"username"`
			} `json:"mentions"`
		} `json:"entities"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"users"`
	} `json:"includes"`
}

// searchAPI calls the v2 recent search endpoint.
func (c *Collector) searchAPI(ctx context.Context, kw string) ([]*types.Tweet, error) {
	q := url.Values{
		"query":        {fmt.Sprintf("%q -is:retweet lang:en", kw)},
		"max_results":  {fmt.Sprint(c.cfg.MaxResults)},
		"tweet.fields": {"created_at,public_metrics,entities,lang,author_id"},
		"expansions":   {"author_id"},
		"user.fields":  {"username,name"},
	}
	headers := http.Header{"Authorization": {"Bearer " + c.cfg.BearerToken}}

	var out searchResponse
	if err := c.http.GetJSON(ctx, c.cfg.APIURL+"/tweets/search/recent", q, headers, &out); err != nil {
		return nil, err
	}

	users := make(map[string][2]string, len(out.Includes.Users))
	for _, u := range out.Includes.Users {
		users[u.ID] = [2]string{u.Username, u.Name}
	}

	tweets := make([]*types.Tweet, 0, len(out.Data))
	for _, d := range out.Data {
		t := &types.Tweet{
			Meta:         types.Meta{Keyword: kw},
			ID:           d.ID,
			Text:         d.Text,
			AuthorID:     d.AuthorID,
			CreatedAt:    d.CreatedAt,
			Lang:         d.Lang,
			RetweetCount: d.PublicMetrics.RetweetCount,
			ReplyCount:   d.PublicMetrics.ReplyCount,
			LikeCount:    d.PublicMetrics.LikeCount,
			QuoteCount:   d.PublicMetrics.QuoteCount,
		}
		if u, ok := users[d.AuthorID]; ok {
			t.Username, t.DisplayName = u[0], u[1]
		}
		for _, h := range d.Entities.Hashtags {
			t.Hashtags = append(t.Hashtags, h.Tag)
		}
		for _, m := range d.Entities.Mentions {
			t.Mentions = append(t.Mentions, m.Username)
		}
		t.URL = tweetURL(t.Username, t.ID)
		tweets = append(tweets, t)
	}
	return tweets, nil
}

func tweetURL(username, id string) string {
	if username == "" {
		username = "i/web"
	}
	return "https://x.com/" + username + "/status/" + id
}
