package types

import (
	"strings"
	"time"
)

// TextKind classifies a text field for cleaning middleware.
type TextKind int

const (
	// TextShort is a title, name, or label.
	TextShort TextKind = iota
	// TextBody is long-form content that may be truncated.
	TextBody
	// TextURL is a link.
	TextURL
)

// Record is a single collected entity: a post, video, tweet, job, or a
// Google Trends data point.
type Record interface {
	// RecordID is the merge key within the record's source. Empty means malformed.
	RecordID() string

	// Source returns the provider the record came from.
	Source() Source

	// SearchKeyword returns the tracked keyword that produced the record.
	SearchKeyword() string

	// MapText rewrites every text field in place.
	MapText(fn func(kind TextKind, s string) string)

	// Collected returns when the record was collected.
	Collected() time.Time

	// StampCollected sets the collection time if it is unset.
	StampCollected(t time.Time)
}

// Merger is implemented by records that fold a newer copy into the stored one
// instead of keeping the first copy seen.
type Merger interface {
	MergeFrom(newer Record)
}

// Meta holds the fields shared by every record.
type Meta struct {
	Keyword     string    `json:"search_keyword"       bson:"search_keyword"`
	CollectedAt time.Time `json:"collection_timestamp" bson:"collection_timestamp"`
}

func (m *Meta) SearchKeyword() string { return m.Keyword }

func (m *Meta) Collected() time.Time { return m.CollectedAt }

func (m *Meta) StampCollected(t time.Time) {
	if m.CollectedAt.IsZero() {
		m.CollectedAt = t
	}
}

// --- Reddit ---

// Post is a Reddit submission.
type Post struct {
	Meta        `bson:",inline"`
	ID          string    `json:"post_id"      bson:"post_id"`
	Title       string    `json:"title"        bson:"title"`
	Selftext    string    `json:"selftext"     bson:"selftext"`
	Subreddit   string    `json:"subreddit"    bson:"subreddit"`
	Author      string    `json:"author"       bson:"author"`
	URL         string    `json:"url"          bson:"url"`
	Permalink   string    `json:"permalink"    bson:"permalink"`
	Domain      string    `json:"domain"       bson:"domain"`
	Flair       string    `json:"link_flair"   bson:"link_flair"`
	Score       int       `json:"score"        bson:"score"`
	UpvoteRatio float64   `json:"upvote_ratio" bson:"upvote_ratio"`
	NumComments int       `json:"num_comments" bson:"num_comments"`
	Gilded      int       `json:"gilded"       bson:"gilded"`
	CreatedUTC  time.Time `json:"created_utc"  bson:"created_utc"`
	IsSelf      bool      `json:"is_self"      bson:"is_self"`
	Over18      bool      `json:"over_18"      bson:"over_18"`
	Spoiler     bool      `json:"spoiler"      bson:"spoiler"`
	Stickied    bool      `json:"stickied"     bson:"stickied"`
	Locked      bool      `json:"locked"       bson:"locked"`
	Archived    bool      `json:"archived"     bson:"archived"`
}

func (p *Post) RecordID() string { return p.ID }
func (p *Post) Source() Source   { return SourceReddit }

func (p *Post) MapText(fn func(TextKind, string) string) {
	p.Title = fn(TextShort, p.Title)
	p.Selftext = fn(TextBody, p.Selftext)
	p.Flair = fn(TextShort, p.Flair)
	p.URL = fn(TextURL, p.URL)
	p.Permalink = fn(TextURL, p.Permalink)
}

// SubredditInfo describes a popular subreddit.
type SubredditInfo struct {
	Name        string `json:"name"         bson:"name"`
	Title       string `json:"title"        bson:"title"`
	Description string `json:"description"  bson:"description"`
	Subscribers int64  `json:"subscribers"  bson:"subscribers"`
	ActiveUsers int64  `json:"active_users" bson:"active_users"`
	URL         string `json:"url"          bson:"url"`
}

// --- YouTube ---

// Comment is a top-level YouTube comment.
type Comment struct {
	ID          string    `json:"comment_id"   bson:"comment_id"`
	Author      string    `json:"author"       bson:"author"`
	Text        string    `json:"text"         bson:"text"`
	LikeCount   int64     `json:"like_count"   bson:"like_count"`
	PublishedAt time.Time `json:"published_at" bson:"published_at"`
}

// Video is a YouTube video with statistics and a sample of comments.
type Video struct {
	Meta         `bson:",inline"`
	ID           string    `json:"video_id"      bson:"video_id"`
	Title        string    `json:"title"         bson:"title"`
	Description  string    `json:"description"   bson:"description"`
	ChannelID    string    `json:"channel_id"    bson:"channel_id"`
	ChannelTitle string    `json:"channel_title" bson:"channel_title"`
	PublishedAt  time.Time `json:"published_at"  bson:"published_at"`
	Tags         []string  `json:"tags"          bson:"tags"`
	CategoryID   string    `json:"category_id"   bson:"category_id"`
	ViewCount    int64     `json:"view_count"    bson:"view_count"`
	LikeCount    int64     `json:"like_count"    bson:"like_count"`
	CommentCount int64     `json:"comment_count" bson:"comment_count"`
	Duration     string    `json:"duration"      bson:"duration"`
	Thumbnail    string    `json:"thumbnail"     bson:"thumbnail"`
	URL          string    `json:"url"           bson:"url"`
	Comments     []Comment `json:"comments"      bson:"comments"`
}

func (v *Video) RecordID() string { return v.ID }
func (v *Video) Source() Source   { return SourceYouTube }

func (v *Video) MapText(fn func(TextKind, string) string) {
	v.Title = fn(TextShort, v.Title)
	v.Description = fn(TextBody, v.Description)
	v.ChannelTitle = fn(TextShort, v.ChannelTitle)
	v.URL = fn(TextURL, v.URL)
	for i := range v.Comments {
		v.Comments[i].Text = fn(TextBody, v.Comments[i].Text)
	}
}

// MergeFrom refreshes statistics and appends comments not yet stored.
func (v *Video) MergeFrom(newer Record) {
	n, ok := newer.(*Video)
	if !ok {
		return
	}
	if n.ViewCount > 0 {
		v.ViewCount = n.ViewCount
	}
	if n.LikeCount > 0 {
		v.LikeCount = n.LikeCount
	}
	if n.CommentCount > 0 {
		v.CommentCount = n.CommentCount
	}
	seen := make(map[string]bool, len(v.Comments))
	for _, c := range v.Comments {
		seen[c.ID] = true
	}
	for _, c := range n.Comments {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		v.Comments = append(v.Comments, c)
	}
}

// --- Twitter/X ---

// Tweet is a post from Twitter/X, scraped from Nitter, or generated.
type Tweet struct {
	Meta         `bson:",inline"`
	ID           string    `json:"id"             bson:"id"`
	Text         string    `json:"text"           bson:"text"`
	AuthorID     string    `json:"author_id"      bson:"author_id"`
	Username     string    `json:"username"       bson:"username"`
	DisplayName  string    `json:"display_name"   bson:"display_name"`
	CreatedAt    time.Time `json:"created_at"     bson:"created_at"`
	RetweetCount int       `json:"retweet_count"  bson:"retweet_count"`
	ReplyCount   int       `json:"reply_count"    bson:"reply_count"`
	LikeCount    int       `json:"like_count"     bson:"like_count"`
	QuoteCount   int       `json:"quote_count"    bson:"quote_count"`
	Hashtags     []string  `json:"hashtags"       bson:"hashtags"`
	Mentions     []string  `json:"mentions"       bson:"mentions"`
	Lang         string    `json:"lang,omitempty" bson:"lang,omitempty"`
	URL          string    `json:"url"            bson:"url"`
	Method       string    `json:"method"         bson:"method"`
	Mock         bool      `json:"mock,omitempty" bson:"mock,omitempty"`
}

func (t *Tweet) RecordID() string { return t.ID }
func (t *Tweet) Source() Source   { return SourceTwitter }

func (t *Tweet) MapText(fn func(TextKind, string) string) {
	t.Text = fn(TextBody, t.Text)
	t.DisplayName = fn(TextShort, t.DisplayName)
	t.URL = fn(TextURL, t.URL)
}

// Engagement is likes + retweets + replies + quotes.
func (t *Tweet) Engagement() int {
	return t.LikeCount + t.RetweetCount + t.ReplyCount + t.QuoteCount
}

// --- Upwork ---

// Budget types.
const (
	BudgetHourly  = "hourly"
	BudgetFixed   = "fixed"
	BudgetUnknown = "unknown"
)

// Budget is the parsed price information of a job posting.
type Budget struct {
	Raw      string  `json:"raw_text"   bson:"raw_text"`
	Type     string  `json:"type"       bson:"type"`
	Min      float64 `json:"min_amount" bson:"min_amount"`
	Max      float64 `json:"max_amount" bson:"max_amount"`
	Currency string  `json:"currency"   bson:"currency"`
}

// Job is an Upwork job posting.
type Job struct {
	Meta            `bson:",inline"`
	ID              string   `json:"id"               bson:"id"`
	Title           string   `json:"title"            bson:"title"`
	Description     string   `json:"description"      bson:"description"`
	Budget          Budget   `json:"budget"           bson:"budget"`
	Skills          []string `json:"skills_required"  bson:"skills_required"`
	Posted          string   `json:"posted"           bson:"posted"`
	ExperienceLevel string   `json:"experience_level" bson:"experience_level"`
	Proposals       string   `json:"proposals"        bson:"proposals"`
	ClientLocation  string   `json:"client_location"  bson:"client_location"`
	PaymentVerified bool     `json:"payment_verified" bson:"payment_verified"`
	URL             string   `json:"url"              bson:"url"`
}

func (j *Job) RecordID() string { return j.ID }
func (j *Job) Source() Source   { return SourceUpwork }

func (j *Job) MapText(fn func(TextKind, string) string) {
	j.Title = fn(TextShort, j.Title)
	j.Description = fn(TextBody, j.Description)
	j.Posted = fn(TextShort, j.Posted)
	j.ExperienceLevel = fn(TextShort, j.ExperienceLevel)
	j.Proposals = fn(TextShort, j.Proposals)
	j.ClientLocation = fn(TextShort, j.ClientLocation)
	j.URL = fn(TextURL, j.URL)
	for i := range j.Skills {
		j.Skills[i] = fn(TextShort, j.Skills[i])
	}
}

// --- Google Trends ---

// InterestPoint is one keyword's relative search interest on one date.
type InterestPoint struct {
	Meta    `bson:",inline"`
	Date    string    `json:"date"       bson:"date"`
	Time    time.Time `json:"time"       bson:"time"`
	Value   int       `json:"value"      bson:"value"`
	Partial bool      `json:"is_partial" bson:"is_partial"`
}

// RecordID is keyword@date; the same point collected twice overwrites.
func (p *InterestPoint) RecordID() string {
	if p.Keyword == "" || p.Date == "" {
		return ""
	}
	return strings.ToLower(p.Keyword) + "@" + p.Date
}

func (p *InterestPoint) Source() Source { return SourceGoogle }

func (p *InterestPoint) MapText(func(TextKind, string) string) {}

// MergeFrom overwrites the stored value; Trends rescales history on every query.
func (p *InterestPoint) MergeFrom(newer Record) {
	if n, ok := newer.(*InterestPoint); ok {
		p.Value = n.Value
		p.Partial = n.Partial
		p.CollectedAt = n.CollectedAt
	}
}

// RelatedQuery is a query Google reports alongside a keyword.
type RelatedQuery struct {
	Query          string `json:"query"           bson:"query"`
	Value          int    `json:"value"           bson:"value"`
	FormattedValue string `json:"formatted_value" bson:"formatted_value"`
}

// RelatedQueries groups the top and rising lists for one keyword.
type RelatedQueries struct {
	Top    []RelatedQuery `json:"top"    bson:"top"`
	Rising []RelatedQuery `json:"rising" bson:"rising"`
}

// RegionInterest is a keyword's interest in one region.
type RegionInterest struct {
	GeoCode string `json:"geo_code" bson:"geo_code"`
	GeoName string `json:"geo_name" bson:"geo_name"`
	Value   int    `json:"value"    bson:"value"`
}
