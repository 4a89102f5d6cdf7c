package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dghubble/go-twitter/twitter"

	"github.com/mikequentel/tweetharvest/internal/model"
)

const (
	v1TimelinePageMax = 200
	v1SearchPageMax   = 100
	v1TweetMode       = "extended"
)

// TwitterV1 reads from the v1.1 REST API through dghubble/go-twitter.
type TwitterV1 struct {
	client *twitter.Client
	log    *slog.Logger
}

func NewTwitterV1(creds model.Credentials, base *http.Client, logger *slog.Logger) (*TwitterV1, error) {
	httpClient, err := signedClient(creds, base)
	if err != nil {
		return nil, err
	}
	return &TwitterV1{client: twitter.NewClient(httpClient), log: logger}, nil
}

func (s *TwitterV1) UserTimeline(handle string) Cursor {
	return &v1TimelineCursor{src: s, handle: handle}
}

func (s *TwitterV1) Search(q model.Query) Cursor {
	return &v1SearchCursor{src: s, query: q}
}

// Both cursors walk backwards through ids: each page asks for tweets
// older than the oldest one already seen.

type v1TimelineCursor struct {
	src    *TwitterV1
	handle string
	maxID  int64
	done   bool
}

func (c *v1TimelineCursor) Next(ctx context.Context, want int) ([]model.Status, error) {
	if c.done {
		return nil, Done
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &twitter.UserTimelineParams{
		ScreenName:      c.handle,
		Count:           pageSize(want, 1, v1TimelinePageMax),
		MaxID:           c.maxID,
		IncludeRetweets: twitter.Bool(true),
		TweetMode:       v1TweetMode,
	}
	tweets, _, err := c.src.client.Timelines.UserTimeline(params)
	if err != nil {
		return nil, fmt.Errorf("user timeline @%s: %w", c.handle, err)
	}
	c.src.log.Debug("fetched timeline page", "handle", c.handle, "max_id", c.maxID, "count", len(tweets))
	if len(tweets) == 0 {
		c.done = true
		return nil, Done
	}
	c.maxID = tweets[len(tweets)-1].ID - 1
	return v1Statuses(tweets), nil
}

type v1SearchCursor struct {
	src   *TwitterV1
	query model.Query
	maxID int64
	done  bool
}

func (c *v1SearchCursor) Next(ctx context.Context, want int) ([]model.Status, error) {
	if c.done {
		return nil, Done
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &twitter.SearchTweetParams{
		Query:     c.query.Terms,
		Lang:      c.query.Lang,
		Since:     c.query.SinceDate(),
		Count:     pageSize(want, 1, v1SearchPageMax),
		MaxID:     c.maxID,
		TweetMode: v1TweetMode,
	}
	search, _, err := c.src.client.Search.Tweets(params)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", c.query.Terms, err)
	}
	var tweets []twitter.Tweet
	if search != nil {
		tweets = search.Statuses
	}
	c.src.log.Debug("fetched search page", "query", c.query.Terms, "max_id", c.maxID, "count", len(tweets))
	if len(tweets) == 0 {
		c.done = true
		return nil, Done
	}
	c.maxID = tweets[len(tweets)-1].ID - 1
	return v1Statuses(tweets), nil
}

func v1Statuses(tweets []twitter.Tweet) []model.Status {
	out := make([]model.Status, 0, len(tweets))
	for _, t := range tweets {
		out = append(out, v1Status(t))
	}
	return out
}

func v1Status(t twitter.Tweet) model.Status {
	st := model.Status{
		ID:   t.IDStr,
		Text: t.FullText,
	}
	if st.ID == "" {
		st.ID = strconv.FormatInt(t.ID, 10)
	}
	// Extended mode fills full_text; compat mode only text.
	if st.Text == "" {
		st.Text = t.Text
	}
	if created, err := t.CreatedAtTime(); err == nil {
		st.CreatedAt = created
	}
	if t.User != nil {
		st.Author = model.Author{Handle: t.User.ScreenName, Location: t.User.Location}
	}
	return st
}
