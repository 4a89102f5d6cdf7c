package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	twitterv2 "github.com/g8rswimmer/go-twitter/v2"

	"github.com/mikequentel/tweetharvest/internal/model"
)

const (
	defaultV2Host = "https://api.twitter.com"

	v2TimelinePageMin = 5
	v2SearchPageMin   = 10
	v2PageMax         = 100
)

// authorizer satisfies go-twitter's Authorizer. Requests are already signed
// by the oauth1 http.Client underneath.
type authorizer struct{}

func (a *authorizer) Add(req *http.Request) {}

// TwitterV2 reads from the v2 API through g8rswimmer/go-twitter.
type TwitterV2 struct {
	client *twitterv2.Client
	log    *slog.Logger
}

func NewTwitterV2(creds model.Credentials, host string, base *http.Client, logger *slog.Logger) (*TwitterV2, error) {
	httpClient, err := signedClient(creds, base)
	if err != nil {
		return nil, err
	}
	return newTwitterV2(httpClient, host, logger), nil
}

func newTwitterV2(httpClient *http.Client, host string, logger *slog.Logger) *TwitterV2 {
	if host == "" {
		host = defaultV2Host
	}
	return &TwitterV2{
		client: &twitterv2.Client{
			Authorizer: &authorizer{},
			Client:     httpClient,
			Host:       strings.TrimSuffix(host, "/"),
		},
		log: logger,
	}
}

func (s *TwitterV2) UserTimeline(handle string) Cursor {
	return &v2TimelineCursor{src: s, handle: handle}
}

func (s *TwitterV2) Search(q model.Query) Cursor {
	return &v2SearchCursor{src: s, query: q}
}

type v2TimelineCursor struct {
	src    *TwitterV2
	handle string
	userID string
	token  string
	done   bool
}

func (c *v2TimelineCursor) Next(ctx context.Context, want int) ([]model.Status, error) {
	if c.done {
		return nil, Done
	}
	if c.userID == "" {
		id, err := c.src.lookupUser(ctx, c.handle)
		if err != nil {
			return nil, err
		}
		c.userID = id
	}

	resp, err := c.src.client.UserTweetTimeline(ctx, c.userID, twitterv2.UserTweetTimelineOpts{
		TweetFields:     []twitterv2.TweetField{twitterv2.TweetFieldCreatedAt, twitterv2.TweetFieldAuthorID},
		MaxResults:      pageSize(want, v2TimelinePageMin, v2PageMax),
		PaginationToken: c.token,
	})
	if err != nil {
		return nil, fmt.Errorf("user timeline @%s: %w", c.handle, err)
	}

	var tweets []*twitterv2.TweetObj
	if resp.Raw != nil {
		tweets = resp.Raw.Tweets
	}
	c.src.log.Debug("fetched timeline page", "handle", c.handle, "token", c.token, "count", len(tweets))

	c.token = ""
	if resp.Meta != nil {
		c.token = resp.Meta.NextToken
	}
	if c.token == "" {
		c.done = true
	}
	if len(tweets) == 0 {
		c.done = true
		return nil, Done
	}

	author := model.Author{Handle: c.handle}
	out := make([]model.Status, 0, len(tweets))
	for _, t := range tweets {
		st := v2Status(t)
		st.Author = author
		out = append(out, st)
	}
	return out, nil
}

func (s *TwitterV2) lookupUser(ctx context.Context, handle string) (string, error) {
	resp, err := s.client.UserNameLookup(ctx, []string{handle}, twitterv2.UserLookupOpts{})
	if err != nil {
		return "", fmt.Errorf("look up @%s: %w", handle, err)
	}
	if resp.Raw == nil || len(resp.Raw.Users) == 0 || resp.Raw.Users[0] == nil {
		return "", fmt.Errorf("look up @%s: no such user", handle)
	}
	return resp.Raw.Users[0].ID, nil
}

type v2SearchCursor struct {
	src   *TwitterV2
	query model.Query
	token string
	done  bool
}

func (c *v2SearchCursor) Next(ctx context.Context, want int) ([]model.Status, error) {
	if c.done {
		return nil, Done
	}

	opts := twitterv2.TweetRecentSearchOpts{
		Expansions:  []twitterv2.Expansion{twitterv2.ExpansionAuthorID},
		TweetFields: []twitterv2.TweetField{twitterv2.TweetFieldCreatedAt, twitterv2.TweetFieldAuthorID},
		UserFields:  []twitterv2.UserField{twitterv2.UserFieldUserName, twitterv2.UserFieldLocation},
		StartTime:   c.query.Since,
		MaxResults:  pageSize(want, v2SearchPageMin, v2PageMax),
		NextToken:   c.token,
	}
	resp, err := c.src.client.TweetRecentSearch(ctx, v2SearchQuery(c.query), opts)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", c.query.Terms, err)
	}

	var (
		tweets  []*twitterv2.TweetObj
		authors = map[string]model.Author{}
	)
	if resp.Raw != nil {
		tweets = resp.Raw.Tweets
		if resp.Raw.Includes != nil {
			for _, u := range resp.Raw.Includes.Users {
				if u != nil {
					authors[u.ID] = model.Author{Handle: u.UserName, Location: u.Location}
				}
			}
		}
	}
	c.src.log.Debug("fetched search page", "query", c.query.Terms, "token", c.token, "count", len(tweets))

	c.token = ""
	if resp.Meta != nil {
		c.token = resp.Meta.NextToken
	}
	if c.token == "" {
		c.done = true
	}
	if len(tweets) == 0 {
		c.done = true
		return nil, Done
	}

	out := make([]model.Status, 0, len(tweets))
	for _, t := range tweets {
		st := v2Status(t)
		st.Author = authors[t.AuthorID]
		out = append(out, st)
	}
	return out, nil
}

// v2SearchQuery folds the language filter into the query operators; the
// v2 endpoint has no separate lang parameter.
func v2SearchQuery(q model.Query) string {
	if q.Lang == "" {
		return q.Terms
	}
	return q.Terms + " lang:" + q.Lang
}

func v2Status(t *twitterv2.TweetObj) model.Status {
	st := model.Status{ID: t.ID, Text: t.Text}
	if created, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
		st.CreatedAt = created
	}
	return st
}
