package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/mikequentel/tweetharvest/internal/model"
)

// Nitter reads the RSS feeds a Nitter instance publishes. No credentials
// are needed, but the feeds carry no author location and only one page.
type Nitter struct {
	base   string
	client *http.Client
	parser *gofeed.Parser
	log    *slog.Logger
}

func NewNitter(instance string, client *http.Client, logger *slog.Logger) *Nitter {
	base := strings.TrimSuffix(instance, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Nitter{
		base:   base,
		client: client,
		parser: gofeed.NewParser(),
		log:    logger,
	}
}

func (n *Nitter) UserTimeline(handle string) Cursor {
	return &nitterCursor{
		n:      n,
		url:    fmt.Sprintf("%s/%s/rss", n.base, url.PathEscape(handle)),
		handle: handle,
	}
}

func (n *Nitter) Search(q model.Query) Cursor {
	terms := []string{q.Terms}
	if q.Lang != "" {
		terms = append(terms, "lang:"+q.Lang)
	}
	if since := q.SinceDate(); since != "" {
		terms = append(terms, "since:"+since)
	}
	v := url.Values{}
	v.Set("f", "tweets")
	v.Set("q", strings.Join(terms, " "))
	return &nitterCursor{n: n, url: n.base + "/search/rss?" + v.Encode()}
}

type nitterCursor struct {
	n      *Nitter
	url    string
	handle string // set for timelines, where the feed is one author's
	done   bool
}

func (c *nitterCursor) Next(ctx context.Context, _ int) ([]model.Status, error) {
	if c.done {
		return nil, Done
	}
	c.done = true

	feed, err := c.n.fetch(ctx, c.url)
	if err != nil {
		return nil, err
	}
	c.n.log.Debug("fetched feed", "url", c.url, "count", len(feed.Items))
	if len(feed.Items) == 0 {
		return nil, Done
	}

	out := make([]model.Status, 0, len(feed.Items))
	for _, item := range feed.Items {
		out = append(out, c.status(item))
	}
	return out, nil
}

func (n *Nitter) fetch(ctx context.Context, u string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: HTTP %d", u, resp.StatusCode)
	}

	feed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", u, err)
	}
	return feed, nil
}

func (c *nitterCursor) status(item *gofeed.Item) model.Status {
	st := model.Status{
		ID:   statusID(item),
		Text: itemText(item),
	}
	if item.PublishedParsed != nil {
		st.CreatedAt = *item.PublishedParsed
	}
	st.Author.Handle = c.handle
	if h := itemAuthor(item); h != "" {
		st.Author.Handle = h
	}
	return st
}

// itemAuthor reads dc:creator ("@handle"). gofeed's own author parsing
// drops names that contain an @, so the extension is checked first.
func itemAuthor(item *gofeed.Item) string {
	if dc := item.DublinCoreExt; dc != nil && len(dc.Creator) > 0 {
		return strings.TrimPrefix(strings.TrimSpace(dc.Creator[0]), "@")
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return strings.TrimPrefix(item.Authors[0].Name, "@")
	}
	return ""
}

// itemText flattens the item's HTML description. Titles are cut short by
// some instances, so they are only a fallback.
func itemText(item *gofeed.Item) string {
	if item.Description != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
		if err == nil {
			if text := strings.TrimSpace(doc.Text()); text != "" {
				return text
			}
		}
	}
	return strings.TrimSpace(item.Title)
}

// statusID pulls the numeric id out of links like
// https://nitter.net/user/status/123#m.
func statusID(item *gofeed.Item) string {
	for _, s := range []string{item.GUID, item.Link} {
		if _, after, ok := strings.Cut(s, "/status/"); ok {
			id, _, _ := strings.Cut(after, "#")
			return id
		}
	}
	return item.GUID
}
