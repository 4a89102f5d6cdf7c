package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dghubble/go-twitter/twitter"

	"github.com/mikequentel/tweetharvest/internal/model"
)

var testCreds = model.Credentials{
	ConsumerKey:       "ck",
	ConsumerSecret:    "cs",
	AccessToken:       "at",
	AccessTokenSecret: "as",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rewriteTransport redirects all HTTP requests to a local httptest server,
// so the v1 client's fixed api.twitter.com base can be exercised.
type rewriteTransport struct {
	base   http.RoundTripper
	target string // e.g., "http://127.0.0.1:PORT"
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = strings.TrimPrefix(rt.target, "http://")
	return rt.base.RoundTrip(req)
}

func newV1(t *testing.T, srv *httptest.Server) *TwitterV1 {
	t.Helper()
	client := &http.Client{
		Transport: rewriteTransport{base: http.DefaultTransport, target: srv.URL},
	}
	src, err := NewTwitterV1(testCreds, client, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func v1Tweet(id int64, text, user, location string) string {
	return fmt.Sprintf(`{"id":%d,"id_str":"%d","full_text":%q,"truncated":false,"created_at":"Fri Nov 15 11:10:53 +0000 2019","user":{"screen_name":%q,"location":%q}}`,
		id, id, text, user, location)
}

// drainAll pulls pages until Done.
func drainAll(t *testing.T, c Cursor, want int) []model.Status {
	t.Helper()
	var out []model.Status
	for i := 0; i < 10; i++ {
		page, err := c.Next(context.Background(), want)
		if errors.Is(err, Done) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, page...)
	}
	t.Fatal("cursor never finished")
	return nil
}

func TestTwitterV1_UserTimelinePaging(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/1.1/statuses/user_timeline.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Errorf("request not OAuth1 signed: %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query()
		if q.Get("screen_name") != "kate" {
			t.Errorf("screen_name = %q", q.Get("screen_name"))
		}
		if q.Get("tweet_mode") != "extended" {
			t.Errorf("tweet_mode = %q", q.Get("tweet_mode"))
		}
		if q.Get("include_rts") != "true" {
			t.Errorf("include_rts = %q", q.Get("include_rts"))
		}
		if q.Get("count") != "200" {
			t.Errorf("count = %q, want 200 for unbounded", q.Get("count"))
		}

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("max_id") {
		case "":
			fmt.Fprintf(w, "[%s,%s]", v1Tweet(30, "newest", "kate", "Ottawa"), v1Tweet(29, "RT @someone: older", "kate", "Ottawa"))
		case "28":
			fmt.Fprintf(w, "[%s]", v1Tweet(28, "oldest", "kate", "Ottawa"))
		case "27":
			fmt.Fprint(w, "[]")
		default:
			t.Errorf("unexpected max_id %q", q.Get("max_id"))
			fmt.Fprint(w, "[]")
		}
	}))
	defer srv.Close()

	got := drainAll(t, newV1(t, srv).UserTimeline("kate"), 0)

	if calls != 3 {
		t.Errorf("expected 3 page requests, got %d", calls)
	}
	wantText := []string{"newest", "RT @someone: older", "oldest"}
	if len(got) != len(wantText) {
		t.Fatalf("got %d statuses, want %d", len(got), len(wantText))
	}
	for i, st := range got {
		if st.Text != wantText[i] {
			t.Errorf("status %d text = %q, want %q", i, st.Text, wantText[i])
		}
	}
	wantCreated := time.Date(2019, 11, 15, 11, 10, 53, 0, time.UTC)
	if !got[0].CreatedAt.Equal(wantCreated) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, wantCreated)
	}
	if got[0].ID != "30" || got[0].Author.Handle != "kate" {
		t.Errorf("unexpected first status: %+v", got[0])
	}
}

func TestTwitterV1_SearchParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/search/tweets.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "#cdnpoli" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("lang") != "en" {
			t.Errorf("lang = %q", q.Get("lang"))
		}
		if q.Get("since") != "2019-11-01" {
			t.Errorf("since = %q", q.Get("since"))
		}
		if q.Get("count") != "5" {
			t.Errorf("count = %q, want 5", q.Get("count"))
		}
		w.Header().Set("Content-Type", "application/json")
		if q.Get("max_id") != "" {
			fmt.Fprint(w, `{"statuses":[]}`)
			return
		}
		fmt.Fprintf(w, `{"statuses":[%s,%s]}`, v1Tweet(11, "first", "a", "Ottawa, ON"), v1Tweet(10, "second", "b", ""))
	}))
	defer srv.Close()

	query := model.Query{Terms: "#cdnpoli", Lang: "en", Since: time.Date(2019, 11, 1, 0, 0, 0, 0, time.UTC)}
	got := drainAll(t, newV1(t, srv).Search(query), 5)

	if len(got) != 2 {
		t.Fatalf("got %d statuses, want 2", len(got))
	}
	if got[0].Author != (model.Author{Handle: "a", Location: "Ottawa, ON"}) {
		t.Errorf("author 0 = %+v", got[0].Author)
	}
	if got[1].Author != (model.Author{Handle: "b", Location: ""}) {
		t.Errorf("author 1 = %+v", got[1].Author)
	}
}

func TestTwitterV1_APIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":[{"code":89,"message":"Invalid or expired token."}]}`)
	}))
	defer srv.Close()

	_, err := newV1(t, srv).UserTimeline("kate").Next(context.Background(), 0)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	var apiErr twitter.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected twitter.APIError in chain, got %T: %v", err, err)
	}
	if len(apiErr.Errors) != 1 || apiErr.Errors[0].Code != 89 {
		t.Errorf("unexpected API error: %+v", apiErr)
	}
}

func TestTwitterV1_TextFallback(t *testing.T) {
	st := v1Status(twitter.Tweet{ID: 7, Text: "compat text", Truncated: true, CreatedAt: "garbage"})
	if st.Text != "compat text" {
		t.Errorf("Text = %q, want fallback to text", st.Text)
	}
	if st.ID != "7" {
		t.Errorf("ID = %q, want 7", st.ID)
	}
	if !st.CreatedAt.IsZero() {
		t.Errorf("expected zero CreatedAt for unparseable date, got %v", st.CreatedAt)
	}
	if st.Author != (model.Author{}) {
		t.Errorf("expected empty author without a user, got %+v", st.Author)
	}
}

func TestNewTwitterV1_RequiresCredentials(t *testing.T) {
	if _, err := NewTwitterV1(model.Credentials{ConsumerKey: "ck"}, http.DefaultClient, discardLogger()); err == nil {
		t.Fatal("expected error for incomplete credentials")
	}
}

func TestPageSize(t *testing.T) {
	tests := []struct {
		want, lo, hi, exp int
	}{
		{0, 1, 200, 200},
		{5, 1, 200, 5},
		{500, 1, 100, 100},
		{3, 10, 100, 10},
	}
	for _, tt := range tests {
		if got := pageSize(tt.want, tt.lo, tt.hi); got != tt.exp {
			t.Errorf("pageSize(%d, %d, %d) = %d, want %d", tt.want, tt.lo, tt.hi, got, tt.exp)
		}
	}
}
