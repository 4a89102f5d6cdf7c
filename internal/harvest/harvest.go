// Package harvest turns source cursors into record lists: a user's
// timeline, the texts of a search, or the locations of a search's authors.
package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikequentel/tweetharvest/internal/model"
	"github.com/mikequentel/tweetharvest/internal/source"
)

var (
	ErrEmptyHandle = errors.New("empty handle")
	ErrEmptyQuery  = errors.New("empty search query")
	ErrBadLimit    = errors.New("limit must be >= 0")
)

// Drain pulls pages from c until limit items are collected or the cursor
// runs dry. Errors are returned as-is; nothing collected so far is kept.
func Drain(ctx context.Context, c source.Cursor, limit model.Limit) ([]model.Status, error) {
	if !limit.Valid() {
		return nil, fmt.Errorf("%w, got %d", ErrBadLimit, limit)
	}
	var out []model.Status
	for !limit.Bounded() || len(out) < int(limit) {
		want := 0
		if limit.Bounded() {
			want = int(limit) - len(out)
		}
		page, err := c.Next(ctx, want)
		if errors.Is(err, source.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		if limit.Bounded() && len(page) > want {
			page = page[:want]
		}
		out = append(out, page...)
	}
	return out, nil
}

// Timeline returns handle's posts, newest first, reposts included, as
// (full text, created at) records.
func Timeline(ctx context.Context, src source.Source, handle string, limit model.Limit) ([]model.Message, error) {
	if handle == "" {
		return nil, ErrEmptyHandle
	}
	statuses, err := Drain(ctx, src.UserTimeline(handle), limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, model.Message{Text: st.Text, CreatedAt: st.CreatedAt})
	}
	return out, nil
}

// Search returns the texts of up to limit posts matching q.
func Search(ctx context.Context, src source.Source, q model.Query, limit model.Limit) ([]model.Message, error) {
	statuses, err := search(ctx, src, q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, model.Message{Text: st.Text})
	}
	return out, nil
}

// Locations runs the search again on a fresh cursor and returns each
// author's handle and self-declared location. Results may differ from an
// earlier Search with the same query.
func Locations(ctx context.Context, src source.Source, q model.Query, limit model.Limit) ([]model.Location, error) {
	statuses, err := search(ctx, src, q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Location, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, model.Location{Handle: st.Author.Handle, Location: st.Author.Location})
	}
	return out, nil
}

func search(ctx context.Context, src source.Source, q model.Query, limit model.Limit) ([]model.Status, error) {
	if q.Terms == "" {
		return nil, ErrEmptyQuery
	}
	return Drain(ctx, src.Search(q), limit)
}
