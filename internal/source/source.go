// Package source wraps the platform clients behind a small paging
// interface. Pagination itself is done by the wrapped libraries; a Cursor
// only asks them for the next page.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mikequentel/tweetharvest/internal/config"
	"github.com/mikequentel/tweetharvest/internal/model"
)

// Done is returned by Cursor.Next once there are no more pages.
var Done = errors.New("no more pages")

// Source starts retrievals. Every call returns a fresh cursor, so two
// searches with the same query hit the platform twice.
type Source interface {
	UserTimeline(handle string) Cursor
	Search(q model.Query) Cursor
}

// Cursor hands out one page at a time. want is how many items the caller
// still needs (0 = no bound) and is only a page-size hint.
type Cursor interface {
	Next(ctx context.Context, want int) ([]model.Status, error)
}

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*options)

// WithHTTPClient replaces the transport. For the authenticated backends the
// client's Transport is wrapped by the OAuth1 signer.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds the backend selected in cfg.
func New(cfg *config.Config, opts ...Option) (Source, error) {
	o := options{
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.Backend {
	case config.BackendV1:
		return NewTwitterV1(cfg.Credentials, o.httpClient, o.logger)
	case config.BackendV2:
		return NewTwitterV2(cfg.Credentials, cfg.API.BaseURL, o.httpClient, o.logger)
	case config.BackendNitter:
		return NewNitter(cfg.Nitter.Instance, o.httpClient, o.logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// pageSize picks a page size from the caller's remaining want and the
// endpoint's bounds.
func pageSize(want, lo, hi int) int {
	n := hi
	if want > 0 && want < hi {
		n = want
	}
	if n < lo {
		n = lo
	}
	return n
}
