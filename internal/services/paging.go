package services

import (
	"context"
	"net/http"
)

// Cursors are returned by cursor-paginated endpoints such as followed artists
// and recently played tracks.
type Cursors struct {
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`
}

// Page is the Spotify paging envelope.
type Page[T any] struct {
	Href     string   `json:"href"`
	Items    []T      `json:"items"`
	Limit    int      `json:"limit"`
	Next     *string  `json:"next"`
	Offset   int      `json:"offset"`
	Previous *string  `json:"previous"`
	Total    int      `json:"total"`
	Cursors  *Cursors `json:"cursors,omitempty"`
}

// NextURL returns the absolute URL of the following page, or "" on the last page.
func (p *Page[T]) NextURL() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return *p.Next
}

// FetchAllPages walks a paginated endpoint starting at initialURL, collecting
// items(page) from each response until next(page) is empty. Pages are fetched
// one at a time with the executor's page delay between them. Any error aborts
// the walk and discards the items collected so far.
func FetchAllPages[T, R any](ctx context.Context, ex *Executor, initialURL string, items func(*R) []T, next func(*R) string) ([]T, error) {
	var all []T
	target := initialURL

	for page := 1; target != ""; page++ {
		ex.logger.Debug("fetching page", "page", page, "url", target)

		resp, err := Decode[R](ctx, ex, http.MethodGet, target, nil)
		if err != nil {
			ex.logger.Error("paginated fetch failed", "page", page, "err", err)
			return nil, err
		}

		all = append(all, items(resp)...)
		target = next(resp)

		if target != "" {
			if err := ex.sleep(ctx, ex.pageDelay); err != nil {
				return nil, err
			}
		}
	}
	return all, nil
}

// FetchAll walks an endpoint whose response is a plain [Page] of T.
func FetchAll[T any](ctx context.Context, ex *Executor, initialURL string) ([]T, error) {
	return FetchAllPages(ctx, ex, initialURL,
		func(p *Page[T]) []T { return p.Items },
		(*Page[T]).NextURL,
	)
}
