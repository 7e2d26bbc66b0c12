package discovery

import (
	"context"
)

// SearchResultItem is one hit returned by a search provider.
type SearchResultItem struct {
	Url     string
	Title   string
	Snippet string
}

// SearchProvider answers one query with ranked results. It is an external
// dependency: implementations must bound every call by the context deadline.
type SearchProvider interface {
	Search(ctx context.Context, query Query, location string, maxResults int) ([]SearchResultItem, error)
}
