package collector

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// fakeFetcher serves canned pages keyed by url and records every call.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, status: map[string]int{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if code, ok := f.status[url]; ok {
		return &FetchResult{Url: url, StatusCode: code}, &HttpStatusError{Url: url, StatusCode: code}
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.Errorf("connection refused: %s", url)
	}
	return &FetchResult{Url: url, Text: body, StatusCode: 200}, nil
}
