package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/JamisonProctor/planz/collector"
)

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, status: map[string]int{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*collector.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if code, ok := f.status[url]; ok {
		return &collector.FetchResult{Url: url, StatusCode: code}, &collector.HttpStatusError{Url: url, StatusCode: code}
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.Errorf("dial tcp: connection refused: %s", url)
	}
	return &collector.FetchResult{Url: url, Text: body, StatusCode: 200}, nil
}

type fakeSearchProvider struct {
	results map[string][]SearchResultItem
	failing map[string]bool
	queries []Query
}

func (p *fakeSearchProvider) Search(ctx context.Context, query Query, location string, maxResults int) ([]SearchResultItem, error) {
	p.queries = append(p.queries, query)
	if p.failing[query.Intent+"/"+query.Language] {
		return nil, errors.New("search backend unavailable")
	}
	return p.results[query.Intent+"/"+query.Language], nil
}

// eventPage is a realistic listing page comfortably above the minimum length.
func eventPage(extra string) string {
	return "<html><body><h1>Veranstaltungen für Kinder</h1>" +
		strings.Repeat("<p>Vorlesestunde in der Stadtbibliothek am 17.01.2026 um 10:00 Uhr, Eintritt frei.</p>", 30) +
		"<p>" + extra + "</p></body></html>"
}

// undatedPage is long enough but carries no date token.
func undatedPage() string {
	return "<html><body>" + strings.Repeat("<p>Willkommen bei unserem Familienangebot, wir freuen uns auf euch.</p>", 30) + "</body></html>"
}

func jsShellPage() string {
	return "<html><head>" + strings.Repeat(`<script>window.__data = "`+strings.Repeat("x", 300)+`";</script>`, 12) +
		"</head><body><div id=\"root\"></div><noscript>Please enable JavaScript</noscript></body></html>"
}
