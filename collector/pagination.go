package collector

import (
	"context"
	"time"

	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

const DefaultMaxListingPages = 10

type ListingOptions struct {
	MaxPages int
	Timeout  time.Duration
	// SameDomain stops at a next link that leaves the start url's domain,
	// before it is fetched.
	SameDomain bool
	// OnFetched observes every page fetch the iterator performs, in order.
	OnFetched func(url string, res *FetchResult, err error)
}

// ListingPageIterator lazily walks a paginated listing by following rel="next"
// links. A page url is yielded before it is fetched; the fetch happens when the
// caller asks for the following page.
//
//	it := EnumerateListingPages(ctx, start, fetcher, opts)
//	for it.Next() {
//		use(it.Url())
//	}
type ListingPageIterator struct {
	ctx     context.Context
	fetcher Fetcher
	opts    ListingOptions

	start    string
	current  string
	prevHash string
	seen     map[string]bool
	yielded  int
	started  bool
	done     bool
	stopped  string
}

func EnumerateListingPages(ctx context.Context, startUrl string, fetcher Fetcher, opts ListingOptions) *ListingPageIterator {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxListingPages
	}
	return &ListingPageIterator{
		ctx:     ctx,
		fetcher: fetcher,
		opts:    opts,
		start:   startUrl,
		seen:    map[string]bool{},
	}
}

func (it *ListingPageIterator) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		start := utils.CanonicalizeUrl(it.start)
		if start == "" {
			return it.stop("invalid start url")
		}
		it.start = start
		it.yield(start)
		return true
	}

	next, reason := it.advance()
	if next == "" {
		return it.stop(reason)
	}
	it.yield(next)
	return true
}

// Url is the page yielded by the last successful Next.
func (it *ListingPageIterator) Url() string {
	return it.current
}

// StopReason explains why iteration ended, "" while still running.
func (it *ListingPageIterator) StopReason() string {
	return it.stopped
}

func (it *ListingPageIterator) yield(url string) {
	it.current = url
	it.seen[url] = true
	it.yielded++
}

func (it *ListingPageIterator) stop(reason string) bool {
	it.done = true
	it.stopped = reason
	Logger.Log.WithField("url", it.current).Debugf("listing pagination stopped: %s", reason)
	return false
}

// advance fetches the current page and resolves its successor. It returns ""
// and the reason when pagination must end.
func (it *ListingPageIterator) advance() (string, string) {
	res, err := it.fetcher.Fetch(it.ctx, it.current, it.opts.Timeout)
	if it.opts.OnFetched != nil {
		it.opts.OnFetched(it.current, res, err)
	}
	if err != nil || res == nil {
		return "", "fetch failed"
	}

	hash := utils.TextToSha256Hash(res.Text)
	if hash == it.prevHash {
		return "", "repeated page content"
	}
	it.prevHash = hash

	if it.yielded >= it.opts.MaxPages {
		return "", "page limit reached"
	}

	next := FindNextPageLink(res.Text, it.current)
	switch {
	case next == "":
		return "", "no next link"
	case next == it.current:
		return "", "next link points to current page"
	case it.seen[next]:
		return "", "next link already visited"
	case it.opts.SameDomain && utils.ExtractDomain(next) != utils.ExtractDomain(it.start):
		return "", "next link leaves the domain"
	}
	return next, ""
}
