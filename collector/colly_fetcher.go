package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/gocolly/colly"
	"github.com/pkg/errors"

	Logger "github.com/JamisonProctor/planz/utils/log"
)

// CollyFetcher fetches pages with a plain http request, no javascript.
type CollyFetcher struct {
	UserAgent string
	// Transport overrides the http transport, mostly for tests.
	Transport http.RoundTripper
}

func NewCollyFetcher() *CollyFetcher {
	return &CollyFetcher{UserAgent: DefaultUserAgent}
}

func (f *CollyFetcher) newCollector(timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.AllowURLRevisit(),
		// colly reports 203-299 as errors, statuses are classified in Fetch
		colly.ParseHTTPErrorResponse(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if f.Transport != nil {
		c.WithTransport(f.Transport)
	}
	return c
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "fetch of %s cancelled", url)
	}

	c := f.newCollector(timeout)

	var result *FetchResult
	var fetchErr error
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		result = &FetchResult{Url: r.Request.URL.String(), Text: string(r.Body), StatusCode: r.StatusCode}
		if IsNon2xxHttpStatus(r.StatusCode) {
			fetchErr = &HttpStatusError{Url: url, StatusCode: r.StatusCode}
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = errors.Wrapf(err, "fail to fetch %s", url)
	})

	visitErr := c.Visit(url)
	if fetchErr != nil {
		Logger.Log.WithField("url", url).Debugf("fetch failed: %s", fetchErr)
		return result, fetchErr
	}
	if visitErr != nil {
		return nil, errors.Wrapf(visitErr, "fail to fetch %s", url)
	}
	if result == nil {
		return nil, errors.Errorf("fetch of %s produced no response", url)
	}
	return result, nil
}
