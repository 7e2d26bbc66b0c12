package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; planz/1.0; +https://github.com/JamisonProctor/planz)"

// FetchResult is what a fetch strategy returns for one page.
type FetchResult struct {
	// Url after redirects.
	Url        string
	Text       string
	StatusCode int
}

// Fetcher retrieves a page as text. Implementations must honour timeout and
// return an *HttpStatusError for non 2xx answers, any other error is a
// transport failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error)
}

// HttpStatusError reports a response outside the 2xx range.
type HttpStatusError struct {
	Url        string
	StatusCode int
}

func (e *HttpStatusError) Error() string {
	return fmt.Sprintf("non-2xx http code %d (%s) for %s", e.StatusCode, http.StatusText(e.StatusCode), e.Url)
}

// StatusCodeOf returns the http status carried by err, 0 if there is none.
func StatusCodeOf(err error) int {
	var statusErr *HttpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func IsNon2xxHttpStatus(statusCode int) bool {
	return statusCode < 200 || statusCode >= 300
}
