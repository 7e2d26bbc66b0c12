package collector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func listingPage(body string, next string) string {
	link := ""
	if next != "" {
		link = fmt.Sprintf(`<a rel="next" href="%s">weiter</a>`, next)
	}
	return fmt.Sprintf("<html><body><p>%s</p>%s</body></html>", body, link)
}

func collect(it *ListingPageIterator) []string {
	urls := []string{}
	for it.Next() {
		urls = append(urls, it.Url())
	}
	return urls
}

func TestPaginationFollowsNextLinks(t *testing.T) {
	f := newFakeFetcher()
	f.pages["https://a.de/list"] = listingPage("page 1", "/list?page=2")
	f.pages["https://a.de/list?page=2"] = listingPage("page 2", "https://a.de/list?page=3")
	f.pages["https://a.de/list?page=3"] = listingPage("page 3", "")

	fetched := []string{}
	it := EnumerateListingPages(context.Background(), "https://a.de/list/", f, ListingOptions{
		OnFetched: func(url string, res *FetchResult, err error) { fetched = append(fetched, url) },
	})

	require.Equal(t, []string{"https://a.de/list", "https://a.de/list?page=2", "https://a.de/list?page=3"}, collect(it))
	require.Equal(t, "no next link", it.StopReason())
	require.Equal(t, []string{"https://a.de/list", "https://a.de/list?page=2", "https://a.de/list?page=3"}, fetched)
}

func TestPaginationIsLazy(t *testing.T) {
	f := newFakeFetcher()
	f.pages["https://a.de/list"] = listingPage("page 1", "/list?page=2")
	f.pages["https://a.de/list?page=2"] = listingPage("page 2", "")

	it := EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{})
	require.True(t, it.Next())
	require.Empty(t, f.calls)
	require.True(t, it.Next())
	require.Equal(t, []string{"https://a.de/list"}, f.calls)
}

func TestPaginationStopsOnRepeatedContent(t *testing.T) {
	f := newFakeFetcher()
	same := listingPage("same listing", "/list?page=2")
	f.pages["https://a.de/list"] = same
	f.pages["https://a.de/list?page=2"] = same

	it := EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{})
	require.Equal(t, []string{"https://a.de/list", "https://a.de/list?page=2"}, collect(it))
	require.Equal(t, "repeated page content", it.StopReason())
}

func TestPaginationStopsOnSelfLink(t *testing.T) {
	f := newFakeFetcher()
	f.pages["https://a.de/list"] = listingPage("page 1", "https://a.de/list/")

	it := EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{})
	require.Equal(t, []string{"https://a.de/list"}, collect(it))
	require.Equal(t, "next link points to current page", it.StopReason())
}

func TestPaginationStopsBeforeLeavingDomain(t *testing.T) {
	f := newFakeFetcher()
	f.pages["https://a.de/list"] = listingPage("page 1", "https://tickets.example.com/list?page=2")
	f.pages["https://tickets.example.com/list?page=2"] = listingPage("elsewhere", "")

	it := EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{SameDomain: true})
	require.Equal(t, []string{"https://a.de/list"}, collect(it))
	require.Equal(t, "next link leaves the domain", it.StopReason())
	require.Equal(t, []string{"https://a.de/list"}, f.calls)

	// without the option the link is followed
	f.calls = nil
	it = EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{})
	require.Equal(t, []string{"https://a.de/list", "https://tickets.example.com/list?page=2"}, collect(it))
}

func TestPaginationStopsOnCycle(t *testing.T) {
	f := newFakeFetcher()
	f.pages["https://a.de/list"] = listingPage("page 1", "/list?page=2")
	f.pages["https://a.de/list?page=2"] = listingPage("page 2", "/list")

	it := EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{})
	require.Equal(t, []string{"https://a.de/list", "https://a.de/list?page=2"}, collect(it))
	require.Equal(t, "next link already visited", it.StopReason())
}

func TestPaginationStopsOnFetchFailure(t *testing.T) {
	f := newFakeFetcher()
	f.pages["https://a.de/list"] = listingPage("page 1", "/list?page=2")
	f.status["https://a.de/list?page=2"] = 500

	it := EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{})
	require.Equal(t, []string{"https://a.de/list", "https://a.de/list?page=2"}, collect(it))
	require.Equal(t, "fetch failed", it.StopReason())
}

func TestPaginationRespectsPageLimit(t *testing.T) {
	f := newFakeFetcher()
	for i := 1; i <= 5; i++ {
		url := "https://a.de/list"
		if i > 1 {
			url = fmt.Sprintf("https://a.de/list?page=%d", i)
		}
		f.pages[url] = listingPage(fmt.Sprintf("page %d", i), fmt.Sprintf("/list?page=%d", i+1))
	}

	it := EnumerateListingPages(context.Background(), "https://a.de/list", f, ListingOptions{MaxPages: 3})
	require.Len(t, collect(it), 3)
	require.Equal(t, "page limit reached", it.StopReason())
	// the last yielded page is still fetched so its content can be stored
	require.Len(t, f.calls, 3)
}

func TestPaginationInvalidStart(t *testing.T) {
	it := EnumerateListingPages(context.Background(), "   ", newFakeFetcher(), ListingOptions{})
	require.False(t, it.Next())
	require.False(t, it.Next())
}

func TestFindNextPageLink(t *testing.T) {
	require.Equal(t, "https://a.de/x?page=2",
		FindNextPageLink(`<html><head><link rel="next" href="?page=2"></head></html>`, "https://a.de/x"))
	require.Equal(t, "",
		FindNextPageLink(`<a rel="prev" href="/p1">back</a>`, "https://a.de/x"))
	require.Equal(t, "https://a.de/p3",
		FindNextPageLink(`<a rel="nofollow next" href="/p3/">3</a>`, "https://a.de/x"))
}

func TestHtmlToText(t *testing.T) {
	text, err := HtmlToText(`<html><head><style>p{}</style><script>var x=1;</script></head><body><p>Hallo</p><p>Welt</p></body></html>`)
	require.NoError(t, err)
	require.Equal(t, "HalloWelt", text)
}
