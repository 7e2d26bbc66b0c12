package collector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/JamisonProctor/planz/utils"
)

// HtmlToText returns the visible text of an html document with scripts and
// styles removed and whitespace collapsed.
func HtmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Wrap(err, "fail to parse html")
	}
	doc.Find("script, style, noscript, template").Remove()
	// goquery Text() will not replace br with newline
	doc.Find("br").AfterHtml("\n")
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// FindNextPageLink returns the canonical absolute url of the rel="next" link of
// a listing page, "" if there is none. Both <a> and <link> elements count.
func FindNextPageLink(html string, pageUrl string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	href := ""
	doc.Find(`a[rel~="next"], link[rel~="next"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("href"); ok && strings.TrimSpace(v) != "" {
			href = v
			return false
		}
		return true
	})
	if href == "" {
		return ""
	}
	return utils.CanonicalizeUrl(utils.ResolveReference(pageUrl, href))
}
