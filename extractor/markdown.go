package extractor

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

var (
	sanitizePolicy = bluemonday.UGCPolicy()
	mdConverter    = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// HtmlToMarkdown sanitises an html document and converts it to markdown.
// Relative links are resolved against sourceUrl so that detail pages stay
// addressable for the extractor.
func HtmlToMarkdown(html string, sourceUrl string) (string, error) {
	clean := sanitizePolicy.Sanitize(html)
	opts := []converter.ConvertOptionFunc{}
	if sourceUrl != "" {
		opts = append(opts, converter.WithDomain(sourceUrl))
	}
	md, err := mdConverter.ConvertString(clean, opts...)
	if err != nil {
		return "", errors.Wrap(err, "fail to convert html to markdown")
	}
	return strings.TrimSpace(md), nil
}
