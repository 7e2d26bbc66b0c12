package extractor

import (
	"context"
	"fmt"
	"strings"
)

// RawEvent is one loosely typed record returned by an extractor. Known keys
// are title, start_time, end_time, location, description and detail_url; all
// values are expected to be strings.
type RawEvent map[string]interface{}

// String returns the trimmed string value of key, "" if it is missing or not a
// string.
func (r RawEvent) String(key string) string {
	v, ok := r[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Truncated renders the record for log lines.
func (r RawEvent) Truncated(limit int) string {
	text := fmt.Sprintf("%v", map[string]interface{}(r))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

// EventExtractor turns the content of a source page into raw event records.
type EventExtractor interface {
	Extract(ctx context.Context, content string, sourceUrl string) ([]RawEvent, error)
}
