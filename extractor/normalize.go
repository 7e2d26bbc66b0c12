package extractor

import (
	"regexp"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"

	Logger "github.com/JamisonProctor/planz/utils/log"
)

// NormalizedEvent is a single-day event ready to be stored.
type NormalizedEvent struct {
	Title       string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
	// DetailUrl is the event's own page, "" if the extractor found none.
	DetailUrl string
	// SourceUrl is the page the event was extracted from.
	SourceUrl string
}

// KeyUrl is the url the event identity is derived from.
func (e NormalizedEvent) KeyUrl() string {
	if e.DetailUrl != "" {
		return e.DetailUrl
	}
	return e.SourceUrl
}

type NormalizeStats struct {
	Invalid       int
	DiscardedPast int
}

// offset-less layouts are interpreted in the source's civil timezone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// German listings write dates day first: 05.10.2026 is the 5th of October.
var dottedLayouts = []string{
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006, 15:04",
	"2.1.2006 15:04 Uhr",
	"2.1.2006",
	"2.1.06 15:04",
	"2.1.06",
}

var dottedDate = regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{2,4}`)

// ParseEventTime reads an extractor timestamp. ISO-8601 with an offset is
// taken as is, offset-less values are placed in loc. Dotted dates are read
// day first, anything else goes through dateparse.
func ParseEventTime(value string, loc *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	if dottedDate.MatchString(value) {
		for _, layout := range dottedLayouts {
			if t, err := time.ParseInLocation(layout, value, loc); err == nil {
				return t, true
			}
		}
		// dateparse reads dotted dates month first
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(value, loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

// NormalizeItems validates raw records, slices multi-day spans into weekend
// occurrences and drops occurrences that ended before today in loc.
func NormalizeItems(items []RawEvent, sourceUrl string, loc *time.Location, now time.Time) ([]NormalizedEvent, NormalizeStats) {
	stats := NormalizeStats{}
	events := []NormalizedEvent{}
	today := civilDate(now.In(loc))

	for _, item := range items {
		title := item.String("title")
		start, ok := ParseEventTime(item.String("start_time"), loc)
		if title == "" || !ok {
			Logger.Log.WithFields(logrus.Fields{
				"url":    sourceUrl,
				"reason": "missing_title_or_start",
			}).Info("skipping extracted item ", item.Truncated(200))
			stats.Invalid++
			continue
		}
		end, ok := ParseEventTime(item.String("end_time"), loc)
		if !ok || end.Before(start) {
			end = start
		}

		base := NormalizedEvent{
			Title:       title,
			Start:       start,
			End:         end,
			Location:    item.String("location"),
			Description: item.String("description"),
			DetailUrl:   item.String("detail_url"),
			SourceUrl:   sourceUrl,
		}

		occurrences := []NormalizedEvent{base}
		if civilDate(end).After(civilDate(start)) {
			occurrences = DeriveWeekendEvents(base)
			if len(occurrences) == 0 {
				Logger.Log.WithFields(logrus.Fields{
					"url":    sourceUrl,
					"reason": "multi_day_without_weekend",
				}).Info("skipping extracted item ", item.Truncated(200))
				stats.Invalid++
				continue
			}
		}

		for _, occ := range occurrences {
			if lastCivilDay(occ).Before(today) {
				stats.DiscardedPast++
				continue
			}
			events = append(events, occ)
		}
	}

	if stats.DiscardedPast > 0 {
		Logger.Log.WithField("url", sourceUrl).Infof("discarded %d past events", stats.DiscardedPast)
	}
	return events, stats
}

// lastCivilDay is the last calendar day an occurrence covers. An all-day
// occurrence ends on the following midnight, which it does not cover.
func lastCivilDay(e NormalizedEvent) time.Time {
	if e.End.After(e.Start) && IsAllDay(e.Start, e.End) {
		return civilDate(e.End.Add(-time.Nanosecond))
	}
	return civilDate(e.End)
}

// civilDate is midnight UTC of t's calendar day in t's own location, usable
// for day comparisons.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
