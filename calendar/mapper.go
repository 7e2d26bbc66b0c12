package calendar

import (
	"net/url"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/JamisonProctor/planz/extractor"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

const windowPad = 12 * time.Hour

// EventToCalendarEvent maps a stored event into the calendar shape with its
// times in loc.
func EventToCalendarEvent(event *model.Event, loc *time.Location) (CalendarEvent, error) {
	ce := CalendarEvent{}
	if err := copier.Copy(&ce, event); err != nil {
		return ce, errors.Wrapf(err, "fail to map event %s", event.Id)
	}
	ce.StartTime = event.StartTime.In(loc)
	ce.EndTime = event.EndTime.In(loc)
	ce.AllDay = extractor.IsAllDay(ce.StartTime, ce.EndTime)
	if event.CalendarSync != nil {
		ce.CalendarEventId = event.CalendarSync.CalendarEventId
	}
	return ce, nil
}

// Marker is the private key stored on the calendar entry: the external key,
// or a digest of title and start for events without one.
func (e CalendarEvent) Marker() string {
	if e.ExternalKey != "" {
		return e.ExternalKey
	}
	return utils.TextToSha256Hash(e.Title + "|" + e.StartTime.Format(time.RFC3339))
}

// BuildDescription is the body text of the calendar entry: the description,
// a maps link for the location and the source page.
func (e CalendarEvent) BuildDescription() string {
	parts := []string{}
	if d := strings.TrimSpace(e.Description); d != "" {
		parts = append(parts, d)
	}
	if e.Location != "" {
		parts = append(parts, "Maps: https://www.google.com/maps/search/?api=1&query="+url.QueryEscape(e.Location))
	}
	if e.SourceUrl != "" {
		parts = append(parts, "Source: "+e.SourceUrl)
	}
	return strings.Join(parts, "\n\n")
}

// AllDayDates returns the inclusive first day and the exclusive last day of an
// all-day event as yyyy-mm-dd.
func (e CalendarEvent) AllDayDates() (string, string) {
	first := e.StartTime
	last := e.EndTime
	if !last.After(first) {
		last = time.Date(first.Year(), first.Month(), first.Day()+1, 0, 0, 0, 0, first.Location())
	}
	return first.Format("2006-01-02"), last.Format("2006-01-02")
}

// BuildTimeWindow is the search window used to find e by its marker: the
// calendar day for all-day events, start and end padded by 12 hours
// otherwise.
func BuildTimeWindow(e CalendarEvent) (TimeWindow, error) {
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return TimeWindow{}, errors.Wrap(ErrInvalidTimeWindow, "event has no start or end")
	}
	var w TimeWindow
	if e.AllDay {
		s := e.StartTime
		w.Min = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
		w.Max = w.Min.AddDate(0, 0, 1)
	} else {
		w.Min = e.StartTime.Add(-windowPad)
		w.Max = e.EndTime.Add(windowPad)
	}
	if !w.Max.After(w.Min) {
		return TimeWindow{}, errors.Wrapf(ErrInvalidTimeWindow, "window %s..%s", w.Min.Format(time.RFC3339), w.Max.Format(time.RFC3339))
	}
	return w, nil
}
