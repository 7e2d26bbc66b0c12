package extractor

import (
	"time"
)

const (
	saturdaySuffix = " (Saturday)"
	sundaySuffix   = " (Sunday)"
)

// IsAllDay reports whether both ends sit exactly on midnight.
func IsAllDay(start, end time.Time) bool {
	return isMidnight(start) && isMidnight(end)
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// DeriveWeekendEvents decomposes a multi-day event into one occurrence per
// Saturday and Sunday in [start date, end date]. Timed events keep their time
// of day, all-day events span midnight to the next midnight. A span without
// weekend days, or an event that is not multi-day, yields nothing.
func DeriveWeekendEvents(e NormalizedEvent) []NormalizedEvent {
	loc := e.Start.Location()
	end := e.End.In(loc)
	first := civilDate(e.Start)
	last := civilDate(end)
	if !last.After(first) {
		return []NormalizedEvent{}
	}

	allDay := IsAllDay(e.Start, end)
	derived := []NormalizedEvent{}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		var suffix string
		switch day.Weekday() {
		case time.Saturday:
			suffix = saturdaySuffix
		case time.Sunday:
			suffix = sundaySuffix
		default:
			continue
		}

		y, m, d := day.Date()
		var occStart, occEnd time.Time
		if allDay {
			occStart = time.Date(y, m, d, 0, 0, 0, 0, loc)
			occEnd = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		} else {
			occStart = time.Date(y, m, d, e.Start.Hour(), e.Start.Minute(), e.Start.Second(), 0, loc)
			occEnd = time.Date(y, m, d, end.Hour(), end.Minute(), end.Second(), 0, loc)
			if occEnd.Before(occStart) {
				occEnd = occStart
			}
		}

		occ := e
		occ.Title = e.Title + suffix
		occ.Start = occStart
		occ.End = occEnd
		derived = append(derived, occ)
	}
	return derived
}
