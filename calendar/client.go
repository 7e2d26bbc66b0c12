package calendar

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	MarkerProperty = "planz"
	KeyProperty    = "planz_key"
	// LegacyTitlePrefix tagged events before private properties were used.
	LegacyTitlePrefix = "[PLZ]"
)

var (
	ErrRateLimited           = errors.New("calendar rate limit exceeded")
	ErrInvalidTimeWindow     = errors.New("invalid calendar time window")
	ErrMissingCalendarClient = errors.New("calendar client is not configured")
)

// CalendarEvent is the provider neutral shape pushed to a calendar.
type CalendarEvent struct {
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	Location    string
	Description string
	SourceUrl   string
	ExternalKey string
	// CalendarEventId is set when the event already exists in the calendar and
	// must be updated rather than inserted.
	CalendarEventId string
	AllDay          bool
}

// TimeWindow bounds a calendar query, Min inclusive and Max exclusive.
type TimeWindow struct {
	Min time.Time
	Max time.Time
}

// Client is the calendar capability the reconciliation loop relies on.
// Implementations return an error wrapping ErrRateLimited for throttled calls.
type Client interface {
	// UpsertEvent inserts e, or updates it when e.CalendarEventId is set, and
	// returns the calendar's id for it.
	UpsertEvent(ctx context.Context, e CalendarEvent) (string, error)
	// FindByKey returns the id of the event carrying marker key inside window,
	// "" if there is none.
	FindByKey(ctx context.Context, key string, window TimeWindow) (string, error)
	DeleteEvent(ctx context.Context, calendarEventId string) error
}

// ListedEvent is a calendar entry as seen by the wipe tooling.
type ListedEvent struct {
	Id      string
	Summary string
	Start   string
	Private map[string]string
}

// EventLister can enumerate calendar entries, needed to wipe marked events.
type EventLister interface {
	ListEvents(ctx context.Context, window TimeWindow) ([]ListedEvent, error)
	DeleteEvent(ctx context.Context, calendarEventId string) error
}
