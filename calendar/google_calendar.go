package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const ProviderGoogle = "google"

// GoogleCalendarClient talks to one Google calendar.
type GoogleCalendarClient struct {
	service    *gcal.Service
	calendarId string
	timezone   string
}

// NewGoogleCalendarClient authorises with the OAuth client in credentialsPath
// and the user token in tokenPath. Both files must exist.
func NewGoogleCalendarClient(ctx context.Context, credentialsPath string, tokenPath string, calendarId string, timezone string) (*GoogleCalendarClient, error) {
	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingCalendarClient, "missing google oauth client file at %s: %s", credentialsPath, err)
	}
	config, err := google.ConfigFromJSON(credentials, gcal.CalendarScope)
	if err != nil {
		return nil, errors.Wrap(err, "fail to parse google oauth client file")
	}
	raw, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingCalendarClient, "missing google oauth token file at %s, run the oauth flow to generate it: %s", tokenPath, err)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, errors.Wrap(err, "fail to parse google oauth token file")
	}
	return NewGoogleCalendarClientWithHttp(ctx, config.Client(ctx, token), "", calendarId, timezone)
}

// NewGoogleCalendarClientWithHttp builds a client on an already authorised
// http client. endpoint overrides the API base url when not empty.
func NewGoogleCalendarClientWithHttp(ctx context.Context, httpClient *http.Client, endpoint string, calendarId string, timezone string) (*GoogleCalendarClient, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "fail to create google calendar service")
	}
	return &GoogleCalendarClient{service: service, calendarId: calendarId, timezone: timezone}, nil
}

func (c *GoogleCalendarClient) buildEventBody(e CalendarEvent) *gcal.Event {
	body := &gcal.Event{
		Summary:     e.Title,
		Location:    e.Location,
		Description: e.BuildDescription(),
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				MarkerProperty: "true",
				KeyProperty:    e.Marker(),
			},
		},
	}
	if e.AllDay {
		first, last := e.AllDayDates()
		body.Start = &gcal.EventDateTime{Date: first}
		body.End = &gcal.EventDateTime{Date: last}
	} else {
		body.Start = &gcal.EventDateTime{DateTime: e.StartTime.Format(time.RFC3339), TimeZone: c.timezone}
		body.End = &gcal.EventDateTime{DateTime: e.EndTime.Format(time.RFC3339), TimeZone: c.timezone}
	}
	return body
}

func (c *GoogleCalendarClient) UpsertEvent(ctx context.Context, e CalendarEvent) (string, error) {
	body := c.buildEventBody(e)
	var (
		created *gcal.Event
		err     error
	)
	if e.CalendarEventId != "" {
		created, err = c.service.Events.Update(c.calendarId, e.CalendarEventId, body).Context(ctx).Do()
	} else {
		created, err = c.service.Events.Insert(c.calendarId, body).Context(ctx).Do()
	}
	if err != nil {
		return "", mapGoogleError(err, "upsert")
	}
	return created.Id, nil
}

func (c *GoogleCalendarClient) FindByKey(ctx context.Context, key string, window TimeWindow) (string, error) {
	events, err := c.service.Events.List(c.calendarId).
		PrivateExtendedProperty(KeyProperty + "=" + key).
		TimeMin(window.Min.Format(time.RFC3339)).
		TimeMax(window.Max.Format(time.RFC3339)).
		SingleEvents(true).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", mapGoogleError(err, "find by key")
	}
	if len(events.Items) == 0 {
		return "", nil
	}
	return events.Items[0].Id, nil
}

func (c *GoogleCalendarClient) DeleteEvent(ctx context.Context, calendarEventId string) error {
	if err := c.service.Events.Delete(c.calendarId, calendarEventId).Context(ctx).Do(); err != nil {
		return mapGoogleError(err, "delete")
	}
	return nil
}

func (c *GoogleCalendarClient) ListEvents(ctx context.Context, window TimeWindow) ([]ListedEvent, error) {
	listed := []ListedEvent{}
	err := c.service.Events.List(c.calendarId).
		TimeMin(window.Min.Format(time.RFC3339)).
		TimeMax(window.Max.Format(time.RFC3339)).
		SingleEvents(true).
		Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				e := ListedEvent{Id: item.Id, Summary: item.Summary}
				if item.Start != nil {
					e.Start = item.Start.DateTime
					if e.Start == "" {
						e.Start = item.Start.Date
					}
				}
				if item.ExtendedProperties != nil {
					e.Private = item.ExtendedProperties.Private
				}
				listed = append(listed, e)
			}
			return nil
		})
	if err != nil {
		return nil, mapGoogleError(err, "list")
	}
	return listed, nil
}

// mapGoogleError marks throttling answers (429, or 403 with a rate limit
// reason) with ErrRateLimited.
func mapGoogleError(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && isRateLimit(apiErr) {
		return errors.Wrapf(ErrRateLimited, "google calendar %s: %s", op, apiErr.Message)
	}
	return errors.Wrapf(err, "google calendar %s failed", op)
}

func isRateLimit(apiErr *googleapi.Error) bool {
	if apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return strings.Contains(apiErr.Message, "Rate Limit Exceeded")
}
