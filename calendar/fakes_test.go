package calendar

import (
	"context"
	"fmt"
	"time"
)

type fakeClient struct {
	// upsertErrs are returned by successive UpsertEvent calls before any
	// success.
	upsertErrs []error
	failKeys   map[string]error
	found      map[string]string
	upserts    []CalendarEvent
	finds      []string
	listed     []ListedEvent
	deleted    []string
	deleteErrs map[string]error
}

func (c *fakeClient) UpsertEvent(ctx context.Context, e CalendarEvent) (string, error) {
	if err, ok := c.failKeys[e.Marker()]; ok {
		return "", err
	}
	if len(c.upsertErrs) > 0 {
		err := c.upsertErrs[0]
		c.upsertErrs = c.upsertErrs[1:]
		return "", err
	}
	c.upserts = append(c.upserts, e)
	if e.CalendarEventId != "" {
		return e.CalendarEventId, nil
	}
	return fmt.Sprintf("gcal-%d", len(c.upserts)), nil
}

func (c *fakeClient) FindByKey(ctx context.Context, key string, window TimeWindow) (string, error) {
	c.finds = append(c.finds, key)
	return c.found[key], nil
}

func (c *fakeClient) DeleteEvent(ctx context.Context, id string) error {
	if err, ok := c.deleteErrs[id]; ok {
		return err
	}
	c.deleted = append(c.deleted, id)
	return nil
}

func (c *fakeClient) ListEvents(ctx context.Context, window TimeWindow) ([]ListedEvent, error) {
	return c.listed, nil
}

type recordingSleep struct {
	sleeps []time.Duration
}

func (r *recordingSleep) Sleep(d time.Duration) {
	r.sleeps = append(r.sleeps, d)
}

func noJitter(time.Duration) time.Duration { return 0 }
