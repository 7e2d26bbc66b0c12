package calendar

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	Logger "github.com/JamisonProctor/planz/utils/log"
)

type WipeStats struct {
	Listed  int
	Matched int
	Deleted int
	Failed  int
}

// IsPlanzEvent reports whether e was created by planz. Entries carrying only
// the legacy title prefix count when forceLegacy is set.
func IsPlanzEvent(e ListedEvent, forceLegacy bool) bool {
	if strings.EqualFold(e.Private[MarkerProperty], "true") {
		return true
	}
	return forceLegacy && strings.HasPrefix(strings.TrimSpace(e.Summary), LegacyTitlePrefix)
}

// WipeMarkedEvents deletes every planz entry within days of now. With dryRun
// the matches are only logged.
func WipeMarkedEvents(ctx context.Context, lister EventLister, now time.Time, days int, dryRun bool, forceLegacy bool) (WipeStats, error) {
	stats := WipeStats{}
	window := TimeWindow{Min: now.AddDate(0, 0, -days), Max: now.AddDate(0, 0, days)}
	events, err := lister.ListEvents(ctx, window)
	if err != nil {
		return stats, err
	}
	stats.Listed = len(events)

	for _, e := range events {
		if !IsPlanzEvent(e, forceLegacy) {
			continue
		}
		stats.Matched++
		logger := Logger.Log.WithFields(logrus.Fields{"calendar_event_id": e.Id, "summary": e.Summary, "start": e.Start})
		if dryRun {
			logger.Info("would delete")
			continue
		}
		if err := lister.DeleteEvent(ctx, e.Id); err != nil {
			logger.Error("delete failed: ", err)
			stats.Failed++
			continue
		}
		stats.Deleted++
		logger.Info("deleted")
	}
	return stats, nil
}
