package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

type SyncStats struct {
	Selected             int `json:"selected"`
	Synced               int `json:"synced"`
	LinkedExisting       int `json:"linked_existing"`
	Failed               int `json:"failed"`
	SkippedTooOld        int `json:"skipped_too_old"`
	SkippedInvalidWindow int `json:"skipped_invalid_window"`
	Retries              int `json:"retries"`
}

// Syncer pushes stored events without a calendar sync to the calendar.
type Syncer struct {
	DB      *gorm.DB
	Client  Client
	Setting app_setting.PlanzAppSetting
	// Sleep and Jitter default to time.Sleep and a random jitter.
	Sleep  func(time.Duration)
	Jitter func(time.Duration) time.Duration
}

func NewSyncer(db *gorm.DB, client Client, setting app_setting.PlanzAppSetting) *Syncer {
	return &Syncer{DB: db, Client: client, Setting: setting}
}

func (s *Syncer) backoff() utils.Backoff {
	return utils.Backoff{
		MaxAttempts: s.Setting.CalendarMaxAttempts,
		BaseDelay:   s.Setting.CalendarBaseDelay(),
		MaxJitter:   s.Setting.CalendarBaseDelay(),
		Sleep:       s.Sleep,
		Jitter:      s.Jitter,
	}
}

func isRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Run selects unsynced events that start no earlier than now minus the grace
// window, oldest first, and pushes at most SyncBatchLimit of them. A failing
// event is logged and skipped; only a missing client aborts the run.
func (s *Syncer) Run(ctx context.Context, now time.Time) (SyncStats, error) {
	stats := SyncStats{}
	if s.Client == nil {
		return stats, ErrMissingCalendarClient
	}
	cutoff := now.Add(-s.Setting.SyncGraceWindow()).UTC()
	loc := s.Setting.TimeLocation()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		unsynced := func() *gorm.DB {
			return tx.Model(&model.Event{}).Where("id NOT IN (?)", tx.Model(&model.CalendarSync{}).Select("event_id"))
		}

		var tooOld int64
		if err := unsynced().Where("start_time < ?", cutoff).Count(&tooOld).Error; err != nil {
			return errors.Wrap(err, "fail to count stale events")
		}
		stats.SkippedTooOld = int(tooOld)

		var events []model.Event
		if err := unsynced().
			Where("start_time >= ?", cutoff).
			Order("start_time").
			Limit(s.Setting.SyncBatchLimit).
			Find(&events).Error; err != nil {
			return errors.Wrap(err, "fail to select events to sync")
		}
		stats.Selected = len(events)

		for idx := range events {
			if ctx.Err() != nil {
				Logger.Log.Warn("calendar sync interrupted: ", ctx.Err())
				break
			}
			if err := s.syncOne(ctx, tx, &events[idx], loc, now, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, errors.Wrap(err, "calendar sync failed")
	}

	Logger.Log.WithFields(logrus.Fields{
		"selected":       stats.Selected,
		"synced":         stats.Synced,
		"linked":         stats.LinkedExisting,
		"failed":         stats.Failed,
		"too_old":        stats.SkippedTooOld,
		"invalid_window": stats.SkippedInvalidWindow,
		"retries":        stats.Retries,
	}).Info("calendar sync finished")
	return stats, nil
}

// syncOne returns an error only for failures of the local store.
func (s *Syncer) syncOne(ctx context.Context, tx *gorm.DB, event *model.Event, loc *time.Location, now time.Time, stats *SyncStats) error {
	logger := Logger.Log.WithFields(logrus.Fields{"event_id": event.Id, "title": event.Title})

	ce, err := EventToCalendarEvent(event, loc)
	if err != nil {
		logger.Error("skipping event: ", err)
		stats.Failed++
		return nil
	}
	window, err := BuildTimeWindow(ce)
	if err != nil {
		logger.Error("skipping event with invalid time window: ", err)
		stats.SkippedInvalidWindow++
		utils.CalendarSyncCounter.WithLabelValues("invalid_window").Inc()
		return nil
	}

	b := s.backoff()
	existingId := ""
	attempts, err := b.Retry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.Setting.CalendarTimeout())
		defer cancel()
		id, err := s.Client.FindByKey(callCtx, ce.Marker(), window)
		existingId = id
		return err
	}, isRateLimited)
	stats.Retries += attempts - 1
	if err != nil {
		logger.Error("calendar lookup failed: ", err)
		stats.Failed++
		utils.CalendarSyncCounter.WithLabelValues("failed").Inc()
		return nil
	}
	if existingId != "" {
		ce.CalendarEventId = existingId
		stats.LinkedExisting++
	}

	calendarEventId := ""
	attempts, err = b.Retry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.Setting.CalendarTimeout())
		defer cancel()
		id, err := s.Client.UpsertEvent(callCtx, ce)
		calendarEventId = id
		return err
	}, isRateLimited)
	stats.Retries += attempts - 1
	if err != nil {
		logger.WithField("attempts", attempts).Error("calendar upsert failed: ", err)
		stats.Failed++
		utils.CalendarSyncCounter.WithLabelValues("failed").Inc()
		return nil
	}

	sync := model.CalendarSync{
		Id:              uuid.New().String(),
		EventID:         event.Id,
		Provider:        model.CalendarProviderGoogle,
		CalendarEventId: calendarEventId,
		SyncedAt:        now.UTC(),
	}
	if err := tx.Create(&sync).Error; err != nil {
		return errors.Wrapf(err, "fail to record calendar sync of event %s", event.Id)
	}
	stats.Synced++
	utils.CalendarSyncCounter.WithLabelValues("synced").Inc()
	logger.WithField("calendar_event_id", calendarEventId).Info("event synced")
	return nil
}
