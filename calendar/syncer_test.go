package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

var syncNow = time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)

func addEvent(t *testing.T, db *gorm.DB, title string, start time.Time) *model.Event {
	t.Helper()
	e := &model.Event{
		Id:          uuid.New().String(),
		Title:       title,
		StartTime:   start.UTC(),
		EndTime:     start.Add(time.Hour).UTC(),
		SourceUrl:   "https://kids.de/programm",
		ExternalKey: "key-" + title,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

func newTestSyncer(db *gorm.DB, client Client) (*Syncer, *recordingSleep) {
	sleep := &recordingSleep{}
	setting := app_setting.DefaultPlanzAppSetting()
	setting.CalendarBaseDelayMillisecond = 1000
	setting.CalendarMaxAttempts = 5
	s := NewSyncer(db, client, setting)
	s.Sleep = sleep.Sleep
	s.Jitter = noJitter
	return s, sleep
}

func syncRows(t *testing.T, db *gorm.DB) []model.CalendarSync {
	var rows []model.CalendarSync
	require.NoError(t, db.Find(&rows).Error)
	return rows
}

func TestSyncRetriesRateLimitedUpsert(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	event := addEvent(t, db, "Lesung", syncNow.Add(48*time.Hour))
	client := &fakeClient{upsertErrs: []error{
		errors.Wrap(ErrRateLimited, "403 rateLimitExceeded"),
		errors.Wrap(ErrRateLimited, "429"),
	}}
	syncer, sleep := newTestSyncer(db, client)

	stats, err := syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 2, stats.Retries)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleep.sleeps)

	rows := syncRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, event.Id, rows[0].EventID)
	assert.Equal(t, "gcal-1", rows[0].CalendarEventId)
	assert.Equal(t, model.CalendarProviderGoogle, rows[0].Provider)
	assert.True(t, syncNow.Equal(rows[0].SyncedAt))
}

func TestSyncSkipsEventsOlderThanGraceWindow(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addEvent(t, db, "Vorgestern", syncNow.Add(-30*time.Hour))
	addEvent(t, db, "HeuteFrueh", syncNow.Add(-6*time.Hour))
	client := &fakeClient{}
	syncer, _ := newTestSyncer(db, client)

	stats, err := syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SkippedTooOld)
	assert.Equal(t, 1, stats.Selected)
	require.Len(t, client.upserts, 1)
	assert.Equal(t, "HeuteFrueh", client.upserts[0].Title)

	// The stale event stays unsynced and is never selected again.
	stats, err = syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Selected)
	assert.Equal(t, 1, stats.SkippedTooOld)
	assert.Len(t, client.upserts, 1)
}

func TestSyncFailureDoesNotAbortBatch(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addEvent(t, db, "A", syncNow.Add(24*time.Hour))
	addEvent(t, db, "B", syncNow.Add(25*time.Hour))
	addEvent(t, db, "C", syncNow.Add(26*time.Hour))
	client := &fakeClient{failKeys: map[string]error{"key-B": errors.New("invalid event body")}}
	syncer, sleep := newTestSyncer(db, client)

	stats, err := syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Selected)
	assert.Equal(t, 2, stats.Synced)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, sleep.sleeps)
	assert.Len(t, syncRows(t, db), 2)
}

func TestSyncGivesUpAfterAttemptCeiling(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addEvent(t, db, "A", syncNow.Add(24*time.Hour))
	rateLimited := errors.Wrap(ErrRateLimited, "429")
	client := &fakeClient{failKeys: map[string]error{"key-A": rateLimited}}
	syncer, sleep := newTestSyncer(db, client)
	syncer.Setting.CalendarMaxAttempts = 3

	stats, err := syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Len(t, sleep.sleeps, 2)
	assert.Empty(t, syncRows(t, db))
}

func TestSyncLinksEventFoundByKey(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addEvent(t, db, "A", syncNow.Add(24*time.Hour))
	client := &fakeClient{found: map[string]string{"key-A": "gcal-existing"}}
	syncer, _ := newTestSyncer(db, client)

	stats, err := syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LinkedExisting)
	require.Len(t, client.upserts, 1)
	assert.Equal(t, "gcal-existing", client.upserts[0].CalendarEventId)
	rows := syncRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, "gcal-existing", rows[0].CalendarEventId)
}

func TestSyncSkipsInvalidWindowWithoutQuery(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	e := addEvent(t, db, "Kaputt", syncNow.Add(24*time.Hour))
	require.NoError(t, db.Model(e).Update("end_time", syncNow.Add(-24*time.Hour).UTC()).Error)
	client := &fakeClient{}
	syncer, _ := newTestSyncer(db, client)

	stats, err := syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SkippedInvalidWindow)
	assert.Empty(t, client.finds)
	assert.Empty(t, client.upserts)
}

func TestSyncRespectsBatchLimit(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addEvent(t, db, "Spaeter", syncNow.Add(72*time.Hour))
	addEvent(t, db, "Frueher", syncNow.Add(24*time.Hour))
	client := &fakeClient{}
	syncer, _ := newTestSyncer(db, client)
	syncer.Setting.SyncBatchLimit = 1

	stats, err := syncer.Run(context.Background(), syncNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	require.Len(t, client.upserts, 1)
	assert.Equal(t, "Frueher", client.upserts[0].Title)
}

func TestSyncNeedsClient(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	_, err := NewSyncer(db, nil, app_setting.DefaultPlanzAppSetting()).Run(context.Background(), syncNow)
	assert.True(t, errors.Is(err, ErrMissingCalendarClient))
}
