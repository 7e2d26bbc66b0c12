package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/extractor"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

// Wednesday, 14 January 2026.
var extractNow = time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)

type fakeExtractor struct {
	events map[string][]extractor.RawEvent
	errs   map[string]error
	calls  []string
}

func (f *fakeExtractor) Extract(ctx context.Context, content string, sourceUrl string) ([]extractor.RawEvent, error) {
	f.calls = append(f.calls, sourceUrl)
	if err, ok := f.errs[sourceUrl]; ok {
		return nil, err
	}
	return f.events[sourceUrl], nil
}

func addFetchedSource(t *testing.T, db *gorm.DB, url string, content string) *model.SourceUrl {
	t.Helper()
	source, _, err := collector.RegisterSourceUrl(db, url, model.DiscoveryMethodSearch, extractNow)
	require.NoError(t, err)
	collector.StoreFetchResult(source, &content, nil, extractNow, 20000)
	require.NoError(t, db.Omit(clause.Associations).Save(source).Error)
	return source
}

func reload(t *testing.T, db *gorm.DB, url string) model.SourceUrl {
	t.Helper()
	var s model.SourceUrl
	require.NoError(t, db.Where("url = ?", url).First(&s).Error)
	return s
}

func TestExtractAndStoreSkipsUnchangedContent(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addFetchedSource(t, db, "https://kids.de/programm", "<p>Vorlesestunde Sa 17.01.</p>")
	ext := &fakeExtractor{events: map[string][]extractor.RawEvent{
		"https://kids.de/programm": {
			{"title": "Vorlesestunde", "start_time": "2026-01-17T10:00:00", "detail_url": "https://kids.de/e/1"},
			{"title": "Vorlesestunde", "start_time": "2026-01-17T10:00:00", "detail_url": "https://kids.de/e/1"},
			{"title": "Basteln", "start_time": "2026-01-18T14:00:00"},
		},
	}}
	job := NewExtractionJob(db, ext, nil, app_setting.DefaultPlanzAppSetting())

	first, err := job.ExtractAndStoreForSources(context.Background(), extractNow)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SourcesProcessed)
	assert.Equal(t, 2, first.EventsCreatedTotal)
	assert.Equal(t, 1, first.Events.Unchanged)

	source := reload(t, db, "https://kids.de/programm")
	assert.Equal(t, model.ExtractionStatusOk, *source.LastExtractionStatus)
	assert.Equal(t, 2, *source.LastExtractionCount)
	assert.Equal(t, *source.ContentHash, *source.LastExtractedHash)

	second, err := job.ExtractAndStoreForSources(context.Background(), extractNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, second.SourcesProcessed)
	assert.Equal(t, 1, second.SourcesSkippedUnchangedHash)
	assert.Equal(t, 0, second.EventsCreatedTotal)
	assert.Len(t, ext.calls, 1)

	var events int64
	db.Model(&model.Event{}).Count(&events)
	assert.Equal(t, int64(2), events)
}

func TestExtractAndStoreForceReextracts(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addFetchedSource(t, db, "https://kids.de/programm", "<p>x</p>")
	ext := &fakeExtractor{events: map[string][]extractor.RawEvent{
		"https://kids.de/programm": {{"title": "Basteln", "start_time": "2026-01-18T14:00:00"}},
	}}
	setting := app_setting.DefaultPlanzAppSetting()
	_, err := NewExtractionJob(db, ext, nil, setting).ExtractAndStoreForSources(context.Background(), extractNow)
	require.NoError(t, err)

	setting.ForceExtract = true
	stats, err := NewExtractionJob(db, ext, nil, setting).ExtractAndStoreForSources(context.Background(), extractNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SourcesProcessed)
	assert.Equal(t, 0, stats.EventsCreatedTotal)
	assert.Equal(t, 1, stats.Events.Unchanged)
	assert.Equal(t, 1, stats.SourcesEmptyExtraction)
	source := reload(t, db, "https://kids.de/programm")
	assert.Equal(t, *source.ContentHash, *source.LastExtractedHash)
}

func TestExtractAndStoreUpdatesChangedEvent(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	source := addFetchedSource(t, db, "https://kids.de/programm", "<p>v1</p>")
	ext := &fakeExtractor{events: map[string][]extractor.RawEvent{
		"https://kids.de/programm": {{"title": "Basteln", "start_time": "2026-01-18T14:00:00", "location": "Raum 1"}},
	}}
	setting := app_setting.DefaultPlanzAppSetting()
	_, err := NewExtractionJob(db, ext, nil, setting).ExtractAndStoreForSources(context.Background(), extractNow)
	require.NoError(t, err)

	var event model.Event
	require.NoError(t, db.First(&event).Error)
	require.NoError(t, db.Create(&model.CalendarSync{Id: "s1", EventID: event.Id, Provider: model.CalendarProviderGoogle, CalendarEventId: "g1", SyncedAt: extractNow}).Error)

	// The page changed and now names another room.
	changed := "<p>v2</p>"
	reloaded := reload(t, db, source.Url)
	collector.StoreFetchResult(&reloaded, &changed, nil, extractNow, 20000)
	require.NoError(t, db.Omit(clause.Associations).Save(&reloaded).Error)
	ext.events["https://kids.de/programm"][0]["location"] = "Raum 2"

	stats, err := NewExtractionJob(db, ext, nil, setting).ExtractAndStoreForSources(context.Background(), extractNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EventsUpdatedTotal)
	assert.Equal(t, 0, stats.EventsCreatedTotal)

	var syncs int64
	db.Model(&model.CalendarSync{}).Count(&syncs)
	assert.Equal(t, int64(0), syncs)
}

func TestExtractAndStoreSourceOutcomes(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	addFetchedSource(t, db, "https://past.de/programm", "<p>past</p>")
	addFetchedSource(t, db, "https://broken.de/programm", "<p>broken</p>")
	addFetchedSource(t, db, "https://empty.de/programm", "<p>empty</p>")
	blocked := addFetchedSource(t, db, "https://blocked.de/programm", "<p>blocked</p>")
	require.NoError(t, db.Model(&model.SourceDomain{}).Where("id = ?", blocked.DomainID).Update("is_allowed", false).Error)
	_, _, err := collector.RegisterSourceUrl(db, "https://pending.de/programm", model.DiscoveryMethodSearch, extractNow)
	require.NoError(t, err)

	ext := &fakeExtractor{
		events: map[string][]extractor.RawEvent{
			"https://past.de/programm":  {{"title": "Gestern", "start_time": "2026-01-13T10:00:00"}},
			"https://empty.de/programm": {{"title": "", "start_time": "2026-01-20T10:00:00"}},
		},
		errs: map[string]error{"https://broken.de/programm": errors.New("model overloaded")},
	}
	stats, err := NewExtractionJob(db, ext, nil, app_setting.DefaultPlanzAppSetting()).ExtractAndStoreForSources(context.Background(), extractNow)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.SourcesProcessed)
	assert.Equal(t, 1, stats.SourcesPastOnly)
	assert.Equal(t, 1, stats.SourcesErrorExtraction)
	assert.Equal(t, 1, stats.SourcesEmptyExtraction)
	assert.Equal(t, 1, stats.SourcesSkippedDisabledDomain)
	assert.Equal(t, 1, stats.SourcesSkippedNoContent)
	assert.Equal(t, 2, stats.Skipped())
	assert.NotContains(t, ext.calls, "https://blocked.de/programm")

	past := reload(t, db, "https://past.de/programm")
	assert.Equal(t, model.ExtractionStatusPastOnly, *past.LastExtractionStatus)
	broken := reload(t, db, "https://broken.de/programm")
	assert.Equal(t, model.ExtractionStatusError, *broken.LastExtractionStatus)
	assert.Equal(t, "model overloaded", *broken.LastExtractionError)
	assert.Nil(t, broken.LastExtractedHash)
	empty := reload(t, db, "https://empty.de/programm")
	assert.Equal(t, model.ExtractionStatusEmpty, *empty.LastExtractionStatus)
	assert.Equal(t, 0, *empty.LastExtractionCount)
}

func TestExtractAndStoreNeedsExtractor(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	_, err := NewExtractionJob(db, nil, nil, app_setting.DefaultPlanzAppSetting()).ExtractAndStoreForSources(context.Background(), extractNow)
	assert.True(t, errors.Is(err, ErrMissingExtractor))
}
