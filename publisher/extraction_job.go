package publisher

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/extractor"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

var ErrMissingExtractor = errors.New("no event extractor configured")

type ExtractStats struct {
	SourcesProcessed             int         `json:"sources_processed"`
	EventsCreatedTotal           int         `json:"events_created_total"`
	EventsUpdatedTotal           int         `json:"events_updated_total"`
	SourcesSkippedNoContent      int         `json:"sources_skipped_no_content"`
	SourcesSkippedUnchangedHash  int         `json:"sources_skipped_unchanged_hash"`
	SourcesSkippedDisabledDomain int         `json:"sources_skipped_disabled_domain"`
	SourcesEmptyExtraction       int         `json:"sources_empty_extraction"`
	SourcesErrorExtraction       int         `json:"sources_error_extraction"`
	SourcesPastOnly              int         `json:"sources_past_only"`
	Events                       StoreResult `json:"events"`
}

// Skipped is the number of sources that were not sent to the extractor.
func (s ExtractStats) Skipped() int {
	return s.SourcesSkippedNoContent + s.SourcesSkippedUnchangedHash + s.SourcesSkippedDisabledDomain
}

// ExtractionJob turns fetched source content into stored events.
type ExtractionJob struct {
	DB        *gorm.DB
	Extractor extractor.EventExtractor
	// SeriesFetcher fetches event detail pages when series enrichment is on.
	SeriesFetcher collector.Fetcher
	Setting       app_setting.PlanzAppSetting
}

func NewExtractionJob(db *gorm.DB, ext extractor.EventExtractor, seriesFetcher collector.Fetcher, setting app_setting.PlanzAppSetting) *ExtractionJob {
	return &ExtractionJob{DB: db, Extractor: ext, SeriesFetcher: seriesFetcher, Setting: setting}
}

// ExtractAndStoreForSources runs the extraction stage over every source url in
// one transaction. Per source failures are recorded on the source and counted.
func (j *ExtractionJob) ExtractAndStoreForSources(ctx context.Context, now time.Time) (ExtractStats, error) {
	stats := ExtractStats{}
	if j.Extractor == nil {
		return stats, ErrMissingExtractor
	}
	if j.Setting.ForceExtract {
		Logger.Log.Info("force extraction enabled: ignoring content hash")
	}
	loc := j.Setting.TimeLocation()

	err := j.DB.Transaction(func(tx *gorm.DB) error {
		var sources []model.SourceUrl
		if err := tx.Joins("Domain").Order("source_urls.created_at").Find(&sources).Error; err != nil {
			return errors.Wrap(err, "fail to list source urls")
		}

		store := NewEventStore(tx, loc)
		var series *extractor.SeriesCache
		if j.Setting.EnrichSeries && j.SeriesFetcher != nil {
			series = extractor.NewSeriesCache(j.SeriesFetcher, j.Setting.FetchTimeout())
		}

		for idx := range sources {
			if ctx.Err() != nil {
				Logger.Log.Warn("extraction stage interrupted: ", ctx.Err())
				break
			}
			source := &sources[idx]
			eligible, reason := collector.CheckExtractionEligibility(source, source.Domain.IsAllowed, j.Setting.ForceExtract)
			if !eligible {
				switch reason {
				case collector.SkipReasonDisabledDomain:
					stats.SourcesSkippedDisabledDomain++
				case collector.SkipReasonNoContent:
					stats.SourcesSkippedNoContent++
				case collector.SkipReasonUnchangedHash:
					stats.SourcesSkippedUnchangedHash++
				}
				continue
			}

			stats.SourcesProcessed++
			if err := j.processSource(ctx, tx, store, series, source, loc, now, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, errors.Wrap(err, "extraction stage failed")
	}

	Logger.Log.WithFields(logrus.Fields{
		"processed":          stats.SourcesProcessed,
		"created":            stats.EventsCreatedTotal,
		"updated":            stats.EventsUpdatedTotal,
		"skipped_no_content": stats.SourcesSkippedNoContent,
		"skipped_unchanged":  stats.SourcesSkippedUnchangedHash,
		"skipped_disabled":   stats.SourcesSkippedDisabledDomain,
		"empty":              stats.SourcesEmptyExtraction,
		"error":              stats.SourcesErrorExtraction,
		"past_only":          stats.SourcesPastOnly,
	}).Info("extraction stage finished")
	return stats, nil
}

func (j *ExtractionJob) processSource(
	ctx context.Context,
	tx *gorm.DB,
	store *EventStore,
	series *extractor.SeriesCache,
	source *model.SourceUrl,
	loc *time.Location,
	now time.Time,
	stats *ExtractStats,
) error {
	extractedAt := now.UTC()
	source.LastExtractedAt = &extractedAt

	extractCtx, cancel := context.WithTimeout(ctx, j.Setting.ExtractTimeout())
	raw, err := j.Extractor.Extract(extractCtx, *source.ContentExcerpt, source.Url)
	cancel()
	if err != nil {
		Logger.Log.WithField("url", source.Url).Error("extraction failed: ", err)
		source.LastExtractionStatus = utils.StringPtr(model.ExtractionStatusError)
		source.LastExtractionError = utils.StringPtr(err.Error())
		source.LastExtractionCount = nil
		stats.SourcesErrorExtraction++
		return saveSource(tx, source)
	}

	events, normalized := extractor.NormalizeItems(raw, source.Url, loc, now)
	if series != nil {
		if events, err = series.Enrich(ctx, tx, events, now); err != nil {
			return err
		}
	}
	result, err := store.StoreAll(events)
	if err != nil {
		return err
	}
	result.Invalid = normalized.Invalid
	result.DiscardedPast = normalized.DiscardedPast
	stats.Events.add(result)
	stats.EventsCreatedTotal += result.Created
	stats.EventsUpdatedTotal += result.Updated

	switch {
	case result.Created == 0 && result.DiscardedPast > 0 && result.Invalid == 0:
		source.LastExtractionStatus = utils.StringPtr(model.ExtractionStatusPastOnly)
		source.LastExtractionCount = utils.IntPtr(0)
		stats.SourcesPastOnly++
	case result.Created == 0:
		source.LastExtractionStatus = utils.StringPtr(model.ExtractionStatusEmpty)
		source.LastExtractionCount = utils.IntPtr(0)
		stats.SourcesEmptyExtraction++
	default:
		source.LastExtractionStatus = utils.StringPtr(model.ExtractionStatusOk)
		source.LastExtractionCount = utils.IntPtr(result.Created)
	}
	source.LastExtractionError = nil
	source.LastExtractedHash = source.ContentHash

	Logger.Log.WithFields(logrus.Fields{
		"url":            source.Url,
		"created":        result.Created,
		"updated":        result.Updated,
		"invalid":        result.Invalid,
		"discarded_past": result.DiscardedPast,
	}).Info("source extracted")
	return saveSource(tx, source)
}

func saveSource(tx *gorm.DB, source *model.SourceUrl) error {
	return errors.Wrapf(tx.Omit(clause.Associations).Save(source).Error, "fail to save extraction result of %s", source.Url)
}
