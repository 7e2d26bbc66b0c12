package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/calendar"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/discovery"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/publisher"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

const (
	MsgNoAllowedSources   = "No allowed sources to fetch"
	MsgMissingOpenAIKey   = "OPENAI_API_KEY missing: extraction skipped"
	MsgAllHashesUnchanged = "Extraction skipped: all content hashes unchanged"
)

type SeedStage struct {
	Seeder *discovery.Seeder
}

func (s *SeedStage) Name() string { return "seed" }

func (s *SeedStage) RunStage(ctx context.Context, now time.Time) (map[string]int, error) {
	stats, err := s.Seeder.Run(ctx, now)
	return map[string]int{
		"queries":     stats.QueriesExecuted,
		"candidates":  stats.UniqueCandidates,
		"accepted":    stats.Accepted,
		"new_sources": stats.NewSourceUrls,
	}, err
}

type FetchStage struct {
	Job *collector.SourceFetchJob
}

func (s *FetchStage) Name() string { return "fetch" }

func (s *FetchStage) RunStage(ctx context.Context, now time.Time) (map[string]int, error) {
	stats, err := s.Job.Run(ctx, now)
	counters := map[string]int{
		"fetched_ok":    stats.FetchedOk,
		"fetched_error": stats.FetchedError,
		"pages":         stats.PagesDiscovered,
	}
	if err == nil && stats.SourcesSelected == 0 {
		return counters, &StopPipeline{Reason: MsgNoAllowedSources}
	}
	return counters, err
}

// ExtractStage runs extraction. Without an extractor it only reports whether
// work was skipped, so the calendar stage still runs.
type ExtractStage struct {
	Job *publisher.ExtractionJob
}

func (s *ExtractStage) Name() string { return "extract" }

func (s *ExtractStage) RunStage(ctx context.Context, now time.Time) (map[string]int, error) {
	if s.Job.Extractor == nil {
		pending, err := countPendingExtractions(s.Job.DB, s.Job.Setting.ForceExtract)
		if err != nil {
			return nil, err
		}
		if pending > 0 {
			Logger.Log.Warn(MsgMissingOpenAIKey)
		}
		return map[string]int{"extraction_pending": pending}, nil
	}

	stats, err := s.Job.ExtractAndStoreForSources(ctx, now)
	if err == nil && stats.SourcesProcessed == 0 && stats.SourcesSkippedUnchangedHash > 0 {
		Logger.Log.Info(MsgAllHashesUnchanged)
	}
	return map[string]int{
		"sources_processed": stats.SourcesProcessed,
		"created":           stats.EventsCreatedTotal,
		"updated":           stats.EventsUpdatedTotal,
		"extract_errors":    stats.SourcesErrorExtraction,
		"skipped_unchanged": stats.SourcesSkippedUnchangedHash,
	}, err
}

// countPendingExtractions counts sources the extractor would have been called
// for.
func countPendingExtractions(db *gorm.DB, force bool) (int, error) {
	var sources []model.SourceUrl
	if err := db.Joins("Domain").Where("source_urls.fetch_status = ?", model.FetchStatusOk).Find(&sources).Error; err != nil {
		return 0, errors.Wrap(err, "fail to list fetched sources")
	}
	pending := 0
	for idx := range sources {
		if ok, _ := collector.CheckExtractionEligibility(&sources[idx], sources[idx].Domain.IsAllowed, force); ok {
			pending++
		}
	}
	return pending, nil
}

type SyncStage struct {
	Syncer *calendar.Syncer
}

func (s *SyncStage) Name() string { return "sync" }

func (s *SyncStage) RunStage(ctx context.Context, now time.Time) (map[string]int, error) {
	stats, err := s.Syncer.Run(ctx, now)
	return map[string]int{
		"synced":       stats.Synced,
		"sync_failed":  stats.Failed,
		"sync_too_old": stats.SkippedTooOld,
	}, err
}
