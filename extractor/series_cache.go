package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

const seriesDescriptionLimit = 4000

// SeriesKey identifies the series an occurrence belongs to: its detail url,
// or domain, title and location when there is none.
func SeriesKey(e NormalizedEvent) string {
	if e.DetailUrl != "" {
		return e.DetailUrl
	}
	return fmt.Sprintf("%s:%s:%s",
		utils.ExtractDomain(e.SourceUrl),
		strings.ToLower(strings.TrimSpace(e.Title)),
		strings.ToLower(strings.TrimSpace(e.Location)))
}

// SeriesCache shares one detail page fetch between all occurrences of an event
// series. Rows are written through to event_series so later runs reuse them.
type SeriesCache struct {
	Fetcher collector.Fetcher
	Timeout time.Duration

	cache map[string]*model.EventSeries
}

func NewSeriesCache(fetcher collector.Fetcher, timeout time.Duration) *SeriesCache {
	return &SeriesCache{Fetcher: fetcher, Timeout: timeout, cache: map[string]*model.EventSeries{}}
}

// Enrich replaces each event's description with the cached series
// description, fetching the detail page on the first sighting of a series.
func (c *SeriesCache) Enrich(ctx context.Context, tx *gorm.DB, events []NormalizedEvent, now time.Time) ([]NormalizedEvent, error) {
	enriched := make([]NormalizedEvent, 0, len(events))
	for _, e := range events {
		series, err := c.lookup(ctx, tx, e, now)
		if err != nil {
			return nil, err
		}
		if series.Description != "" {
			e.Description = series.Description
		}
		enriched = append(enriched, e)
	}
	return enriched, nil
}

func (c *SeriesCache) lookup(ctx context.Context, tx *gorm.DB, e NormalizedEvent, now time.Time) (*model.EventSeries, error) {
	key := SeriesKey(e)
	if series, ok := c.cache[key]; ok {
		return series, nil
	}

	var series model.EventSeries
	res := tx.Where("series_key = ?", key).Limit(1).Find(&series)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "fail to look up event series %s", key)
	}
	if res.RowsAffected == 0 {
		series = model.EventSeries{
			Id:          uuid.New().String(),
			CreatedAt:   now.UTC(),
			UpdatedAt:   now.UTC(),
			SeriesKey:   key,
			DetailUrl:   e.DetailUrl,
			Title:       e.Title,
			Venue:       e.Location,
			Description: c.fetchDescription(ctx, e.DetailUrl),
		}
		if err := tx.Create(&series).Error; err != nil {
			return nil, errors.Wrapf(err, "fail to create event series %s", key)
		}
	}
	c.cache[key] = &series
	return &series, nil
}

func (c *SeriesCache) fetchDescription(ctx context.Context, detailUrl string) string {
	if detailUrl == "" || c.Fetcher == nil {
		return ""
	}
	res, err := c.Fetcher.Fetch(ctx, detailUrl, c.Timeout)
	if err != nil {
		Logger.Log.WithField("url", detailUrl).Warn("fail to fetch series detail page: ", err)
		return ""
	}
	text, err := collector.HtmlToText(res.Text)
	if err != nil {
		Logger.Log.WithField("url", detailUrl).Warn("fail to read series detail page: ", err)
		return ""
	}
	return utils.TruncateRunes(text, seriesDescriptionLimit)
}
