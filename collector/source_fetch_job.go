package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

type FetchStats struct {
	SourcesSelected int `json:"sources_selected"`
	FetchedOk       int `json:"fetched_ok"`
	FetchedError    int `json:"fetched_error"`
	PagesDiscovered int `json:"pages_discovered"`
}

// SourceFetchJob refreshes the content of every source url on an allowed
// domain. Each source is walked as a listing: follow-up pages are registered as
// their own source urls.
type SourceFetchJob struct {
	DB      *gorm.DB
	Fetcher Fetcher
	Setting app_setting.PlanzAppSetting
}

type pageFetch struct {
	url string
	res *FetchResult
	err error
}

func NewSourceFetchJob(db *gorm.DB, fetcher Fetcher, setting app_setting.PlanzAppSetting) *SourceFetchJob {
	return &SourceFetchJob{DB: db, Fetcher: fetcher, Setting: setting}
}

// AllowedRootSources lists source urls on allowed domains that are not
// follow-up pages of another listing, oldest fetch first.
func AllowedRootSources(tx *gorm.DB) ([]model.SourceUrl, error) {
	var sources []model.SourceUrl
	err := tx.
		Where("domain_id IN (?)", tx.Model(&model.SourceDomain{}).Select("id").Where("is_allowed = ?", true)).
		Where("discovery_method <> ?", model.DiscoveryMethodPagination).
		Order("created_at").
		Find(&sources).Error
	return sources, errors.Wrap(err, "fail to list allowed sources")
}

func (j *SourceFetchJob) Run(ctx context.Context, now time.Time) (FetchStats, error) {
	stats := FetchStats{}
	err := j.DB.Transaction(func(tx *gorm.DB) error {
		sources, err := AllowedRootSources(tx)
		if err != nil {
			return err
		}
		stats.SourcesSelected = len(sources)

		for idx := range sources {
			if ctx.Err() != nil {
				Logger.Log.Warn("fetch stage interrupted: ", ctx.Err())
				break
			}
			if err := j.fetchOneSource(ctx, tx, &sources[idx], now, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, errors.Wrap(err, "fetch stage failed")
	}
	Logger.Log.WithFields(logrus.Fields{
		"selected": stats.SourcesSelected,
		"ok":       stats.FetchedOk,
		"error":    stats.FetchedError,
		"pages":    stats.PagesDiscovered,
	}).Info("fetch stage finished")
	return stats, nil
}

func (j *SourceFetchJob) fetchOneSource(ctx context.Context, tx *gorm.DB, root *model.SourceUrl, now time.Time, stats *FetchStats) error {
	fetches := []pageFetch{}
	it := EnumerateListingPages(ctx, root.Url, j.Fetcher, ListingOptions{
		MaxPages:   j.Setting.MaxListingPages,
		Timeout:    j.Setting.FetchTimeout(),
		SameDomain: true,
		OnFetched: func(url string, res *FetchResult, err error) {
			fetches = append(fetches, pageFetch{url: url, res: res, err: err})
		},
	})
	for it.Next() {
	}

	for i, f := range fetches {
		source := root
		if i > 0 {
			page, created, err := RegisterSourceUrl(tx, f.url, model.DiscoveryMethodPagination, now)
			if err != nil {
				return err
			}
			if created {
				stats.PagesDiscovered++
			}
			source = page
		}

		var text *string
		if f.err == nil && f.res != nil {
			text = &f.res.Text
		}
		StoreFetchResult(source, text, f.err, now, j.Setting.ExcerptLength)
		if err := tx.Omit(clause.Associations).Save(source).Error; err != nil {
			return errors.Wrapf(err, "fail to save fetch result of %s", source.Url)
		}

		if source.FetchStatus == model.FetchStatusOk {
			stats.FetchedOk++
		} else {
			stats.FetchedError++
			Logger.Log.WithField("url", source.Url).Warn("fetch failed: ", utils.StringValue(source.ErrorMessage))
		}
		utils.SourcesFetchedCounter.WithLabelValues(source.FetchStatus).Inc()
	}
	return nil
}
