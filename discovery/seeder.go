package discovery

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

type CapsHit struct {
	Accepted bool `json:"accepted"`
	Fetched  bool `json:"fetched"`
}

type SeedStats struct {
	SearchRunId         string         `json:"search_run_id"`
	QueriesExecuted     int            `json:"queries_executed"`
	QueriesFailed       int            `json:"queries_failed"`
	TotalResults        int            `json:"total_results"`
	UniqueCandidates    int            `json:"unique_candidates"`
	Verified            int            `json:"verified"`
	Fetched             int            `json:"fetched"`
	Accepted            int            `json:"accepted"`
	NewSourceUrls       int            `json:"new_source_urls"`
	Rejected            map[string]int `json:"rejected"`
	AcceptedSoftSignals map[string]int `json:"accepted_soft_signals"`
	CapsHit             CapsHit        `json:"caps_hit"`
	AcceptedUrls        []string       `json:"accepted_urls"`
}

func newSeedStats() SeedStats {
	return SeedStats{
		Rejected:            map[string]int{},
		AcceptedSoftSignals: map[string]int{},
		AcceptedUrls:        []string{},
	}
}

type candidate struct {
	url            string
	searchResultId string
	order          int
	preferred      bool
}

// Seeder runs the discovery stage: query bundle, search, verification gate and
// source registration. Everything a run writes is committed at once.
type Seeder struct {
	DB       *gorm.DB
	Provider SearchProvider
	Fetcher  collector.Fetcher
	// Renderer is optional.
	Renderer collector.Fetcher
	Setting  app_setting.PlanzAppSetting
}

func NewSeeder(db *gorm.DB, provider SearchProvider, fetcher collector.Fetcher, renderer collector.Fetcher, setting app_setting.PlanzAppSetting) *Seeder {
	return &Seeder{DB: db, Provider: provider, Fetcher: fetcher, Renderer: renderer, Setting: setting}
}

func (s *Seeder) Run(ctx context.Context, now time.Time) (SeedStats, error) {
	stats := newSeedStats()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		run := model.SearchRun{
			Id:         uuid.New().String(),
			CreatedAt:  now.UTC(),
			Location:   s.Setting.Location,
			WindowDays: s.Setting.WindowDays,
		}
		if err := tx.Create(&run).Error; err != nil {
			return errors.Wrap(err, "fail to create search run")
		}
		stats.SearchRunId = run.Id

		candidates, err := s.search(ctx, tx, run.Id, now, &stats)
		if err != nil {
			return err
		}
		if err := s.verifyCandidates(ctx, tx, candidates, now, &stats); err != nil {
			return err
		}

		summary, err := json.Marshal(stats)
		if err != nil {
			return errors.Wrap(err, "fail to encode run summary")
		}
		return errors.Wrap(
			tx.Model(&run).Update("summary", datatypes.JSON(summary)).Error,
			"fail to store run summary")
	})
	if err != nil {
		return stats, errors.Wrap(err, "seeding run failed")
	}

	Logger.Log.WithFields(logrus.Fields{
		"queries":    stats.QueriesExecuted,
		"results":    stats.TotalResults,
		"candidates": stats.UniqueCandidates,
		"accepted":   stats.Accepted,
		"rejected":   stats.Rejected,
		"caps_hit":   stats.CapsHit,
	}).Info("seeding run finished")
	return stats, nil
}

// search issues the query bundle and returns the unique candidates, preferred
// urls first and otherwise in order of first sighting.
func (s *Seeder) search(ctx context.Context, tx *gorm.DB, runId string, now time.Time, stats *SeedStats) ([]*candidate, error) {
	byUrl := map[string]*candidate{}
	order := 0

	for _, q := range BuildQueryBundle(s.Setting.CityNameLocal, s.Setting.CityNameEn, s.Setting.WindowDays) {
		query := model.SearchQuery{
			Id:          uuid.New().String(),
			CreatedAt:   now.UTC(),
			SearchRunID: runId,
			Language:    q.Language,
			Intent:      q.Intent,
			Query:       q.Text,
		}
		if err := tx.Create(&query).Error; err != nil {
			return nil, errors.Wrap(err, "fail to record search query")
		}

		searchCtx, cancel := context.WithTimeout(ctx, s.Setting.SearchTimeout())
		items, err := s.Provider.Search(searchCtx, q, s.Setting.Location, s.Setting.MaxResultsPerQuery)
		cancel()
		if err != nil {
			stats.QueriesFailed++
			Logger.Log.WithField("query", q.Text).Warn("search failed: ", err)
			continue
		}
		stats.QueriesExecuted++

		for rank, item := range items {
			result := model.SearchResult{
				Id:            uuid.New().String(),
				CreatedAt:     now.UTC(),
				SearchQueryID: query.Id,
				Rank:          rank + 1,
				Url:           item.Url,
				Title:         item.Title,
				Snippet:       item.Snippet,
				Domain:        utils.ExtractDomain(item.Url),
			}
			if err := tx.Create(&result).Error; err != nil {
				return nil, errors.Wrap(err, "fail to record search result")
			}
			stats.TotalResults++

			key := utils.CanonicalizeUrl(item.Url)
			if key == "" {
				key = strings.TrimSpace(item.Url)
			}
			if c, ok := byUrl[key]; ok {
				c.url = item.Url
				c.searchResultId = result.Id
				continue
			}
			byUrl[key] = &candidate{
				url:            item.Url,
				searchResultId: result.Id,
				order:          order,
				preferred:      hasPreferredKeyword(key, s.Setting.PreferredUrlKeywords),
			}
			order++
		}
	}

	candidates := make([]*candidate, 0, len(byUrl))
	for _, c := range byUrl {
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].preferred != candidates[j].preferred {
			return candidates[i].preferred
		}
		return candidates[i].order < candidates[j].order
	})
	stats.UniqueCandidates = len(candidates)
	return candidates, nil
}

func hasPreferredKeyword(url string, keywords []string) bool {
	lower := strings.ToLower(url)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func capReached(count int, limit int) bool {
	return limit > 0 && count >= limit
}

func (s *Seeder) verifyCandidates(ctx context.Context, tx *gorm.DB, candidates []*candidate, now time.Time, stats *SeedStats) error {
	gate := NewVerificationGate(s.Setting, s.Fetcher, s.Renderer, now)

	for _, c := range candidates {
		if ctx.Err() != nil {
			Logger.Log.Warn("seeding interrupted: ", ctx.Err())
			break
		}
		if capReached(stats.Accepted, s.Setting.MaxAcceptedPerRun) {
			stats.CapsHit.Accepted = true
			break
		}
		if capReached(stats.Fetched, s.Setting.MaxFetchedPerRun) {
			stats.CapsHit.Fetched = true
			break
		}

		v := gate.Verify(ctx, c.url)
		stats.Verified++
		stats.Fetched += v.FetchAttempts

		if v.Accepted {
			if err := s.accept(tx, c, v, now, stats); err != nil {
				return err
			}
		} else {
			stats.Rejected[v.Reason]++
			utils.CandidatesCounter.WithLabelValues(v.Reason).Inc()
			Logger.Log.WithFields(logrus.Fields{"url": c.url, "reason": v.Reason}).Info("candidate rejected")
		}

		if reason := v.IssueReason(); reason != "" {
			if _, err := UpsertAcquisitionIssue(tx, IssueInput{
				Url:                      issueUrl(v),
				Domain:                   v.Domain,
				Reason:                   reason,
				HttpStatus:               v.HttpStatus,
				ContentLength:            v.ContentLength,
				DiscoveredSearchResultID: &c.searchResultId,
				Notes:                    issueNotes(v),
			}, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) accept(tx *gorm.DB, c *candidate, v Verdict, now time.Time, stats *SeedStats) error {
	source, created, err := collector.RegisterSourceUrl(tx, v.CanonicalUrl, model.DiscoveryMethodSearch, now)
	if err != nil {
		return err
	}
	if created {
		stats.NewSourceUrls++
		if len(v.SoftSignals) > 0 {
			source.Notes = issueNotes(v)
			if err := tx.Model(source).Update("notes", source.Notes).Error; err != nil {
				return errors.Wrap(err, "fail to annotate source url")
			}
		}
	}
	discovery := model.SourceUrlDiscovery{
		Id:             uuid.New().String(),
		CreatedAt:      now.UTC(),
		SearchResultID: c.searchResultId,
		SourceUrlID:    source.Id,
	}
	if err := tx.Create(&discovery).Error; err != nil {
		return errors.Wrap(err, "fail to record source url discovery")
	}

	stats.Accepted++
	stats.AcceptedUrls = append(stats.AcceptedUrls, v.CanonicalUrl)
	for _, signal := range v.SoftSignals {
		stats.AcceptedSoftSignals[signal]++
	}
	utils.CandidatesCounter.WithLabelValues("accepted").Inc()
	return nil
}

// issueUrl prefers the canonical form so that spellings of the same page share
// one issue row.
func issueUrl(v Verdict) string {
	if v.CanonicalUrl != "" {
		return v.CanonicalUrl
	}
	return strings.TrimSpace(v.Url)
}

func issueNotes(v Verdict) string {
	notes := []string{}
	if len(v.SoftSignals) > 0 {
		notes = append(notes, "soft signals: "+strings.Join(v.SoftSignals, ","))
	}
	if v.Rendered {
		notes = append(notes, "verified with rendering fetch")
	}
	return strings.Join(notes, "; ")
}
