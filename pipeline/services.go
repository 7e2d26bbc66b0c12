package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/calendar"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/discovery"
	"github.com/JamisonProctor/planz/extractor"
	"github.com/JamisonProctor/planz/publisher"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

const weeklyLockTtl = 6 * time.Hour

// Secrets are read from the environment by the binaries only and handed to
// BuildServices, stages never look them up.
type Secrets struct {
	OpenAIApiKey   string
	ChromeUrl      string
	PushgatewayUrl string
}

func SecretsFromEnv() Secrets {
	return Secrets{
		OpenAIApiKey:   os.Getenv("OPENAI_API_KEY"),
		ChromeUrl:      os.Getenv("CHROME_URL"),
		PushgatewayUrl: os.Getenv("PUSHGATEWAY_URL"),
	}
}

// Services holds the concrete adapters behind every capability interface. A
// capability whose credentials are missing stays nil and the stage using it
// decides whether that is fatal.
type Services struct {
	DB       *gorm.DB
	Setting  app_setting.PlanzAppSetting
	Secrets  Secrets
	Fetcher  collector.Fetcher
	Renderer *collector.RodRenderer
	Search   discovery.SearchProvider
	Extract  extractor.EventExtractor
	Calendar calendar.Client
	Redis    *utils.RedisClient
}

// BuildServices wires production adapters. The calendar client is only built
// when withCalendar is set since it needs the oauth token on disk.
func BuildServices(ctx context.Context, db *gorm.DB, setting app_setting.PlanzAppSetting, secrets Secrets, withCalendar bool) (*Services, error) {
	s := &Services{
		DB:      db,
		Setting: setting,
		Secrets: secrets,
		Fetcher: collector.NewCollyFetcher(),
		Redis:   utils.GetRedisClient(),
	}
	if setting.EnableRendering {
		s.Renderer = collector.NewRodRenderer(secrets.ChromeUrl)
	}

	search, err := discovery.NewOpenAIWebSearchProvider(secrets.OpenAIApiKey, setting.OpenAIBaseUrl, setting.OpenAIModel, setting.SearchTimeout())
	if err == nil {
		s.Search = search
	} else if !errors.Is(err, discovery.ErrMissingApiKey) {
		return nil, err
	}

	ext, err := extractor.NewOpenAIEventExtractor(secrets.OpenAIApiKey, setting.OpenAIBaseUrl, setting.OpenAIModel, setting.Timezone, setting.ExtractTimeout())
	if err == nil {
		s.Extract = ext
	} else if !errors.Is(err, extractor.ErrMissingApiKey) {
		return nil, err
	}

	if withCalendar {
		client, err := calendar.NewGoogleCalendarClient(ctx, setting.GoogleCredentialsPath, setting.GoogleTokenPath, setting.CalendarId, setting.Timezone)
		if err != nil {
			return nil, errors.Wrap(err, "fail to build calendar client")
		}
		s.Calendar = client
	}
	return s, nil
}

func (s *Services) renderer() collector.Fetcher {
	if s.Renderer == nil {
		return nil
	}
	return s.Renderer
}

// NewSeeder returns nil when no search provider is configured.
func (s *Services) NewSeeder() *discovery.Seeder {
	if s.Search == nil {
		return nil
	}
	return discovery.NewSeeder(s.DB, s.Search, s.Fetcher, s.renderer(), s.Setting)
}

func (s *Services) NewFetchJob() *collector.SourceFetchJob {
	return collector.NewSourceFetchJob(s.DB, s.Fetcher, s.Setting)
}

func (s *Services) NewExtractionJob() *publisher.ExtractionJob {
	return publisher.NewExtractionJob(s.DB, s.Extract, s.Fetcher, s.Setting)
}

func (s *Services) NewSyncer() *calendar.Syncer {
	return calendar.NewSyncer(s.DB, s.Calendar, s.Setting)
}

// NewWeeklyPipeline wires every stage. Seeding is included only when seed is
// set and a search provider exists.
func (s *Services) NewWeeklyPipeline(seed bool) *WeeklyPipeline {
	p := &WeeklyPipeline{
		Setting:        s.Setting,
		FetchJob:       s.NewFetchJob(),
		ExtractionJob:  s.NewExtractionJob(),
		Syncer:         s.NewSyncer(),
		PushgatewayUrl: s.Secrets.PushgatewayUrl,
		Clock:          time.Now,
	}
	if seed {
		p.Seeder = s.NewSeeder()
		if p.Seeder == nil {
			Logger.Log.Warn("OPENAI_API_KEY missing: seeding skipped")
		}
	}
	if s.Redis != nil {
		p.Lock = s.Redis.NewRunLock(WeeklyJobName, weeklyLockTtl)
	}
	return p
}

// Close releases the headless browser if one was started.
func (s *Services) Close() {
	if s.Renderer == nil {
		return
	}
	if err := s.Renderer.Close(); err != nil {
		Logger.Log.Warn("fail to close renderer: ", err)
	}
}

// OpenServices is the common start of every binary: parse the setting file,
// connect and migrate the database, then wire the adapters.
func OpenServices(ctx context.Context, configPath string, withCalendar bool) (*Services, error) {
	setting, err := app_setting.ParsePlanzAppSetting(configPath)
	if err != nil {
		return nil, err
	}
	db, err := utils.GetDBConnection()
	if err != nil {
		return nil, errors.Wrap(err, "fail to connect database")
	}
	if err := utils.DatabaseSetupAndMigration(db); err != nil {
		return nil, errors.Wrap(err, "fail to migrate database")
	}
	return BuildServices(ctx, db, setting, SecretsFromEnv(), withCalendar)
}
