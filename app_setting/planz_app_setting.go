package app_setting

import (
	"os"
	"strconv"
	"strings"
	"time"
	// Europe/Berlin must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// PlanzAppSetting is the explicit configuration object passed into every
// pipeline stage. Stages never read the environment themselves.
type PlanzAppSetting struct {
	// Free text location the query bundle is built for.
	Location string `yaml:"LOCATION"`
	// City name in the local language and in English, substituted into queries.
	CityNameLocal string `yaml:"CITY_NAME_LOCAL"`
	CityNameEn    string `yaml:"CITY_NAME_EN"`
	// Look-ahead window in days.
	WindowDays int `yaml:"WINDOW_DAYS"`
	// IANA name of the civil timezone events are interpreted in.
	Timezone string `yaml:"TIMEZONE"`

	MaxResultsPerQuery int `yaml:"MAX_RESULTS_PER_QUERY"`
	// Ceiling on verification fetch attempts per seeding run, rendering
	// retries included. 0 means unlimited.
	MaxFetchedPerRun int `yaml:"MAX_FETCHED_PER_RUN"`
	// Ceiling on accepted candidates per seeding run. 0 means unlimited.
	MaxAcceptedPerRun int `yaml:"MAX_ACCEPTED_PER_RUN"`
	// Pages with fewer characters are rejected as too_short.
	MinTextLength int `yaml:"MIN_TEXT_LENGTH"`

	SearchTimeoutSecond   int `yaml:"SEARCH_TIMEOUT_SECOND"`
	VerifyTimeoutSecond   int `yaml:"VERIFY_TIMEOUT_SECOND"`
	FetchTimeoutSecond    int `yaml:"FETCH_TIMEOUT_SECOND"`
	RenderTimeoutSecond   int `yaml:"RENDER_TIMEOUT_SECOND"`
	ExtractTimeoutSecond  int `yaml:"EXTRACT_TIMEOUT_SECOND"`
	CalendarTimeoutSecond int `yaml:"CALENDAR_TIMEOUT_SECOND"`

	BlockedDomains    []string `yaml:"BLOCKED_DOMAINS"`
	AggregatorDomains []string `yaml:"AGGREGATOR_DOMAINS"`
	// Aggregator urls accepted per run, unless the domain is preferred. Like
	// the other caps 0 means unlimited, DISABLE_AGGREGATORS turns them off.
	MaxAggregatorsPerRun int  `yaml:"MAX_AGGREGATORS_PER_RUN"`
	DisableAggregators   bool `yaml:"DISABLE_AGGREGATORS"`
	// Preferred domains downgrade archive signals to soft warnings and bypass
	// the aggregator quota.
	PreferredDomains     []string `yaml:"PREFERRED_DOMAINS"`
	PreferredUrlKeywords []string `yaml:"PREFERRED_URL_KEYWORDS"`
	// Domains allowed to fall back to the headless browser fetch.
	RenderAllowlist []string `yaml:"RENDER_ALLOWLIST"`
	EnableRendering bool     `yaml:"ENABLE_RENDERING"`

	MaxListingPages int `yaml:"MAX_LISTING_PAGES"`
	ExcerptLength   int `yaml:"EXCERPT_LENGTH"`
	// Extract even when the content hash did not change since last extraction.
	ForceExtract bool `yaml:"FORCE_EXTRACT"`
	// Fetch detail pages once per event series to enrich descriptions.
	EnrichSeries bool `yaml:"ENRICH_SERIES"`

	SyncBatchLimit int `yaml:"SYNC_BATCH_LIMIT"`
	// Unsynced events that started less than this many hours ago still sync.
	SyncGraceWindowHour          int    `yaml:"SYNC_GRACE_WINDOW_HOUR"`
	CalendarMaxAttempts          int    `yaml:"CALENDAR_MAX_ATTEMPTS"`
	CalendarBaseDelayMillisecond int    `yaml:"CALENDAR_BASE_DELAY_MILLISECOND"`
	CalendarId                   string `yaml:"CALENDAR_ID"`
	GoogleTokenPath              string `yaml:"GOOGLE_TOKEN_PATH"`
	GoogleCredentialsPath        string `yaml:"GOOGLE_CREDENTIALS_PATH"`

	OpenAIModel   string `yaml:"OPENAI_MODEL"`
	OpenAIBaseUrl string `yaml:"OPENAI_BASE_URL"`

	HeartbeatIntervalSecond int `yaml:"HEARTBEAT_INTERVAL_SECOND"`
}

func DefaultPlanzAppSetting() PlanzAppSetting {
	return PlanzAppSetting{
		Location:           "Munich, Germany",
		CityNameLocal:      "München",
		CityNameEn:         "Munich",
		WindowDays:         30,
		Timezone:           "Europe/Berlin",
		MaxResultsPerQuery: 10,
		MaxFetchedPerRun:   60,
		MaxAcceptedPerRun:  25,
		MinTextLength:      1500,

		SearchTimeoutSecond:   60,
		VerifyTimeoutSecond:   5,
		FetchTimeoutSecond:    10,
		RenderTimeoutSecond:   30,
		ExtractTimeoutSecond:  120,
		CalendarTimeoutSecond: 20,

		BlockedDomains:       []string{"meetup.com", "www.meetup.com", "eventbrite.com", "www.eventbrite.com"},
		AggregatorDomains:    []string{"rausgegangen.de", "allevents.in", "eventfinder.de", "veranstaltungen.de"},
		MaxAggregatorsPerRun: 2,
		PreferredDomains:     []string{"muenchen.de"},
		PreferredUrlKeywords: []string{"termine", "kalender", "veranstaltungen", "programm", "calendar", "events", "program"},
		RenderAllowlist:      []string{"www.muenchen.de", "muenchen.de"},
		EnableRendering:      false,

		MaxListingPages: 10,
		ExcerptLength:   20000,
		EnrichSeries:    false,

		SyncBatchLimit:               50,
		SyncGraceWindowHour:          12,
		CalendarMaxAttempts:          5,
		CalendarBaseDelayMillisecond: 1000,
		CalendarId:                   "primary",
		GoogleTokenPath:              "token.json",
		GoogleCredentialsPath:        "credentials.json",

		OpenAIModel:   "gpt-4o-mini",
		OpenAIBaseUrl: "https://api.openai.com/v1",

		HeartbeatIntervalSecond: 30,
	}
}

// ParsePlanzAppSetting starts from the defaults, overlays the yaml file at
// path (skipped when path is empty) and finally the PLANZ_* environment
// overrides.
func ParsePlanzAppSetting(path string) (PlanzAppSetting, error) {
	c := DefaultPlanzAppSetting()
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return c, errors.Wrapf(err, "fail to read setting file %s", path)
		}
		if err := yaml.Unmarshal(yamlFile, &c); err != nil {
			return c, errors.Wrapf(err, "fail to parse setting file %s", path)
		}
	}
	if err := c.ApplyEnvOverrides(os.LookupEnv); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// ApplyEnvOverrides overlays PLANZ_* variables read through lookup.
func (c *PlanzAppSetting) ApplyEnvOverrides(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"PLANZ_WINDOW_DAYS":             &c.WindowDays,
		"PLANZ_MAX_RESULTS_PER_QUERY":   &c.MaxResultsPerQuery,
		"PLANZ_MAX_FETCHED_PER_RUN":     &c.MaxFetchedPerRun,
		"PLANZ_MAX_ACCEPTED_PER_RUN":    &c.MaxAcceptedPerRun,
		"PLANZ_MAX_AGGREGATORS_PER_RUN": &c.MaxAggregatorsPerRun,
		"PLANZ_MAX_LISTING_PAGES":       &c.MaxListingPages,
		"PLANZ_SYNC_BATCH_LIMIT":        &c.SyncBatchLimit,
		"PLANZ_SYNC_GRACE_WINDOW_HOUR":  &c.SyncGraceWindowHour,
	}
	for key, target := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrapf(err, "invalid integer for %s", key)
			}
			*target = n
		}
	}

	bools := map[string]*bool{
		"PLANZ_FORCE_EXTRACT":       &c.ForceExtract,
		"PLANZ_ENABLE_RENDERING":    &c.EnableRendering,
		"PLANZ_DISABLE_AGGREGATORS": &c.DisableAggregators,
		"PLANZ_ENRICH_SERIES":       &c.EnrichSeries,
	}
	for key, target := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrapf(err, "invalid boolean for %s", key)
			}
			*target = b
		}
	}

	lists := map[string]*[]string{
		"PLANZ_RENDER_ALLOWLIST":   &c.RenderAllowlist,
		"PLANZ_BLOCKED_DOMAINS":    &c.BlockedDomains,
		"PLANZ_AGGREGATOR_DOMAINS": &c.AggregatorDomains,
		"PLANZ_PREFERRED_DOMAINS":  &c.PreferredDomains,
	}
	for key, target := range lists {
		if v, ok := lookup(key); ok {
			*target = splitList(v)
		}
	}

	strs := map[string]*string{
		"PLANZ_LOCATION":    &c.Location,
		"PLANZ_TIMEZONE":    &c.Timezone,
		"PLANZ_CALENDAR_ID": &c.CalendarId,
		"GOOGLE_TOKEN_PATH": &c.GoogleTokenPath,
		"OPENAI_MODEL":      &c.OpenAIModel,
		"OPENAI_BASE_URL":   &c.OpenAIBaseUrl,
	}
	for key, target := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*target = strings.TrimSpace(v)
		}
	}
	return nil
}

func splitList(v string) []string {
	res := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, strings.ToLower(part))
		}
	}
	return res
}

func (c PlanzAppSetting) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrapf(err, "invalid TIMEZONE %q", c.Timezone)
	}
	if c.MaxListingPages < 1 {
		return errors.New("MAX_LISTING_PAGES must be at least 1")
	}
	if c.MaxAcceptedPerRun < 0 || c.MaxFetchedPerRun < 0 || c.MaxAggregatorsPerRun < 0 {
		return errors.New("per run caps must not be negative")
	}
	if c.CalendarMaxAttempts < 1 {
		return errors.New("CALENDAR_MAX_ATTEMPTS must be at least 1")
	}
	if c.SyncBatchLimit < 1 {
		return errors.New("SYNC_BATCH_LIMIT must be at least 1")
	}
	return nil
}

// TimeLocation returns the civil timezone, falling back to UTC if the name is
// invalid. Validate reports invalid names.
func (c PlanzAppSetting) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c PlanzAppSetting) SearchTimeout() time.Duration { return seconds(c.SearchTimeoutSecond) }
func (c PlanzAppSetting) VerifyTimeout() time.Duration { return seconds(c.VerifyTimeoutSecond) }
func (c PlanzAppSetting) FetchTimeout() time.Duration { return seconds(c.FetchTimeoutSecond) }
func (c PlanzAppSetting) RenderTimeout() time.Duration { return seconds(c.RenderTimeoutSecond) }
func (c PlanzAppSetting) ExtractTimeout() time.Duration { return seconds(c.ExtractTimeoutSecond) }
func (c PlanzAppSetting) CalendarTimeout() time.Duration { return seconds(c.CalendarTimeoutSecond) }

func (c PlanzAppSetting) HeartbeatInterval() time.Duration {
	return seconds(c.HeartbeatIntervalSecond)
}

func (c PlanzAppSetting) SyncGraceWindow() time.Duration {
	return time.Duration(c.SyncGraceWindowHour) * time.Hour
}

func (c PlanzAppSetting) CalendarBaseDelay() time.Duration {
	return time.Duration(c.CalendarBaseDelayMillisecond) * time.Millisecond
}
