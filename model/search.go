package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

SearchRun, SearchQuery and SearchResult are the append-only audit trail of the
discovery stage. Nothing reads them back for decisions.

SearchRun:
Id: primary key
CreatedAt: time the run started
Location: free text location the query bundle was built for
WindowDays: look-ahead window in days
Notes: free-form notes
Summary: json encoded run statistics written when the run completes
Queries: queries issued by this run, "has-many" relation

SearchQuery:
SearchRunID: owning run
Language: "de" or "en"
Intent: query intent, for example "kids_calendar"
Query: the literal query string sent to the provider
Results: results returned for this query, "has-many" relation

SearchResult:
SearchQueryID: owning query
Rank: 1-based position in the provider's answer
Url: url exactly as returned by the provider
Title, Snippet: provider supplied metadata
Domain: lower-cased host of Url
*/

type SearchRun struct {
	Id         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	Location   string
	WindowDays int
	Notes      string
	Summary    datatypes.JSON
	Queries    []SearchQuery `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

type SearchQuery struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	SearchRunID string `gorm:"index;not null"`
	Language    string
	Intent      string
	Query       string
	Results     []SearchResult `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

type SearchResult struct {
	Id            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	SearchQueryID string `gorm:"index;not null"`
	Rank          int
	Url           string
	Title         string
	Snippet       string
	Domain        string
}

/*

SourceUrlDiscovery links a SearchResult to the SourceUrl it was accepted as.
A SourceUrl can be discovered by many results across runs.
*/

type SourceUrlDiscovery struct {
	Id             string `gorm:"primaryKey"`
	CreatedAt      time.Time
	SearchResultID string `gorm:"index;not null"`
	SourceUrlID    string `gorm:"index;not null"`
}
