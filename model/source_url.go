package model

import (
	"time"
)

const (
	FetchStatusPending = "pending"
	FetchStatusOk      = "ok"
	FetchStatusError   = "error"

	ExtractionStatusOk       = "ok"
	ExtractionStatusEmpty    = "empty"
	ExtractionStatusPastOnly = "past_only"
	ExtractionStatusError    = "error"

	DiscoveryMethodSearch     = "search"
	DiscoveryMethodPagination = "pagination"
	DiscoveryMethodManual     = "manual"
)

/*

SourceUrl is a canonical page the pipeline fetches and extracts events from

Id: primary key
CreatedAt: time when entity is created
UpdatedAt: time when entity is last modified

Url: canonical url, unique and immutable once created
DomainID:
Domain: the SourceDomain this url belongs to, "belongs-to" relation
FirstSeenAt: first time any search or pagination produced this url
LastSeenAt: last time any search or pagination produced this url
DiscoveryMethod: "search", "pagination" or "manual"; a pagination url later registered as a root takes the root method
Notes: free-form notes, e.g. soft signals recorded at verification time

FetchStatus: "pending" until the first fetch, then "ok" or "error"
LastFetchedAt: time of the last fetch attempt
ContentHash: sha256 hex digest of the last successfully fetched body
ContentExcerpt: bounded prefix of the last successfully fetched body
ErrorMessage: error of the last failed fetch, cleared on success

LastExtractedHash: ContentHash value the last extraction ran against
LastExtractedAt: time of the last extraction
LastExtractionStatus: "ok", "empty", "past_only" or "error"
LastExtractionCount: number of events created by the last extraction
LastExtractionError: error of the last failed extraction
*/

type SourceUrl struct {
	Id              string `gorm:"primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Url             string       `gorm:"uniqueIndex;not null"`
	DomainID        string       `gorm:"index;not null"`
	Domain          SourceDomain `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	DiscoveryMethod string
	Notes           string

	FetchStatus    string `gorm:"not null;default:pending"`
	LastFetchedAt  *time.Time
	ContentHash    *string
	ContentExcerpt *string
	ErrorMessage   *string

	LastExtractedHash    *string
	LastExtractedAt      *time.Time
	LastExtractionStatus *string
	LastExtractionCount  *int
	LastExtractionError  *string
}
