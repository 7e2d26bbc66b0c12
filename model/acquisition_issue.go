package model

import (
	"time"
)

const (
	IssueReasonInvalidUrl         = "invalid_url"
	IssueReasonBlockedDomain      = "blocked_domain"
	IssueReasonAggregatorDisabled = "aggregator_disabled"
	IssueReasonAggregatorQuota    = "aggregator_quota"
	IssueReasonFetchFailed        = "fetch_failed"
	IssueReasonHttpBlocked        = "http_blocked"
	IssueReasonTooShort           = "too_short"
	IssueReasonArchiveSignals     = "archive_signals"
	IssueReasonNoDateTokens       = "no_date_tokens"
	IssueReasonJsSuspected        = "js_suspected"
)

/*

AcquisitionIssue records why a url was rejected, or which soft signals it
carried when it was accepted anyway. There is at most one row per url; later
sightings update LastSeenAt and the latest reason in place.

Url: url as seen by the verification gate, unique
Domain: lower-cased host
FirstSeenAt: first time the issue was recorded, never changes
LastSeenAt: latest time the issue was recorded
Reason: latest reason, one of the IssueReason* constants
HttpStatus: http status of the verification fetch, if any
ContentLength: length of the fetched body, if any
DiscoveredSearchResultID: search result that surfaced the url, if any
Notes: free-form notes, e.g. the full soft signal list
*/

type AcquisitionIssue struct {
	Id                       string `gorm:"primaryKey"`
	Url                      string `gorm:"uniqueIndex;not null"`
	Domain                   string `gorm:"index"`
	FirstSeenAt              time.Time
	LastSeenAt               time.Time
	Reason                   string
	HttpStatus               *int
	ContentLength            *int
	DiscoveredSearchResultID *string
	Notes                    string
}
