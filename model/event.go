package model

import (
	"time"
)

const CalendarProviderGoogle = "google"

/*

Event is one concrete, single-day occurrence that can be pushed to a calendar

Id: primary key
CreatedAt: time when entity is created
UpdatedAt: time when entity is last modified

Title: display title, weekend occurrences carry a " (Saturday)" / " (Sunday)" suffix
StartTime, EndTime: timezone aware instants, EndTime is never before StartTime
Location: free text venue or address
Description: free text description
SourceUrl: the page (or detail page) the event was extracted from
ExternalKey: deterministic digest of (detail or source url, start), the only
             identity used for deduplication, unique
CalendarSync: the sync record, absent while the event still needs pushing,
              "has-one" relation
*/

type Event struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Title        string    `gorm:"not null"`
	StartTime    time.Time `gorm:"index;not null"`
	EndTime      time.Time `gorm:"not null"`
	Location     string
	Description  string
	SourceUrl    string
	ExternalKey  string        `gorm:"uniqueIndex;not null"`
	CalendarSync *CalendarSync `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

/*

CalendarSync marks an Event as pushed to an external calendar. The row is
deleted, not soft deleted, whenever the owning event changes so that the next
reconciliation pushes the update.

EventID: owning event, unique
Provider: calendar provider, currently "google"
CalendarEventId: id assigned by the provider
SyncedAt: time of the successful push
*/

type CalendarSync struct {
	Id              string `gorm:"primaryKey"`
	EventID         string `gorm:"uniqueIndex;not null"`
	Provider        string
	CalendarEventId string
	SyncedAt        time.Time
}

/*

EventSeries caches series-level data (venue, description) shared by every
occurrence of a recurring event, so the detail page is fetched once.

SeriesKey: detail url, or "domain:title:location" when there is none, unique
*/

type EventSeries struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SeriesKey   string `gorm:"uniqueIndex;not null"`
	DetailUrl   string
	Title       string
	Venue       string
	Description string
}
