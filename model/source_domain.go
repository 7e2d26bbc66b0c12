package model

import (
	"time"
)

/*

SourceDomain is a host that candidate pages were discovered on

Id: primary key, use to identify a domain
CreatedAt: time when entity is created
UpdatedAt: time when entity is last modified

Domain: lower-cased host, for example "www.muenchen.de", unique
IsAllowed: operator kill switch, sources on a disallowed domain are neither fetched nor extracted
Notes: free-form operator notes
SourceUrls: urls registered under this domain, "has-many" relation

A domain is created on first sighting and never deleted.
*/

type SourceDomain struct {
	Id         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Domain     string `gorm:"uniqueIndex;not null"`
	IsAllowed  bool   `gorm:"not null"`
	Notes      string
	SourceUrls []SourceUrl `gorm:"foreignKey:DomainID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
