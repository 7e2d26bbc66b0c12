package collector

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

// GetOrCreateDomain returns the SourceDomain row for domain, creating an
// allowed one on first sighting.
func GetOrCreateDomain(tx *gorm.DB, domain string) (*model.SourceDomain, error) {
	if domain == "" {
		return nil, errors.New("domain must not be empty")
	}
	var d model.SourceDomain
	res := tx.Where("domain = ?", domain).Limit(1).Find(&d)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "fail to look up domain %s", domain)
	}
	if res.RowsAffected > 0 {
		return &d, nil
	}

	d = model.SourceDomain{Id: uuid.New().String(), Domain: domain, IsAllowed: true}
	if err := tx.Create(&d).Error; err != nil {
		return nil, errors.Wrapf(err, "fail to create domain %s", domain)
	}
	return &d, nil
}

// RegisterSourceUrl makes sure a SourceUrl exists for canonicalUrl. An
// existing row has LastSeenAt bumped. A row first reached through pagination
// takes the new method when it is later registered as a root.
func RegisterSourceUrl(tx *gorm.DB, canonicalUrl string, method string, now time.Time) (*model.SourceUrl, bool, error) {
	domain := utils.ExtractDomain(canonicalUrl)
	if canonicalUrl == "" || domain == "" {
		return nil, false, errors.Errorf("cannot register url %q", canonicalUrl)
	}
	now = now.UTC()

	var existing model.SourceUrl
	res := tx.Where("url = ?", canonicalUrl).Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, false, errors.Wrapf(res.Error, "fail to look up source url %s", canonicalUrl)
	}
	if res.RowsAffected > 0 {
		updates := map[string]interface{}{"last_seen_at": now}
		if existing.DiscoveryMethod == model.DiscoveryMethodPagination && method != model.DiscoveryMethodPagination {
			updates["discovery_method"] = method
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return nil, false, errors.Wrapf(err, "fail to touch source url %s", canonicalUrl)
		}
		if _, ok := updates["discovery_method"]; ok {
			existing.DiscoveryMethod = method
		}
		existing.LastSeenAt = now
		return &existing, false, nil
	}

	d, err := GetOrCreateDomain(tx, domain)
	if err != nil {
		return nil, false, err
	}
	source := model.SourceUrl{
		Id:              uuid.New().String(),
		Url:             canonicalUrl,
		DomainID:        d.Id,
		FirstSeenAt:     now,
		LastSeenAt:      now,
		DiscoveryMethod: method,
		FetchStatus:     model.FetchStatusPending,
	}
	if err := tx.Create(&source).Error; err != nil {
		return nil, false, errors.Wrapf(err, "fail to create source url %s", canonicalUrl)
	}
	return &source, true, nil
}
