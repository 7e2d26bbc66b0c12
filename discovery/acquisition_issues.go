package discovery

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/model"
)

type IssueInput struct {
	Url                      string
	Domain                   string
	Reason                   string
	HttpStatus               *int
	ContentLength            *int
	DiscoveredSearchResultID *string
	Notes                    string
}

// UpsertAcquisitionIssue keeps exactly one issue row per url: the first
// sighting creates it, later ones move LastSeenAt forward and overwrite the
// reason and measurements.
func UpsertAcquisitionIssue(tx *gorm.DB, in IssueInput, now time.Time) (*model.AcquisitionIssue, error) {
	if in.Url == "" {
		return nil, errors.New("acquisition issue needs a url")
	}
	now = now.UTC()

	var issue model.AcquisitionIssue
	res := tx.Where("url = ?", in.Url).Limit(1).Find(&issue)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "fail to look up acquisition issue for %s", in.Url)
	}

	if res.RowsAffected == 0 {
		issue = model.AcquisitionIssue{
			Id:          uuid.New().String(),
			Url:         in.Url,
			FirstSeenAt: now,
		}
	}
	issue.Domain = in.Domain
	issue.LastSeenAt = now
	issue.Reason = in.Reason
	issue.HttpStatus = in.HttpStatus
	issue.ContentLength = in.ContentLength
	issue.Notes = in.Notes
	if in.DiscoveredSearchResultID != nil {
		issue.DiscoveredSearchResultID = in.DiscoveredSearchResultID
	}

	if err := tx.Save(&issue).Error; err != nil {
		return nil, errors.Wrapf(err, "fail to save acquisition issue for %s", in.Url)
	}
	return &issue, nil
}
