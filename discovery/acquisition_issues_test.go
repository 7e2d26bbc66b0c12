package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

func TestUpsertAcquisitionIssue(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	first := time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)
	second := first.Add(7 * 24 * time.Hour)

	created, err := UpsertAcquisitionIssue(db, IssueInput{
		Url:        "https://blocked.de/x",
		Domain:     "blocked.de",
		Reason:     model.IssueReasonHttpBlocked,
		HttpStatus: utils.IntPtr(403),
	}, first)
	require.NoError(t, err)

	updated, err := UpsertAcquisitionIssue(db, IssueInput{
		Url:           "https://blocked.de/x",
		Domain:        "blocked.de",
		Reason:        model.IssueReasonTooShort,
		ContentLength: utils.IntPtr(12),
	}, second)
	require.NoError(t, err)
	assert.Equal(t, created.Id, updated.Id)

	var issues []model.AcquisitionIssue
	require.NoError(t, db.Find(&issues).Error)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].FirstSeenAt.Equal(first))
	assert.True(t, issues[0].LastSeenAt.Equal(second))
	assert.Equal(t, model.IssueReasonTooShort, issues[0].Reason)
	assert.Nil(t, issues[0].HttpStatus)
	assert.Equal(t, 12, *issues[0].ContentLength)

	_, err = UpsertAcquisitionIssue(db, IssueInput{}, first)
	assert.Error(t, err)
}
