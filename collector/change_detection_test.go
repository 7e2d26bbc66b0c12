package collector

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

var fetchTime = time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)

func TestStoreFetchResultSuccess(t *testing.T) {
	source := &model.SourceUrl{FetchStatus: model.FetchStatusError, ErrorMessage: utils.StringPtr("old")}
	text := "Kinderprogramm am 17.01.2026"
	StoreFetchResult(source, &text, nil, fetchTime, 5)

	assert.Equal(t, model.FetchStatusOk, source.FetchStatus)
	assert.Equal(t, utils.TextToSha256Hash(text), *source.ContentHash)
	assert.Equal(t, "Kinde", *source.ContentExcerpt)
	assert.Nil(t, source.ErrorMessage)
	assert.Equal(t, fetchTime, *source.LastFetchedAt)
}

func TestStoreFetchResultFailureKeepsContent(t *testing.T) {
	hash, excerpt := "h1", "old content"
	source := &model.SourceUrl{
		FetchStatus:       model.FetchStatusOk,
		ContentHash:       &hash,
		ContentExcerpt:    &excerpt,
		LastExtractedHash: &hash,
	}
	StoreFetchResult(source, nil, errors.New("timeout"), fetchTime, 100)

	assert.Equal(t, model.FetchStatusError, source.FetchStatus)
	assert.Equal(t, "timeout", *source.ErrorMessage)
	assert.Equal(t, "h1", *source.ContentHash)
	assert.Equal(t, "old content", *source.ContentExcerpt)
	assert.Equal(t, "h1", *source.LastExtractedHash)
	assert.Equal(t, fetchTime, *source.LastFetchedAt)
}

func TestCheckExtractionEligibility(t *testing.T) {
	hash, other, excerpt := "h1", "h0", "text"
	fresh := func() *model.SourceUrl {
		return &model.SourceUrl{FetchStatus: model.FetchStatusOk, ContentHash: &hash, ContentExcerpt: &excerpt}
	}

	ok, reason := CheckExtractionEligibility(fresh(), false, true)
	require.False(t, ok)
	require.Equal(t, SkipReasonDisabledDomain, reason)

	noContent := fresh()
	noContent.ContentExcerpt = nil
	ok, reason = CheckExtractionEligibility(noContent, true, true)
	require.False(t, ok)
	require.Equal(t, SkipReasonNoContent, reason)

	failed := fresh()
	failed.FetchStatus = model.FetchStatusError
	ok, reason = CheckExtractionEligibility(failed, true, false)
	require.False(t, ok)
	require.Equal(t, SkipReasonNoContent, reason)

	unchanged := fresh()
	unchanged.LastExtractedHash = &hash
	ok, reason = CheckExtractionEligibility(unchanged, true, false)
	require.False(t, ok)
	require.Equal(t, SkipReasonUnchangedHash, reason)

	ok, _ = CheckExtractionEligibility(unchanged, true, true)
	require.True(t, ok, "force bypasses the hash check")

	changed := fresh()
	changed.LastExtractedHash = &other
	ok, _ = CheckExtractionEligibility(changed, true, false)
	require.True(t, ok)

	ok, _ = CheckExtractionEligibility(fresh(), true, false)
	require.True(t, ok, "never extracted")
}
