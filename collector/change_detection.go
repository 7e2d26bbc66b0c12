package collector

import (
	"time"

	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

const (
	SkipReasonDisabledDomain = "disabled_domain"
	SkipReasonNoContent      = "no_content"
	SkipReasonUnchangedHash  = "unchanged_hash"
)

// StoreFetchResult records the outcome of one fetch on source. On success the
// content hash covers the full text while only excerptLimit runes are kept.
// On failure the previous content, hash and extraction bookkeeping stay as
// they were so a transient error never forces re-extraction.
func StoreFetchResult(source *model.SourceUrl, text *string, fetchErr error, now time.Time, excerptLimit int) {
	fetchedAt := now.UTC()
	source.LastFetchedAt = &fetchedAt

	if fetchErr != nil || text == nil {
		msg := "empty response"
		if fetchErr != nil {
			msg = fetchErr.Error()
		}
		source.FetchStatus = model.FetchStatusError
		source.ErrorMessage = &msg
		return
	}

	hash := utils.TextToSha256Hash(*text)
	excerpt := utils.TruncateRunes(*text, excerptLimit)
	source.FetchStatus = model.FetchStatusOk
	source.ContentHash = &hash
	source.ContentExcerpt = &excerpt
	source.ErrorMessage = nil
}

// CheckExtractionEligibility decides whether source should be sent to the
// extractor. force only bypasses the unchanged hash check.
func CheckExtractionEligibility(source *model.SourceUrl, domainAllowed bool, force bool) (bool, string) {
	if !domainAllowed {
		return false, SkipReasonDisabledDomain
	}
	if source.FetchStatus != model.FetchStatusOk || source.ContentHash == nil ||
		source.ContentExcerpt == nil || *source.ContentExcerpt == "" {
		return false, SkipReasonNoContent
	}
	if !force && source.LastExtractedHash != nil && *source.LastExtractedHash == *source.ContentHash {
		return false, SkipReasonUnchangedHash
	}
	return true, ""
}
