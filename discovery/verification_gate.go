package discovery

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
	Logger "github.com/JamisonProctor/planz/utils/log"
)

// Verdict is the outcome of running one candidate through the gate.
type Verdict struct {
	Url          string
	CanonicalUrl string
	Domain       string
	Accepted     bool
	// Reason is the rejection reason, empty when accepted.
	Reason string
	// SoftSignals are warnings attached to an accepted page, most severe first.
	SoftSignals   []string
	HttpStatus    *int
	ContentLength *int
	// Fetched is true if the gate performed at least one fetch.
	Fetched bool
	// FetchAttempts counts plain and rendering fetches alike.
	FetchAttempts int
	Rendered      bool
}

// IssueReason is the reason recorded as acquisition issue, "" if the verdict
// does not warrant one.
func (v Verdict) IssueReason() string {
	if !v.Accepted {
		return v.Reason
	}
	if len(v.SoftSignals) > 0 {
		return v.SoftSignals[0]
	}
	return ""
}

func (v Verdict) hasSoftSignal(signal string) bool {
	return utils.ContainsString(v.SoftSignals, signal)
}

// VerificationGate decides which search candidates are worth registering as
// sources. A gate lives for one seeding run: it owns the per run aggregator
// quota.
type VerificationGate struct {
	Setting  app_setting.PlanzAppSetting
	Fetcher  collector.Fetcher
	Renderer collector.Fetcher

	now                 time.Time
	aggregatorsAccepted int
}

// NewVerificationGate builds a gate for one run. renderer may be nil.
func NewVerificationGate(setting app_setting.PlanzAppSetting, fetcher collector.Fetcher, renderer collector.Fetcher, now time.Time) *VerificationGate {
	return &VerificationGate{Setting: setting, Fetcher: fetcher, Renderer: renderer, now: now}
}

func (g *VerificationGate) Verify(ctx context.Context, rawUrl string) Verdict {
	v := Verdict{Url: rawUrl}

	canonical := utils.CanonicalizeUrl(rawUrl)
	if canonical == "" {
		v.Domain = utils.ExtractDomain(strings.TrimSpace(rawUrl))
		return reject(v, model.IssueReasonInvalidUrl)
	}
	v.CanonicalUrl = canonical
	v.Domain = utils.ExtractDomain(canonical)

	if utils.DomainMatches(v.Domain, g.Setting.BlockedDomains) {
		return reject(v, model.IssueReasonBlockedDomain)
	}
	preferred := utils.DomainMatches(v.Domain, g.Setting.PreferredDomains)
	aggregator := !preferred && utils.DomainMatches(v.Domain, g.Setting.AggregatorDomains)
	if aggregator {
		if g.Setting.DisableAggregators {
			return reject(v, model.IssueReasonAggregatorDisabled)
		}
		if g.Setting.MaxAggregatorsPerRun > 0 && g.aggregatorsAccepted >= g.Setting.MaxAggregatorsPerRun {
			return reject(v, model.IssueReasonAggregatorQuota)
		}
	}

	v = g.inspect(ctx, g.Fetcher, v, preferred, g.Setting.VerifyTimeout())

	if g.shouldRender(v) {
		rendered := g.inspect(ctx, g.Renderer, Verdict{Url: v.Url, CanonicalUrl: v.CanonicalUrl, Domain: v.Domain}, preferred, g.Setting.RenderTimeout())
		rendered.Rendered = true
		attempts := v.FetchAttempts + rendered.FetchAttempts
		if rendered.Accepted {
			v = rendered
		} else {
			Logger.Log.WithField("url", canonical).Infof("rendered fetch did not help: %s", rendered.Reason)
		}
		v.FetchAttempts = attempts
	}

	if v.Accepted && aggregator {
		g.aggregatorsAccepted++
	}
	return v
}

func (g *VerificationGate) shouldRender(v Verdict) bool {
	if g.Renderer == nil || !g.Setting.EnableRendering {
		return false
	}
	if v.Accepted && !v.hasSoftSignal(model.IssueReasonJsSuspected) {
		return false
	}
	return utils.DomainMatches(v.Domain, g.Setting.RenderAllowlist)
}

// inspect runs the fetch, length and content checks with one fetch strategy.
func (g *VerificationGate) inspect(ctx context.Context, fetcher collector.Fetcher, v Verdict, preferred bool, timeout time.Duration) Verdict {
	v.Fetched = true
	v.FetchAttempts++
	res, err := fetcher.Fetch(ctx, v.CanonicalUrl, timeout)
	if res != nil && res.StatusCode != 0 {
		status := res.StatusCode
		v.HttpStatus = &status
	}
	if err != nil {
		if code := collector.StatusCodeOf(err); code != 0 {
			v.HttpStatus = &code
			return reject(v, model.IssueReasonHttpBlocked)
		}
		return reject(v, model.IssueReasonFetchFailed)
	}

	length := utf8.RuneCountInString(res.Text)
	v.ContentLength = &length
	if length < g.Setting.MinTextLength {
		return reject(v, model.IssueReasonTooShort)
	}

	signals := DetectSignals(res.Text, g.now)
	soft := []string{}
	if signals.HasArchiveSignal() {
		if !preferred {
			return reject(v, model.IssueReasonArchiveSignals)
		}
		soft = append(soft, model.IssueReasonArchiveSignals)
	}
	if signals.JsSuspected {
		soft = append(soft, model.IssueReasonJsSuspected)
	}
	if !signals.HasDateToken {
		soft = append(soft, model.IssueReasonNoDateTokens)
	}

	v.Accepted = true
	v.Reason = ""
	v.SoftSignals = soft
	return v
}

func reject(v Verdict, reason string) Verdict {
	v.Accepted = false
	v.Reason = reason
	v.SoftSignals = nil
	return v
}
