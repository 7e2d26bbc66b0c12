package discovery

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)\b`),
		regexp.MustCompile(`(?i)\b(januar|februar|märz|maerz|april|mai|juni|juli|august|september|oktober|november|dezember)\b`),
		// weekday abbreviation followed by a day number: "Sa. 17.1."
		regexp.MustCompile(`\b(Mo|Di|Mi|Do|Fr|Sa|So)\.\s*\d{1,2}\.`),
	}

	archiveVocabulary = []string{"archiv", "rueckblick", "ruckblick", "rückblick"}

	jsNotices = []string{
		"enable javascript",
		"javascript is required",
		"javascript aktivieren",
		"javascript muss aktiviert",
	}

	spaShells = []string{
		`<div id="root"></div>`,
		`<div id="app"></div>`,
		`<div id="__next"></div>`,
	}

	yearToken = regexp.MustCompile(`^\d{4}$`)
)

// PageSignals are the content heuristics evaluated on a fetched page.
type PageSignals struct {
	TextLength           int
	VisibleTextLength    int
	ScriptCount          int
	HasDateToken         bool
	HasArchiveVocabulary bool
	HasPastYear          bool
	JsSuspected          bool
}

// HasArchiveSignal reports the hard "this page is about the past" signal.
func (s PageSignals) HasArchiveSignal() bool {
	return s.HasArchiveVocabulary || s.HasPastYear
}

// DetectSignals evaluates body as fetched (usually html). now provides the
// current year for the past year check.
func DetectSignals(body string, now time.Time) PageSignals {
	visible, scriptChars, scriptCount := visibleText(body)
	lowerBody := strings.ToLower(body)

	s := PageSignals{
		TextLength:        len([]rune(body)),
		VisibleTextLength: len([]rune(visible)),
		ScriptCount:       scriptCount,
	}
	s.HasDateToken = hasDateToken(visible)
	s.HasArchiveVocabulary = hasArchiveVocabulary(strings.ToLower(visible))
	s.HasPastYear = hasPastYear(visible, now.Year())
	s.JsSuspected = isJsSuspected(lowerBody, s.VisibleTextLength, scriptChars, scriptCount)
	return s
}

// visibleText strips markup; for input that is not html it returns the input.
func visibleText(body string) (string, int, int) {
	if !strings.Contains(body, "<") {
		return body, 0, 0
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body, 0, 0
	}
	scripts := doc.Find("script")
	scriptChars := 0
	scripts.Each(func(_ int, sel *goquery.Selection) {
		scriptChars += len(sel.Text())
	})
	scriptCount := scripts.Length()
	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br, p, div, li, td, h1, h2, h3, h4").AfterHtml("\n")
	return doc.Text(), scriptChars, scriptCount
}

func hasDateToken(text string) bool {
	for _, p := range datePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func hasArchiveVocabulary(lowerText string) bool {
	for _, w := range archiveVocabulary {
		if strings.Contains(lowerText, w) {
			return true
		}
	}
	return false
}

// hasPastYear is true if any whitespace separated token is a four digit
// number smaller than currentYear.
func hasPastYear(text string, currentYear int) bool {
	for _, tok := range strings.Fields(text) {
		if !yearToken.MatchString(tok) {
			continue
		}
		if year, err := strconv.Atoi(tok); err == nil && year < currentYear {
			return true
		}
	}
	return false
}

// isJsSuspected flags pages that likely need a browser to show their content:
// an explicit "enable javascript" notice, an empty SPA mount point, very little
// visible text relative to the markup, or scripts outweighing the text.
func isJsSuspected(lowerBody string, visibleLen int, scriptChars int, scriptCount int) bool {
	for _, notice := range jsNotices {
		if strings.Contains(lowerBody, notice) {
			return true
		}
	}
	for _, shell := range spaShells {
		if strings.Contains(lowerBody, shell) {
			return true
		}
	}
	if len(lowerBody) >= 256 && float64(visibleLen)/float64(len(lowerBody)) < 0.10 {
		return true
	}
	return scriptCount >= 10 && scriptChars > visibleLen
}
