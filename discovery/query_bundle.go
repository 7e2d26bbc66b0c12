package discovery

import (
	"fmt"
)

const (
	LanguageGerman  = "de"
	LanguageEnglish = "en"
)

// Query is one search request of the bundle.
type Query struct {
	Language string
	Intent   string
	Text     string
}

// BuildQueryBundle returns the fixed list of queries issued by every seeding
// run, German ones first.
func BuildQueryBundle(cityLocal string, cityEn string, windowDays int) []Query {
	return []Query{
		{LanguageGerman, "kids_free_weekend", fmt.Sprintf("kinder veranstaltungen kostenlos dieses wochenende %s", cityLocal)},
		{LanguageGerman, "kids_calendar", fmt.Sprintf("kinder kalender termine %s", cityLocal)},
		{LanguageGerman, "museum_program", fmt.Sprintf("museum kinder programm %s", cityLocal)},
		{LanguageGerman, "library_program", fmt.Sprintf("bibliothek kinder programm %s", cityLocal)},
		{LanguageGerman, "family_events", fmt.Sprintf("familien veranstaltungen %s", cityLocal)},
		{LanguageGerman, "upcoming_program", fmt.Sprintf("programm termine %s %d tage", cityLocal, windowDays)},
		{LanguageEnglish, "kids_free_weekend", fmt.Sprintf("free kids events this weekend %s", cityEn)},
		{LanguageEnglish, "kids_calendar", fmt.Sprintf("kids events calendar %s", cityEn)},
		{LanguageEnglish, "museum_program", fmt.Sprintf("museum kids program %s", cityEn)},
		{LanguageEnglish, "library_program", fmt.Sprintf("library kids program %s", cityEn)},
	}
}
