package search

import "strings"

// DefaultTriggerPhrases are the built-in explicit-search trigger
// phrases. A conversational query only routes to web search when the
// user asks for it in so many words — time or news vocabulary alone
// ("morgen", "aktuell") never triggers a search on its own.
var DefaultTriggerPhrases = []string{
	"suche im internet",
	"suche im web",
	"im internet suchen",
	"online suchen",
	"websuche",
	"search the web",
	"search the internet",
	"search online",
	"web search",
	"look up online",
	"google for",
	"google nach",
}

// ShouldAutoSearch reports whether the text contains at least one
// trigger phrase (case-insensitive). A nil phrase list uses
// [DefaultTriggerPhrases].
func ShouldAutoSearch(text string, phrases []string) bool {
	if phrases == nil {
		phrases = DefaultTriggerPhrases
	}
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
