package search

import "strings"

// Function words used for the stop-word language heuristic. Only words
// that are unambiguous between the two languages appear here.
var (
	germanStopWords = []string{
		"der", "die", "das", "und", "ist", "ich", "nicht", "mit",
		"wie", "für", "auf", "eine", "ein", "auch", "nach", "bei",
		"über", "wird", "sind", "oder", "wenn", "aber", "noch",
		"kann", "mir", "mich", "morgen", "heute", "wetter",
	}
	englishStopWords = []string{
		"the", "and", "is", "are", "not", "with", "how", "what",
		"for", "this", "that", "have", "from", "will", "would",
		"can", "about", "when", "where", "why", "does", "tomorrow",
		"today",
	}
)

// DetectLanguage guesses "de" or "en" from function-word occurrences
// in the query. Ties (including queries with no recognized words)
// fall back to defaultLang.
func DetectLanguage(query, defaultLang string) string {
	if defaultLang == "" {
		defaultLang = "de"
	}

	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return defaultLang
	}

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[strings.Trim(w, ".,!?;:\"'()")]++
	}

	var german, english int
	for _, w := range germanStopWords {
		german += counts[w]
	}
	for _, w := range englishStopWords {
		english += counts[w]
	}

	switch {
	case german > english:
		return "de"
	case english > german:
		return "en"
	default:
		return defaultLang
	}
}
