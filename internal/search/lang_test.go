package search

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		query       string
		defaultLang string
		want        string
	}{
		{"Wie wird das Wetter morgen in Berlin und wie warm ist es", "de", "de"},
		{"What is the weather like tomorrow in Berlin", "de", "en"},
		{"Ich suche eine Wohnung mit Balkon für meine Familie", "en", "de"},
		{"How does the new tax law affect freelancers", "de", "en"},
		// No recognizable function words: default wins.
		{"Photosynthese Chlorophyll", "de", "de"},
		{"Photosynthese Chlorophyll", "en", "en"},
		// Empty query: default wins.
		{"", "de", "de"},
		// Empty default falls back to "de".
		{"xyz", "", "de"},
	}

	for _, tt := range tests {
		if got := DetectLanguage(tt.query, tt.defaultLang); got != tt.want {
			t.Errorf("DetectLanguage(%q, %q) = %q, want %q",
				tt.query, tt.defaultLang, got, tt.want)
		}
	}
}

func TestDetectLanguagePunctuation(t *testing.T) {
	// Trailing punctuation must not hide function words.
	if got := DetectLanguage("Wie ist das Wetter?", "en"); got != "de" {
		t.Errorf("expected de despite punctuation, got %q", got)
	}
}
