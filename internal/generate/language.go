package generate

// normalizeLanguage collapses arbitrary caller input to the two supported
// output languages.
func normalizeLanguage(code string) string {
	if code == "ja" {
		return "ja"
	}
	return "en"
}

// languageDirectives returns the label and the instruction sentence embedded
// into prompts for the given output language.
func languageDirectives(code string) (label, instruction string) {
	if normalizeLanguage(code) == "ja" {
		return "Japanese",
			"Output language: Japanese. Respond ONLY in Japanese sentences except for unavoidable proper nouns."
	}
	return "English", "Output language: English. Respond ONLY in English sentences."
}
