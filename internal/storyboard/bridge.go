package storyboard

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	bridgeMarker      = "Seamlessly continuing from "
	essenceMaxChars   = 60
	essenceDelimiters = ".。!?"
)

// EnhanceContinuity prepends a reference to the previous cut's content to
// each cut description, so that independently generated cuts read as one
// flowing sequence. Image placeholder cuts, cuts following a placeholder,
// and cuts already carrying a bridge are left alone. The essence always
// comes from the predecessor's unbridged description, never from a bridge
// added earlier in the same pass. Reports whether any description changed.
func EnhanceContinuity(cuts []Cut) bool {
	sources := make([]string, len(cuts))
	for i := range cuts {
		sources[i] = strings.TrimPrefix(cuts[i].Description, bridgeMarker)
	}
	changed := false
	for i := 1; i < len(cuts); i++ {
		if cuts[i].IsImagePlaceholder || cuts[i-1].IsImagePlaceholder {
			continue
		}
		if strings.HasPrefix(cuts[i].Description, bridgeMarker) {
			continue
		}
		essence := descriptionEssence(sources[i-1])
		if essence == "" {
			continue
		}
		cuts[i].Description = bridgeMarker + essence + ", " + lowerSentenceLead(cuts[i].Description)
		changed = true
	}
	return changed
}

// descriptionEssence reduces a description to its first sentence, capped at
// essenceMaxChars runes, with trailing punctuation removed.
func descriptionEssence(description string) string {
	text := strings.TrimSpace(description)
	if text == "" {
		return ""
	}
	if idx := strings.IndexAny(text, essenceDelimiters); idx >= 0 {
		text = text[:idx]
	}
	if utf8.RuneCountInString(text) > essenceMaxChars {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:essenceMaxChars]))
	}
	return strings.TrimSpace(text)
}

// lowerSentenceLead lowercases the first letter when it looks like an
// ordinary sentence start: a capital followed by a lowercase letter. Likely
// proper nouns and acronyms (capital followed by another capital or a
// non-letter) keep their casing.
func lowerSentenceLead(text string) string {
	first, firstSize := utf8.DecodeRuneInString(text)
	if firstSize == 0 || !unicode.IsUpper(first) {
		return text
	}
	second, _ := utf8.DecodeRuneInString(text[firstSize:])
	if !unicode.IsLower(second) {
		return text
	}
	return string(unicode.ToLower(first)) + text[firstSize:]
}
