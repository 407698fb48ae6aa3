package prompttext

import (
	"encoding/json"
	"regexp"
	"strings"
)

// englishReplacer maps recurring Japanese style terms onto the English
// vocabulary the downstream models expect.
var englishReplacer = strings.NewReplacer(
	"和風", "Japanese style",
	"浮世絵", "ukiyo-e",
	"侍", "samurai",
	"忍者", "ninja",
	"アール・デコ", "Art Deco",
	"アール・ヌーヴォー", "Art Nouveau",
	"水彩画", "watercolor",
	"漫画", "manga",
	"アニメ", "anime",
	"ノワール", "noir",
	"ヴェイパーウェーブ", "vaporwave",
)

// SanitizeToEnglish lightly translates the typical Japanese style terms in a
// prompt so the body stays in English.
func SanitizeToEnglish(text string) string {
	return englishReplacer.Replace(text)
}

var sentenceDelimiter = regexp.MustCompile(`[。.]\s*`)

// SentenceDetails splits a text on sentence punctuation and returns the
// trimmed non-empty fragments. A text with no delimiters yields itself as
// the single detail.
func SentenceDetails(text string) []string {
	parts := sentenceDelimiter.Split(text, -1)
	details := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, " .　")
		if p != "" {
			details = append(details, p)
		}
	}
	if len(details) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return details
}

// BuildMovieJSONPayload wraps a summary under the given top-level key
// (world_description or storyboard) in the movie prompt wire format.
func BuildMovieJSONPayload(summary, scope, key string) string {
	payload := map[string]map[string]string{
		key: {
			"scope":   scope,
			"summary": strings.TrimSpace(summary),
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

// ComposeMoviePrompt joins the core JSON with the optional trailing parts
// (video style block, content flags block, option tail), skipping the ones
// that are empty.
func ComposeMoviePrompt(coreJSON, movieTail, flagsTail, optionsTail string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{coreJSON, strings.TrimSpace(movieTail), strings.TrimSpace(flagsTail), strings.TrimSpace(optionsTail)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
