package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// AttributeCondition weights fragment generation toward one attribute.
type AttributeCondition struct {
	AttributeName  string `json:"attributeName"`
	Detail         string `json:"detail"`
	RequestedCount int    `json:"requestedCount,omitempty"`
}

// FragmentsInput generates free-form prompt fragments from attribute
// conditions, exclusion words, and a 1-10 chaos level that steers the
// effective sampling temperature.
type FragmentsInput struct {
	Model               string               `json:"model,omitempty"`
	TotalLines          int                  `json:"totalLines"`
	AttributeConditions []AttributeCondition `json:"attributeConditions,omitempty"`
	ExclusionWords      []string             `json:"exclusionWords,omitempty"`
	ChaosLevel          int                  `json:"chaosLevel"`
	OutputLanguage      string               `json:"outputLanguage,omitempty"`
}

func clampChaosLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 10 {
		return 10
	}
	return level
}

// EffectiveTemperature maps a 1-10 chaos level to a temperature offset
// around the configured baseline, clamped to [0.1, 1.5]. Level 5 is neutral.
func EffectiveTemperature(base float64, chaosLevel int) float64 {
	const (
		centerLevel = 5.0
		span        = 0.6
	)
	delta := (float64(clampChaosLevel(chaosLevel)) - centerLevel) / 9.0
	temp := base + delta*span
	if temp < 0.1 {
		return 0.1
	}
	if temp > 1.5 {
		return 1.5
	}
	return temp
}

func chaosDescription(level int) string {
	switch {
	case level <= 2:
		return "very stable, low randomness"
	case level <= 4:
		return "mild variation with mostly stable structure"
	case level <= 6:
		return "noticeable creative variation without losing overall coherence"
	case level <= 8:
		return "strongly varied, experimental compositions"
	default:
		return "maximum chaos: wild, highly unexpected compositions and mixtures"
	}
}

func (s *Service) Fragments(ctx context.Context, in FragmentsInput) Outcome {
	totalLines := in.TotalLines
	if totalLines < 1 {
		totalLines = 1
	}
	chaosLevel := clampChaosLevel(in.ChaosLevel)
	effectiveTemp := EffectiveTemperature(s.cfg.Temperature, chaosLevel)

	var attrLines []string
	for _, cond := range in.AttributeConditions {
		if cond.RequestedCount > 0 {
			attrLines = append(attrLines, fmt.Sprintf("- %s (attribute: %s, approx %d fragments)",
				cond.Detail, cond.AttributeName, cond.RequestedCount))
		} else {
			attrLines = append(attrLines, fmt.Sprintf("- %s (attribute: %s)", cond.Detail, cond.AttributeName))
		}
	}
	attrBlock := "- (no specific attribute constraints; freely mix subjects, environments, materials and styles)"
	if len(attrLines) > 0 {
		attrBlock = strings.Join(attrLines, "\n")
	}

	exclBlock := "(none)"
	if len(in.ExclusionWords) > 0 {
		seen := map[string]bool{}
		var words []string
		for _, w := range in.ExclusionWords {
			if w != "" && !seen[w] {
				seen[w] = true
				words = append(words, w)
			}
		}
		sort.Strings(words)
		if len(words) > 0 {
			exclBlock = strings.Join(words, ", ")
		}
	}

	label := "English"
	sentence := "Output language: English. Return only English text in each fragment; do not append Japanese translations."
	if normalizeLanguage(in.OutputLanguage) == "ja" {
		label = "Japanese"
		sentence = "Output language: Japanese. Return only Japanese text in each fragment; do not append English translations."
	}

	systemPrompt := "You generate diverse, high-quality prompt fragments for image generation models like Midjourney. " +
		"Follow the requested attribute mix and avoid forbidden words while keeping outputs concise and visual. " +
		sentence
	userPrompt := fmt.Sprintf(
		"Generate %d distinct prompt fragments for image generation in %s.\n"+
			"Formatting rules:\n"+
			"- Output exactly one fragment per line.\n"+
			"- Do NOT prepend numbers, bullets, or labels.\n"+
			"- Each fragment should be a single concise sentence, compatible with Midjourney-style prompts.\n"+
			"- Avoid producing identical fragments.\n\n"+
			"Chaos control:\n"+
			"- Chaos level: %d (%s).\n"+
			"- Lower levels (1-3) should keep structure and style relatively consistent across fragments.\n"+
			"- Medium levels (4-6) may change composition and style moderately, but keep subjects readable and not absurd.\n"+
			"- Higher levels (7-10) may aggressively remix subjects, environments and materials; allow unusual angles and combinations.\n"+
			"- At level 5 or above, ensure fragments feel clearly distinct and non-repetitive.\n\n"+
			"Attribute preferences (approximate distribution across the fragments):\n"+
			"%s\n\n"+
			"Words or themes to avoid (if these substrings appear, treat it as a hard prohibition): %s\n\n"+
			"If no attributes are given, create a varied but coherent mix of subjects, environments, materials, and visual styles.",
		totalLines, label, chaosLevel, chaosDescription(chaosLevel), attrBlock, exclBlock,
	)

	return s.dispatch(ctx, "fragments", in.Model, systemPrompt, userPrompt,
		effectiveTemp, "reduce the line count or shorten the prompt and retry")
}
