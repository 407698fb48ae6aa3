package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Character identifies one roster entry the storyboard may reference.
type Character struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Pronoun3rd string `json:"pronoun3rd,omitempty"`
}

// StoryboardInput splits a prompt into cinematic cuts. With AutoStructure
// set, the model chooses the cut count and total duration within the given
// bounds; otherwise the cut count and duration are fixed by the caller.
type StoryboardInput struct {
	Text               string          `json:"text"`
	Model              string          `json:"model,omitempty"`
	CutCount           int             `json:"cutCount,omitempty"`
	TotalDurationSec   float64         `json:"totalDurationSec,omitempty"`
	OutputLanguage     string          `json:"outputLanguage,omitempty"`
	ContinuityEnhanced bool            `json:"continuityEnhanced,omitempty"`
	VideoStyle         json.RawMessage `json:"videoStyle,omitempty"`
	ContentFlags       json.RawMessage `json:"contentFlags,omitempty"`
	LengthLimit        int             `json:"lengthLimit,omitempty"`
	AutoStructure      bool            `json:"autoStructure,omitempty"`
	CutCountMin        int             `json:"cutCountMin,omitempty"`
	CutCountMax        int             `json:"cutCountMax,omitempty"`
	MinDurationSec     float64         `json:"minDurationSec,omitempty"`
	MaxDurationSec     float64         `json:"maxDurationSec,omitempty"`
	DefaultDurationSec float64         `json:"defaultDurationSec,omitempty"`
	Characters         []Character     `json:"characters,omitempty"`
}

func (s *Service) Storyboard(ctx context.Context, in StoryboardInput) Outcome {
	systemPrompt, userPrompt := s.buildStoryboardPrompts(in)
	return s.dispatch(ctx, "storyboard", in.Model, systemPrompt, userPrompt,
		s.cfg.Temperature, "reduce the cut count and retry")
}

func (s *Service) buildStoryboardPrompts(in StoryboardInput) (string, string) {
	sb := s.cfg.Storyboard

	cutCount := in.CutCount
	if cutCount < 1 {
		cutCount = sb.DefaultCutCount
	}
	lengthLimit := in.LengthLimit
	if lengthLimit == 0 {
		lengthLimit = sb.SafeChars
	}
	cutCountMin := in.CutCountMin
	if cutCountMin == 0 {
		cutCountMin = sb.AutoMinCuts
	}
	cutCountMax := in.CutCountMax
	if cutCountMax == 0 {
		cutCountMax = sb.AutoMaxCuts
	}
	minDuration := in.MinDurationSec
	if minDuration == 0 {
		minDuration = sb.AutoMinDuration
	}
	maxDuration := in.MaxDurationSec
	if maxDuration == 0 {
		maxDuration = sb.AutoMaxDuration
	}
	defaultDuration := in.DefaultDurationSec
	if defaultDuration == 0 {
		defaultDuration = sb.DefaultDurationSec
	}

	continuityInstruction := ""
	if in.ContinuityEnhanced {
		continuityInstruction = "CONTINUITY ENHANCEMENT MODE: Each cut (except the first) must begin with a smooth, " +
			"natural transition from the previous scene. Do NOT use template phrases like " +
			"'Continuing from...' or 'Following...'. Instead, weave the transition INTO the " +
			"description itself. For example, if cut 1 shows 'dawn breaking over Tokyo', " +
			"cut 2 should start with something like 'As the morning light strengthens, the city awakens...' " +
			"The transition should feel organic, as if the camera naturally drifts from one scene to the next. "
	}

	hasStyleContext := len(in.VideoStyle) > 0 || len(in.ContentFlags) > 0
	styleInstruction := ""
	if hasStyleContext {
		styleInstruction = "STYLE REFLECTION MODE: Use the provided video_style and/or content_flags as background context. " +
			"Let these guide the mood, lighting, camera preferences, and presence of characters or audio elements " +
			"in each cut description. Do NOT simply repeat this metadata; instead, subtly incorporate it into " +
			"the visual description so the generated cuts naturally align with the intended style and constraints. "
	}

	systemPrompt := "You are a professional storyboard writer for video production. " +
		"Your task is to split a given image prompt into multiple cinematic cuts for a short video. " +
		"Each cut should be a vivid, visual description suitable for AI video generation. " +
		"CRITICAL: You MUST preserve the original language of the source prompt. " +
		"If the source is in Japanese, write descriptions in Japanese. " +
		"If the source is in English, write descriptions in English. " +
		"Do NOT translate or change the language. " +
		continuityInstruction + styleInstruction

	continuityRule := ""
	if in.ContinuityEnhanced {
		continuityRule = "- CONTINUITY: Each cut after the first MUST begin by describing a smooth, natural transition " +
			"from the previous scene. Weave the transition into the description itself, not as a prefix. " +
			"The viewer should feel the camera flowing from one scene to the next.\n"
	}

	styleContext := ""
	if hasStyleContext {
		var parts []string
		if len(in.VideoStyle) > 0 {
			parts = append(parts, "video_style: "+string(in.VideoStyle))
		}
		if len(in.ContentFlags) > 0 {
			parts = append(parts, "content_flags: "+string(in.ContentFlags))
		}
		styleContext = "Background context (use subtly, do NOT copy verbatim):\n" + strings.Join(parts, "\n") + "\n\n"
	}

	characterContext := buildCharacterContext(in.Characters)

	lengthRule := ""
	if lengthLimit > 0 {
		estimatedCuts := cutCount
		if in.AutoStructure {
			mid := (cutCountMin + cutCountMax) / 2
			if mid < cutCountMin {
				mid = cutCountMin
			}
			if mid > cutCountMax {
				mid = cutCountMax
			}
			estimatedCuts = mid
		}
		if estimatedCuts < 1 {
			estimatedCuts = 1
		}
		perCutHint := (lengthLimit - 200) / estimatedCuts
		if perCutHint < 30 {
			perCutHint = 30
		}
		lengthRule = fmt.Sprintf(
			"- LENGTH: Keep the ENTIRE JSON (including brackets/keys) under %d characters.\n"+
				"- If shortening is needed, reduce only the \"description\" fields; keep cut count, indices, and camera keys intact.\n"+
				"- Aim each description to stay within ~%d characters; use concise cinematic wording.\n",
			lengthLimit, perCutHint,
		)
	}

	if in.AutoStructure {
		minCuts := cutCountMin
		if minCuts < 2 {
			minCuts = 2
		}
		maxCuts := cutCountMax
		if maxCuts < minCuts {
			maxCuts = minCuts
		}
		if minDuration < 1.0 {
			minDuration = 1.0
		}
		if maxDuration < minDuration+1.0 {
			maxDuration = minDuration + 1.0
		}
		targetDuration := defaultDuration
		if targetDuration < minDuration {
			targetDuration = minDuration
		}
		if targetDuration > maxDuration {
			targetDuration = maxDuration
		}

		userPrompt := fmt.Sprintf(
			"Analyze the following image prompt and DESIGN the storyboard structure automatically.\n"+
				"- Decide the number of cuts between %d and %d based on complexity and pacing.\n"+
				"- Choose a total video duration between %g and %g seconds; if uncertain, stay near %g seconds.\n"+
				"- Allocate time unevenly if needed (openings/endings can be longer, transitions shorter).\n"+
				"- HARD CONSTRAINT: After rounding each duration_sec to 2 decimals, the SUM of all duration_sec MUST EQUAL total_duration_sec EXACTLY (no over/under).\n"+
				"- If rounding creates any mismatch, adjust ONLY the LAST cut's duration_sec so the sum becomes exact.\n"+
				"- Avoid ultra-short cuts (<0.5s) unless necessary for montage feel.\n\n"+
				"%s%s"+
				"Rules:\n"+
				"- IMPORTANT: Preserve the original language of the source prompt. Do NOT translate.\n"+
				"- Each cut should be a complete, vivid visual description.\n"+
				"%s"+
				"- Include camera movement suggestions where appropriate (zoom, pan, tracking, etc.).\n"+
				"- The first cut should establish the scene.\n"+
				"- The final cut should provide a sense of conclusion or climax.\n"+
				"%s\n"+
				"Output format (JSON object):\n"+
				"{\n"+
				"  \"total_duration_sec\": <number>,\n"+
				"  \"cuts\": [\n"+
				"    {\"cut\": 1, \"duration_sec\": <number>, \"description\": \"...\", \"camera\": \"static|pan|zoom_in|zoom_out|tracking|dolly|handheld|drone\"},\n"+
				"    {\"cut\": 2, \"duration_sec\": <number>, \"description\": \"...\", \"camera\": \"...\"}\n"+
				"  ]\n"+
				"}\n\n"+
				"Source prompt:\n%s",
			minCuts, maxCuts, minDuration, maxDuration, targetDuration,
			styleContext, characterContext, continuityRule, lengthRule, in.Text,
		)
		return systemPrompt, userPrompt
	}

	totalDuration := in.TotalDurationSec
	if totalDuration <= 0 {
		totalDuration = defaultDuration
	}
	durationPerCut := round2(totalDuration / float64(cutCount))
	userPrompt := fmt.Sprintf(
		"Split the following image prompt into exactly %d cinematic cuts.\n"+
			"Total video duration: %g seconds.\n"+
			"Each cut should be approximately %g seconds.\n"+
			"HARD CONSTRAINT: Keep the action density per cut realistic for its duration so the whole storyboard fits the total duration.\n\n"+
			"%s%s"+
			"Rules:\n"+
			"- IMPORTANT: Preserve the original language of the source prompt. Do NOT translate.\n"+
			"- Each cut should be a complete, vivid visual description.\n"+
			"%s"+
			"- Include camera movement suggestions where appropriate (zoom, pan, tracking, etc.).\n"+
			"- The first cut should establish the scene.\n"+
			"- The final cut should provide a sense of conclusion or climax.\n"+
			"%s\n"+
			"Output format (JSON array):\n"+
			"[\n"+
			"  {\"cut\": 1, \"description\": \"...\", \"camera\": \"static|pan|zoom_in|zoom_out|tracking|dolly|handheld|drone\"},\n"+
			"  {\"cut\": 2, \"description\": \"...\", \"camera\": \"...\"},\n"+
			"  ...\n"+
			"]\n\n"+
			"Source prompt:\n%s",
		cutCount, totalDuration, durationPerCut,
		styleContext, characterContext, continuityRule, lengthRule, in.Text,
	)
	return systemPrompt, userPrompt
}

func buildCharacterContext(characters []Character) string {
	var lines []string
	for _, char := range characters {
		if char.ID == "" {
			continue
		}
		info := "  - ID: " + char.ID
		if char.Name != "" {
			info += fmt.Sprintf(" (name: %s)", char.Name)
		}
		if char.Pronoun3rd != "" {
			info += fmt.Sprintf(" (pronoun: %s)", char.Pronoun3rd)
		}
		lines = append(lines, info)
	}
	if len(lines) == 0 {
		return ""
	}
	return "CHARACTERS in this video:\n" + strings.Join(lines, "\n") + "\n\n" +
		"CHARACTER RULES:\n" +
		"- When a character appears in a cut, use their ID (e.g. @ex.abc) as their name in the description.\n" +
		"- CRITICAL: Always surround the ID with spaces on both sides (e.g. ' @ex.abc ').\n" +
		"- Do NOT mention a character in cuts where they do not appear.\n" +
		"- Prefer using the ID over pronouns for the first mention in each cut.\n" +
		"- After the first mention, you may use pronouns if appropriate.\n" +
		"- Example: '@ex.abc is surprised and jumps up, dropping the juice he was holding.'\n\n"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
