package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"promptforge/internal/prompttext"
)

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// LengthAdjustInput asks for a rewrite that changes only the length of the
// text while preserving meaning, style, and technical parameters.
type LengthAdjustInput struct {
	Text           string `json:"text"`
	Model          string `json:"model,omitempty"`
	LengthHint     string `json:"lengthHint"`
	LengthLimit    int    `json:"lengthLimit,omitempty"`
	OutputLanguage string `json:"outputLanguage,omitempty"`
}

func (s *Service) LengthAdjust(ctx context.Context, in LengthAdjustInput) Outcome {
	label, sentence := languageDirectives(in.OutputLanguage)

	systemPrompt := "You are a text length adjustment specialist. Keep style but meet length hint." +
		limitInstruction(in.LengthLimit) +
		fmt.Sprintf("\nRespond strictly in %s.", label)
	userPrompt := fmt.Sprintf(
		"Length adjustment request (target: %s)\n"+
			"Instruction: Adjust length ONLY. Preserve meaning, style, and technical parameters.\n"+
			"%s\n"+
			"Text: %s",
		in.LengthHint, sentence, in.Text,
	)

	return s.dispatch(ctx, "length_adjust", in.Model, systemPrompt, userPrompt,
		s.cfg.Temperature, "shorten the text and retry")
}

// WorldBuildingInput asks for disjoint visual fragments to be refined into
// one coherent world description for a short clip.
type WorldBuildingInput struct {
	Text           string   `json:"text"`
	Model          string   `json:"model,omitempty"`
	Details        []string `json:"details,omitempty"`
	VideoStyle     string   `json:"videoStyle,omitempty"`
	ContentFlags   string   `json:"contentFlags,omitempty"`
	LengthLimit    int      `json:"lengthLimit,omitempty"`
	OutputLanguage string   `json:"outputLanguage,omitempty"`
}

func (s *Service) WorldBuilding(ctx context.Context, in WorldBuildingInput) Outcome {
	label, sentence := languageDirectives(in.OutputLanguage)

	detailLines := make([]string, 0, len(in.Details))
	for _, d := range in.Details {
		detailLines = append(detailLines, "- "+d)
	}

	styleContext := styleContextBlock(
		in.VideoStyle,
		"IMPORTANT: Adapt the visual description (lighting, camera movement, atmosphere) "+
			"to strictly match the parameters defined in the Target Video Style above.",
		in.ContentFlags,
		"IMPORTANT: Reflect these audio/subtitle/text overlay indicators explicitly in the rewritten description.",
	)

	limit := limitInstruction(in.LengthLimit)
	systemPrompt := fmt.Sprintf(
		"You refine disjoint visual fragments into one coherent world description for a single 10-second cinematic clip. "+
			"Focus on the most impactful visual elements and atmosphere to fit the short duration. "+
			"Do not narrate events in sequence; describe one continuous world in natural %s.%s\n%s",
		label, limit, sentence,
	)
	userPrompt := fmt.Sprintf(
		"Convert the following fragments into a single connected world description that fits a 10-second video.\n"+
			"Omit minor details to keep it concise and impactful.\n"+
			"%s"+
			"Source summary: %s\n"+
			"Fragments:\n%s\n"+
			"%s\n"+
			"Output one concise paragraph that links every fragment into one world.%s",
		styleContext, in.Text, strings.Join(detailLines, "\n"), sentence, limit,
	)

	return s.dispatch(ctx, "world_building", in.Model, systemPrompt, userPrompt,
		s.cfg.Temperature, "shorten the text and retry")
}

// ChaosMixInput forces every fragment of a prompt to coexist in the same
// physical location and moment, as one overwhelming scene.
type ChaosMixInput struct {
	Text           string   `json:"text"`
	Model          string   `json:"model,omitempty"`
	Fragments      []string `json:"fragments,omitempty"`
	VideoStyle     string   `json:"videoStyle,omitempty"`
	ContentFlags   string   `json:"contentFlags,omitempty"`
	LengthLimit    int      `json:"lengthLimit,omitempty"`
	OutputLanguage string   `json:"outputLanguage,omitempty"`
}

func (s *Service) ChaosMix(ctx context.Context, in ChaosMixInput) Outcome {
	label, sentence := languageDirectives(in.OutputLanguage)

	var detailLines []string
	for _, fragment := range in.Fragments {
		if fragment == "" {
			continue
		}
		detailLines = append(detailLines, "- "+prompttext.SanitizeToEnglish(fragment))
	}
	if len(detailLines) == 0 {
		detailLines = []string{"- (no sentence split detected)"}
	}

	anchors := prompttext.ExtractAnchorTerms(in.Text, 8)
	anchorLine := "(none)"
	if len(anchors) > 0 {
		anchorLine = strings.Join(anchors, ", ")
	}

	styleContext := styleContextBlock(
		in.VideoStyle,
		"IMPORTANT: Even though this is a chaotic blended scene, camera work, lighting and atmosphere\n"+
			"must still follow the Target Video Style above.",
		in.ContentFlags,
		"IMPORTANT: Preserve these audio/subtitle/text overlay requirements within the chaotic blended scene.",
	)

	limit := ""
	if in.LengthLimit > 0 {
		limit = fmt.Sprintf("\nIMPORTANT: Keep the final description under %d characters.", in.LengthLimit)
	}

	systemPrompt := fmt.Sprintf(
		"You are a chaotic scene blender. Force every fragment from a Midjourney prompt to coexist in the same physical location and the same moment. "+
			"Describe the result as one vivid, continuous tableau packed with overlapping motifs, lighting, and props. "+
			"Keep syntax clean, keep it in %s, and never drop the essential nouns from the source.%s\n%s",
		label, limit, sentence,
	)
	userPrompt := fmt.Sprintf(
		"Task: Smash all fragments into a single overwhelming scene. Every subject must appear simultaneously; do NOT split into multiple shots.\n"+
			"- Mention the collisions and impossible overlaps explicitly.\n"+
			"- Keep anchor terms verbatim where possible.\n"+
			"- Treat lighting/atmosphere cues as happening together.\n"+
			"- Output exactly one paragraph in %s.\n"+
			"Nonce: %s\n"+
			"%s"+
			"Original prompt body:\n%s\n\n"+
			"Sentence fragments:\n%s\n"+
			"Anchor terms: %s\n"+
			"Output:",
		label, newNonce(), styleContext,
		prompttext.SanitizeToEnglish(in.Text),
		strings.Join(detailLines, "\n"), anchorLine,
	)

	return s.dispatch(ctx, "chaos_mix", in.Model, systemPrompt, userPrompt,
		s.cfg.Temperature, "shorten the text and retry")
}

// styleContextBlock renders the optional video style and content flag
// sections shared by several builders. Empty inputs contribute nothing.
func styleContextBlock(videoStyle, styleNote, contentFlags, flagsNote string) string {
	styleSection := ""
	if videoStyle != "" {
		styleSection = fmt.Sprintf("\n\n[Target Video Style]\n%s\n%s", videoStyle, styleNote)
	}
	flagsSection := ""
	if contentFlags != "" {
		flagsSection = fmt.Sprintf("\n\n[Content Flags]\n%s\n%s", contentFlags, flagsNote)
	}
	if styleSection == "" && flagsSection == "" {
		return ""
	}
	return styleSection + flagsSection + "\n"
}
