package generate

import (
	"context"
	"fmt"
	"strings"

	"promptforge/internal/prompttext"
)

// Length targets accepted by ArrangeInput.LengthAdjust.
var lengthMultipliers = map[string]float64{
	"half":    0.5,
	"shorter": 0.8,
	"same":    1.0,
	"longer":  1.2,
	"double":  2.0,
}

var blendWeights = map[int]int{0: 20, 1: 35, 2: 65, 3: 80}

var strengthDescriptions = map[int]string{
	0: "Apply very subtle, minimal changes. Keep almost everything the same, just minor word improvements.",
	1: "Apply gentle, tasteful variations. Improve wording and style while keeping the core concept intact.",
	2: "Apply moderate creative variations. Enhance style, add vivid descriptors, and improve composition.",
	3: "Apply bold, creative transformations. Enhance style and add dramatic descriptors while preserving the original subject and key elements.",
}

var guidanceInstructions = map[int]string{
	0: "Apply guidance very subtly if at all. Focus on minimal improvements.",
	1: "Apply guidance gently. Blend it subtly with the original content.",
	2: "Apply guidance moderately. Enhance the style while keeping core elements.",
}

// ArrangeInput rewrites a prompt at a chosen strength, blending optional
// guidance with the original content while keeping anchor terms verbatim.
type ArrangeInput struct {
	Text           string `json:"text"`
	Model          string `json:"model,omitempty"`
	PresetLabel    string `json:"presetLabel,omitempty"`
	Strength       int    `json:"strength"`
	Guidance       string `json:"guidance,omitempty"`
	LengthAdjust   string `json:"lengthAdjust,omitempty"`
	LengthLimit    int    `json:"lengthLimit,omitempty"`
	OutputLanguage string `json:"outputLanguage,omitempty"`
}

func (s *Service) Arrange(ctx context.Context, in ArrangeInput) Outcome {
	strength := in.Strength
	if strength < 0 || strength > 3 {
		strength = 2
	}

	originalLength := len([]rune(in.Text))
	multiplier, ok := lengthMultipliers[in.LengthAdjust]
	if !ok {
		multiplier = 1.0
	}
	targetLength := int(float64(originalLength) * multiplier)

	blendWeight := blendWeights[strength]
	anchors := prompttext.ExtractAnchorTerms(in.Text, 8)
	hybridCues := prompttext.GenerateHybridCues(anchors, in.PresetLabel, in.Guidance, 5)
	mustKeep := 3
	if strength > 2 {
		mustKeep = 2
	}

	direction := "similar"
	if targetLength < originalLength {
		direction = "shorter"
	} else if targetLength > originalLength {
		direction = "longer"
	}

	_, sentence := languageDirectives(in.OutputLanguage)
	limit := limitInstruction(in.LengthLimit)
	nonce := newNonce()

	var systemPrompt string
	var user strings.Builder

	if strength == 3 {
		systemPrompt = fmt.Sprintf(
			"You are a creative prompt artist. Transform this Midjourney prompt with %s "+
				"If guidance is provided, it SHOULD influence style but MUST BLEND with the original content. "+
				"Do NOT eliminate original cultural/subject elements; preserve and merge them with the guidance. "+
				"Be BOLD and CREATIVE - enhance the visual style with dramatic effects and vivid cinematic language. "+
				"Output only the transformed prompt.%s\n%s",
			strengthDescriptions[3], limit, sentence,
		)
		fmt.Fprintf(&user, "Preset: %s, Strength: %d (MAXIMUM CREATIVITY)\n", in.PresetLabel, strength)
		fmt.Fprintf(&user, "Nonce: %s\n", nonce)
		if in.Guidance != "" {
			fmt.Fprintf(&user, "Guidance: %s\n", in.Guidance)
		}
	} else {
		systemPrompt = fmt.Sprintf(
			"Rewrite Midjourney prompts with %s %s Keep core content. Output only the prompt.%s\n%s",
			strengthDescriptions[strength], guidanceInstructions[strength], limit, sentence,
		)
		fmt.Fprintf(&user, "Preset: %s, Strength: %d (0=minimal, 3=bold)\n", in.PresetLabel, strength)
		fmt.Fprintf(&user, "Nonce: %s\n", nonce)
		if in.Guidance != "" {
			fmt.Fprintf(&user, "Guidance: %s\n", in.Guidance)
		}
		fmt.Fprintf(&user, "Guidance instruction: %s\n", guidanceInstructions[strength])
	}

	fmt.Fprintf(&user, "Blend weight target: ~%d%% guidance / ~%d%% original\n", blendWeight, 100-blendWeight)
	if len(anchors) > 0 {
		fmt.Fprintf(&user, "Anchor terms (verbatim): %s\n", strings.Join(anchors, ", "))
	}
	fmt.Fprintf(&user, "CRITICAL: Include at least %d of the anchor terms verbatim. Keep the original subject and cultural motifs.\n", mustKeep)
	if len(hybridCues) > 0 {
		fmt.Fprintf(&user, "Hybridization suggestions: %s\n", strings.Join(hybridCues, "; "))
	}
	fmt.Fprintf(&user, "Length adjustment: %s (target: ~%d chars, original: %d chars)\n", in.LengthAdjust, targetLength, originalLength)
	fmt.Fprintf(&user, "CRITICAL: Make the output %s than the original\n", direction)
	fmt.Fprintf(&user, "%s\n", sentence)
	fmt.Fprintf(&user, "Prompt: %s%s", in.Text, limit)

	return s.dispatch(ctx, "arrange", in.Model, systemPrompt, user.String(),
		s.cfg.Temperature, "shorten the text and retry")
}
