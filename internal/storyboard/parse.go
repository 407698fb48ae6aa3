package storyboard

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoCutData is returned when every extraction stage fails to recover a
// usable cut list from a generation result.
var ErrNoCutData = errors.New("no valid cut data in generation result")

var (
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
)

type llmCut struct {
	DurationSec float64  `json:"duration_sec"`
	Description string   `json:"description"`
	CameraWork  string   `json:"camera_work"`
	Camera      string   `json:"camera"`
	Characters  []string `json:"characters"`
}

// ParseLLMCuts recovers a cut list from raw model output. Models wrap the
// JSON in prose or code fences often enough that strict parsing alone is not
// viable, so extraction escalates: strict parse of the whole text, then the
// widest brace-delimited object, then the widest bracket-delimited array.
// Failing all three returns ErrNoCutData. Start times and indexes are left
// for the caller to normalize against its target duration.
func ParseLLMCuts(text string) ([]Cut, error) {
	_, cuts, err := ParseLLMStoryboard(text)
	return cuts, err
}

// ParseLLMStoryboard is ParseLLMCuts plus the model-chosen total duration,
// for auto-structured results where the model decides the timeline length.
// The total is 0 when the payload carried none.
func ParseLLMStoryboard(text string) (float64, []Cut, error) {
	trimmed := strings.TrimSpace(stripCodeFences(text))
	if trimmed == "" {
		return 0, nil, ErrNoCutData
	}

	if total, cuts, ok := cutsFromJSON([]byte(trimmed)); ok {
		return total, cuts, nil
	}
	if span := objectPattern.FindString(trimmed); span != "" {
		if total, cuts, ok := cutsFromJSON([]byte(span)); ok {
			return total, cuts, nil
		}
	}
	if span := arrayPattern.FindString(trimmed); span != "" {
		if total, cuts, ok := cutsFromJSON([]byte(span)); ok {
			return total, cuts, nil
		}
	}
	return 0, nil, ErrNoCutData
}

func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return trimmed
}

// cutsFromJSON accepts the shapes models actually emit: a bare array of
// cuts, an object with a top-level "cuts" array, or the full video_prompt
// envelope.
func cutsFromJSON(data []byte) (float64, []Cut, bool) {
	var bare []llmCut
	if err := json.Unmarshal(data, &bare); err == nil {
		cuts, ok := buildCuts(bare)
		return 0, cuts, ok
	}

	var wrapped struct {
		TotalDurationSec float64  `json:"total_duration_sec"`
		Cuts             []llmCut `json:"cuts"`
		VideoPrompt      struct {
			Storyboard struct {
				TotalDurationSec float64  `json:"total_duration_sec"`
				Cuts             []llmCut `json:"cuts"`
			} `json:"storyboard"`
		} `json:"video_prompt"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return 0, nil, false
	}
	if len(wrapped.Cuts) > 0 {
		cuts, ok := buildCuts(wrapped.Cuts)
		return wrapped.TotalDurationSec, cuts, ok
	}
	cuts, ok := buildCuts(wrapped.VideoPrompt.Storyboard.Cuts)
	return wrapped.VideoPrompt.Storyboard.TotalDurationSec, cuts, ok
}

func buildCuts(raw []llmCut) ([]Cut, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	cuts := make([]Cut, 0, len(raw))
	for i, item := range raw {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			continue
		}
		camera := strings.TrimSpace(item.CameraWork)
		if camera == "" {
			camera = strings.TrimSpace(item.Camera)
		}
		if camera == "" {
			camera = "static"
		}
		cuts = append(cuts, Cut{
			Index:       i,
			DurationSec: item.DurationSec,
			Description: description,
			CameraWork:  camera,
			Characters:  item.Characters,
		})
	}
	if len(cuts) == 0 {
		return nil, false
	}
	return cuts, true
}
