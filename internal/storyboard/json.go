package storyboard

import (
	"encoding/json"
	"regexp"
	"strings"
)

type wireCut struct {
	Index              int      `json:"index"`
	StartSec           float64  `json:"start_sec"`
	DurationSec        float64  `json:"duration_sec"`
	Description        string   `json:"description"`
	CameraWork         string   `json:"camera_work,omitempty"`
	Characters         []string `json:"characters,omitempty"`
	IsImagePlaceholder bool     `json:"is_image_placeholder,omitempty"`
}

type wireStoryboard struct {
	TotalDurationSec   float64   `json:"total_duration_sec"`
	Template           string    `json:"template"`
	Cuts               []wireCut `json:"cuts"`
	ContinuityEnhanced bool      `json:"continuity_enhanced,omitempty"`
}

type wireVideoPrompt struct {
	Storyboard   wireStoryboard  `json:"storyboard"`
	VideoStyle   json.RawMessage `json:"video_style,omitempty"`
	ContentFlags json.RawMessage `json:"content_flags,omitempty"`
}

type wireEnvelope struct {
	VideoPrompt wireVideoPrompt `json:"video_prompt"`
}

// BuildJSON renders the finalized storyboard in the video_prompt envelope
// consumed by export. Static camera work and empty character lists are
// omitted per cut; video style and content flags pass through opaquely.
func BuildJSON(
	cuts []Cut,
	totalDurationSec float64,
	templateID string,
	videoStyle, contentFlags json.RawMessage,
	continuityEnhanced bool,
) (string, error) {
	wireCuts := make([]wireCut, 0, len(cuts))
	for _, cut := range cuts {
		wc := wireCut{
			Index:              cut.Index,
			StartSec:           cut.StartSec,
			DurationSec:        cut.DurationSec,
			Description:        cut.Description,
			Characters:         cut.Characters,
			IsImagePlaceholder: cut.IsImagePlaceholder,
		}
		if cut.CameraWork != "" && cut.CameraWork != "static" {
			wc.CameraWork = cut.CameraWork
		}
		wireCuts = append(wireCuts, wc)
	}

	envelope := wireEnvelope{
		VideoPrompt: wireVideoPrompt{
			Storyboard: wireStoryboard{
				TotalDurationSec:   totalDurationSec,
				Template:           templateID,
				Cuts:               wireCuts,
				ContinuityEnhanced: continuityEnhanced,
			},
			VideoStyle:   videoStyle,
			ContentFlags: contentFlags,
		},
	}
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var (
	videoStylePattern   = regexp.MustCompile(`\{[^{}]*"video_style"\s*:\s*\{[^{}]*\}[^{}]*\}`)
	contentFlagsPattern = regexp.MustCompile(`\{[^{}]*"content_flags"\s*:\s*\{[^{}]*\}[^{}]*\}`)
)

// Metadata is what ExtractPromptMetadata recovers from a prompt: the style
// and flag objects (nil when absent) plus the text with both removed.
type Metadata struct {
	VideoStyle   json.RawMessage
	ContentFlags json.RawMessage
	Remaining    string
}

// ExtractPromptMetadata pulls video_style and content_flags out of prompt
// text. A full video_prompt JSON document is recognized first; otherwise
// embedded single-level metadata objects are located by pattern and cut out
// of the surrounding text. Consumers must tolerate either key being absent.
func ExtractPromptMetadata(text string) Metadata {
	if meta, ok := metadataFromEnvelope(text); ok {
		return meta
	}

	remaining := text
	var videoStyle, contentFlags json.RawMessage

	if span := videoStylePattern.FindStringIndex(remaining); span != nil {
		candidate := remaining[span[0]:span[1]]
		var parsed struct {
			VideoStyle json.RawMessage `json:"video_style"`
		}
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			videoStyle = parsed.VideoStyle
			remaining = remaining[:span[0]] + remaining[span[1]:]
		}
	}
	if span := contentFlagsPattern.FindStringIndex(remaining); span != nil {
		candidate := remaining[span[0]:span[1]]
		var parsed struct {
			ContentFlags json.RawMessage `json:"content_flags"`
		}
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			contentFlags = parsed.ContentFlags
			remaining = remaining[:span[0]] + remaining[span[1]:]
		}
	}

	return Metadata{
		VideoStyle:   videoStyle,
		ContentFlags: contentFlags,
		Remaining:    normalizeSpaces(remaining),
	}
}

func metadataFromEnvelope(text string) (Metadata, bool) {
	var parsed struct {
		VideoPrompt *struct {
			VideoStyle       json.RawMessage `json:"video_style"`
			ContentFlags     json.RawMessage `json:"content_flags"`
			Prompt           string          `json:"prompt"`
			WorldDescription *struct {
				Summary string `json:"summary"`
			} `json:"world_description"`
		} `json:"video_prompt"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil || parsed.VideoPrompt == nil {
		return Metadata{}, false
	}
	vp := parsed.VideoPrompt
	remaining := vp.Prompt
	if remaining == "" && vp.WorldDescription != nil {
		remaining = vp.WorldDescription.Summary
	}
	return Metadata{
		VideoStyle:   vp.VideoStyle,
		ContentFlags: vp.ContentFlags,
		Remaining:    normalizeSpaces(remaining),
	}, true
}

func normalizeSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
