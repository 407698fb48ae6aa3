package model

import "encoding/json"

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}

type PromptTextRequest struct {
	Text string `json:"text"`
}

type SplitResponse struct {
	MainText    string `json:"main_text"`
	OptionsTail string `json:"options_tail"`
	HasOptions  bool   `json:"has_options"`
}

type StripResponse struct {
	Text string `json:"text"`
}

type InheritRequest struct {
	Original  string `json:"original"`
	Candidate string `json:"candidate"`
}

type InheritResponse struct {
	Text string `json:"text"`
}

type MetadataRequest struct {
	Text        string `json:"text"`
	RequiredKey string `json:"required_key,omitempty"`
}

type MetadataResponse struct {
	RemainingText string          `json:"remaining_text"`
	Block         json.RawMessage `json:"block,omitempty"`
	Found         bool            `json:"found"`
}

type AnchorsRequest struct {
	Text     string `json:"text"`
	MaxTerms int    `json:"max_terms,omitempty"`
}

type AnchorsResponse struct {
	Anchors []string `json:"anchors"`
}

type CuesRequest struct {
	Anchors     []string `json:"anchors,omitempty"`
	Text        string   `json:"text,omitempty"`
	PresetLabel string   `json:"preset_label,omitempty"`
	Guidance    string   `json:"guidance,omitempty"`
	MaxItems    int      `json:"max_items,omitempty"`
}

type CuesResponse struct {
	Style string   `json:"style"`
	Cues  []string `json:"cues"`
}

type ComposeRequest struct {
	CoreJSON    string `json:"core_json,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Key         string `json:"key,omitempty"`
	MovieTail   string `json:"movie_tail,omitempty"`
	FlagsTail   string `json:"flags_tail,omitempty"`
	OptionsTail string `json:"options_tail,omitempty"`
}

type ComposeResponse struct {
	Text string `json:"text"`
}

type StoryboardCut struct {
	Index              int      `json:"index"`
	StartSec           float64  `json:"start_sec"`
	DurationSec        float64  `json:"duration_sec"`
	Description        string   `json:"description"`
	CameraWork         string   `json:"camera_work,omitempty"`
	Characters         []string `json:"characters,omitempty"`
	IsImagePlaceholder bool     `json:"is_image_placeholder,omitempty"`
}

type StoryboardAllocateRequest struct {
	Template         string    `json:"template,omitempty"`
	TotalDurationSec float64   `json:"total_duration_sec"`
	CutCount         int       `json:"cut_count,omitempty"`
	ModelDurations   []float64 `json:"model_durations,omitempty"`
}

type StoryboardAllocateResponse struct {
	Template         string          `json:"template"`
	TotalDurationSec float64         `json:"total_duration_sec"`
	Cuts             []StoryboardCut `json:"cuts"`
}

type StoryboardBridgeRequest struct {
	Cuts []StoryboardCut `json:"cuts"`
}

type StoryboardBridgeResponse struct {
	Cuts               []StoryboardCut `json:"cuts"`
	ContinuityEnhanced bool            `json:"continuity_enhanced"`
}

type StoryboardRenderRequest struct {
	Cuts               []StoryboardCut `json:"cuts,omitempty"`
	RawText            string          `json:"raw_text,omitempty"`
	Template           string          `json:"template,omitempty"`
	TotalDurationSec   float64         `json:"total_duration_sec,omitempty"`
	VideoStyle         json.RawMessage `json:"video_style,omitempty"`
	ContentFlags       json.RawMessage `json:"content_flags,omitempty"`
	EnhanceContinuity  bool            `json:"enhance_continuity,omitempty"`
	ContinuityEnhanced bool            `json:"continuity_enhanced,omitempty"`
}

type StoryboardRenderResponse struct {
	JSON string `json:"json"`
}
