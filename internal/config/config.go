package config

import (
	"errors"
	"os"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

// Config is the immutable runtime configuration. It is assembled once at
// startup and passed by value to the components that need it, so unit tests
// can construct arbitrary configurations without reading process globals.
type Config struct {
	ListenAddr         string
	UpstreamBaseURL    string
	APIKeyEnvName      string
	APIKey             string
	DefaultModel       string
	ResponsesPrefixes  []string
	LengthLimitReasons []string
	MaxOutputTokens    int
	Temperature        float64
	IncludeTemperature bool
	RequestTimeout     time.Duration
	MaxRetries         int
	InitialBackoff     time.Duration
	Storyboard         StoryboardConfig
	LogLevel           string
}

// StoryboardConfig bounds automatic storyboard structuring and the default
// allocation parameters.
type StoryboardConfig struct {
	DefaultDurationSec float64
	DefaultCutCount    int
	AutoMinCuts        int
	AutoMaxCuts        int
	AutoMinDuration    float64
	AutoMaxDuration    float64
	SafeChars          int
}

type envConfig struct {
	ListenAddr             string  `env:"LISTEN_ADDR" envDefault:":8080"`
	UpstreamBaseURL        string  `env:"UPSTREAM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKeyEnvName          string  `env:"API_KEY_ENV" envDefault:"OPENAI_API_KEY"`
	DefaultModel           string  `env:"DEFAULT_MODEL" envDefault:"gpt-4o-mini"`
	ResponsesPrefixes      string  `env:"RESPONSES_MODEL_PREFIXES" envDefault:"gpt-5"`
	LengthLimitReasons     string  `env:"LENGTH_LIMIT_REASONS" envDefault:"length,max_output_tokens"`
	MaxOutputTokens        int     `env:"MAX_OUTPUT_TOKENS" envDefault:"4500"`
	Temperature            float64 `env:"TEMPERATURE" envDefault:"0.7"`
	IncludeTemperature     bool    `env:"INCLUDE_TEMPERATURE" envDefault:"false"`
	RequestTimeoutSeconds  int     `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	MaxRetries             int     `env:"MAX_RETRIES" envDefault:"2"`
	InitialBackoffSeconds  int     `env:"INITIAL_BACKOFF_SECONDS" envDefault:"1"`
	StoryboardDurationSec  float64 `env:"STORYBOARD_DURATION_SEC" envDefault:"10"`
	StoryboardCutCount     int     `env:"STORYBOARD_CUT_COUNT" envDefault:"3"`
	StoryboardAutoMinCuts  int     `env:"STORYBOARD_AUTO_MIN_CUTS" envDefault:"2"`
	StoryboardAutoMaxCuts  int     `env:"STORYBOARD_AUTO_MAX_CUTS" envDefault:"6"`
	StoryboardAutoMinDur   float64 `env:"STORYBOARD_AUTO_MIN_DURATION" envDefault:"1"`
	StoryboardAutoMaxDur   float64 `env:"STORYBOARD_AUTO_MAX_DURATION" envDefault:"30"`
	StoryboardSafeChars    int     `env:"STORYBOARD_SAFE_CHARS" envDefault:"1000"`
	LogLevel               string  `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	keyEnvName := strings.TrimSpace(raw.APIKeyEnvName)
	cfg := Config{
		ListenAddr:         strings.TrimSpace(raw.ListenAddr),
		UpstreamBaseURL:    strings.TrimRight(strings.TrimSpace(raw.UpstreamBaseURL), "/"),
		APIKeyEnvName:      keyEnvName,
		APIKey:             strings.TrimSpace(os.Getenv(keyEnvName)),
		DefaultModel:       strings.TrimSpace(raw.DefaultModel),
		ResponsesPrefixes:  splitList(raw.ResponsesPrefixes),
		LengthLimitReasons: splitList(raw.LengthLimitReasons),
		MaxOutputTokens:    raw.MaxOutputTokens,
		Temperature:        raw.Temperature,
		IncludeTemperature: raw.IncludeTemperature,
		RequestTimeout:     time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		MaxRetries:         raw.MaxRetries,
		InitialBackoff:     time.Duration(raw.InitialBackoffSeconds) * time.Second,
		Storyboard: StoryboardConfig{
			DefaultDurationSec: raw.StoryboardDurationSec,
			DefaultCutCount:    raw.StoryboardCutCount,
			AutoMinCuts:        raw.StoryboardAutoMinCuts,
			AutoMaxCuts:        raw.StoryboardAutoMaxCuts,
			AutoMinDuration:    raw.StoryboardAutoMinDur,
			AutoMaxDuration:    raw.StoryboardAutoMaxDur,
			SafeChars:          raw.StoryboardSafeChars,
		},
		LogLevel: strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.UpstreamBaseURL == "" {
		return errors.New("UPSTREAM_BASE_URL must not be empty")
	}
	if c.APIKeyEnvName == "" {
		return errors.New("API_KEY_ENV must not be empty")
	}
	if c.DefaultModel == "" {
		return errors.New("DEFAULT_MODEL must not be empty")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("MAX_OUTPUT_TOKENS must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxRetries < 0 {
		return errors.New("MAX_RETRIES must be >= 0")
	}
	if c.InitialBackoff <= 0 {
		return errors.New("INITIAL_BACKOFF_SECONDS must be > 0")
	}
	if c.Storyboard.DefaultDurationSec <= 0 {
		return errors.New("STORYBOARD_DURATION_SEC must be > 0")
	}
	if c.Storyboard.DefaultCutCount < 1 {
		return errors.New("STORYBOARD_CUT_COUNT must be >= 1")
	}
	if c.Storyboard.AutoMinCuts < 2 || c.Storyboard.AutoMaxCuts < c.Storyboard.AutoMinCuts {
		return errors.New("storyboard auto cut bounds are inconsistent")
	}
	if c.Storyboard.AutoMinDuration <= 0 || c.Storyboard.AutoMaxDuration <= c.Storyboard.AutoMinDuration {
		return errors.New("storyboard auto duration bounds are inconsistent")
	}
	return nil
}

// MissingCredential reports whether the configured credential variable was
// unset or blank. Callers fail fast on it before any network attempt.
func (c Config) MissingCredential() bool {
	return c.APIKey == ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
