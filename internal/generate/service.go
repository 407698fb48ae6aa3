// Package generate assembles purpose-specific prompts and runs them through
// the upstream dispatcher. The builders differ only in how system and user
// prompts are put together from typed parameters; dispatch, retry handling,
// truncation detection, and the result contract are shared.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"promptforge/internal/config"
	"promptforge/internal/upstream/openai"
)

// Dispatcher sends one composed generation request.
type Dispatcher interface {
	Generate(ctx context.Context, req openai.Request) (openai.Result, error)
}

// Outcome is the uniform result every builder hands back. An empty
// ErrorMessage signals success; on failure Text must not be trusted.
type Outcome struct {
	Text         string `json:"text"`
	FinishReason string `json:"finishReason"`
	RetryCount   int    `json:"retryCount"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

func (o Outcome) Failed() bool { return o.ErrorMessage != "" }

type Service struct {
	cfg        config.Config
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewService(cfg config.Config, dispatcher Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, dispatcher: dispatcher, logger: logger}
}

func (s *Service) model(requested string) string {
	if requested != "" {
		return requested
	}
	return s.cfg.DefaultModel
}

func (s *Service) isLengthLimited(finishReason string) bool {
	if finishReason == "" {
		return false
	}
	for _, reason := range s.cfg.LengthLimitReasons {
		if finishReason == reason {
			return true
		}
	}
	return false
}

// dispatch runs one composed request end to end. The credential check comes
// first so a missing key never costs a network round trip. truncationAdvice
// is the operation-specific guidance shown when the backend stopped at its
// token limit despite returning HTTP 200.
func (s *Service) dispatch(
	ctx context.Context,
	operation, model, systemPrompt, userPrompt string,
	temperature float64,
	truncationAdvice string,
) Outcome {
	if s.cfg.MissingCredential() && openai.RequestAPIKeyFromContext(ctx) == "" {
		return Outcome{
			ErrorMessage: fmt.Sprintf("%s is not set; configure the API key before generating", s.cfg.APIKeyEnvName),
		}
	}

	result, err := s.dispatcher.Generate(ctx, openai.Request{
		SystemPrompt:       systemPrompt,
		UserPrompt:         userPrompt,
		Temperature:        temperature,
		MaxOutputTokens:    s.cfg.MaxOutputTokens,
		Model:              s.model(model),
		IncludeTemperature: s.cfg.IncludeTemperature,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Outcome{
				RetryCount:   apiErr.RetryCount,
				ErrorMessage: apiErr.Error(),
				StatusCode:   apiErr.StatusCode,
			}
		}
		return Outcome{ErrorMessage: err.Error()}
	}

	if result.RetryCount > 0 {
		s.logger.Info("generation_succeeded_after_retries",
			"operation", operation,
			"retries", result.RetryCount,
		)
	}
	if s.isLengthLimited(result.FinishReason) {
		return Outcome{
			FinishReason: result.FinishReason,
			RetryCount:   result.RetryCount,
			StatusCode:   result.StatusCode,
			ErrorMessage: "the response hit the token limit; " + truncationAdvice,
		}
	}
	return Outcome{
		Text:         result.Text,
		FinishReason: result.FinishReason,
		RetryCount:   result.RetryCount,
		StatusCode:   result.StatusCode,
	}
}

func limitInstruction(lengthLimit int) string {
	if lengthLimit > 0 {
		return fmt.Sprintf("\nIMPORTANT: Strictly limit the output to under %d characters.", lengthLimit)
	}
	return ""
}
